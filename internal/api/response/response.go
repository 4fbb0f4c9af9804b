package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kilohana/platform/internal/core"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteServiceError maps a coded core error to its status; anything else is a
// generic 500 with no internal detail crossing the boundary.
func WriteServiceError(w http.ResponseWriter, err error) {
	var coded *core.Error
	if errors.As(err, &coded) {
		WriteJSON(w, coded.Status, map[string]string{"error": coded.Message, "code": coded.Code})
		return
	}
	WriteError(w, http.StatusInternalServerError, "Internal Server Error")
}
