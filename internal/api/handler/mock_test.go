package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"github.com/kilohana/platform/internal/api/middleware"
	"github.com/kilohana/platform/internal/config"
	"github.com/kilohana/platform/internal/core"
	"github.com/kilohana/platform/internal/model"
)

// handlerMockDB implements core.DB for handler tests.
type handlerMockDB struct {
	mock.Mock
}

func (m *handlerMockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *handlerMockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *handlerMockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// mockRow implements pgx.Row for handler tests.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

func noRowsRow() *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

func countRow(n int) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*int)) = n
		return nil
	}}
}

func createdAtRow() *mockRow {
	now := time.Now().Truncate(time.Microsecond)
	return &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*time.Time)) = now
		return nil
	}}
}

// listRows implements pgx.Rows over a list of scan functions, one per row.
type listRows struct {
	callIndex int
	scanFuncs []func(dest ...any) error
}

func (m *listRows) Next() bool {
	return m.callIndex < len(m.scanFuncs)
}

func (m *listRows) Scan(dest ...any) error {
	fn := m.scanFuncs[m.callIndex]
	m.callIndex++
	return fn(dest...)
}

func (m *listRows) Err() error                                   { return nil }
func (m *listRows) Close()                                       {}
func (m *listRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (m *listRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *listRows) RawValues() [][]byte                          { return nil }
func (m *listRows) Values() ([]any, error)                       { return nil, nil }
func (m *listRows) Conn() *pgx.Conn                              { return nil }

// ---------- Request helpers ----------

const testPepper = "0123456789abcdef0123456789abcdef"

func testConfig() *config.Config {
	return &config.Config{
		BaseURL:                 "http://localhost:3000",
		PasswordPepper:          testPepper,
		SessionTTL:              24 * time.Hour,
		LoginMaxAttempts:        5,
		LoginWindow:             15 * time.Minute,
		RegistrationMaxAttempts: 5,
		RegistrationWindow:      time.Hour,
	}
}

func testServices(db core.DB) *core.Services {
	return core.NewServices(db, testConfig(), zerolog.Nop())
}

// newRequest creates a new HTTP request with an optional JSON body.
func newRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// newRequestRaw creates a new HTTP request with a raw string body.
func newRequestRaw(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// withAuthUser injects an authenticated user into the request context.
func withAuthUser(r *http.Request, user *core.AuthUser) *http.Request {
	return r.WithContext(middleware.WithAuthUser(r.Context(), user))
}

func testAuthUser() *core.AuthUser {
	return &core.AuthUser{
		ID:         "acc-1",
		Email:      "alice@example.com",
		Username:   "alice",
		SystemRole: model.SystemRoleUser,
		Role:       core.RoleView{Kind: core.RoleKindGuest},
	}
}

// decodeErrorResponse parses the JSON error response body into a map.
func decodeErrorResponse(rec *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body
}

// cookieByName finds a Set-Cookie entry in the recorded response.
func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
