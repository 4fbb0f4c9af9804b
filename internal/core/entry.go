package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kilohana/platform/internal/model"
)

// EntryInput is a new kilo observation.
type EntryInput struct {
	Q1       string
	Q2       *string
	Q3       *string
	Location *string
}

// EntryService stores kilo observation entries for authenticated accounts.
type EntryService struct {
	db DB
}

func NewEntryService(db DB) *EntryService {
	return &EntryService{db: db}
}

func (s *EntryService) Create(ctx context.Context, accountID string, in EntryInput) (*model.Entry, error) {
	e := model.Entry{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Q1:        in.Q1,
		Q2:        in.Q2,
		Q3:        in.Q3,
		Location:  in.Location,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO entries (id, account_id, q1, q2, q3, location)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		e.ID, e.AccountID, e.Q1, e.Q2, e.Q3, e.Location,
	).Scan(&e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	return &e, nil
}

func (s *EntryService) ListForAccount(ctx context.Context, accountID string) ([]model.Entry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, account_id, q1, q2, q3, location, created_at
		 FROM entries WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []model.Entry
	for rows.Next() {
		var e model.Entry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Q1, &e.Q2, &e.Q3, &e.Location, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
