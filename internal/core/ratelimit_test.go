package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kilohana/platform/internal/model"
)

func newRateLimitService(db DB) *RateLimitService {
	return NewRateLimitService(db, RateLimitConfig{
		LoginMaxAttempts:        5,
		LoginWindow:             15 * time.Minute,
		RegistrationMaxAttempts: 5,
		RegistrationWindow:      time.Hour,
	}, zerolog.Nop())
}

func countRow(n int) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*int)) = n
		return nil
	}}
}

// ---------- CheckLogin ----------

func TestRateLimit_CheckLogin_UnderCap(t *testing.T) {
	db := &mockDB{}
	svc := newRateLimitService(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(countRow(4))

	err := svc.CheckLogin(ctx, "203.0.113.9", "alice@example.com")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestRateLimit_CheckLogin_AtCap(t *testing.T) {
	db := &mockDB{}
	svc := newRateLimitService(db)
	ctx := context.Background()

	// The fifth failure fills the budget; the next attempt is throttled.
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(countRow(5))

	err := svc.CheckLogin(ctx, "203.0.113.9", "alice@example.com")
	require.ErrorIs(t, err, ErrTooManyRequests)
	db.AssertExpectations(t)
}

func TestRateLimit_CheckLogin_NoOrigin(t *testing.T) {
	db := &mockDB{}
	svc := newRateLimitService(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(countRow(0))

	err := svc.CheckLogin(ctx, "", "alice@example.com")
	require.NoError(t, err)

	// Without an origin only the identifier binds the count.
	queryArgs := db.Calls[0].Arguments.Get(2).([]any)
	require.Len(t, queryArgs, 2)
	assert.Equal(t, "alice@example.com", queryArgs[1])
	db.AssertExpectations(t)
}

func TestRateLimit_CheckLogin_DBError(t *testing.T) {
	db := &mockDB{}
	svc := newRateLimitService(db)
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error { return errors.New("connection lost") }}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	err := svc.CheckLogin(ctx, "203.0.113.9", "alice@example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTooManyRequests)
	db.AssertExpectations(t)
}

// ---------- CheckRegistration ----------

func TestRateLimit_CheckRegistration_AtCap(t *testing.T) {
	db := &mockDB{}
	svc := newRateLimitService(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(countRow(5))

	err := svc.CheckRegistration(ctx, "203.0.113.9")
	require.ErrorIs(t, err, ErrTooManyRequests)

	// Registration attempts count under the reserved identifier.
	queryArgs := db.Calls[0].Arguments.Get(2).([]any)
	assert.Equal(t, model.RegistrationIdentifier, queryArgs[1])
	db.AssertExpectations(t)
}

func TestRateLimit_CheckRegistration_NoOriginAllows(t *testing.T) {
	db := &mockDB{}
	svc := newRateLimitService(db)
	ctx := context.Background()

	// Nothing to anchor the check on: warn and allow, no query at all.
	err := svc.CheckRegistration(ctx, "")
	require.NoError(t, err)
	db.AssertNotCalled(t, "QueryRow", mock.Anything, mock.Anything, mock.Anything)
}

// ---------- Record / Clear ----------

func TestRateLimit_RecordLogin_BestEffort(t *testing.T) {
	db := &mockDB{}
	svc := newRateLimitService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, errors.New("table gone"))

	// Audit failures are logged, never propagated.
	svc.RecordLogin(ctx, "203.0.113.9", "curl/8.0", "alice@example.com", false, "bad password")
	db.AssertExpectations(t)
}

func TestRateLimit_ClearFailed_BothAxes(t *testing.T) {
	db := &mockDB{}
	svc := newRateLimitService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)

	err := svc.ClearFailed(ctx, "203.0.113.9", "alice@example.com")
	require.NoError(t, err)

	deleteArgs := db.Calls[0].Arguments.Get(2).([]any)
	require.Len(t, deleteArgs, 2)
	assert.Equal(t, "alice@example.com", deleteArgs[0])
	assert.Equal(t, "203.0.113.9", deleteArgs[1])
	db.AssertExpectations(t)
}

func TestRateLimit_ClearFailed_NoOrigin(t *testing.T) {
	db := &mockDB{}
	svc := newRateLimitService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.CommandTag{}, nil)

	err := svc.ClearFailed(ctx, "", "alice@example.com")
	require.NoError(t, err)

	deleteArgs := db.Calls[0].Arguments.Get(2).([]any)
	require.Len(t, deleteArgs, 1)
	db.AssertExpectations(t)
}
