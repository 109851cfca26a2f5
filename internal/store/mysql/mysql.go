// Package mysql implements the store contract on MySQL. Each logical
// transaction maps to one sql.Tx; the sequencer guarantees at most one
// is in flight, so the implementation never contends with itself.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aleixpons/padel-club-backend/internal/apperror"
	"github.com/aleixpons/padel-club-backend/internal/store"
)

// Store opens transactions against a MySQL database.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

// Begin runs fn inside one sql.Tx. Any error from fn rolls the
// transaction back and is returned unchanged.
func (s *Store) Begin(ctx context.Context, fn func(tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperror.Wrap(apperror.Internal, err, "begin transaction")
	}
	t := &tx{tx: sqlTx}
	if err := fn(t); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return apperror.Wrap(apperror.Internal, err, "commit transaction")
	}
	return nil
}

// Close releases the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

type tx struct{ tx *sql.Tx }

func (t *tx) Members() store.MemberStore           { return &memberStore{t.tx} }
func (t *tx) Clubs() store.ClubStore               { return &clubStore{t.tx} }
func (t *tx) Hours() store.HourStore               { return &hourStore{t.tx} }
func (t *tx) Slots() store.SlotStore               { return &slotStore{t.tx} }
func (t *tx) Guests() store.GuestStore             { return &guestStore{t.tx} }
func (t *tx) Entries() store.EntryStore            { return &entryStore{t.tx} }
func (t *tx) Reservations() store.ReservationStore { return &reservationStore{t.tx} }
func (t *tx) Batches() store.BatchStore            { return &batchStore{t.tx} }
func (t *tx) Tokens() store.TokenStore             { return &tokenStore{t.tx} }

// isDup reports MySQL duplicate-key violations (error 1062).
func isDup(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

func notFound(err error) bool { return errors.Is(err, sql.ErrNoRows) }

// scanDecimal converts a DECIMAL column scanned as []byte.
func scanDecimal(raw []byte) (decimal.Decimal, error) {
	if len(raw) == 0 {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(string(raw))
}
