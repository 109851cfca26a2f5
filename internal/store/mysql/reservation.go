package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/aleixpons/padel-club-backend/internal/apperror"
	"github.com/aleixpons/padel-club-backend/internal/model"
)

type reservationStore struct{ tx *sql.Tx }

func (s *reservationStore) Create(ctx context.Context, r *model.Reservation) error {
	if r.Date.IsZero() {
		r.Date = time.Now().UTC()
	}
	res, err := s.tx.ExecContext(ctx,
		"INSERT INTO reservations (slot_id, reserved_by, date) VALUES (?,?,?)",
		r.SlotID, r.ReservedBy, r.Date)
	if err != nil {
		if isDup(err) {
			return apperror.New(apperror.Conflict, "slot %d already reserved", r.SlotID)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint64(id)
	return nil
}

func (s *reservationStore) Get(ctx context.Context, id uint64) (model.Reservation, error) {
	var r model.Reservation
	err := s.tx.QueryRowContext(ctx,
		"SELECT id,slot_id,reserved_by,date,created_at FROM reservations WHERE id=? LIMIT 1", id).
		Scan(&r.ID, &r.SlotID, &r.ReservedBy, &r.Date, &r.CreatedAt)
	if notFound(err) {
		return model.Reservation{}, apperror.New(apperror.NotFound, "reservation %d not found", id)
	}
	return r, err
}

func (s *reservationStore) List(ctx context.Context) ([]model.Reservation, error) {
	rows, err := s.tx.QueryContext(ctx,
		"SELECT id,slot_id,reserved_by,date,created_at FROM reservations ORDER BY date DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		var r model.Reservation
		if err := rows.Scan(&r.ID, &r.SlotID, &r.ReservedBy, &r.Date, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *reservationStore) Delete(ctx context.Context, id uint64) error {
	res, err := s.tx.ExecContext(ctx, "DELETE FROM reservations WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.New(apperror.NotFound, "reservation %d not found", id)
	}
	return nil
}

type tokenStore struct{ tx *sql.Tx }

func (s *tokenStore) Create(ctx context.Context, t *model.RefreshToken) error {
	res, err := s.tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (member_id, token_hash, expires_at) VALUES (?,?,?)",
		t.MemberID, t.TokenHash, t.ExpiresAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

func (s *tokenStore) FindActive(ctx context.Context, hash string) (model.RefreshToken, error) {
	var (
		t       model.RefreshToken
		revoked sql.NullTime
	)
	err := s.tx.QueryRowContext(ctx,
		"SELECT id,member_id,token_hash,expires_at,revoked_at,created_at FROM refresh_tokens "+
			"WHERE token_hash=? AND revoked_at IS NULL AND expires_at>UTC_TIMESTAMP() LIMIT 1", hash).
		Scan(&t.ID, &t.MemberID, &t.TokenHash, &t.ExpiresAt, &revoked, &t.CreatedAt)
	if notFound(err) {
		return model.RefreshToken{}, apperror.New(apperror.NotFound, "refresh token not found")
	}
	if err != nil {
		return model.RefreshToken{}, err
	}
	if revoked.Valid {
		rt := revoked.Time
		t.RevokedAt = &rt
	}
	return t, nil
}

func (s *tokenStore) Revoke(ctx context.Context, id uint64) error {
	res, err := s.tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE id=? AND revoked_at IS NULL", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.New(apperror.NotFound, "refresh token %d not found", id)
	}
	return nil
}
