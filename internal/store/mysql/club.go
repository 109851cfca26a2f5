package mysql

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/aleixpons/padel-club-backend/internal/apperror"
	"github.com/aleixpons/padel-club-backend/internal/model"
)

type clubStore struct{ tx *sql.Tx }

func (s *clubStore) Create(ctx context.Context, c *model.Club) error {
	res, err := s.tx.ExecContext(ctx, "INSERT INTO clubs (name) VALUES (?)", c.Name)
	if err != nil {
		if isDup(err) {
			return apperror.New(apperror.Conflict, "club %s already exists", c.Name)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

func (s *clubStore) memberIDs(ctx context.Context, clubID uint64) ([]uint64, error) {
	rows, err := s.tx.QueryContext(ctx,
		"SELECT member_id FROM club_members WHERE club_id=? ORDER BY member_id", clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *clubStore) Get(ctx context.Context, id uint64) (model.Club, error) {
	var c model.Club
	err := s.tx.QueryRowContext(ctx,
		"SELECT id,name FROM clubs WHERE id=? LIMIT 1", id).Scan(&c.ID, &c.Name)
	if notFound(err) {
		return model.Club{}, apperror.New(apperror.NotFound, "club %d not found", id)
	}
	if err != nil {
		return model.Club{}, err
	}
	c.MemberIDs, err = s.memberIDs(ctx, c.ID)
	return c, err
}

func (s *clubStore) List(ctx context.Context) ([]model.Club, error) {
	rows, err := s.tx.QueryContext(ctx, "SELECT id,name FROM clubs ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Club
	for rows.Next() {
		var c model.Club
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].MemberIDs, err = s.memberIDs(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *clubStore) AddMember(ctx context.Context, clubID, memberID uint64) error {
	_, err := s.tx.ExecContext(ctx,
		"INSERT IGNORE INTO club_members (club_id, member_id) VALUES (?,?)", clubID, memberID)
	return err
}

type hourStore struct{ tx *sql.Tx }

func (s *hourStore) Put(ctx context.Context, r *model.HourRate) error {
	res, err := s.tx.ExecContext(ctx,
		"INSERT INTO hour_rates (label, price, active) VALUES (?,?,?) ON DUPLICATE KEY UPDATE price=VALUES(price), active=VALUES(active)",
		r.Label, r.Price.StringFixed(2), r.Active)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		r.ID = uint64(id)
	}
	return nil
}

func (s *hourStore) ActivePrice(ctx context.Context, label string) (decimal.Decimal, bool, error) {
	var raw []byte
	err := s.tx.QueryRowContext(ctx,
		"SELECT price FROM hour_rates WHERE label=? AND active=1 LIMIT 1", label).Scan(&raw)
	if notFound(err) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	price, err := scanDecimal(raw)
	return price, err == nil, err
}
