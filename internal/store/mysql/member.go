package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/aleixpons/padel-club-backend/internal/apperror"
	"github.com/aleixpons/padel-club-backend/internal/model"
)

type memberStore struct{ tx *sql.Tx }

const memberCols = "id,name,surname,phone,email,role,password_hash,balance,created_at,updated_at"

func scanMember(row interface{ Scan(...interface{}) error }) (model.Member, error) {
	var (
		m     model.Member
		phone sql.NullString
		bal   []byte
		role  string
	)
	err := row.Scan(&m.ID, &m.Name, &m.Surname, &phone, &m.Email, &role, &m.PasswordHash, &bal, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return model.Member{}, err
	}
	m.Phone = phone.String
	m.Role = model.Role(role)
	if m.Balance, err = scanDecimal(bal); err != nil {
		return model.Member{}, err
	}
	return m, nil
}

func (s *memberStore) clubIDs(ctx context.Context, memberID uint64) ([]uint64, error) {
	rows, err := s.tx.QueryContext(ctx,
		"SELECT club_id FROM club_members WHERE member_id=? ORDER BY club_id", memberID)
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

func (s *memberStore) Create(ctx context.Context, m *model.Member) error {
	var phone interface{}
	if m.Phone != "" {
		phone = m.Phone
	}
	res, err := s.tx.ExecContext(ctx,
		"INSERT INTO members (name,surname,phone,email,role,password_hash,balance) VALUES (?,?,?,?,?,?,?)",
		m.Name, m.Surname, phone, strings.ToLower(m.Email), string(m.Role), m.PasswordHash, m.Balance.StringFixed(2))
	if err != nil {
		if isDup(err) {
			return apperror.New(apperror.Conflict, "member %s %s already exists", m.Name, m.Surname)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	got, err := s.Get(ctx, m.ID)
	if err != nil {
		return err
	}
	m.CreatedAt, m.UpdatedAt = got.CreatedAt, got.UpdatedAt
	return nil
}

func (s *memberStore) Update(ctx context.Context, m *model.Member) error {
	var phone interface{}
	if m.Phone != "" {
		phone = m.Phone
	}
	res, err := s.tx.ExecContext(ctx,
		"UPDATE members SET name=?,surname=?,phone=?,email=?,role=?,password_hash=?,balance=? WHERE id=?",
		m.Name, m.Surname, phone, strings.ToLower(m.Email), string(m.Role), m.PasswordHash, m.Balance.StringFixed(2), m.ID)
	if err != nil {
		if isDup(err) {
			return apperror.New(apperror.Conflict, "member %s %s already exists", m.Name, m.Surname)
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Zero rows can also mean no change; verify existence.
		if _, err := s.Get(ctx, m.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *memberStore) Get(ctx context.Context, id uint64) (model.Member, error) {
	m, err := scanMember(s.tx.QueryRowContext(ctx,
		"SELECT "+memberCols+" FROM members WHERE id=? LIMIT 1", id))
	if notFound(err) {
		return model.Member{}, apperror.New(apperror.NotFound, "member %d not found", id)
	}
	if err != nil {
		return model.Member{}, err
	}
	m.ClubIDs, err = s.clubIDs(ctx, m.ID)
	return m, err
}

func (s *memberStore) GetByEmail(ctx context.Context, email string) (model.Member, error) {
	m, err := scanMember(s.tx.QueryRowContext(ctx,
		"SELECT "+memberCols+" FROM members WHERE email=? LIMIT 1", strings.ToLower(email)))
	if notFound(err) {
		return model.Member{}, apperror.New(apperror.NotFound, "member %s not found", email)
	}
	if err != nil {
		return model.Member{}, err
	}
	m.ClubIDs, err = s.clubIDs(ctx, m.ID)
	return m, err
}

func (s *memberStore) GetByPhone(ctx context.Context, phone string) (model.Member, error) {
	m, err := scanMember(s.tx.QueryRowContext(ctx,
		"SELECT "+memberCols+" FROM members WHERE phone=? LIMIT 1", phone))
	if notFound(err) {
		return model.Member{}, apperror.New(apperror.NotFound, "member with phone %s not found", phone)
	}
	if err != nil {
		return model.Member{}, err
	}
	m.ClubIDs, err = s.clubIDs(ctx, m.ID)
	return m, err
}

func (s *memberStore) List(ctx context.Context) ([]model.Member, error) {
	rows, err := s.tx.QueryContext(ctx,
		"SELECT "+memberCols+" FROM members ORDER BY name, surname")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].ClubIDs, err = s.clubIDs(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *memberStore) ListByRole(ctx context.Context, roles ...model.Role) ([]model.Member, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	q := "SELECT " + memberCols + " FROM members WHERE role IN (?" + strings.Repeat(",?", len(roles)-1) + ") ORDER BY name, surname"
	args := make([]interface{}, len(roles))
	for i, r := range roles {
		args[i] = string(r)
	}
	rows, err := s.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *memberStore) Delete(ctx context.Context, id uint64) error {
	res, err := s.tx.ExecContext(ctx, "DELETE FROM members WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.New(apperror.NotFound, "member %d not found", id)
	}
	return nil
}
