package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/aleixpons/padel-club-backend/internal/apperror"
	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/store"
)

type slotStore struct{ tx *sql.Tx }

const slotCols = "id,name,club_id,date,hour,min_occupants,max_occupants,price,state,reservation_id,created_at,updated_at"

func scanSlot(row interface{ Scan(...interface{}) error }) (model.Slot, error) {
	var (
		sl    model.Slot
		price []byte
		state string
		resID sql.NullInt64
	)
	err := row.Scan(&sl.ID, &sl.Name, &sl.ClubID, &sl.Date, &sl.Hour,
		&sl.MinOccupants, &sl.MaxOccupants, &price, &state, &resID, &sl.CreatedAt, &sl.UpdatedAt)
	if err != nil {
		return model.Slot{}, err
	}
	sl.State = model.SlotState(state)
	sl.ReservationID = uint64(resID.Int64)
	if sl.Price, err = scanDecimal(price); err != nil {
		return model.Slot{}, err
	}
	return sl, nil
}

func (s *slotStore) Create(ctx context.Context, sl *model.Slot) error {
	res, err := s.tx.ExecContext(ctx,
		"INSERT INTO slots (name,club_id,date,hour,min_occupants,max_occupants,price,state) VALUES (?,?,?,?,?,?,?,?)",
		sl.Name, sl.ClubID, sl.Date, sl.Hour, sl.MinOccupants, sl.MaxOccupants, sl.Price.StringFixed(2), string(sl.State))
	if err != nil {
		if isDup(err) {
			return apperror.New(apperror.Conflict, "slot %s already exists for %s %s", sl.Name, sl.Date.Format("02-01-2006"), sl.Hour)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	sl.ID = uint64(id)
	return s.writeOccupants(ctx, sl)
}

func (s *slotStore) Update(ctx context.Context, sl *model.Slot) error {
	var resID interface{}
	if sl.ReservationID != 0 {
		resID = sl.ReservationID
	}
	_, err := s.tx.ExecContext(ctx,
		"UPDATE slots SET name=?,club_id=?,date=?,hour=?,min_occupants=?,max_occupants=?,price=?,state=?,reservation_id=? WHERE id=?",
		sl.Name, sl.ClubID, sl.Date, sl.Hour, sl.MinOccupants, sl.MaxOccupants,
		sl.Price.StringFixed(2), string(sl.State), resID, sl.ID)
	if err != nil {
		if isDup(err) {
			return apperror.New(apperror.Conflict, "slot %s already exists for %s %s", sl.Name, sl.Date.Format("02-01-2006"), sl.Hour)
		}
		return err
	}
	return s.writeOccupants(ctx, sl)
}

// writeOccupants rewrites the roster join rows to match sl.Occupants.
func (s *slotStore) writeOccupants(ctx context.Context, sl *model.Slot) error {
	if _, err := s.tx.ExecContext(ctx, "DELETE FROM slot_occupants WHERE slot_id=?", sl.ID); err != nil {
		return err
	}
	if len(sl.Occupants) == 0 {
		return nil
	}
	q := "INSERT INTO slot_occupants (slot_id, member_id) VALUES "
	args := make([]interface{}, 0, len(sl.Occupants)*2)
	for i, m := range sl.Occupants {
		if i > 0 {
			q += ","
		}
		q += "(?,?)"
		args = append(args, sl.ID, m.ID)
	}
	_, err := s.tx.ExecContext(ctx, q, args...)
	return err
}

// populate loads the roster and guest lists of one slot.
func (s *slotStore) populate(ctx context.Context, sl *model.Slot) error {
	rows, err := s.tx.QueryContext(ctx,
		"SELECT m.id,m.name,m.surname,m.phone,m.email,m.role,m.password_hash,m.balance,m.created_at,m.updated_at "+
			"FROM slot_occupants so JOIN members m ON m.id=so.member_id WHERE so.slot_id=? ORDER BY so.member_id",
		sl.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	sl.Occupants = nil
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return err
		}
		sl.Occupants = append(sl.Occupants, m)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	grows, err := s.tx.QueryContext(ctx,
		"SELECT g.id,g.slot_id,g.payer_id,g.kind,g.member_id,g.name,m.name,m.surname "+
			"FROM guests g LEFT JOIN members m ON m.id=g.member_id WHERE g.slot_id=? ORDER BY g.id",
		sl.ID)
	if err != nil {
		return err
	}
	defer grows.Close()
	sl.Guests = nil
	for grows.Next() {
		var (
			g        model.Guest
			kind     string
			memberID sql.NullInt64
			name     sql.NullString
			mn, ms   sql.NullString
		)
		if err := grows.Scan(&g.ID, &g.SlotID, &g.PayerID, &kind, &memberID, &name, &mn, &ms); err != nil {
			return err
		}
		g.Kind = model.GuestKind(kind)
		g.MemberID = uint64(memberID.Int64)
		g.Name = name.String
		if g.Kind == model.GuestMember && mn.Valid {
			g.Name = strings.TrimSpace(mn.String + " " + ms.String)
		}
		sl.Guests = append(sl.Guests, g)
	}
	return grows.Err()
}

func (s *slotStore) Get(ctx context.Context, id uint64) (model.Slot, error) {
	sl, err := scanSlot(s.tx.QueryRowContext(ctx,
		"SELECT "+slotCols+" FROM slots WHERE id=? LIMIT 1", id))
	if notFound(err) {
		return model.Slot{}, apperror.New(apperror.NotFound, "slot %d not found", id)
	}
	if err != nil {
		return model.Slot{}, err
	}
	if err := s.populate(ctx, &sl); err != nil {
		return model.Slot{}, err
	}
	return sl, nil
}

func (s *slotStore) List(ctx context.Context, f store.SlotFilter) ([]model.Slot, error) {
	q := "SELECT " + slotCols + " FROM slots WHERE 1=1"
	var args []interface{}
	if f.ClubID != 0 {
		q += " AND club_id=?"
		args = append(args, f.ClubID)
	}
	if f.Hour != "" {
		q += " AND hour=?"
		args = append(args, f.Hour)
	}
	if !f.Date.IsZero() {
		q += " AND date=?"
		args = append(args, f.Date)
	}
	if !f.DateFrom.IsZero() {
		q += " AND date>=?"
		args = append(args, f.DateFrom)
	}
	if !f.DateTo.IsZero() {
		q += " AND date<=?"
		args = append(args, f.DateTo)
	}
	if !f.DateBefore.IsZero() {
		q += " AND date<?"
		args = append(args, f.DateBefore)
	}
	if len(f.States) > 0 {
		q += " AND state IN (?" + strings.Repeat(",?", len(f.States)-1) + ")"
		for _, st := range f.States {
			args = append(args, string(st))
		}
	}
	if f.Unreserved {
		q += " AND reservation_id IS NULL"
	}
	q += " ORDER BY date, hour, id"

	rows, err := s.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Slot
	for rows.Next() {
		sl, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.populate(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *slotStore) Delete(ctx context.Context, id uint64) error {
	// Entries keep existing for audit with the slot reference cleared;
	// roster rows, guests and the reservation cascade away.
	if _, err := s.tx.ExecContext(ctx, "UPDATE entries SET slot_id=NULL WHERE slot_id=?", id); err != nil {
		return err
	}
	if _, err := s.tx.ExecContext(ctx, "DELETE FROM slot_occupants WHERE slot_id=?", id); err != nil {
		return err
	}
	if _, err := s.tx.ExecContext(ctx, "DELETE FROM guests WHERE slot_id=?", id); err != nil {
		return err
	}
	if _, err := s.tx.ExecContext(ctx, "DELETE FROM reservations WHERE slot_id=?", id); err != nil {
		return err
	}
	res, err := s.tx.ExecContext(ctx, "DELETE FROM slots WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.New(apperror.NotFound, "slot %d not found", id)
	}
	return nil
}

type guestStore struct{ tx *sql.Tx }

func (s *guestStore) Add(ctx context.Context, g *model.Guest) error {
	var memberID interface{}
	if g.Kind == model.GuestMember {
		memberID = g.MemberID
	}
	res, err := s.tx.ExecContext(ctx,
		"INSERT INTO guests (slot_id, payer_id, kind, member_id, name) VALUES (?,?,?,?,?)",
		g.SlotID, g.PayerID, string(g.Kind), memberID, g.Name)
	if err != nil {
		if isDup(err) {
			return apperror.New(apperror.Conflict, "guest already on slot")
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = uint64(id)
	return nil
}

func (s *guestStore) Remove(ctx context.Context, id uint64) error {
	res, err := s.tx.ExecContext(ctx, "DELETE FROM guests WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.New(apperror.NotFound, "guest %d not found", id)
	}
	return nil
}
