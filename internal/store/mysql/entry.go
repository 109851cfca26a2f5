package mysql

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/aleixpons/padel-club-backend/internal/apperror"
	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/store"
)

type entryStore struct{ tx *sql.Tx }

const entryCols = "id,member_id,slot_id,batch_id,amount,label,validated,date"

func scanEntry(row interface{ Scan(...interface{}) error }) (model.LedgerEntry, error) {
	var (
		e       model.LedgerEntry
		slotID  sql.NullInt64
		batchID sql.NullInt64
		amount  []byte
	)
	err := row.Scan(&e.ID, &e.MemberID, &slotID, &batchID, &amount, &e.Label, &e.Validated, &e.Date)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	e.SlotID = uint64(slotID.Int64)
	e.BatchID = uint64(batchID.Int64)
	if e.Amount, err = scanDecimal(amount); err != nil {
		return model.LedgerEntry{}, err
	}
	return e, nil
}

func (s *entryStore) Create(ctx context.Context, e *model.LedgerEntry) error {
	var slotID, batchID interface{}
	if e.SlotID != 0 {
		slotID = e.SlotID
	}
	if e.BatchID != 0 {
		batchID = e.BatchID
	}
	res, err := s.tx.ExecContext(ctx,
		"INSERT INTO entries (member_id, slot_id, batch_id, amount, label, validated, date) VALUES (?,?,?,?,?,?,?)",
		e.MemberID, slotID, batchID, e.Amount.StringFixed(2), e.Label, e.Validated, e.Date)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

func (s *entryStore) Get(ctx context.Context, id uint64) (model.LedgerEntry, error) {
	e, err := scanEntry(s.tx.QueryRowContext(ctx,
		"SELECT "+entryCols+" FROM entries WHERE id=? LIMIT 1", id))
	if notFound(err) {
		return model.LedgerEntry{}, apperror.New(apperror.NotFound, "entry %d not found", id)
	}
	return e, err
}

func (s *entryStore) SetValidated(ctx context.Context, id uint64, validated bool) error {
	res, err := s.tx.ExecContext(ctx, "UPDATE entries SET validated=? WHERE id=?", validated, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *entryStore) Delete(ctx context.Context, id uint64) error {
	res, err := s.tx.ExecContext(ctx, "DELETE FROM entries WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.New(apperror.NotFound, "entry %d not found", id)
	}
	return nil
}

func entryWhere(f store.EntryFilter) (string, []interface{}) {
	q := " WHERE 1=1"
	var args []interface{}
	if f.MemberID != 0 {
		q += " AND member_id=?"
		args = append(args, f.MemberID)
	}
	if f.SlotID != 0 {
		q += " AND slot_id=?"
		args = append(args, f.SlotID)
	}
	if f.BatchID != 0 {
		q += " AND batch_id=?"
		args = append(args, f.BatchID)
	}
	if f.Validated != nil {
		q += " AND validated=?"
		args = append(args, *f.Validated)
	}
	if !f.DateFrom.IsZero() {
		q += " AND date>=?"
		args = append(args, f.DateFrom)
	}
	if !f.DateTo.IsZero() {
		q += " AND date<=?"
		args = append(args, f.DateTo)
	}
	return q, args
}

func (s *entryStore) List(ctx context.Context, f store.EntryFilter, order store.EntryOrder, page store.Page) ([]model.LedgerEntry, error) {
	where, args := entryWhere(f)
	q := "SELECT " + entryCols + " FROM entries" + where
	switch order {
	case store.OrderAdminView:
		q += " ORDER BY validated ASC, amount DESC, date DESC, id DESC"
	default:
		q += " ORDER BY date DESC, id DESC"
	}
	if page.Size > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, page.Size, page.Number*page.Size)
	}
	rows, err := s.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *entryStore) Count(ctx context.Context, f store.EntryFilter) (int, error) {
	where, args := entryWhere(f)
	var n int
	err := s.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries"+where, args...).Scan(&n)
	return n, err
}

func (s *entryStore) SumUnvalidated(ctx context.Context, memberID uint64) (decimal.Decimal, error) {
	var raw []byte
	err := s.tx.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount),0) FROM entries WHERE member_id=? AND validated=0", memberID).Scan(&raw)
	if err != nil {
		return decimal.Zero, err
	}
	return scanDecimal(raw)
}

type batchStore struct{ tx *sql.Tx }

const batchCols = "id,month,year,amount,note,created_at"

func scanBatch(row interface{ Scan(...interface{}) error }) (model.MonthlyBatch, error) {
	var (
		b      model.MonthlyBatch
		amount []byte
	)
	err := row.Scan(&b.ID, &b.Month, &b.Year, &amount, &b.Note, &b.CreatedAt)
	if err != nil {
		return model.MonthlyBatch{}, err
	}
	if b.Amount, err = scanDecimal(amount); err != nil {
		return model.MonthlyBatch{}, err
	}
	return b, nil
}

func (s *batchStore) Create(ctx context.Context, b *model.MonthlyBatch) error {
	res, err := s.tx.ExecContext(ctx,
		"INSERT INTO monthly_batches (month, year, amount, note) VALUES (?,?,?,?)",
		b.Month, b.Year, b.Amount.StringFixed(2), b.Note)
	if err != nil {
		if isDup(err) {
			return apperror.New(apperror.Conflict, "monthly batch %d/%d already exists", b.Month, b.Year)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

func (s *batchStore) Get(ctx context.Context, id uint64) (model.MonthlyBatch, error) {
	b, err := scanBatch(s.tx.QueryRowContext(ctx,
		"SELECT "+batchCols+" FROM monthly_batches WHERE id=? LIMIT 1", id))
	if notFound(err) {
		return model.MonthlyBatch{}, apperror.New(apperror.NotFound, "batch %d not found", id)
	}
	return b, err
}

func (s *batchStore) GetByPeriod(ctx context.Context, month, year int) (model.MonthlyBatch, error) {
	b, err := scanBatch(s.tx.QueryRowContext(ctx,
		"SELECT "+batchCols+" FROM monthly_batches WHERE month=? AND year=? LIMIT 1", month, year))
	if notFound(err) {
		return model.MonthlyBatch{}, apperror.New(apperror.NotFound, "batch %d/%d not found", month, year)
	}
	return b, err
}

func (s *batchStore) List(ctx context.Context) ([]model.MonthlyBatch, error) {
	rows, err := s.tx.QueryContext(ctx,
		"SELECT "+batchCols+" FROM monthly_batches ORDER BY year DESC, month DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MonthlyBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *batchStore) Delete(ctx context.Context, id uint64) error {
	res, err := s.tx.ExecContext(ctx, "DELETE FROM monthly_batches WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.New(apperror.NotFound, "batch %d not found", id)
	}
	return nil
}
