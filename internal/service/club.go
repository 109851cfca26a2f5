package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aleixpons/padel-club-backend/internal/apperror"
	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/store"
	"github.com/aleixpons/padel-club-backend/internal/txqueue"
)

// Clubs manages the club directory and the hour price schedule.
type Clubs struct {
	q *txqueue.Queue
}

func NewClubs(q *txqueue.Queue) *Clubs { return &Clubs{q: q} }

// Create registers a club and enrolls every existing member in it.
func (s *Clubs) Create(ctx context.Context, name string) (model.Club, error) {
	var out model.Club
	err := s.q.Do(ctx, func(tx store.Tx) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return apperror.New(apperror.Validation, "club name required")
		}
		c := model.Club{Name: name}
		if err := tx.Clubs().Create(ctx, &c); err != nil {
			return err
		}
		members, err := tx.Members().List(ctx)
		if err != nil {
			return err
		}
		for _, m := range members {
			if err := tx.Clubs().AddMember(ctx, c.ID, m.ID); err != nil {
				return err
			}
		}
		var gerr error
		out, gerr = tx.Clubs().Get(ctx, c.ID)
		return gerr
	})
	return out, err
}

// List returns every club with its membership.
func (s *Clubs) List(ctx context.Context) ([]model.Club, error) {
	var out []model.Club
	err := s.q.Do(ctx, func(tx store.Tx) error {
		clubs, err := tx.Clubs().List(ctx)
		if err != nil {
			return err
		}
		out = clubs
		return nil
	})
	return out, err
}

// SetHourRate upserts the price for an hour label in the active
// schedule.
func (s *Clubs) SetHourRate(ctx context.Context, label string, price decimal.Decimal) (model.HourRate, error) {
	var out model.HourRate
	err := s.q.Do(ctx, func(tx store.Tx) error {
		label = strings.TrimSpace(label)
		if label == "" {
			return apperror.New(apperror.Validation, "hour label required")
		}
		if price.IsNegative() || price.IsZero() {
			return apperror.New(apperror.Validation, "price must be positive")
		}
		r := model.HourRate{Label: label, Price: price.Round(2), Active: true}
		if err := tx.Hours().Put(ctx, &r); err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}
