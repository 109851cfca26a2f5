package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aleixpons/padel-club-backend/internal/apperror"
	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/store"
	"github.com/aleixpons/padel-club-backend/internal/txqueue"
	"github.com/aleixpons/padel-club-backend/internal/utils"
)

// Members manages the account directory and authentication.
type Members struct {
	q          *txqueue.Queue
	refreshTTL time.Duration
}

// NewMembers wires the member service. refreshTTL bounds refresh-token
// lifetime.
func NewMembers(q *txqueue.Queue, refreshTTL time.Duration) *Members {
	return &Members{q: q, refreshTTL: refreshTTL}
}

// MemberInput carries the writable account fields.
type MemberInput struct {
	Name     string
	Surname  string
	Phone    string
	Email    string
	Role     model.Role
	Password string
}

// MemberView is a directory row: the account plus its derived ledger
// figures.
type MemberView struct {
	Member        model.Member
	FutureBalance decimal.Decimal
	DraftEntries  int
}

func validateMemberInput(in *MemberInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Surname == "" {
		return apperror.New(apperror.Validation, "name and surname required")
	}
	if in.Email == "" {
		return apperror.New(apperror.Validation, "email required")
	}
	if in.Role == "" {
		in.Role = model.RoleMember
	}
	if !model.ValidRole(in.Role) {
		return apperror.New(apperror.Validation, "unknown role %q", in.Role)
	}
	return nil
}

// Create registers an account. Email and phone must be unique; the new
// member is enrolled in every club.
func (s *Members) Create(ctx context.Context, in MemberInput) (model.Member, error) {
	var out model.Member
	err := s.q.Do(ctx, func(tx store.Tx) error {
		if err := validateMemberInput(&in); err != nil {
			return err
		}
		if _, err := tx.Members().GetByEmail(ctx, in.Email); err == nil {
			return apperror.New(apperror.Conflict, "email %s already registered", in.Email)
		} else if !apperror.IsKind(err, apperror.NotFound) {
			return err
		}
		if in.Phone != "" {
			if _, err := tx.Members().GetByPhone(ctx, in.Phone); err == nil {
				return apperror.New(apperror.Conflict, "phone %s already registered", in.Phone)
			} else if !apperror.IsKind(err, apperror.NotFound) {
				return err
			}
		}
		m := model.Member{
			Name:    in.Name,
			Surname: in.Surname,
			Phone:   in.Phone,
			Email:   in.Email,
			Role:    in.Role,
			Balance: decimal.Zero,
		}
		if in.Password != "" {
			hash, err := utils.HashPassword(in.Password)
			if err != nil {
				return err
			}
			m.PasswordHash = hash
		}
		if err := tx.Members().Create(ctx, &m); err != nil {
			return err
		}
		clubs, err := tx.Clubs().List(ctx)
		if err != nil {
			return err
		}
		for _, c := range clubs {
			if err := tx.Clubs().AddMember(ctx, c.ID, m.ID); err != nil {
				return err
			}
		}
		out, err = tx.Members().Get(ctx, m.ID)
		return err
	})
	return out, err
}

// Update rewrites the account fields. A blank password keeps the
// current one.
func (s *Members) Update(ctx context.Context, id uint64, in MemberInput) (model.Member, error) {
	var out model.Member
	err := s.q.Do(ctx, func(tx store.Tx) error {
		m, err := tx.Members().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := validateMemberInput(&in); err != nil {
			return err
		}
		if in.Email != m.Email {
			if _, err := tx.Members().GetByEmail(ctx, in.Email); err == nil {
				return apperror.New(apperror.Conflict, "email %s already registered", in.Email)
			} else if !apperror.IsKind(err, apperror.NotFound) {
				return err
			}
		}
		if in.Phone != "" && in.Phone != m.Phone {
			if _, err := tx.Members().GetByPhone(ctx, in.Phone); err == nil {
				return apperror.New(apperror.Conflict, "phone %s already registered", in.Phone)
			} else if !apperror.IsKind(err, apperror.NotFound) {
				return err
			}
		}
		m.Name, m.Surname, m.Phone, m.Email, m.Role = in.Name, in.Surname, in.Phone, in.Email, in.Role
		if in.Password != "" {
			hash, err := utils.HashPassword(in.Password)
			if err != nil {
				return err
			}
			m.PasswordHash = hash
		}
		if err := tx.Members().Update(ctx, &m); err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}

// Get returns one directory row with projected balance and the count
// of the member's provisional entries.
func (s *Members) Get(ctx context.Context, ref string) (MemberView, error) {
	var out MemberView
	err := s.q.Do(ctx, func(tx store.Tx) error {
		m, err := resolveMember(ctx, tx, ref)
		if err != nil {
			return err
		}
		v, err := memberView(ctx, tx, m)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// List returns the whole directory ordered by name.
func (s *Members) List(ctx context.Context) ([]MemberView, error) {
	var out []MemberView
	err := s.q.Do(ctx, func(tx store.Tx) error {
		all, err := tx.Members().List(ctx)
		if err != nil {
			return err
		}
		out = make([]MemberView, 0, len(all))
		for _, m := range all {
			v, err := memberView(ctx, tx, m)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func memberView(ctx context.Context, tx store.Tx, m model.Member) (MemberView, error) {
	future, err := projectedBalance(ctx, tx, &m)
	if err != nil {
		return MemberView{}, err
	}
	unvalidated := false
	drafts, err := tx.Entries().Count(ctx, store.EntryFilter{MemberID: m.ID, Validated: &unvalidated})
	if err != nil {
		return MemberView{}, err
	}
	return MemberView{Member: m, FutureBalance: future, DraftEntries: drafts}, nil
}

// Remove detaches an account. Members still occupying future slots
// cannot be removed.
func (s *Members) Remove(ctx context.Context, id uint64) error {
	return s.q.Do(ctx, func(tx store.Tx) error {
		m, err := tx.Members().Get(ctx, id)
		if err != nil {
			return err
		}
		upcoming, err := tx.Slots().List(ctx, store.SlotFilter{
			DateFrom: utils.Today(),
			States:   []model.SlotState{model.SlotOpened, model.SlotClosed, model.SlotReserved},
		})
		if err != nil {
			return err
		}
		for i := range upcoming {
			if upcoming[i].HasOccupant(m.ID) {
				return apperror.New(apperror.Conflict, "%s %s still occupies slot %s on %s",
					m.Name, m.Surname, upcoming[i].Name, utils.FormatDate(upcoming[i].Date))
			}
		}
		return tx.Members().Delete(ctx, m.ID)
	})
}

// AuthenticateCredential checks an email/password pair and returns the
// matching account.
func (s *Members) AuthenticateCredential(ctx context.Context, email, password string) (model.Member, error) {
	var out model.Member
	err := s.q.Do(ctx, func(tx store.Tx) error {
		m, err := tx.Members().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
		if err != nil {
			if apperror.IsKind(err, apperror.NotFound) {
				return apperror.New(apperror.Unauthorized, "invalid credentials")
			}
			return err
		}
		if m.PasswordHash == "" || !utils.VerifyPassword(m.PasswordHash, password) {
			return apperror.New(apperror.Unauthorized, "invalid credentials")
		}
		out = m
		return nil
	})
	return out, err
}

// AuthenticateExternal signs a member in through a verified external
// identity token. Unknown emails are provisioned as plain members on
// the fly.
func (s *Members) AuthenticateExternal(ctx context.Context, v utils.IdentityVerifier, rawToken string) (model.Member, error) {
	ident, err := v.Verify(ctx, rawToken)
	if err != nil {
		return model.Member{}, apperror.Wrap(apperror.Unauthorized, err, "identity token rejected")
	}
	var out model.Member
	err = s.q.Do(ctx, func(tx store.Tx) error {
		m, err := tx.Members().GetByEmail(ctx, strings.ToLower(ident.Email))
		if err == nil {
			out = m
			return nil
		}
		if !apperror.IsKind(err, apperror.NotFound) {
			return err
		}
		name, surname := splitFullName(ident.Name)
		nm := model.Member{
			Name:    name,
			Surname: surname,
			Email:   strings.ToLower(ident.Email),
			Role:    model.RoleMember,
			Balance: decimal.Zero,
		}
		if err := tx.Members().Create(ctx, &nm); err != nil {
			return err
		}
		clubs, err := tx.Clubs().List(ctx)
		if err != nil {
			return err
		}
		for _, c := range clubs {
			if err := tx.Clubs().AddMember(ctx, c.ID, nm.ID); err != nil {
				return err
			}
		}
		out, err = tx.Members().Get(ctx, nm.ID)
		return err
	})
	return out, err
}

func splitFullName(full string) (name, surname string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "Member", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// StoreRefresh persists the hash of a freshly issued refresh token.
func (s *Members) StoreRefresh(ctx context.Context, memberID uint64, raw string) error {
	return s.q.Do(ctx, func(tx store.Tx) error {
		t := model.RefreshToken{
			MemberID:  memberID,
			TokenHash: utils.HashRefreshRaw(raw),
			ExpiresAt: time.Now().UTC().Add(s.refreshTTL),
		}
		return tx.Tokens().Create(ctx, &t)
	})
}

// ValidateRefresh resolves a raw refresh token to its member, rotating
// it: the presented token is revoked so each one is single-use.
func (s *Members) ValidateRefresh(ctx context.Context, raw string) (model.Member, error) {
	var out model.Member
	err := s.q.Do(ctx, func(tx store.Tx) error {
		t, err := tx.Tokens().FindActive(ctx, utils.HashRefreshRaw(raw))
		if err != nil {
			if apperror.IsKind(err, apperror.NotFound) {
				return apperror.New(apperror.Unauthorized, "invalid refresh token")
			}
			return err
		}
		if err := tx.Tokens().Revoke(ctx, t.ID); err != nil {
			return err
		}
		out, err = tx.Members().Get(ctx, t.MemberID)
		return err
	})
	return out, err
}

// RevokeRefresh invalidates a raw refresh token on logout. Unknown
// tokens are ignored.
func (s *Members) RevokeRefresh(ctx context.Context, raw string) error {
	return s.q.Do(ctx, func(tx store.Tx) error {
		t, err := tx.Tokens().FindActive(ctx, utils.HashRefreshRaw(raw))
		if err != nil {
			if apperror.IsKind(err, apperror.NotFound) {
				return nil
			}
			return err
		}
		return tx.Tokens().Revoke(ctx, t.ID)
	})
}
