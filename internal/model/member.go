package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is the access level of a member account.
type Role string

const (
	RoleMember   Role = "member"   // regular club member
	RolePriority Role = "priority" // carried forward on weekly roll-over
	RoleAdmin    Role = "admin"    // may reserve slots and manage the ledger
)

// Roles lists every valid role value, used for input validation.
var Roles = []Role{RoleMember, RolePriority, RoleAdmin}

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	for _, v := range Roles {
		if v == r {
			return true
		}
	}
	return false
}

// Member is an account record. The Balance field is the committed
// balance: it only moves when a ledger entry transitions into or out
// of the validated state. The projected balance is derived on read as
// Balance plus the sum of the member's unvalidated entries.
//
// Fields:
//  ID           – primary key identifier.
//  Name/Surname – display name (unique together).
//  Phone/Email  – contact and login identifiers.
//  Role         – member, priority or admin.
//  PasswordHash – bcrypt hash; empty for external-identity accounts.
//  Balance      – committed balance, 2 decimal places.
//  ClubIDs      – clubs the member belongs to.
type Member struct {
	ID           uint64
	Name         string
	Surname      string
	Phone        string
	Email        string
	Role         Role
	PasswordHash string
	Balance      decimal.Decimal
	ClubIDs      []uint64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshToken models a stored refresh-token row. Only the SHA-256
// hash of the raw token is persisted.
type RefreshToken struct {
	ID        uint64
	MemberID  uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
