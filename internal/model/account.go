package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AccountKindUser    = "user"
	AccountKindCompany = "company"
)

const (
	RoleUser    = "user"
	RoleCompany = "company"
	RoleAdmin   = "admin"
)

// Account is a wallet owned by a user or a company.
// Balance is only ever written by the ledger, together with a LedgerEntry.
type Account struct {
	ID        string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	Kind      string          `gorm:"type:varchar(16);index;not null" json:"kind"`
	Role      string          `gorm:"type:varchar(16);not null" json:"role"`
	Name      string          `gorm:"type:varchar(128)" json:"name"`
	Balance   decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"balance"`
	Version   int             `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}

func (a *Account) IsCompany() bool {
	return a.Kind == AccountKindCompany
}

func ValidAccountKind(kind string) bool {
	return kind == AccountKindUser || kind == AccountKindCompany
}
