package service

import (
	"nexos/internal/model"
)

// RoleSystem identifies in-process callers such as the expiry sweep.
const RoleSystem = "system"

// Caller is the authenticated identity an operation runs on behalf of.
type Caller struct {
	AccountID string
	Kind      string
	Role      string
}

// SystemCaller is used by background jobs.
var SystemCaller = Caller{AccountID: "system", Kind: model.AccountKindCompany, Role: RoleSystem}

func (c Caller) IsAdmin() bool {
	return c.Role == model.RoleAdmin
}

func (c Caller) isSystem() bool {
	return c.Role == RoleSystem
}

// canManage reports whether c may pause, resume, cancel or finalize a.
func (c Caller) canManage(a *model.Auction) bool {
	return c.IsAdmin() || c.isSystem() || a.OwnedBy(c.AccountID)
}
