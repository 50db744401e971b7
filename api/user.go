package api

import "github.com/shopspring/decimal"

// User describes the authenticated account.
type User struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Email    string          `json:"email,omitempty"`
	Balance  decimal.Decimal `json:"balance"`
	SSHKey   string          `json:"ssh_key,omitempty"`
}
