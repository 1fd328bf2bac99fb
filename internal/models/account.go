package models

import "time"

// Account is the persisted shape of a row in guest_accounts. It never leaves
// the service; handlers only see dto.Account.
type Account struct {
	ID        string
	Guest     bool
	CreatedAt time.Time
}
