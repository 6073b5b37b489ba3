package history

import (
	"time"

	"gorm.io/gorm"
)

// Payout kinds recorded per settled event.
const (
	KindReward    = "reward"
	KindPrincipal = "principal"
	KindShortfall = "shortfall"
)

// Payout is one token movement out of a module account, or the unpaid part of
// a staking entitlement.
type Payout struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   string    `gorm:"size:64;uniqueIndex:idx_payout_event_kind" json:"eventId"`
	Kind      string    `gorm:"size:16;uniqueIndex:idx_payout_event_kind" json:"kind"`
	Module    string    `gorm:"size:32;index" json:"module"`
	EventType string    `gorm:"size:64" json:"eventType"`
	Account   string    `gorm:"size:42;index" json:"account"`
	Pool      *uint64   `gorm:"index" json:"pool"`
	Positions string    `gorm:"size:512" json:"positions"`
	Amount    string    `gorm:"size:80;not null" json:"amount"`
	Height    uint64    `gorm:"index" json:"height"`
	BlockTime time.Time `gorm:"index" json:"blockTime"`
	Caller    string    `gorm:"size:42" json:"caller"`
	CreatedAt time.Time `json:"createdAt"`
}

// Activity mirrors every committed event so position changes can be replayed
// per account.
type Activity struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EventID    string    `gorm:"size:64;uniqueIndex" json:"eventId"`
	Module     string    `gorm:"size:32;index" json:"module"`
	EventType  string    `gorm:"size:64;index" json:"eventType"`
	Account    string    `gorm:"size:42;index" json:"account"`
	Height     uint64    `gorm:"index" json:"height"`
	BlockTime  time.Time `json:"blockTime"`
	Caller     string    `gorm:"size:42" json:"caller"`
	Attributes string    `gorm:"type:text" json:"attributes"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AutoMigrate performs all schema migrations for the index.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Payout{},
		&Activity{},
	)
}
