package domain

import "time"

type UsageRecord struct {
	Identity        string     `db:"identity"`
	IsUnlimitedTier bool       `db:"is_unlimited_tier"`
	DailyCount      int        `db:"daily_count"`
	LastCountedDate *time.Time `db:"last_counted_date"`
}

// Eligibility is the read-only answer of a quota check.
// Remaining is -1 when Unlimited is set.
type Eligibility struct {
	CanProceed bool `json:"canProceed"`
	Remaining  int  `json:"remaining"`
	Unlimited  bool `json:"unlimited"`
}
