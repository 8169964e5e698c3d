package promotion

import (
	"strings"
	"time"
)

type Type string

const (
	TypePercentage Type = "PERCENTAGE"
	TypeFixed      Type = "FIXED"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

type Promotion struct {
	ID                int64     `json:"id"`
	Code              string    `json:"code"`
	Type              Type      `json:"type"`
	Value             int64     `json:"value"`
	MinOrderAmount    *int64    `json:"min_order_amount,omitempty"`
	MaxDiscountAmount *int64    `json:"max_discount_amount,omitempty"`
	UsageLimit        *int      `json:"usage_limit,omitempty"`
	UsedCount         int       `json:"used_count"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Usable reports whether the promotion can be applied at the given instant:
// active, inside its date window, and under its usage cap.
func (p *Promotion) Usable(now time.Time) bool {
	if p.Status != StatusActive {
		return false
	}
	if now.Before(p.StartDate) || now.After(p.EndDate) {
		return false
	}
	if p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit {
		return false
	}
	return true
}

// NormalizeCode upper-cases a user-supplied code. Codes are stored
// upper-cased so lookups are case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
