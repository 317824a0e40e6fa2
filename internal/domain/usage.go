package domain

import "time"

type UsageRecord struct {
	PhoneNumber           string     `db:"phone_number" json:"phoneNumber"`
	MessageCount          int        `db:"message_count" json:"messageCount"`
	NotificationSent      bool       `db:"notification_sent" json:"notificationSent"`
	NotificationExpiresAt *time.Time `db:"notification_expires_at" json:"notificationExpiresAt,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updatedAt"`
}

// NotificationActive reports whether the stored flag is still inside its cool-down window.
func (r *UsageRecord) NotificationActive(now time.Time) bool {
	if r == nil || !r.NotificationSent {
		return false
	}
	if r.NotificationExpiresAt == nil {
		return true
	}
	return now.Before(*r.NotificationExpiresAt)
}

// UsageSnapshot is the single consistent read the threshold gate works from.
type UsageSnapshot struct {
	Count            int
	NotificationSent bool
}

type UsageStats struct {
	Users             int64 `db:"users" json:"users"`
	TotalMessages     int64 `db:"total_messages" json:"totalMessages"`
	NotificationsSent int64 `db:"notifications_sent" json:"notificationsSent"`
}

// ThresholdPolicy holds the two tiers; AllowList must contain normalised numbers.
type ThresholdPolicy struct {
	Default   int
	AllowList int
	allowed   map[string]struct{}
}

func NewThresholdPolicy(defaultThreshold, allowListThreshold int, allowList []string) ThresholdPolicy {
	allowed := make(map[string]struct{}, len(allowList))
	for _, n := range allowList {
		allowed[n] = struct{}{}
	}
	return ThresholdPolicy{
		Default:   defaultThreshold,
		AllowList: allowListThreshold,
		allowed:   allowed,
	}
}

// For returns the threshold for phone and whether phone is allow-listed.
func (p ThresholdPolicy) For(phone string) (int, bool) {
	if _, ok := p.allowed[phone]; ok {
		return p.AllowList, true
	}
	return p.Default, false
}
