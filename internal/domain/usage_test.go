package domain

import (
	"testing"
	"time"
)

func TestUsageRecord_NotificationActive(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Minute)
	past := now.Add(-time.Second)

	var nilRecord *UsageRecord
	if nilRecord.NotificationActive(now) {
		t.Errorf("nil record must not be active")
	}

	cases := []struct {
		name   string
		record UsageRecord
		want   bool
	}{
		{"not sent", UsageRecord{NotificationSent: false, NotificationExpiresAt: &future}, false},
		{"sent without expiry", UsageRecord{NotificationSent: true}, true},
		{"sent and fresh", UsageRecord{NotificationSent: true, NotificationExpiresAt: &future}, true},
		{"sent and expired", UsageRecord{NotificationSent: true, NotificationExpiresAt: &past}, false},
		{"expires exactly now", UsageRecord{NotificationSent: true, NotificationExpiresAt: &now}, false},
	}

	for _, tc := range cases {
		if got := tc.record.NotificationActive(now); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestThresholdPolicy_For(t *testing.T) {
	p := NewThresholdPolicy(7, 50, []string{"254700000001"})

	if th, allowed := p.For("254700000001"); th != 50 || !allowed {
		t.Errorf("expected allow-list tier (50,true), got (%d,%v)", th, allowed)
	}
	if th, allowed := p.For("254712345678"); th != 7 || allowed {
		t.Errorf("expected default tier (7,false), got (%d,%v)", th, allowed)
	}
}
