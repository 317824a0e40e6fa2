package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/onurcolak/whatsapp-copilot/internal/domain"
	"github.com/onurcolak/whatsapp-copilot/internal/metrics"
	"github.com/onurcolak/whatsapp-copilot/pkg/logger"
)

type paymentRunner interface {
	Run(ctx context.Context, phone string) domain.PaymentOutcome
}

// DeliveryResult tells the dispatcher what reached the user.
type DeliveryResult struct {
	// Reply is the effective reply: the candidate text, or the payment outcome message when blocked.
	Reply     string
	Delivered bool
	Blocked   bool
	Payment   *domain.PaymentOutcome
}

// ThresholdGate decides per outgoing reply whether to deliver it or to interrupt
// the conversation with the paid-unlock flow.
type ThresholdGate struct {
	usage     usageStore
	messenger messenger
	payments  paymentRunner
	policy    domain.ThresholdPolicy

	amount         decimal.Decimal
	supportContact string
}

func NewThresholdGate(
	usage usageStore,
	messenger messenger,
	payments paymentRunner,
	policy domain.ThresholdPolicy,
	amount decimal.Decimal,
	supportContact string,
) *ThresholdGate {
	return &ThresholdGate{
		usage:          usage,
		messenger:      messenger,
		payments:       payments,
		policy:         policy,
		amount:         amount,
		supportContact: supportContact,
	}
}

// Breached reports whether delivering one more reply would reach the threshold.
// With threshold 7 replies one to six go through and the seventh is blocked.
func Breached(count, threshold int) bool {
	return count+1 >= threshold
}

// Deliver works from a single snapshot of the usage store.
func (g *ThresholdGate) Deliver(ctx context.Context, phone, reply string) DeliveryResult {
	snap := g.usage.Snapshot(ctx, phone)
	threshold, allowListed := g.policy.For(phone)

	if !Breached(snap.Count, threshold) {
		_, err := g.messenger.SendText(ctx, phone, reply)
		metrics.OutboundMessages.WithLabelValues("reply", metrics.Result(err)).Inc()
		if err != nil {
			logger.Errorf("Failed to deliver reply to %s: %v", phone, err)
			return DeliveryResult{Reply: reply}
		}

		g.usage.IncrementCount(ctx, phone)
		logger.Debugf("Delivered reply to %s (%d/%d)", phone, snap.Count+1, threshold)
		return DeliveryResult{Reply: reply, Delivered: true}
	}

	tier := "default"
	if allowListed {
		tier = "allow_list"
	}
	metrics.ThresholdBreaches.WithLabelValues(tier).Inc()
	logger.WithFields(map[string]any{
		"phone":     phone,
		"count":     snap.Count,
		"threshold": threshold,
		"tier":      tier,
	}).Info("Threshold reached, suppressing reply")

	// The snapshot only skips the claim; concurrent breaches race on ClaimNotification.
	if !snap.NotificationSent && g.usage.ClaimNotification(ctx, phone) {
		_, err := g.messenger.SendText(ctx, phone, g.notification(allowListed))
		metrics.OutboundMessages.WithLabelValues("notification", metrics.Result(err)).Inc()
		if err != nil {
			logger.Errorf("Failed to send threshold notification to %s: %v", phone, err)
		}
	}

	outcome := g.payments.Run(ctx, phone)

	// Tell the user how the attempt ended unless the orchestrator already did.
	if !outcome.Notified && outcome.State != domain.PaymentInProgress {
		_, err := g.messenger.SendText(ctx, phone, outcome.Message)
		metrics.OutboundMessages.WithLabelValues("payment", metrics.Result(err)).Inc()
		if err != nil {
			logger.Errorf("Failed to send payment outcome to %s: %v", phone, err)
		}
	}

	return DeliveryResult{
		Reply:   outcome.Message,
		Blocked: true,
		Payment: &outcome,
	}
}

func (g *ThresholdGate) notification(allowListed bool) string {
	if allowListed {
		return fmt.Sprintf(
			"You have reached the message limit for your account. Please contact support on %s to continue.",
			g.supportContact,
		)
	}
	return fmt.Sprintf(
		"You have reached the maximum number of free messages. A payment of KES %s unlocks continued use. "+
			"An Mpesa prompt will pop up shortly. In case of any problem contact %s.",
		g.amount.String(), g.supportContact,
	)
}
