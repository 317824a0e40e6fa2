package service

import (
	"context"
	"time"

	"github.com/onurcolak/whatsapp-copilot/environments"
	"github.com/onurcolak/whatsapp-copilot/internal/domain"
	"github.com/onurcolak/whatsapp-copilot/internal/metrics"
	"github.com/onurcolak/whatsapp-copilot/pkg/logger"
)

type paymentGateway interface {
	Initiate(ctx context.Context, phone string) (*domain.Invoice, error)
	Status(ctx context.Context, invoiceID string) (domain.PaymentState, error)
}

type messenger interface {
	SendText(ctx context.Context, to, text string) (string, error)
}

type usageStore interface {
	Snapshot(ctx context.Context, phone string) domain.UsageSnapshot
	IncrementCount(ctx context.Context, phone string)
	ResetCount(ctx context.Context, phone string) bool
	ClaimNotification(ctx context.Context, phone string) bool
	SetNotificationSent(ctx context.Context, phone string, sent bool)
}

// attemptGuard keeps at most one outstanding STK push per sender across instances.
type attemptGuard interface {
	AcquirePaymentAttempt(ctx context.Context, phone string, ttl time.Duration) (string, bool, error)
	ReleasePaymentAttempt(ctx context.Context, phone, token string) error
}

// PaymentService runs one STK push attempt to a terminal state:
// initiate, wait, then poll a bounded number of times.
type PaymentService struct {
	gateway   paymentGateway
	messenger messenger
	usage     usageStore
	guard     attemptGuard

	initialDelay time.Duration
	pollInterval time.Duration
	maxAttempts  int
	attemptTTL   time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func NewPaymentService(
	gateway paymentGateway,
	messenger messenger,
	usage usageStore,
	guard attemptGuard,
	cfg environments.PaymentConfig,
) *PaymentService {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	return &PaymentService{
		gateway:      gateway,
		messenger:    messenger,
		usage:        usage,
		guard:        guard,
		initialDelay: cfg.InitialDelay,
		pollInterval: cfg.PollInterval,
		maxAttempts:  maxAttempts,
		attemptTTL:   cfg.AttemptTTL(),
		sleep:        sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives a payment for phone. A second call while an attempt is outstanding
// returns IN_PROGRESS without touching the gateway.
func (s *PaymentService) Run(ctx context.Context, phone string) domain.PaymentOutcome {
	if s.guard != nil {
		token, ok, err := s.guard.AcquirePaymentAttempt(ctx, phone, s.attemptTTL)
		switch {
		case err != nil:
			logger.Warnf("Payment guard unavailable for %s, proceeding unguarded: %v", phone, err)
		case !ok:
			logger.Infof("Payment already in progress for %s", phone)
			metrics.PaymentOutcomes.WithLabelValues(string(domain.PaymentInProgress)).Inc()
			return domain.PaymentOutcome{State: domain.PaymentInProgress, Message: domain.MsgPaymentInProgress}
		default:
			defer func() {
				if err := s.guard.ReleasePaymentAttempt(context.WithoutCancel(ctx), phone, token); err != nil {
					logger.Warnf("Failed to release payment attempt for %s: %v", phone, err)
				}
			}()
		}
	}

	start := time.Now()
	outcome := s.run(ctx, phone)

	metrics.PaymentOutcomes.WithLabelValues(string(outcome.State)).Inc()
	metrics.PaymentDuration.Observe(time.Since(start).Seconds())

	logger.WithFields(map[string]any{
		"phone":      phone,
		"invoice_id": outcome.InvoiceID,
		"state":      outcome.State,
		"attempts":   outcome.Attempts,
	}).Info("Payment attempt finished")

	return outcome
}

func (s *PaymentService) run(ctx context.Context, phone string) domain.PaymentOutcome {
	logger.Infof("Threshold reached for %s. Triggering Mpesa STK Push.", phone)

	invoice, err := s.gateway.Initiate(ctx, phone)
	if err != nil {
		logger.Errorf("Failed to initiate payment for %s: %v", phone, err)
		return s.failed(ctx, phone, "", 0, domain.MsgPaymentFailed)
	}

	if err := s.sleep(ctx, s.initialDelay); err != nil {
		return s.timedOut(ctx, phone, invoice.InvoiceID, 0)
	}

	attempts := 0
	for attempts < s.maxAttempts {
		state, err := s.gateway.Status(ctx, invoice.InvoiceID)
		attempts++

		if err != nil {
			logger.Errorf("Failed to check invoice %s: %v", invoice.InvoiceID, err)
			return s.failed(ctx, phone, invoice.InvoiceID, attempts, domain.MsgPaymentDeclined)
		}

		switch state {
		case domain.InvoiceComplete:
			return s.complete(ctx, phone, invoice.InvoiceID, attempts)
		case domain.InvoiceRetry, domain.InvoiceFailed:
			return s.failed(ctx, phone, invoice.InvoiceID, attempts, domain.MsgPaymentDeclined)
		case domain.InvoicePending:
		default:
			logger.Warnf("Unknown invoice state %q for %s, treating as pending", state, invoice.InvoiceID)
		}

		if attempts < s.maxAttempts {
			if err := s.sleep(ctx, s.pollInterval); err != nil {
				break
			}
		}
	}

	return s.timedOut(ctx, phone, invoice.InvoiceID, attempts)
}

func (s *PaymentService) complete(ctx context.Context, phone, invoiceID string, attempts int) domain.PaymentOutcome {
	notified := false
	if s.usage.ResetCount(ctx, phone) {
		notified = s.send(ctx, phone, domain.MsgPaymentComplete)
	}
	s.usage.SetNotificationSent(ctx, phone, false)

	return domain.PaymentOutcome{
		State:     domain.PaymentComplete,
		InvoiceID: invoiceID,
		Attempts:  attempts,
		Message:   domain.MsgPaymentComplete,
		Notified:  notified,
	}
}

// failed only messages the user when no notification is active, so a blocked
// sender is not spammed on every retry.
func (s *PaymentService) failed(ctx context.Context, phone, invoiceID string, attempts int, msg string) domain.PaymentOutcome {
	notified := false
	if s.usage.ClaimNotification(ctx, phone) {
		notified = s.send(ctx, phone, msg)
	}

	return domain.PaymentOutcome{
		State:     domain.PaymentFailed,
		InvoiceID: invoiceID,
		Attempts:  attempts,
		Message:   msg,
		Notified:  notified,
	}
}

func (s *PaymentService) timedOut(ctx context.Context, phone, invoiceID string, attempts int) domain.PaymentOutcome {
	notified := s.send(ctx, phone, domain.MsgPaymentTimedOut)
	s.usage.SetNotificationSent(ctx, phone, true)

	return domain.PaymentOutcome{
		State:     domain.PaymentTimedOut,
		InvoiceID: invoiceID,
		Attempts:  attempts,
		Message:   domain.MsgPaymentTimedOut,
		Notified:  notified,
	}
}

func (s *PaymentService) send(ctx context.Context, phone, text string) bool {
	_, err := s.messenger.SendText(ctx, phone, text)
	metrics.OutboundMessages.WithLabelValues("payment", metrics.Result(err)).Inc()
	if err != nil {
		logger.Errorf("Failed to send payment message to %s: %v", phone, err)
		return false
	}
	return true
}
