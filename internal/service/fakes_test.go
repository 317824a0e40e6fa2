package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/onurcolak/whatsapp-copilot/internal/domain"
)

//
// Test fakes shared by the service tests.
//

// memRepo is an in-memory usageRepository.
type memRepo struct {
	mu      sync.Mutex
	records map[string]*domain.UsageRecord

	getErr   error
	incErr   error
	setErr   error
	claimErr error
	claims   int

	// readBarrier, when set, holds each Get until that many readers have arrived.
	readBarrier *sync.WaitGroup
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[string]*domain.UsageRecord)}
}

func (r *memRepo) record(phone string) *domain.UsageRecord {
	rec, ok := r.records[phone]
	if !ok {
		rec = &domain.UsageRecord{PhoneNumber: phone}
		r.records[phone] = rec
	}
	return rec
}

func (r *memRepo) Get(ctx context.Context, phone string) (*domain.UsageRecord, error) {
	if r.readBarrier != nil {
		r.readBarrier.Done()
		r.readBarrier.Wait()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.getErr != nil {
		return nil, r.getErr
	}
	rec, ok := r.records[phone]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *memRepo) IncrementCount(ctx context.Context, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.incErr != nil {
		return r.incErr
	}
	r.record(phone).MessageCount++
	return nil
}

func (r *memRepo) SetCount(ctx context.Context, phone string, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.setErr != nil {
		return r.setErr
	}
	r.record(phone).MessageCount = count
	return nil
}

func (r *memRepo) ResetCount(ctx context.Context, phone string) error {
	return r.SetCount(ctx, phone, 0)
}

func (r *memRepo) SetNotification(ctx context.Context, phone string, sent bool, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.record(phone)
	rec.NotificationSent = sent
	rec.NotificationExpiresAt = nil
	if sent && expiresAt != nil {
		t := *expiresAt
		rec.NotificationExpiresAt = &t
	}
	return nil
}

func (r *memRepo) ClaimNotification(ctx context.Context, phone string, now, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.claims++
	if r.claimErr != nil {
		return false, r.claimErr
	}
	rec := r.record(phone)
	if rec.NotificationActive(now) {
		return false, nil
	}
	rec.NotificationSent = true
	rec.NotificationExpiresAt = &expiresAt
	return true, nil
}

func (r *memRepo) ClearExpiredNotifications(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, rec := range r.records {
		if rec.NotificationSent && rec.NotificationExpiresAt != nil && !rec.NotificationExpiresAt.After(now) {
			rec.NotificationSent = false
			rec.NotificationExpiresAt = nil
			n++
		}
	}
	return n, nil
}

func (r *memRepo) List(ctx context.Context, page, pageSize int) ([]domain.UsageRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.UsageRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhoneNumber < out[j].PhoneNumber })
	return out, int64(len(out)), nil
}

func (r *memRepo) GetStats(ctx context.Context, now time.Time) (*domain.UsageStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &domain.UsageStats{}
	for _, rec := range r.records {
		stats.Users++
		stats.TotalMessages += int64(rec.MessageCount)
		if rec.NotificationActive(now) {
			stats.NotificationsSent++
		}
	}
	return stats, nil
}

func (r *memRepo) count(phone string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[phone]; ok {
		return rec.MessageCount
	}
	return 0
}

// fakeClock drives UsageService.now.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestUsage(repo *memRepo, clock *fakeClock) *UsageService {
	s := NewUsageService(repo, 120*time.Second)
	s.now = clock.Now
	return s
}

type sentMessage struct {
	to   string
	text string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *fakeMessenger) SendText(ctx context.Context, to, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, sentMessage{to: to, text: text})
	return "uuid-out", nil
}

func (m *fakeMessenger) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.text)
	}
	return out
}

type fakeGateway struct {
	mu          sync.Mutex
	initErr     error
	invoiceID   string
	states      []domain.PaymentState
	statusErr   error
	initCalls   int
	statusCalls int
}

func (g *fakeGateway) Initiate(ctx context.Context, phone string) (*domain.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.initCalls++
	if g.initErr != nil {
		return nil, g.initErr
	}
	id := g.invoiceID
	if id == "" {
		id = "INV-1"
	}
	return &domain.Invoice{InvoiceID: id}, nil
}

func (g *fakeGateway) Status(ctx context.Context, invoiceID string) (domain.PaymentState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.statusCalls++
	if g.statusErr != nil {
		return "", g.statusErr
	}
	if len(g.states) == 0 {
		return domain.InvoicePending, nil
	}
	state := g.states[0]
	if len(g.states) > 1 {
		g.states = g.states[1:]
	}
	return state, nil
}

type fakeGuard struct {
	mu       sync.Mutex
	held     map[string]string
	err      error
	released int
}

func (g *fakeGuard) AcquirePaymentAttempt(ctx context.Context, phone string, ttl time.Duration) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return "", false, g.err
	}
	if g.held == nil {
		g.held = make(map[string]string)
	}
	if _, ok := g.held[phone]; ok {
		return "", false, nil
	}
	g.held[phone] = "token-" + phone
	return g.held[phone], true, nil
}

func (g *fakeGuard) ReleasePaymentAttempt(ctx context.Context, phone, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held[phone] == token {
		delete(g.held, phone)
		g.released++
	}
	return nil
}

type fakeLedger struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (l *fakeLedger) MarkSeen(ctx context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return false, l.err
	}
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	if l.seen[id] {
		return false, nil
	}
	l.seen[id] = true
	return true, nil
}

type fakeConversation struct {
	mu        sync.Mutex
	questions []string
	answer    func(question string) string
}

func (c *fakeConversation) Ask(ctx context.Context, question, chatID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.questions = append(c.questions, question)
	if c.answer != nil {
		return c.answer(question)
	}
	return "answer to " + question
}

type fakeVision struct {
	description string
	err         error
	calls       int
}

func (v *fakeVision) Describe(ctx context.Context, url, caption string) (string, error) {
	v.calls++
	if v.err != nil {
		return "", v.err
	}
	return v.description, nil
}

var errBoom = errors.New("boom")

func noSleep(ctx context.Context, d time.Duration) error { return nil }
