package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/onurcolak/whatsapp-copilot/environments"
	"github.com/onurcolak/whatsapp-copilot/internal/domain"
)

type fakeGate struct {
	replies []string
	phones  []string
}

func (g *fakeGate) Deliver(ctx context.Context, phone, reply string) DeliveryResult {
	g.replies = append(g.replies, reply)
	g.phones = append(g.phones, phone)
	return DeliveryResult{Reply: reply, Delivered: true}
}

type dispatcherFixture struct {
	d      *Dispatcher
	ledger *fakeLedger
	conv   *fakeConversation
	vision *fakeVision
	gate   *fakeGate
}

func newDispatcherFixture(policy string) *dispatcherFixture {
	f := &dispatcherFixture{
		ledger: &fakeLedger{},
		conv:   &fakeConversation{},
		vision: &fakeVision{description: "a cat on a sofa"},
		gate:   &fakeGate{},
	}
	f.d = NewDispatcher(f.ledger, f.conv, f.vision, f.gate, policy)
	return f
}

func TestDispatch_TextGoesThroughGate(t *testing.T) {
	f := newDispatcherFixture(environments.NoTypeIgnore)

	res, err := f.d.Dispatch(context.Background(), &domain.InboundMessage{
		MessageUUID: "u1",
		From:        "+254712345678",
		MessageType: domain.MessageTypeText,
		Text:        "hello",
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}

	if res.Outcome != domain.OutcomeReplied || res.Reply != "answer to hello" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(f.gate.phones) != 1 || f.gate.phones[0] != testPhone {
		t.Fatalf("expected gate to receive normalised sender, got %#v", f.gate.phones)
	}
}

func TestDispatch_DuplicateIsNoop(t *testing.T) {
	f := newDispatcherFixture(environments.NoTypeIgnore)
	msg := &domain.InboundMessage{MessageUUID: "u1", From: testPhone, MessageType: domain.MessageTypeText, Text: "hi"}

	if _, err := f.d.Dispatch(context.Background(), msg); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	res, err := f.d.Dispatch(context.Background(), msg)
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}

	if res.Outcome != domain.OutcomeDuplicate {
		t.Fatalf("expected duplicate outcome, got %s", res.Outcome)
	}
	if len(f.conv.questions) != 1 || len(f.gate.replies) != 1 {
		t.Fatalf("expected a single pass through conversation and gate")
	}
}

func TestDispatch_NoTypePolicy(t *testing.T) {
	msg := func() *domain.InboundMessage {
		return &domain.InboundMessage{MessageUUID: "u-none", From: testPhone}
	}

	ignore := newDispatcherFixture("")
	res, err := ignore.d.Dispatch(context.Background(), msg())
	if err != nil {
		t.Fatalf("ignore policy returned error: %v", err)
	}
	if res.Outcome != domain.OutcomeIgnored || res.Reply != MsgNoTypeIgnored {
		t.Fatalf("unexpected result %+v", res)
	}

	reject := newDispatcherFixture(environments.NoTypeReject)
	if _, err := reject.d.Dispatch(context.Background(), msg()); !errors.Is(err, ErrMissingType) {
		t.Fatalf("expected ErrMissingType, got %v", err)
	}

	if len(ignore.gate.replies)+len(reject.gate.replies) != 0 {
		t.Fatalf("no-type messages must not reach the gate")
	}
}

func TestDispatch_UnsupportedType(t *testing.T) {
	f := newDispatcherFixture(environments.NoTypeIgnore)

	_, err := f.d.Dispatch(context.Background(), &domain.InboundMessage{
		MessageUUID: "u2", From: testPhone, MessageType: "audio",
	})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestDispatch_LedgerErrorIsUnexpected(t *testing.T) {
	f := newDispatcherFixture(environments.NoTypeIgnore)
	f.ledger.err = errBoom

	_, err := f.d.Dispatch(context.Background(), &domain.InboundMessage{
		MessageUUID: "u3", From: testPhone, MessageType: domain.MessageTypeText,
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped ledger error, got %v", err)
	}
	if errors.Is(err, ErrUnsupportedType) || errors.Is(err, ErrMissingType) {
		t.Fatalf("ledger error must not look like a client error")
	}
}

func TestDispatch_ImagePipeline(t *testing.T) {
	f := newDispatcherFixture(environments.NoTypeIgnore)

	res, err := f.d.Dispatch(context.Background(), &domain.InboundMessage{
		MessageUUID: "u4",
		From:        testPhone,
		MessageType: domain.MessageTypeImage,
		Image:       &domain.ImageObject{URL: "https://example.com/cat.jpg"},
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}

	if f.vision.calls != 1 {
		t.Fatalf("expected one vision call, got %d", f.vision.calls)
	}
	if len(f.conv.questions) != 2 {
		t.Fatalf("expected notify and analysis questions, got %#v", f.conv.questions)
	}

	var sawNotify, sawAnalysis bool
	for _, q := range f.conv.questions {
		if q == MsgImageReceived {
			sawNotify = true
		}
		if strings.HasPrefix(q, MsgImageAnalyzed) && strings.HasSuffix(q, "a cat on a sofa") {
			sawAnalysis = true
		}
	}
	if !sawNotify || !sawAnalysis {
		t.Fatalf("unexpected questions %#v", f.conv.questions)
	}
	if f.conv.questions[1] != MsgImageAnalyzed+"a cat on a sofa" {
		t.Fatalf("analysis must be asked last, got %#v", f.conv.questions)
	}
	if res.Reply != "answer to "+MsgImageAnalyzed+"a cat on a sofa" {
		t.Fatalf("unexpected reply %q", res.Reply)
	}
}

func TestDispatch_ImageVisionFailureFallsBack(t *testing.T) {
	f := newDispatcherFixture(environments.NoTypeIgnore)
	f.vision.err = errBoom

	res, err := f.d.Dispatch(context.Background(), &domain.InboundMessage{
		MessageUUID: "u5",
		From:        testPhone,
		MessageType: domain.MessageTypeImage,
		Image:       &domain.ImageObject{URL: "https://example.com/broken.jpg"},
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}

	if res.Reply != MsgImageAnalysisError {
		t.Fatalf("expected fallback reply, got %q", res.Reply)
	}
	if len(f.gate.replies) != 1 || f.gate.replies[0] != MsgImageAnalysisError {
		t.Fatalf("expected fallback to go through the gate, got %#v", f.gate.replies)
	}
}

func TestDispatch_ImageWithoutURL(t *testing.T) {
	f := newDispatcherFixture(environments.NoTypeIgnore)

	_, err := f.d.Dispatch(context.Background(), &domain.InboundMessage{
		MessageUUID: "u6", From: testPhone, MessageType: domain.MessageTypeImage,
	})
	if !errors.Is(err, ErrMissingImageURL) {
		t.Fatalf("expected ErrMissingImageURL, got %v", err)
	}
	if f.vision.calls != 0 {
		t.Fatalf("vision must not be called without a url")
	}
}

func TestDispatch_SeventhReplyTriggersPayment(t *testing.T) {
	ctx := context.Background()
	g := newGateFixture()
	_ = g.usage.SetCount(ctx, testPhone, 6)

	conv := &fakeConversation{}
	d := NewDispatcher(&fakeLedger{}, conv, &fakeVision{}, g.gate, environments.NoTypeIgnore)

	res, err := d.Dispatch(ctx, &domain.InboundMessage{
		MessageUUID: "u7", From: testPhone, MessageType: domain.MessageTypeText, Text: "one more",
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}

	if res.Reply != domain.MsgPaymentTimedOut {
		t.Fatalf("expected payment outcome as reply, got %q", res.Reply)
	}
	if g.payments.calls != 1 {
		t.Fatalf("expected one payment run, got %d", g.payments.calls)
	}
	for _, text := range g.messenger.texts() {
		if text == "answer to one more" {
			t.Fatalf("conversation reply must be suppressed")
		}
	}
	if got := g.repo.count(testPhone); got != 6 {
		t.Fatalf("expected count to stay at 6, got %d", got)
	}
}
