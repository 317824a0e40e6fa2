package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/onurcolak/whatsapp-copilot/environments"
	"github.com/onurcolak/whatsapp-copilot/internal/domain"
	"github.com/onurcolak/whatsapp-copilot/internal/metrics"
	"github.com/onurcolak/whatsapp-copilot/pkg/logger"
	"github.com/onurcolak/whatsapp-copilot/pkg/phone"
)

var (
	ErrUnsupportedType = errors.New("message type not supported")
	ErrMissingType     = errors.New("message type is undefined")
	ErrMissingImageURL = errors.New("image url is missing")
)

const (
	MsgNoTypeIgnored      = "No action needed for no-type message"
	MsgImageReceived      = "I received an image and am analyzing it. Please wait..."
	MsgImageAnalyzed      = "I have finished analyzing the image. Here is the description: "
	MsgImageAnalysisError = "Sorry, I could not analyze that image. Please try sending it again."
)

type ledger interface {
	MarkSeen(ctx context.Context, messageUUID string) (bool, error)
}

type conversation interface {
	Ask(ctx context.Context, question, chatID string) string
}

type imageDescriber interface {
	Describe(ctx context.Context, url, caption string) (string, error)
}

type replyGate interface {
	Deliver(ctx context.Context, phone, reply string) DeliveryResult
}

// Dispatcher deduplicates an inbound message, routes it by type and hands the
// resulting reply to the threshold gate.
type Dispatcher struct {
	ledger       ledger
	conversation conversation
	vision       imageDescriber
	gate         replyGate
	noTypePolicy string
}

func NewDispatcher(
	ledger ledger,
	conversation conversation,
	vision imageDescriber,
	gate replyGate,
	noTypePolicy string,
) *Dispatcher {
	if noTypePolicy != environments.NoTypeReject {
		noTypePolicy = environments.NoTypeIgnore
	}

	return &Dispatcher{
		ledger:       ledger,
		conversation: conversation,
		vision:       vision,
		gate:         gate,
		noTypePolicy: noTypePolicy,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg *domain.InboundMessage) (domain.DispatchResult, error) {
	result, err := d.dispatch(ctx, msg)

	outcome := string(result.Outcome)
	if err != nil {
		outcome = "error"
	}
	msgType := string(msg.MessageType)
	if msgType == "" {
		msgType = "none"
	}
	metrics.InboundMessages.WithLabelValues(msgType, outcome).Inc()

	return result, err
}

func (d *Dispatcher) dispatch(ctx context.Context, msg *domain.InboundMessage) (domain.DispatchResult, error) {
	first, err := d.ledger.MarkSeen(ctx, msg.MessageUUID)
	if err != nil {
		return domain.DispatchResult{}, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !first {
		logger.Infof("Duplicate message %s received, skipping processing", msg.MessageUUID)
		return domain.DispatchResult{Outcome: domain.OutcomeDuplicate}, nil
	}

	sender := phone.NormalizeOrRaw(msg.From)

	var reply string

	switch msg.MessageType {
	case "":
		logger.Warnf("Received message %s with no type", msg.MessageUUID)
		if d.noTypePolicy == environments.NoTypeReject {
			return domain.DispatchResult{}, ErrMissingType
		}
		return domain.DispatchResult{Outcome: domain.OutcomeIgnored, Reply: MsgNoTypeIgnored}, nil

	case domain.MessageTypeText:
		reply = d.conversation.Ask(ctx, msg.Text, sender)

	case domain.MessageTypeImage:
		url := msg.ImageURL()
		if url == "" {
			logger.Errorf("No image URL found in message %s", msg.MessageUUID)
			return domain.DispatchResult{}, ErrMissingImageURL
		}
		caption := ""
		if msg.Image != nil {
			caption = msg.Image.Caption
		}
		reply = d.describeImage(ctx, sender, url, caption)

	default:
		logger.Errorf("Unhandled message type: %s", msg.MessageType)
		return domain.DispatchResult{}, ErrUnsupportedType
	}

	delivery := d.gate.Deliver(ctx, sender, reply)

	return domain.DispatchResult{Outcome: domain.OutcomeReplied, Reply: delivery.Reply}, nil
}

// describeImage tells the conversation an image is being analysed while the vision
// call runs, then asks the conversation to answer from the description.
func (d *Dispatcher) describeImage(ctx context.Context, sender, url, caption string) string {
	var description string
	var g errgroup.Group

	g.Go(func() error {
		d.conversation.Ask(ctx, MsgImageReceived, sender)
		return nil
	})
	g.Go(func() error {
		desc, err := d.vision.Describe(ctx, url, caption)
		if err != nil {
			return err
		}
		description = desc
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("Failed to get image description for %s: %v", sender, err)
		return MsgImageAnalysisError
	}

	return d.conversation.Ask(ctx, MsgImageAnalyzed+description, sender)
}
