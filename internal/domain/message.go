package domain

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
)

// InboundMessage is the webhook body posted by the messaging provider.
type InboundMessage struct {
	MessageUUID string       `json:"message_uuid" validate:"required"`
	From        string       `json:"from" validate:"required,phone"`
	To          string       `json:"to,omitempty"`
	MessageType MessageType  `json:"message_type,omitempty"`
	Text        string       `json:"text,omitempty"`
	Image       *ImageObject `json:"image,omitempty"`
	Channel     string       `json:"channel,omitempty"`
}

type ImageObject struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// ImageURL returns the image url or "" when the payload carries none.
func (m *InboundMessage) ImageURL() string {
	if m.Image == nil {
		return ""
	}
	return m.Image.URL
}

// OutboundMessage is the Vonage Messages API text payload.
type OutboundMessage struct {
	From        string `json:"from"`
	To          string `json:"to"`
	MessageType string `json:"message_type"`
	Text        string `json:"text"`
	Channel     string `json:"channel"`
}

type OutboundResponse struct {
	MessageUUID string `json:"message_uuid"`
}

type DispatchOutcome string

const (
	OutcomeDuplicate DispatchOutcome = "duplicate"
	OutcomeIgnored   DispatchOutcome = "ignored"
	OutcomeReplied   DispatchOutcome = "replied"
)

// DispatchResult is what the webhook handler turns into an HTTP response.
type DispatchResult struct {
	Outcome DispatchOutcome
	Reply   string
}
