package flowise

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/onurcolak/whatsapp-copilot/environments"
	"github.com/onurcolak/whatsapp-copilot/pkg/logger"
)

const (
	MsgUnprocessable = "Sorry, I could not process your request."
	MsgUnavailable   = "There was an error processing your request due to high demand, please try again later."
)

// ErrNoAnswer means the backend replied but no answer could be extracted.
var ErrNoAnswer = errors.New("flowise response carried no answer")

type Client struct {
	httpClient *resty.Client
	url        string
}

type predictionRequest struct {
	Question string `json:"question"`
	ChatID   string `json:"chatId"`
}

// predictionResponse covers both shapes the prediction API has been seen to return:
// a top-level "text" and the assistant/messages/content nesting.
type predictionResponse struct {
	Text      string `json:"text"`
	Assistant *struct {
		Messages []struct {
			Content []struct {
				Text json.RawMessage `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	} `json:"assistant"`
}

func NewClient(cfg environments.FlowiseConfig) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		url:        cfg.URL,
	}
}

// Predict returns the backend's answer for question in the chatID session.
func (c *Client) Predict(ctx context.Context, question, chatID string) (string, error) {
	var out predictionResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(predictionRequest{Question: question, ChatID: chatID}).
		SetResult(&out).
		Post(c.url)
	if err != nil {
		return "", fmt.Errorf("failed to query flowise: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode(), resp.String())
	}

	answer := extractAnswer(&out)
	if answer == "" {
		return "", ErrNoAnswer
	}

	return answer, nil
}

// Ask never fails: transport problems and empty answers become fixed user-facing strings.
func (c *Client) Ask(ctx context.Context, question, chatID string) string {
	answer, err := c.Predict(ctx, question, chatID)
	switch {
	case errors.Is(err, ErrNoAnswer):
		logger.Warnf("Flowise returned no answer for %s", chatID)
		return MsgUnprocessable
	case err != nil:
		logger.Errorf("Error querying Flowise for %s: %v", chatID, err)
		return MsgUnavailable
	}
	return answer
}

func extractAnswer(out *predictionResponse) string {
	if text := strings.TrimSpace(out.Text); text != "" {
		return text
	}

	if out.Assistant == nil || len(out.Assistant.Messages) == 0 {
		return ""
	}
	content := out.Assistant.Messages[0].Content
	if len(content) == 0 || len(content[0].Text) == 0 {
		return ""
	}

	raw := content[0].Text

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return strings.TrimSpace(plain)
	}

	var wrapped struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return strings.TrimSpace(wrapped.Value)
	}

	return ""
}
