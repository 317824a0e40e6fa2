package vonage

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/onurcolak/whatsapp-copilot/environments"
	"github.com/onurcolak/whatsapp-copilot/internal/domain"
	"github.com/onurcolak/whatsapp-copilot/pkg/logger"
)

const channelWhatsApp = "whatsapp"

// Client sends WhatsApp text messages through the Vonage Messages API.
// A fresh RS256 token is signed for every request. Sends are never retried.
type Client struct {
	httpClient    *resty.Client
	url           string
	applicationID string
	fromNumber    string
	tokenTTL      time.Duration
	privateKey    *rsa.PrivateKey
	now           func() time.Time
}

func NewClient(cfg environments.VonageConfig) (*Client, error) {
	pemBytes := []byte(cfg.PrivateKey)
	if len(pemBytes) == 0 && cfg.PrivateKeyPath != "" {
		b, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read Vonage private key: %w", err)
		}
		pemBytes = b
	}
	if len(pemBytes) == 0 {
		return nil, fmt.Errorf("vonage private key is not configured")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Vonage private key: %w", err)
	}

	return NewClientWithKey(cfg, key), nil
}

func NewClientWithKey(cfg environments.VonageConfig, key *rsa.PrivateKey) *Client {
	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	tokenTTL := cfg.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = 5 * time.Minute
	}

	return &Client{
		httpClient:    httpClient,
		url:           cfg.URL,
		applicationID: cfg.ApplicationID,
		fromNumber:    cfg.FromNumber,
		tokenTTL:      tokenTTL,
		privateKey:    key,
		now:           time.Now,
	}
}

func (c *Client) token() (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"application_id": c.applicationID,
		"iat":            now.Unix(),
		"exp":            now.Add(c.tokenTTL).Unix(),
		"jti":            uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign Vonage token: %w", err)
	}
	return signed, nil
}

// SendText delivers text to the recipient and returns the provider message uuid.
// Anything but 202 Accepted is an error.
func (c *Client) SendText(ctx context.Context, to, text string) (string, error) {
	token, err := c.token()
	if err != nil {
		return "", err
	}

	payload := domain.OutboundMessage{
		From:        c.fromNumber,
		To:          to,
		MessageType: string(domain.MessageTypeText),
		Text:        text,
		Channel:     channelWhatsApp,
	}

	var out domain.OutboundResponse

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(payload).
		SetResult(&out).
		Post(c.url)

	duration := time.Since(startTime)

	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	logger.Infof("Vonage request for %s completed in %v (status: %d)", to, duration, resp.StatusCode())

	if resp.StatusCode() != http.StatusAccepted {
		return "", fmt.Errorf("unexpected status code: %d (expected 202), body: %s", resp.StatusCode(), resp.String())
	}

	return out.MessageUUID, nil
}

func (c *Client) GetURL() string {
	return c.url
}
