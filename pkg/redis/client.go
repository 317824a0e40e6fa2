package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"

	"github.com/onurcolak/whatsapp-copilot/environments"
	"github.com/onurcolak/whatsapp-copilot/pkg/logger"
)

type Client struct {
	client         valkey.Client
	idempotencyTTL time.Duration
}

const (
	seenKeyPrefix    = "inbound:seen:"
	paymentKeyPrefix = "payment:attempt:"

	defaultIdempotencyTTL = 24 * time.Hour
)

// releaseScript deletes the attempt key only if it still holds our token.
var releaseScript = valkey.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisClient(cfg environments.RedisConfig) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Connected to Redis (via Valkey client)")

	return NewFromValkey(client, cfg.IdempotencyTTL), nil
}

// NewFromValkey wraps an existing connection; a zero ttl falls back to 24h.
func NewFromValkey(client valkey.Client, idempotencyTTL time.Duration) *Client {
	if idempotencyTTL <= 0 {
		idempotencyTTL = defaultIdempotencyTTL
	}
	return &Client{client: client, idempotencyTTL: idempotencyTTL}
}

// MarkSeen records a message uuid and reports whether this call was the first to do so.
// Check and mark are one SET NX, so concurrent deliveries of the same uuid cannot both win.
func (c *Client) MarkSeen(ctx context.Context, messageUUID string) (bool, error) {
	key := seenKeyPrefix + messageUUID

	err := c.client.Do(ctx, c.client.B().Set().Key(key).Value("1").Nx().Ex(c.idempotencyTTL).Build()).Error()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			logger.Debugf("Message %s already seen", messageUUID)
			return false, nil
		}
		return false, fmt.Errorf("failed to mark message as seen: %w", err)
	}

	return true, nil
}

// Seen is the read-only half of the ledger, for inspection. Dispatch relies on
// MarkSeen alone because checking with Seen first would reopen the race MarkSeen closes.
func (c *Client) Seen(ctx context.Context, messageUUID string) (bool, error) {
	n, err := c.client.Do(ctx, c.client.B().Exists().Key(seenKeyPrefix+messageUUID).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to check seen message: %w", err)
	}
	return n > 0, nil
}

// AcquirePaymentAttempt claims the single outstanding payment slot for phone.
// ok is false when another attempt holds it; token must be passed to ReleasePaymentAttempt.
func (c *Client) AcquirePaymentAttempt(ctx context.Context, phone string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	key := paymentKeyPrefix + phone

	err := c.client.Do(ctx, c.client.B().Set().Key(key).Value(token).Nx().Px(ttl).Build()).Error()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to acquire payment attempt: %w", err)
	}

	return token, true, nil
}

func (c *Client) ReleasePaymentAttempt(ctx context.Context, phone, token string) error {
	key := paymentKeyPrefix + phone

	if err := releaseScript.Exec(ctx, c.client, []string{key}, []string{token}).Error(); err != nil {
		return fmt.Errorf("failed to release payment attempt: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}
