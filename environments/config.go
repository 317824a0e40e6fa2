package environments

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	NoTypeIgnore = "ignore"
	NoTypeReject = "reject"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Vonage   VonageConfig
	Flowise  FlowiseConfig
	Vision   VisionConfig
	Payment  PaymentConfig
	Usage    UsageConfig
	Auth     AuthConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port         string
	WriteTimeout time.Duration
	// NoTypePolicy decides what happens to webhooks without message_type: "ignore" (200) or "reject" (400).
	NoTypePolicy string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

type VonageConfig struct {
	URL            string
	ApplicationID  string
	PrivateKeyPath string
	PrivateKey     string
	FromNumber     string
	TokenTTL       time.Duration
	Timeout        time.Duration
}

type FlowiseConfig struct {
	URL     string
	Timeout time.Duration
}

type VisionConfig struct {
	Endpoint     string
	APIKey       string
	Temperature  float64
	TopP         float64
	MaxTokens    int
	MaxDimension int
	Timeout      time.Duration

	// MaxImageBytes caps the downloaded image body; 0 disables the cap.
	MaxImageBytes int64
}

type PaymentConfig struct {
	InitiateURL  string
	StatusURL    string
	Amount       decimal.Decimal
	InitialDelay time.Duration
	PollInterval time.Duration
	MaxAttempts  int
	Timeout      time.Duration
}

// AttemptTTL covers the whole poll budget of a single payment attempt plus slack for the HTTP calls.
func (p PaymentConfig) AttemptTTL() time.Duration {
	budget := p.InitialDelay + time.Duration(p.MaxAttempts)*p.PollInterval
	return budget + time.Duration(p.MaxAttempts+1)*p.Timeout
}

type UsageConfig struct {
	DefaultThreshold     int
	AllowListThreshold   int
	AllowList            []string
	NotificationCooldown time.Duration
	SweepInterval        time.Duration
	SupportContact       string
	AutoStartSweeper     bool
}

type AuthConfig struct {
	AdminAPIKey string
}

type LogConfig struct {
	Level string
}

func Load() *Config {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         GetEnv("SERVER_PORT", "8080"),
			WriteTimeout: GetEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			NoTypePolicy: GetEnv("NO_TYPE_POLICY", NoTypeIgnore),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "copilot"),
			Password: GetEnv("DB_PASSWORD", "copilot123"),
			DBName:   GetEnv("DB_NAME", "whatsapp_copilot"),
		},
		Redis: RedisConfig{
			Host:           GetEnv("REDIS_HOST", "localhost"),
			Port:           GetEnv("REDIS_PORT", "6379"),
			Password:       GetEnv("REDIS_PASSWORD", ""),
			DB:             GetEnvAsInt("REDIS_DB", 0),
			IdempotencyTTL: GetEnvAsDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Vonage: VonageConfig{
			URL:            GetEnv("VONAGE_MESSAGES_API_URL", "https://api.nexmo.com/v1/messages"),
			ApplicationID:  GetEnv("VONAGE_APPLICATION_ID", ""),
			PrivateKeyPath: GetEnv("VONAGE_PRIVATE_KEY_PATH", ""),
			PrivateKey:     GetEnv("VONAGE_PRIVATE_KEY", ""),
			FromNumber:     GetEnv("VONAGE_FROM_NUMBER", "254769123018"),
			TokenTTL:       GetEnvAsDuration("VONAGE_TOKEN_TTL", 5*time.Minute),
			Timeout:        time.Duration(GetEnvAsInt("VONAGE_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Flowise: FlowiseConfig{
			URL:     GetEnv("FLOWISE_API_URL", ""),
			Timeout: time.Duration(GetEnvAsInt("FLOWISE_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Vision: VisionConfig{
			Endpoint:      GetEnv("VISION_ENDPOINT", ""),
			APIKey:        GetEnv("VISION_API_KEY", ""),
			Temperature:   GetEnvAsFloat("VISION_TEMPERATURE", 0.7),
			TopP:          GetEnvAsFloat("VISION_TOP_P", 0.95),
			MaxTokens:     GetEnvAsInt("VISION_MAX_TOKENS", 800),
			MaxDimension:  GetEnvAsInt("VISION_MAX_DIMENSION", 1024),
			MaxImageBytes: int64(GetEnvAsInt("VISION_MAX_IMAGE_BYTES", 10<<20)),
			Timeout:       time.Duration(GetEnvAsInt("VISION_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Payment: PaymentConfig{
			InitiateURL:  GetEnv("MPESA_API_URL", ""),
			StatusURL:    GetEnv("MPESA_CHECK_URL", ""),
			Amount:       GetEnvAsDecimal("MPESA_AMOUNT", decimal.NewFromInt(20)),
			InitialDelay: GetEnvAsDuration("MPESA_INITIAL_DELAY", 15*time.Second),
			PollInterval: GetEnvAsDuration("MPESA_POLL_INTERVAL", 5*time.Second),
			MaxAttempts:  GetEnvAsInt("MPESA_MAX_ATTEMPTS", 3),
			Timeout:      time.Duration(GetEnvAsInt("MPESA_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Usage: UsageConfig{
			DefaultThreshold:     GetEnvAsInt("USAGE_THRESHOLD", 7),
			AllowListThreshold:   GetEnvAsInt("USAGE_ALLOWLIST_THRESHOLD", 50),
			AllowList:            GetEnvAsList("USAGE_ALLOWLIST", nil),
			NotificationCooldown: GetEnvAsDuration("NOTIFICATION_COOLDOWN", 120*time.Second),
			SweepInterval:        GetEnvAsDuration("NOTIFICATION_SWEEP_INTERVAL", time.Minute),
			SupportContact:       GetEnv("SUPPORT_CONTACT", "+25472627875"),
			AutoStartSweeper:     GetEnvAsBool("AUTO_START_SWEEPER", true),
		},
		Auth: AuthConfig{
			AdminAPIKey: GetEnv("ADMIN_API_KEY", ""),
		},
		Log: LogConfig{
			Level: GetEnv("LOG_LEVEL", "info"),
		},
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func GetEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}

// GetEnvAsList splits a comma separated value, dropping blanks.
func GetEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
