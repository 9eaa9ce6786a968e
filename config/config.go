package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Auth     AuthConfig
	Mail     MailConfig
	Chat     ChatConfig
	Store    DocStoreConfig
	Business BusinessConfig
}

type ServerConfig struct {
	Port    string `validate:"required,numeric"`
	Env     string
	BaseURL string `validate:"required,url"`
	// TrustedProxies may set X-Forwarded-For; empty means the peer address
	// is always the client IP.
	TrustedProxies []string `validate:"dive,ip|cidr"`
}

type DatabaseConfig struct {
	URL string `validate:"required"`
}

// RedisConfig is optional; an empty Addr disables the Redis document
// backend and rate limiting.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig is optional; with no brokers notifications are dispatched
// inline instead of through the order-events topic.
type KafkaConfig struct {
	Brokers       []string
	TopicOrder    string
	ConsumerGroup string
}

type ObservabilityConfig struct {
	JaegerEndpoint   string
	TraceSampleRatio float64 `validate:"gte=0,lte=1"`
	LogLevel         string
}

type AuthConfig struct {
	AdminUsername string `validate:"required"`
	AdminPassword string `validate:"required"`
	TokenSecret   string `validate:"required,min=16"`
	SessionKey    string `validate:"required,min=32"`
	CSRFKey       string `validate:"omitempty,len=32"`
	CookieSecure  bool
}

type MailConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	OwnerEmail string
}

// Enabled reports whether every SMTP setting needed to send mail is present.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.Port > 0 && m.User != "" && m.Password != ""
}

type ChatConfig struct {
	TwilioAccountSID string
	TwilioAuthToken  string
	WhatsAppFrom     string
	OwnerWhatsApp    string
}

func (c ChatConfig) Enabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.WhatsAppFrom != ""
}

type DocStoreConfig struct {
	Backend string `validate:"oneof=file redis"`
	Dir     string
}

type BusinessConfig struct {
	ShopName                string `validate:"required"`
	TrackingLinkMaxAgeHours int    `validate:"gt=0"`
	ResetLinkMaxAgeMinutes  int    `validate:"gt=0"`
	SubmitRateLimitSeconds  int    `validate:"gte=0"`
	BankAccount             string
	UPI                     string
	PaymentNote             string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	smtpPort, _ := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	trackingHours, _ := strconv.Atoi(getEnv("TRACKING_LINK_MAX_AGE_HOURS", "720"))
	resetMinutes, _ := strconv.Atoi(getEnv("RESET_LINK_MAX_AGE_MINUTES", "60"))
	rateLimit, _ := strconv.Atoi(getEnv("SUBMIT_RATE_LIMIT_SECONDS", "10"))
	sampleRatio, _ := strconv.ParseFloat(getEnv("TRACE_SAMPLE_RATIO", "1"), 64)

	port := getEnv("PORT", "8080")

	cfg := &Config{
		Server: ServerConfig{
			Port:    port,
			Env:     getEnv("ENV", "development"),
			BaseURL: strings.TrimRight(getEnv("BASE_URL", "http://localhost:"+port), "/"),

			TrustedProxies: splitList(os.Getenv("TRUSTED_PROXIES")),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(os.Getenv("KAFKA_BROKERS")),
			TopicOrder:    getEnv("KAFKA_TOPIC_ORDER_EVENTS", "farm-order-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "farm-notification-group"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint:   os.Getenv("JAEGER_ENDPOINT"),
			TraceSampleRatio: sampleRatio,
			LogLevel:         os.Getenv("LOG_LEVEL"),
		},
		Auth: AuthConfig{
			AdminUsername: os.Getenv("ADMIN_USERNAME"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
			TokenSecret:   os.Getenv("TOKEN_SECRET"),
			SessionKey:    os.Getenv("SESSION_KEY"),
			CSRFKey:       os.Getenv("CSRF_KEY"),
			CookieSecure:  getEnv("COOKIE_SECURE", "false") == "true",
		},
		Mail: MailConfig{
			Host:       getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:       smtpPort,
			User:       os.Getenv("SMTP_USER"),
			Password:   os.Getenv("SMTP_PASSWORD"),
			OwnerEmail: os.Getenv("OWNER_EMAIL"),
		},
		Chat: ChatConfig{
			TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			WhatsAppFrom:     os.Getenv("TWILIO_WHATSAPP_FROM"),
			OwnerWhatsApp:    os.Getenv("OWNER_WHATSAPP"),
		},
		Store: DocStoreConfig{
			Backend: getEnv("DOCSTORE_BACKEND", "file"),
			Dir:     getEnv("DOCSTORE_DIR", "./instance"),
		},
		Business: BusinessConfig{
			ShopName:                getEnv("SHOP_NAME", "MMVALI Farm"),
			TrackingLinkMaxAgeHours: trackingHours,
			ResetLinkMaxAgeMinutes:  resetMinutes,
			SubmitRateLimitSeconds:  rateLimit,
			BankAccount:             os.Getenv("PAYMENT_BANK_ACCOUNT"),
			UPI:                     os.Getenv("PAYMENT_UPI"),
			PaymentNote:             getEnv("PAYMENT_NOTE", "After payment, WhatsApp / email admin with your Order ID to confirm."),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Printf("Config loaded: env=%s, port=%s, docstore=%s", cfg.Server.Env, cfg.Server.Port, cfg.Store.Backend)
	return cfg, nil
}

// Validate checks required settings. Secrets have no defaults, so a missing
// secret is reported here rather than replaced.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Store.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("invalid configuration: DOCSTORE_BACKEND=redis requires REDIS_ADDR")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
