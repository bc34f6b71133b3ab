package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseUri             string  `envconfig:"DATABASE_URI" required:"true"`
	DatabaseMaxConns        int     `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMaxIdleConns    int     `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	DatabaseConnMaxLifetime int     `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"1800"` // 30 minutes
	DatabaseTimeout         int     `envconfig:"DATABASE_TIMEOUT" default:"60"`             // 60 seconds
	SentryDSN               string  `envconfig:"SENTRY_DSN"`
	SentryTracesSampleRate  float64 `envconfig:"SENTRY_TRACES_SAMPLE_RATE"`
	DatadogAgentUrl         string  `envconfig:"DATADOG_AGENT_URL"`
	LogFilePath             string  `envconfig:"LOG_FILE_PATH"`
	JWTSecret               []byte  `envconfig:"JWT_SECRET" required:"true"`
	AdminToken              string  `envconfig:"ADMIN_TOKEN"`
	AdminTokenHash          string  `envconfig:"ADMIN_TOKEN_HASH"`                    // bcrypt hash, takes precedence over ADMIN_TOKEN
	PaymentTokenExpiry      int     `envconfig:"PAYMENT_TOKEN_EXPIRY" default:"3600"` // in seconds
	Host                    string  `envconfig:"HOST" default:"localhost:3000"`
	Port                    int     `envconfig:"PORT" default:"3000"`
	PortalBaseUrl           string  `envconfig:"PORTAL_BASE_URL" default:"http://localhost:8080/area-usuario/"`
	DefaultRateLimit        int     `envconfig:"DEFAULT_RATE_LIMIT" default:"10"`
	StrictRateLimit         int     `envconfig:"STRICT_RATE_LIMIT" default:"10"`
	BurstRateLimit          int     `envconfig:"BURST_RATE_LIMIT" default:"1"`
	EnablePrometheus        bool    `envconfig:"ENABLE_PROMETHEUS" default:"false"`
	PrometheusPort          int     `envconfig:"PROMETHEUS_PORT" default:"9092"`
	MailerWebhookUrl        string  `envconfig:"MAILER_WEBHOOK_URL"`
	RabbitMQUri             string  `envconfig:"RABBITMQ_URI"`
	RabbitMQEventExchange   string  `envconfig:"RABBITMQ_PAYMENT_EVENT_EXCHANGE" default:"portal_payment_events"`
	Redsys                  RedsysConfig
	Giav                    GiavConfig
	Deposit                 DepositConfig
	Reconcile               ReconcileConfig
}

type RedsysConfig struct {
	MerchantCode string `envconfig:"REDSYS_MERCHANT_CODE" required:"true"`
	Terminal     string `envconfig:"REDSYS_TERMINAL" default:"001"`
	Currency     string `envconfig:"REDSYS_CURRENCY" default:"978"`
	SecretKey    string `envconfig:"REDSYS_SECRET_KEY" required:"true"`
	GatewayUrl   string `envconfig:"REDSYS_GATEWAY_URL" default:"https://sis-t.redsys.es:25443/sis/realizarPago"`
	NotifyUrl    string `envconfig:"REDSYS_NOTIFY_URL" default:"http://localhost:3000/redsys/notify"`
	ReturnUrl    string `envconfig:"REDSYS_RETURN_URL" default:"http://localhost:3000/redsys/return"`
}

type GiavConfig struct {
	Endpoint      string `envconfig:"GIAV_ENDPOINT" required:"true"`
	ApiKey        string `envconfig:"GIAV_APIKEY" required:"true"`
	Namespace     string `envconfig:"GIAV_NAMESPACE" default:"http://tempuri.org/"`
	Timeout       int    `envconfig:"GIAV_TIMEOUT" default:"20"` // in seconds
	PaymentMethod int64  `envconfig:"GIAV_ID_FORMA_PAGO" default:"1027"`
	OfficeID      int64  `envconfig:"GIAV_ID_OFICINA" default:"0"`
	PageSize      int    `envconfig:"GIAV_PAGE_SIZE" default:"100"`
	MaxPages      int    `envconfig:"GIAV_MAX_PAGES" default:"50"`
}

type DepositConfig struct {
	Enabled   bool             `envconfig:"DEPOSIT_ENABLED" default:"true"`
	Percent   float64          `envconfig:"DEPOSIT_PERCENT" default:"10"`
	Minimum   int64            `envconfig:"DEPOSIT_MIN_AMOUNT" default:"5000"` // in cents
	Overrides PercentOverrides `envconfig:"DEPOSIT_PERCENT_OVERRIDES"`
	// DeadlinePolicy picks the reservation deadline that closes the deposit
	// window: "latest" or "earliest"
	DeadlinePolicy string `envconfig:"DEPOSIT_DEADLINE_POLICY" default:"latest"`
}

type ReconcileConfig struct {
	MaxAttempts   int          `envconfig:"RECONCILE_MAX_ATTEMPTS" default:"20"`
	InitialDelay  int          `envconfig:"RECONCILE_INITIAL_DELAY" default:"15"` // in seconds
	BaseDelay     int          `envconfig:"RECONCILE_BASE_DELAY" default:"120"`   // in seconds
	DelayStep     int          `envconfig:"RECONCILE_DELAY_STEP" default:"60"`    // in seconds
	MaxDelay      int          `envconfig:"RECONCILE_MAX_DELAY" default:"900"`    // in seconds
	FastDelays    DurationList `envconfig:"RECONCILE_FAST_DELAYS" default:"15s,30s,60s"`
	PollSchedule  string       `envconfig:"RECONCILE_POLL_SCHEDULE" default:"@every 5s"`
	SweepSchedule string       `envconfig:"RECONCILE_SWEEP_SCHEDULE" default:"15 3 * * *"`
	BatchSize     int          `envconfig:"RECONCILE_BATCH_SIZE" default:"20"`
	JobLease      int          `envconfig:"RECONCILE_JOB_LEASE" default:"120"` // in seconds
}

// envconfig map decoder uses colon (:) as the default separator
// the overrides are written "bookingId=percent;bookingId=percent"

type PercentOverrides map[int64]float64

func (po *PercentOverrides) Decode(value string) error {
	m := map[int64]float64{}
	for _, pair := range strings.FieldsFunc(value, func(r rune) bool { return r == ';' || r == '\n' }) {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kvpair := strings.Split(pair, "=")
		if len(kvpair) != 2 {
			return fmt.Errorf("invalid override item: %q", pair)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(kvpair[0]), 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid booking id in override: %q", pair)
		}
		pct, err := strconv.ParseFloat(strings.TrimSpace(kvpair[1]), 64)
		if err != nil || pct <= 0 || pct > 100 {
			return fmt.Errorf("invalid percent in override: %q", pair)
		}
		m[id] = pct
	}
	*po = m
	return nil
}

type DurationList []time.Duration

func (dl *DurationList) Decode(value string) error {
	list := DurationList{}
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		d, err := time.ParseDuration(item)
		if err != nil {
			return fmt.Errorf("invalid duration item: %q", item)
		}
		list = append(list, d)
	}
	*dl = list
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
