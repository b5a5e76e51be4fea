package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/replay"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/session"
	"github.com/shandysiswandi/otpgate/internal/pkg/storage"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const scopePubSub = "https://www.googleapis.com/auth/pubsub"

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}

	cfg, err := config.NewViper(path, config.WithDefaults(defaults), config.WithEnvAliases(envAliases))
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("app.tz"))

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(a.ctx, &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
		LogLevel:         a.config.GetString("instrument.log_level"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(
		a.config.GetInt("app.server.max_goroutine"),
		goroutine.WithPanicHandler(func(ctx context.Context, _ any) {
			slog.ErrorContext(ctx, "background task panicked, exiting")
			os.Exit(1)
		}),
	)

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator

	snow, err := uid.NewSnowflake()
	if err != nil {
		slog.Error("failed to init uid number snowflake", "error", err)
		os.Exit(1)
	}
	a.eventID = uid.SnowflakeString{Snowflake: snow}
}

func (a *App) initSettings() {
	s, err := loadSettings(a.config, a.validator)
	if err != nil {
		slog.Error("invalid gate settings", "error", err)
		os.Exit(1)
	}
	a.settings = s

	// replay keys are HMACs of accepted codes, keyed by a secret the process already holds
	a.hmac = hash.NewHMACSHA256(s.SessionSecret, hash.WithLabel("replay"))
}

func (a *App) initTOTP() {
	totp, err := otp.NewTOTP(otp.Config{
		Secret:    a.settings.TotpSecret,
		Label:     a.settings.TotpLabel,
		Issuer:    a.settings.TotpIssuer,
		Digits:    a.settings.TotpDigits,
		Period:    a.settings.TotpPeriod,
		Skew:      a.settings.TotpSkew,
		Algorithm: a.settings.TotpAlgorithm,
	})
	if err != nil {
		slog.Error("failed to init totp", "error", err)
		os.Exit(1)
	}
	a.totp = totp
}

func (a *App) initSession() {
	store, err := session.NewCookieStore(session.Config{
		Secret:     a.settings.SessionSecret,
		CookieName: a.settings.SessionCookieName,
		Secure:     a.settings.SecureCookie(),
		TTL:        a.settings.SessionTTL,
		MaxAge:     a.settings.SessionMaxAge,
		Clock:      a.clock,
		UUID:       a.uuid,
	})
	if err != nil {
		slog.Error("failed to init session store", "error", err)
		os.Exit(1)
	}
	a.session = store
}

func (a *App) initReplay() {
	if !a.settings.ReplayEnabled {
		a.replay = replay.Noop{}
		return
	}

	if a.settings.ReplayDriver != "redis" {
		a.replay = replay.NewMemory(a.clock)
		return
	}

	opt, err := redis.ParseURL(a.config.GetString("redis.url"))
	if err != nil {
		slog.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	a.cacheConn = rdb
	a.replay = replay.NewRedis(rdb)
}

// googleCredentials collects client options from <prefix>.credentials_file,
// <prefix>.credentials_json, <prefix>.endpoint and <prefix>.without_auth.
func (a *App) googleCredentials(prefix string, scopes ...string) []option.ClientOption {
	opts := []option.ClientOption{}
	if a.config.GetBool(prefix + ".without_auth") {
		opts = append(opts, option.WithoutAuthentication())
	}
	if v := a.str(prefix + ".credentials_file"); v != "" {
		// #nosec G304 -- path is from trusted config file.
		credsJSON, err := os.ReadFile(v)
		if err != nil {
			slog.Error("failed to read google credentials file", "prefix", prefix, "error", err)
			os.Exit(1)
		}
		creds, err := google.CredentialsFromJSON(a.ctx, credsJSON, scopes...)
		if err != nil {
			slog.Error("failed to parse google credentials file", "prefix", prefix, "error", err)
			os.Exit(1)
		}
		opts = append(opts, option.WithCredentials(creds))
	}
	if v := a.config.GetBinary(prefix + ".credentials_json"); len(v) > 0 {
		creds, err := google.CredentialsFromJSON(a.ctx, v, scopes...)
		if err != nil {
			slog.Error("failed to parse google credentials json", "prefix", prefix, "error", err)
			os.Exit(1)
		}
		opts = append(opts, option.WithCredentials(creds))
	}
	if v := a.str(prefix + ".endpoint"); v != "" {
		opts = append(opts, option.WithEndpoint(v))
	}
	return opts
}

func (a *App) initStorage() {
	driver := a.str("storage.driver")

	opts := storage.FactoryOptions{
		Local: storage.LocalOptions{Dir: a.settings.PublicDir},
		S3: storage.S3Options{
			Bucket:       a.str("storage.s3.bucket"),
			Region:       a.str("storage.s3.region"),
			Endpoint:     a.str("storage.s3.endpoint"),
			AccessKey:    a.str("storage.s3.access_key"),
			SecretKey:    a.str("storage.s3.secret_key"),
			SessionToken: a.str("storage.s3.session_token"),
			UsePathStyle: a.config.GetBool("storage.s3.use_path_style"),
		},
		MinIO: storage.MinIOOptions{
			Bucket:       a.str("storage.minio.bucket"),
			Region:       a.str("storage.minio.region"),
			Endpoint:     a.str("storage.minio.endpoint"),
			AccessKey:    a.str("storage.minio.access_key"),
			SecretKey:    a.str("storage.minio.secret_key"),
			SessionToken: a.str("storage.minio.session_token"),
			UseSSL:       a.config.GetBool("storage.minio.use_ssl"),
		},
	}
	if strings.EqualFold(driver, storage.DriverGCS) {
		opts.GCS = storage.GCSOptions{
			Bucket:        a.str("storage.gcs.bucket"),
			ClientOptions: a.googleCredentials("storage.gcs", gcs.ScopeReadOnly),
		}
	}

	stg, err := storage.NewFromDriver(a.ctx, driver, opts)
	if err != nil {
		slog.Error("failed to init storage", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.storage = stg
}

func (a *App) initMessaging() {
	driver := a.str("messaging.driver")

	opts := messaging.FactoryOptions{
		NSQ: messaging.NSQConfig{
			ProducerAddr: a.config.GetString("messaging.nsq.producer_addr"),
			DialTimeout:  a.config.GetSecond("messaging.nsq.dial_timeout_seconds"),
			WriteTimeout: a.config.GetSecond("messaging.nsq.write_timeout_seconds"),
		},
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("instrument.service_name")),
				nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
				nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
				nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
			},
		},
		Kafka: messaging.KafkaConfig{
			Brokers:          a.config.GetArray("messaging.kafka.brokers"),
			ClientID:         a.config.GetString("instrument.service_name"),
			DialTimeout:      a.config.GetSecond("messaging.kafka.dial_timeout_seconds"),
			AutoCreateTopics: a.config.GetBool("messaging.kafka.auto_create_topics"),
		},
	}
	if strings.EqualFold(driver, messaging.DriverGooglePubSub) {
		opts.PubSub = messaging.PubSubConfig{
			ProjectID:     a.config.GetString("messaging.pubsub.project_id"),
			ClientOptions: a.googleCredentials("messaging.pubsub", scopePubSub),
		}
	}

	client, err := messaging.NewFromDriver(a.ctx, driver, opts)
	if err != nil {
		slog.Error("failed to init messaging", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.messaging = messaging.NewRetrying(client, messaging.RetryConfig{
		Attempts: a.config.GetUint64("messaging.retry.attempts"),
		Base:     time.Duration(a.config.GetInt("messaging.retry.base_millis")) * time.Millisecond,
		Cap:      a.config.GetSecond("messaging.retry.cap_seconds"),
	})
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		Instrument: a.ins,
	})

	handler := http.Handler(a.router)
	if origins := a.config.GetArray("app.server.cors"); len(origins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(a.router)
	}

	a.httpServer = &http.Server{
		Addr:              a.settings.Address(),
		Handler:           handler,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: durationOr(a.config.GetSecond("app.server.http.read_header_timeout_seconds"), 5*time.Second),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}

// initClosers lists what Stop releases after the server and background
// tasks are done. Instrument goes last so shutdown logs still get exported.
func (a *App) initClosers() {
	plain := func(fn func() error) func(context.Context) error {
		return func(context.Context) error { return fn() }
	}

	a.closers = []closer{
		{name: "Messaging", fn: plain(a.messaging.Close)},
		{name: "Replay", fn: plain(func() error {
			if a.cacheConn == nil {
				return nil
			}
			return a.cacheConn.Close()
		})},
		{name: "Storage", fn: plain(a.storage.Close)},
		{name: "Config", fn: plain(a.config.Close)},
		{name: "Instrument", fn: a.ins.Shutdown},
	}
}

// str reads a trimmed string setting.
func (a *App) str(key string) string {
	return strings.TrimSpace(a.config.GetString(key))
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
