package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"courierboard/internal/courier"
	"courierboard/internal/courier/api"
	"courierboard/internal/courier/session"
)

const (
	listenAddressFlag      = "a"
	listenAddressDefault   = "localhost:8080"
	backendAddressFlag     = "b"
	backendAddressDefault  = "http://localhost:8081"
	realtimeURLFlag        = "w"
	realtimeURLDefault     = "ws://localhost:8081/api/realtime"
	stateDirFlag           = "s"
	stateDirDefault        = ".courierboard"
	phoneFlag              = "p"
	codeFlag               = "c"
	requestTimeoutDefault  = 10 * time.Second
	pingIntervalDefault    = 25 * time.Second
	pollIntervalDefault    = 6 * time.Second
	maxBackoffDefault      = 30 * time.Second
	shutdownTimeoutDefault = 5 * time.Second
)

type Config struct {
	Server          courier.Config
	API             api.Config
	Session         session.Config
	StateDir        string
	Phone           string
	Code            string
	Telegram        TelegramConfig
	ShutdownTimeout time.Duration
}

type TelegramConfig struct {
	Token  string
	ChatID int64
}

// envOverrides mirrors the flag set; any variable present in the
// environment (or a local .env file) wins over the flag value.
type envOverrides struct {
	ListenAddress  string        `env:"RUN_ADDRESS"`
	BackendAddress string        `env:"BACKEND_ADDRESS"`
	RealtimeURL    string        `env:"REALTIME_URL"`
	StateDir       string        `env:"STATE_DIR"`
	Phone          string        `env:"DRIVER_PHONE"`
	Code           string        `env:"DRIVER_CODE"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
	PingInterval   time.Duration `env:"PING_INTERVAL"`
	PollInterval   time.Duration `env:"POLL_INTERVAL"`
	MaxBackoff     time.Duration `env:"MAX_BACKOFF"`
	TelegramToken  string        `env:"TELEGRAM_TOKEN"`
	TelegramChatID int64         `env:"TELEGRAM_CHAT_ID"`
}

func Load() (*Config, error) {
	listenAddress := flag.String(
		listenAddressFlag,
		listenAddressDefault,
		"Local view API address host:port",
	)

	backendAddress := flag.String(
		backendAddressFlag,
		backendAddressDefault,
		"Dispatch backend base URL",
	)

	realtimeURL := flag.String(
		realtimeURLFlag,
		realtimeURLDefault,
		"Realtime channel websocket URL",
	)

	stateDir := flag.String(
		stateDirFlag,
		stateDirDefault,
		"Directory for persisted per-driver state",
	)

	phone := flag.String(phoneFlag, "", "Driver phone number")
	code := flag.String(codeFlag, "", "Driver login code")

	flag.Parse()

	// Missing .env is fine, the environment alone is enough.
	_ = godotenv.Load()

	overrides := envOverrides{
		ListenAddress:  *listenAddress,
		BackendAddress: *backendAddress,
		RealtimeURL:    *realtimeURL,
		StateDir:       *stateDir,
		Phone:          *phone,
		Code:           *code,
		RequestTimeout: requestTimeoutDefault,
		PingInterval:   pingIntervalDefault,
		PollInterval:   pollIntervalDefault,
		MaxBackoff:     maxBackoffDefault,
	}
	if err := env.Parse(&overrides); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if overrides.Phone == "" {
		return nil, fmt.Errorf("driver phone is required (-%s flag or DRIVER_PHONE)", phoneFlag)
	}
	if overrides.Code == "" {
		return nil, fmt.Errorf("driver code is required (-%s flag or DRIVER_CODE)", codeFlag)
	}

	return &Config{
		Server: courier.Config{
			ListenAddress:   overrides.ListenAddress,
			ShutdownTimeout: shutdownTimeoutDefault,
		},
		API: api.Config{
			BaseURL: overrides.BackendAddress,
			Timeout: overrides.RequestTimeout,
		},
		Session: session.Config{
			RealtimeURL:  overrides.RealtimeURL,
			PingInterval: overrides.PingInterval,
			PollInterval: overrides.PollInterval,
			MaxBackoff:   overrides.MaxBackoff,
		},
		StateDir: overrides.StateDir,
		Phone:    overrides.Phone,
		Code:     overrides.Code,
		Telegram: TelegramConfig{
			Token:  overrides.TelegramToken,
			ChatID: overrides.TelegramChatID,
		},
		ShutdownTimeout: shutdownTimeoutDefault,
	}, nil
}
