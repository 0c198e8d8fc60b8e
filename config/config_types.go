package config

import (
	"errors"
	"time"

	"github.com/thrasher-corp/twapper/database"
	"github.com/thrasher-corp/twapper/log"
)

// Constants declared here are filename strings and defaults
const (
	File          = "config.json"
	EnvFile       = ".env"
	EnvPrefix     = "TWAPPER"
	ExchangeOKX   = "okx"
	ExchangePaper = "paper"

	DefaultInstrument      = "BTC-USDT"
	DefaultPercent         = 10.0
	DefaultSlices          = 5
	DefaultInterval        = 30 * time.Second
	DefaultJitterBand      = 0.001
	DefaultFillStepRatio   = 0.25
	DefaultListenAddress   = "localhost:8000"
	DefaultReadLimit       = 4096
	DefaultAPIURL          = "https://www.okx.com"
	DefaultRateLimit       = 10.0
	DefaultRateBurst       = 1
	DefaultHTTPTimeout     = 15 * time.Second
	DefaultPaperBalance    = 1000.0
	DefaultPaperBid        = 24990.0
	DefaultPaperAsk        = 25010.0
	DefaultMetricNamespace = "twapper"
	defaultDataDirectory   = "data"
)

// Environment variables holding exchange credentials
const (
	EnvAPIKey     = "API_KEY"
	EnvSecretKey  = "SECRET_KEY"
	EnvPassphrase = "PASSPHRASE"
)

var (
	errInvalidPercent       = errors.New("default percent must be within (0, 100]")
	errInvalidSliceCount    = errors.New("default slice count must be at least 1")
	errInvalidInterval      = errors.New("default interval must be greater than zero")
	errInvalidJitterBand    = errors.New("jitter band must be within [0, 1)")
	errInvalidFillStepRatio = errors.New("fill step ratio must be within (0, 1]")
	errUnsupportedExchange  = errors.New("unsupported exchange")
	errCredentialsMissing   = errors.New("exchange credentials missing")
	errInvalidPaperBook     = errors.New("paper book bid must be positive and not above ask")
	errInvalidRateLimit     = errors.New("rate limit must be greater than zero")
	errListenAddressIsEmpty = errors.New("server listen address is empty")
)

// Config is the overarching object that holds all the information for the
// daemon
type Config struct {
	DataDirectory string          `json:"dataDirectory" mapstructure:"dataDirectory"`
	Logging       log.Config      `json:"logging" mapstructure:"logging"`
	Server        ServerConfig    `json:"server" mapstructure:"server"`
	Exchange      ExchangeConfig  `json:"exchange" mapstructure:"exchange"`
	TWAP          TWAPConfig      `json:"twap" mapstructure:"twap"`
	Database      database.Config `json:"database" mapstructure:"database"`
	Metrics       MetricsConfig   `json:"metrics" mapstructure:"metrics"`
}

// ServerConfig holds the REST and websocket listener settings
type ServerConfig struct {
	ListenAddress  string   `json:"listenAddress" mapstructure:"listenAddress"`
	AllowedOrigins []string `json:"allowedOrigins" mapstructure:"allowedOrigins"`
	ReadLimit      int64    `json:"readLimit" mapstructure:"readLimit"`
}

// ExchangeConfig holds the venue settings used for balances, prices and
// order placement
type ExchangeConfig struct {
	Name        string        `json:"name" mapstructure:"name"`
	Paper       bool          `json:"paper" mapstructure:"paper"`
	DemoTrading bool          `json:"demoTrading" mapstructure:"demoTrading"`
	APIURL      string        `json:"apiURL" mapstructure:"apiURL"`
	RateLimit   float64       `json:"rateLimit" mapstructure:"rateLimit"`
	RateBurst   int           `json:"rateBurst" mapstructure:"rateBurst"`
	HTTPTimeout time.Duration `json:"httpTimeout" mapstructure:"httpTimeout"`
	Verbose     bool          `json:"verbose" mapstructure:"verbose"`
	PaperBook   PaperConfig   `json:"paperBook" mapstructure:"paperBook"`
	Credentials Credentials   `json:"-" mapstructure:"-"`
}

// PaperConfig seeds the in-memory exchange
type PaperConfig struct {
	Balance float64 `json:"balance" mapstructure:"balance"`
	Bid     float64 `json:"bid" mapstructure:"bid"`
	Ask     float64 `json:"ask" mapstructure:"ask"`
	Debit   bool    `json:"debit" mapstructure:"debit"`
}

// Credentials are loaded from the environment only
type Credentials struct {
	Key        string
	Secret     string
	Passphrase string
}

// TWAPConfig holds request defaults and engine options
type TWAPConfig struct {
	Instrument         string        `json:"instrument" mapstructure:"instrument"`
	Percent            float64       `json:"percent" mapstructure:"percent"`
	Slices             int64         `json:"slices" mapstructure:"slices"`
	Interval           time.Duration `json:"interval" mapstructure:"interval"`
	JitterBand         float64       `json:"jitterBand" mapstructure:"jitterBand"`
	FillStepRatio      float64       `json:"fillStepRatio" mapstructure:"fillStepRatio"`
	Seed               int64         `json:"seed" mapstructure:"seed"`
	SkipZeroSizeOrders bool          `json:"skipZeroSizeOrders" mapstructure:"skipZeroSizeOrders"`
	Verbose            bool          `json:"verbose" mapstructure:"verbose"`
}

// MetricsConfig toggles the prometheus endpoint
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Namespace string `json:"namespace" mapstructure:"namespace"`
}
