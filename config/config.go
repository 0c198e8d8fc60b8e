package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/thrasher-corp/twapper/common"
	"github.com/thrasher-corp/twapper/database"
	"github.com/thrasher-corp/twapper/log"
)

// Load reads the optional .env file and config file, applies environment
// overrides and defaults, then validates the result
func Load(configPath, envPath string) (*Config, error) {
	if err := LoadEnvFile(envPath); err != nil {
		return nil, err
	}

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configPath, err)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	c.Exchange.Credentials = CredentialsFromEnv()

	if err := c.CheckConfig(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadEnvFile loads key/value pairs into the process environment. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = EnvFile
	}
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// CredentialsFromEnv reads exchange credentials from the environment
func CredentialsFromEnv() Credentials {
	return Credentials{
		Key:        os.Getenv(EnvAPIKey),
		Secret:     os.Getenv(EnvSecretKey),
		Passphrase: os.Getenv(EnvPassphrase),
	}
}

// SetDefaults registers every default so env overrides apply to unset keys
func SetDefaults(v *viper.Viper) {
	logging := log.GenDefaultSettings()
	v.SetDefault("dataDirectory", defaultDataDirectory)
	v.SetDefault("logging.enabled", *logging.Enabled)
	v.SetDefault("logging.level", logging.Level)
	v.SetDefault("logging.output", logging.Output)
	v.SetDefault("logging.fileSettings.filename", logging.LoggerFileConfig.FileName)
	v.SetDefault("logging.advancedSettings.showLogSystemName", *logging.AdvancedSettings.ShowLogSystemName)
	v.SetDefault("logging.advancedSettings.spacer", logging.AdvancedSettings.Spacer)
	v.SetDefault("logging.advancedSettings.timeStampFormat", logging.AdvancedSettings.TimeStampFormat)
	v.SetDefault("logging.advancedSettings.headers.info", logging.AdvancedSettings.Headers.Info)
	v.SetDefault("logging.advancedSettings.headers.warn", logging.AdvancedSettings.Headers.Warn)
	v.SetDefault("logging.advancedSettings.headers.debug", logging.AdvancedSettings.Headers.Debug)
	v.SetDefault("logging.advancedSettings.headers.error", logging.AdvancedSettings.Headers.Error)

	v.SetDefault("server.listenAddress", DefaultListenAddress)
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("server.readLimit", DefaultReadLimit)

	v.SetDefault("exchange.name", ExchangeOKX)
	v.SetDefault("exchange.paper", false)
	v.SetDefault("exchange.demoTrading", true)
	v.SetDefault("exchange.apiURL", DefaultAPIURL)
	v.SetDefault("exchange.rateLimit", DefaultRateLimit)
	v.SetDefault("exchange.rateBurst", DefaultRateBurst)
	v.SetDefault("exchange.httpTimeout", DefaultHTTPTimeout)
	v.SetDefault("exchange.paperBook.balance", DefaultPaperBalance)
	v.SetDefault("exchange.paperBook.bid", DefaultPaperBid)
	v.SetDefault("exchange.paperBook.ask", DefaultPaperAsk)

	v.SetDefault("twap.instrument", DefaultInstrument)
	v.SetDefault("twap.percent", DefaultPercent)
	v.SetDefault("twap.slices", DefaultSlices)
	v.SetDefault("twap.interval", DefaultInterval)
	v.SetDefault("twap.jitterBand", DefaultJitterBand)
	v.SetDefault("twap.fillStepRatio", DefaultFillStepRatio)
	v.SetDefault("twap.seed", 0)
	v.SetDefault("twap.skipZeroSizeOrders", false)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", database.DBSQLite3)
	v.SetDefault("database.migrationDir", database.MigrationDir)
	v.SetDefault("database.database", database.DefaultSQLiteDatabase)
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", DefaultMetricNamespace)
}

// CheckConfig validates the config and fills in missing values
func (c *Config) CheckConfig() error {
	if c == nil {
		return fmt.Errorf("%w: config", common.ErrNilPointer)
	}
	c.CheckLoggerConfig()

	if err := c.checkServerConfig(); err != nil {
		return err
	}
	if err := c.checkTWAPConfig(); err != nil {
		return err
	}
	if err := c.checkExchangeConfig(); err != nil {
		return err
	}
	if err := c.checkDatabaseConfig(); err != nil {
		log.Errorf(log.DatabaseMgr, "Failed to configure database, journal disabled: %v", err)
		c.Database.Enabled = false
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricNamespace
	}
	return nil
}

// CheckLoggerConfig restores logger defaults when the section is missing
func (c *Config) CheckLoggerConfig() {
	if c.Logging.Enabled == nil || c.Logging.Output == "" {
		c.Logging = log.GenDefaultSettings()
	}
	if c.Logging.AdvancedSettings.ShowLogSystemName == nil {
		f := false
		c.Logging.AdvancedSettings.ShowLogSystemName = &f
	}
	if c.Logging.LoggerFileConfig != nil && c.Logging.LoggerFileConfig.FileName == "" {
		c.Logging.LoggerFileConfig.FileName = "log.txt"
	}
}

func (c *Config) checkServerConfig() error {
	if c.Server.ListenAddress == "" {
		return errListenAddressIsEmpty
	}
	if c.Server.ReadLimit <= 0 {
		log.Warnf(log.ConfigMgr, "Server read limit not set, defaulting to %v", DefaultReadLimit)
		c.Server.ReadLimit = DefaultReadLimit
	}
	return nil
}

func (c *Config) checkTWAPConfig() error {
	if c.TWAP.Instrument == "" {
		c.TWAP.Instrument = DefaultInstrument
	}
	if c.TWAP.Percent <= 0 || c.TWAP.Percent > 100 {
		return fmt.Errorf("%w: %v", errInvalidPercent, c.TWAP.Percent)
	}
	if c.TWAP.Slices < 1 {
		return fmt.Errorf("%w: %v", errInvalidSliceCount, c.TWAP.Slices)
	}
	if c.TWAP.Interval <= 0 {
		return fmt.Errorf("%w: %v", errInvalidInterval, c.TWAP.Interval)
	}
	if c.TWAP.JitterBand < 0 || c.TWAP.JitterBand >= 1 {
		return fmt.Errorf("%w: %v", errInvalidJitterBand, c.TWAP.JitterBand)
	}
	if c.TWAP.FillStepRatio == 0 {
		c.TWAP.FillStepRatio = DefaultFillStepRatio
	}
	if c.TWAP.FillStepRatio < 0 || c.TWAP.FillStepRatio > 1 {
		return fmt.Errorf("%w: %v", errInvalidFillStepRatio, c.TWAP.FillStepRatio)
	}
	return nil
}

func (c *Config) checkExchangeConfig() error {
	c.Exchange.Name = strings.ToLower(c.Exchange.Name)
	if c.Exchange.Name == ExchangePaper {
		c.Exchange.Paper = true
	}
	if c.Exchange.HTTPTimeout <= 0 {
		log.Warnf(log.ConfigMgr, "Exchange HTTP timeout not set, defaulting to %v", DefaultHTTPTimeout)
		c.Exchange.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.Exchange.Paper {
		book := c.Exchange.PaperBook
		if book.Bid <= 0 || book.Ask < book.Bid {
			return fmt.Errorf("%w: bid %v ask %v", errInvalidPaperBook, book.Bid, book.Ask)
		}
		return nil
	}
	if c.Exchange.Name != ExchangeOKX {
		return fmt.Errorf("%w: %q", errUnsupportedExchange, c.Exchange.Name)
	}
	if c.Exchange.RateLimit <= 0 {
		return fmt.Errorf("%w: %v", errInvalidRateLimit, c.Exchange.RateLimit)
	}
	if c.Exchange.RateBurst < 1 {
		c.Exchange.RateBurst = DefaultRateBurst
	}
	if c.Exchange.APIURL == "" {
		c.Exchange.APIURL = DefaultAPIURL
	}
	creds := c.Exchange.Credentials
	if creds.Key == "" || creds.Secret == "" || creds.Passphrase == "" {
		return fmt.Errorf("%w: set %s, %s and %s or enable paper trading",
			errCredentialsMissing, EnvAPIKey, EnvSecretKey, EnvPassphrase)
	}
	return nil
}

func (c *Config) checkDatabaseConfig() error {
	if !c.Database.Enabled {
		return nil
	}
	switch c.Database.Driver {
	case database.DBSQLite3:
		if c.Database.Database == "" {
			c.Database.Database = database.DefaultSQLiteDatabase
		}
	case database.DBPostgreSQL:
		if c.Database.Database == "" {
			return database.ErrNoDatabaseProvided
		}
	default:
		return fmt.Errorf("%w: %q", database.ErrUnsupportedDriver, c.Database.Driver)
	}
	return nil
}

// GetDataPath gets the data path for the given subpath
func (c *Config) GetDataPath(elem ...string) string {
	baseDir := c.DataDirectory
	if baseDir == "" {
		baseDir = defaultDataDirectory
	}
	return filepath.Join(append([]string{baseDir}, elem...)...)
}
