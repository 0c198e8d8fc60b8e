package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

func newLogger(c *Config) Logger {
	var showName bool
	if c.AdvancedSettings.ShowLogSystemName != nil {
		showName = *c.AdvancedSettings.ShowLogSystemName
	}
	return Logger{
		ShowLogSystemName: showName,
		TimestampFormat:   c.AdvancedSettings.TimeStampFormat,
		Spacer:            c.AdvancedSettings.Spacer,
		ErrorHeader:       c.AdvancedSettings.Headers.Error,
		InfoHeader:        c.AdvancedSettings.Headers.Info,
		WarnHeader:        c.AdvancedSettings.Headers.Warn,
		DebugHeader:       c.AdvancedSettings.Headers.Debug,
	}
}

func defaultAdvancedSettings() advancedSettings {
	f := false
	return advancedSettings{
		ShowLogSystemName: &f,
		Spacer:            spacer,
		TimeStampFormat:   timestampFormat,
		Headers: headers{
			Info:  "[INFO]",
			Warn:  "[WARN]",
			Debug: "[DEBUG]",
			Error: "[ERROR]",
		},
	}
}

// GenDefaultSettings return struct with known sane/working logger settings
func GenDefaultSettings() Config {
	t := true
	return Config{
		Enabled: &t,
		SubLoggerConfig: SubLoggerConfig{
			Level:  "INFO|WARN|ERROR",
			Output: "console",
		},
		LoggerFileConfig: &FileConfig{
			FileName: "log.txt",
		},
		AdvancedSettings: defaultAdvancedSettings(),
	}
}

func getWriters(s *SubLoggerConfig) (io.Writer, error) {
	if s == nil {
		return nil, errSubloggerConfigIsNil
	}
	mw, err := MultiWriter()
	if err != nil {
		return nil, err
	}
	for _, output := range strings.Split(s.Output, "|") {
		var writer io.Writer
		switch strings.ToLower(strings.TrimSpace(output)) {
		case "stdout", "console":
			writer = os.Stdout
		case "stderr":
			writer = os.Stderr
		case "file":
			if globalLogFile == nil {
				return nil, errFileLoggingNotSet
			}
			writer = globalLogFile
		default:
			return nil, fmt.Errorf("%w: %s", errUnhandledOutputWriter, output)
		}
		if err = mw.Add(writer); err != nil {
			return nil, err
		}
	}
	return mw, nil
}

// SetupGlobalLogger sets up the global logger and all sub loggers with the
// supplied configuration values. A disabled config silences all output.
func SetupGlobalLogger(c *Config) error {
	if c == nil {
		return errSubloggerConfigIsNil
	}
	mu.Lock()
	defer mu.Unlock()

	if c.Enabled != nil && !*c.Enabled {
		for _, sl := range subLoggers {
			sl.output = nil
		}
		return nil
	}

	if c.LoggerFileConfig != nil && c.LoggerFileConfig.FileName != "" &&
		strings.Contains(strings.ToLower(c.Output), "file") {
		if globalLogFile != nil {
			_ = globalLogFile.Close()
		}
		f, err := os.OpenFile(filepath.Join(LogPath, c.LoggerFileConfig.FileName),
			os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		globalLogFile = f
	}

	output, err := getWriters(&c.SubLoggerConfig)
	if err != nil {
		return err
	}
	for _, sl := range subLoggers {
		sl.levels = splitLevel(c.Level)
		sl.output = output
	}

	for x := range c.SubLoggers {
		if err = configureSubLogger(c.SubLoggers[x].Name, c.SubLoggers[x].Level, c.SubLoggers[x].Output); err != nil {
			return err
		}
	}

	logger = newLogger(c)
	return nil
}

// SetOutput overrides the writer of every registered sub logger
func SetOutput(w io.Writer) {
	mu.Lock()
	for _, sl := range subLoggers {
		sl.output = w
	}
	mu.Unlock()
}

// CloseLogger is called on shutdown of application
func CloseLogger() error {
	mu.Lock()
	defer mu.Unlock()
	if globalLogFile == nil {
		return nil
	}
	err := globalLogFile.Close()
	globalLogFile = nil
	return err
}

// Level returns the enabled levels of a sub logger
func Level(name string) (Levels, error) {
	mu.RLock()
	defer mu.RUnlock()
	sl, ok := subLoggers[strings.ToUpper(name)]
	if !ok {
		return Levels{}, fmt.Errorf("%w: %s", errSubLoggerNotFound, name)
	}
	return sl.levels, nil
}

// configureSubLogger must be called with the lock held
func configureSubLogger(name, levels, output string) error {
	sl, ok := subLoggers[strings.ToUpper(name)]
	if !ok {
		return fmt.Errorf("%w: %s", errSubLoggerNotFound, name)
	}
	if output != "" {
		w, err := getWriters(&SubLoggerConfig{Output: output})
		if err != nil {
			return err
		}
		sl.output = w
	}
	sl.levels = splitLevel(levels)
	return nil
}

func splitLevel(level string) (l Levels) {
	for _, enabled := range strings.Split(level, "|") {
		switch strings.ToUpper(strings.TrimSpace(enabled)) {
		case "DEBUG":
			l.Debug = true
		case "INFO":
			l.Info = true
		case "WARN":
			l.Warn = true
		case "ERROR":
			l.Error = true
		}
	}
	return
}

func registerNewSubLogger(name string) *SubLogger {
	sl := &SubLogger{
		name:   strings.ToUpper(name),
		output: os.Stdout,
		levels: splitLevel(defaultLevels),
	}
	subLoggers[sl.name] = sl
	return sl
}

// register all loggers at package init()
func init() {
	Global = registerNewSubLogger("LOG")

	ConfigMgr = registerNewSubLogger("CONFIG")
	DatabaseMgr = registerNewSubLogger("DATABASE")
	WebsocketMgr = registerNewSubLogger("WEBSOCKET")
	TWAP = registerNewSubLogger("TWAP")

	RequestSys = registerNewSubLogger("REQUESTER")
	ExchangeSys = registerNewSubLogger("EXCHANGE")
	RESTSys = registerNewSubLogger("REST")
}
