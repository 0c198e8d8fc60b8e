package log

import (
	"errors"
	"io"
	"sync"
)

const (
	timestampFormat = " 02/01/2006 15:04:05 "
	spacer          = " | "

	defaultLevels = "INFO|WARN|DEBUG|ERROR"
)

var (
	errSubLoggerNotFound     = errors.New("sub logger not found")
	errSubloggerConfigIsNil  = errors.New("sublogger config is nil")
	errUnhandledOutputWriter = errors.New("unhandled output writer")
	errWriterAlreadyLoaded   = errors.New("io.Writer already loaded")
	errWriterNotFound        = errors.New("io.Writer not found")
	errFileLoggingNotSet     = errors.New("file logging requested but no file settings supplied")

	logger = newLogger(&Config{AdvancedSettings: defaultAdvancedSettings()})

	// globalLogFile holds the opened file when file output is configured
	globalLogFile io.WriteCloser

	// LogPath is the directory file output is written to
	LogPath string

	bufferPool = &sync.Pool{New: func() interface{} { b := make([]byte, 0, 256); return &b }}

	// read/write mutex for logger
	mu = &sync.RWMutex{}
)

// Config holds configuration settings loaded from the application config
type Config struct {
	Enabled          *bool `json:"enabled" mapstructure:"enabled"`
	SubLoggerConfig  `mapstructure:",squash"`
	LoggerFileConfig *FileConfig       `json:"fileSettings,omitempty" mapstructure:"fileSettings"`
	AdvancedSettings advancedSettings  `json:"advancedSettings" mapstructure:"advancedSettings"`
	SubLoggers       []SubLoggerConfig `json:"subloggers,omitempty" mapstructure:"subloggers"`
}

type advancedSettings struct {
	ShowLogSystemName *bool   `json:"showLogSystemName" mapstructure:"showLogSystemName"`
	Spacer            string  `json:"spacer" mapstructure:"spacer"`
	TimeStampFormat   string  `json:"timeStampFormat" mapstructure:"timeStampFormat"`
	Headers           headers `json:"headers" mapstructure:"headers"`
}

type headers struct {
	Info  string `json:"info" mapstructure:"info"`
	Warn  string `json:"warn" mapstructure:"warn"`
	Debug string `json:"debug" mapstructure:"debug"`
	Error string `json:"error" mapstructure:"error"`
}

// SubLoggerConfig holds sub logger configuration settings
type SubLoggerConfig struct {
	Name   string `json:"name,omitempty" mapstructure:"name"`
	Level  string `json:"level" mapstructure:"level"`
	Output string `json:"output" mapstructure:"output"`
}

// FileConfig defines file output settings
type FileConfig struct {
	FileName string `json:"filename,omitempty" mapstructure:"filename"`
}

// Logger each instance of logger settings
type Logger struct {
	ShowLogSystemName                                bool
	TimestampFormat                                  string
	InfoHeader, ErrorHeader, DebugHeader, WarnHeader string
	Spacer                                           string
}

// Levels flags for each sub logger type
type Levels struct {
	Info, Debug, Warn, Error bool
}

type multiWriter struct {
	writers []io.Writer
	mu      sync.RWMutex
}
