package log

import "io"

// Global vars related to the logger package
var (
	subLoggers = map[string]*SubLogger{}

	Global       *SubLogger
	ConfigMgr    *SubLogger
	DatabaseMgr  *SubLogger
	WebsocketMgr *SubLogger
	TWAP         *SubLogger

	RequestSys  *SubLogger
	ExchangeSys *SubLogger
	RESTSys     *SubLogger
)

// SubLogger defines a named log output with its own set of enabled levels
type SubLogger struct {
	name   string
	levels Levels
	output io.Writer
}

// Name returns the sub logger name
func (sl *SubLogger) Name() string {
	if sl == nil {
		return ""
	}
	return sl.name
}
