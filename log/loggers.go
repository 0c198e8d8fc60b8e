package log

import (
	"fmt"
	"io"
	"log"
	"time"
)

// Info takes a pointer subLogger struct and string sends to newLogEvent
func Info(sl *SubLogger, data string) {
	stage(sl, infoLevel, func() string { return data })
}

// Infoln takes a pointer subLogger struct and interface sends to newLogEvent
func Infoln(sl *SubLogger, v ...interface{}) {
	stage(sl, infoLevel, func() string { return fmt.Sprint(v...) })
}

// Infof takes a pointer subLogger struct, string and interface formats sends to newLogEvent
func Infof(sl *SubLogger, data string, v ...interface{}) {
	stage(sl, infoLevel, func() string { return fmt.Sprintf(data, v...) })
}

// Debug takes a pointer subLogger struct and string sends to newLogEvent
func Debug(sl *SubLogger, data string) {
	stage(sl, debugLevel, func() string { return data })
}

// Debugln takes a pointer subLogger struct, string and interface sends to newLogEvent
func Debugln(sl *SubLogger, v ...interface{}) {
	stage(sl, debugLevel, func() string { return fmt.Sprint(v...) })
}

// Debugf takes a pointer subLogger struct, string and interface formats sends to newLogEvent
func Debugf(sl *SubLogger, data string, v ...interface{}) {
	stage(sl, debugLevel, func() string { return fmt.Sprintf(data, v...) })
}

// Warn takes a pointer subLogger struct & string and sends to newLogEvent
func Warn(sl *SubLogger, data string) {
	stage(sl, warnLevel, func() string { return data })
}

// Warnln takes a pointer subLogger struct & interface formats and sends to newLogEvent
func Warnln(sl *SubLogger, v ...interface{}) {
	stage(sl, warnLevel, func() string { return fmt.Sprint(v...) })
}

// Warnf takes a pointer subLogger struct, string and interface formats sends to newLogEvent
func Warnf(sl *SubLogger, data string, v ...interface{}) {
	stage(sl, warnLevel, func() string { return fmt.Sprintf(data, v...) })
}

// Error takes a pointer subLogger struct & interface formats and sends to newLogEvent
func Error(sl *SubLogger, data string) {
	stage(sl, errorLevel, func() string { return data })
}

// Errorln takes a pointer subLogger struct, string & interface formats and sends to newLogEvent
func Errorln(sl *SubLogger, v ...interface{}) {
	stage(sl, errorLevel, func() string { return fmt.Sprint(v...) })
}

// Errorf takes a pointer subLogger struct, string and interface formats sends to newLogEvent
func Errorf(sl *SubLogger, data string, v ...interface{}) {
	stage(sl, errorLevel, func() string { return fmt.Sprintf(data, v...) })
}

type level uint8

const (
	infoLevel level = iota
	debugLevel
	warnLevel
	errorLevel
)

// stage checks the sub logger level and writes out the event. The deferral
// means formatting is skipped entirely for disabled levels.
func stage(sl *SubLogger, lvl level, deferral func() string) {
	if sl == nil {
		return
	}
	mu.RLock()
	defer mu.RUnlock()
	if sl.output == nil {
		return
	}
	var header string
	switch lvl {
	case infoLevel:
		if !sl.levels.Info {
			return
		}
		header = logger.InfoHeader
	case debugLevel:
		if !sl.levels.Debug {
			return
		}
		header = logger.DebugHeader
	case warnLevel:
		if !sl.levels.Warn {
			return
		}
		header = logger.WarnHeader
	case errorLevel:
		if !sl.levels.Error {
			return
		}
		header = logger.ErrorHeader
	}
	displayError(logger.newLogEvent(deferral(), header, sl.name, sl.output))
}

func (l *Logger) newLogEvent(data, header, slName string, w io.Writer) error {
	bufPtr := bufferPool.Get().(*[]byte)
	buf := (*bufPtr)[:0]
	buf = append(buf, header...)
	if l.ShowLogSystemName {
		buf = append(buf, l.Spacer...)
		buf = append(buf, slName...)
	}
	buf = append(buf, l.Spacer...)
	if l.TimestampFormat != "" {
		buf = time.Now().AppendFormat(buf, l.TimestampFormat)
	}
	buf = append(buf, l.Spacer...)
	buf = append(buf, data...)
	if data == "" || data[len(data)-1] != '\n' {
		buf = append(buf, '\n')
	}
	_, err := w.Write(buf)
	*bufPtr = buf[:0]
	bufferPool.Put(bufPtr)
	return err
}

func displayError(err error) {
	if err != nil {
		log.Printf("Logger write error: %v\n", err)
	}
}
