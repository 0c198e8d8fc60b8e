package log

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("bad write") }

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) { return len(p) - 1, nil }

func TestSplitLevel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Levels{Info: true, Warn: true}, splitLevel("INFO|WARN"))
	assert.Equal(t, Levels{Info: true, Debug: true, Warn: true, Error: true}, splitLevel("info|debug|warn|error"))
	assert.Equal(t, Levels{}, splitLevel("NOPE"))
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()
	var a, b bytes.Buffer
	mw, err := MultiWriter(&a, &b)
	require.NoError(t, err, "MultiWriter must not error")

	err = mw.Add(&a)
	assert.ErrorIs(t, err, errWriterAlreadyLoaded)

	n, err := mw.Write([]byte("hello"))
	require.NoError(t, err, "Write must not error")
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", a.String())
	assert.Equal(t, "hello", b.String())

	require.NoError(t, mw.Remove(&b), "Remove must not error")
	assert.ErrorIs(t, mw.Remove(&b), errWriterNotFound)

	_, err = mw.Write([]byte("!"))
	require.NoError(t, err, "Write must not error")
	assert.Equal(t, "hello", b.String())

	require.NoError(t, mw.Add(failWriter{}), "Add must not error")
	_, err = mw.Write([]byte("x"))
	assert.Error(t, err)

	short, err := MultiWriter(shortWriter{})
	require.NoError(t, err, "MultiWriter must not error")
	_, err = short.Write([]byte("abc"))
	assert.Error(t, err)
}

func TestGetWriters(t *testing.T) {
	t.Parallel()
	_, err := getWriters(nil)
	assert.ErrorIs(t, err, errSubloggerConfigIsNil)

	_, err = getWriters(&SubLoggerConfig{Output: "printer"})
	assert.ErrorIs(t, err, errUnhandledOutputWriter)

	w, err := getWriters(&SubLoggerConfig{Output: "stdout|stderr"})
	require.NoError(t, err, "getWriters must not error")
	assert.Len(t, w.(*multiWriter).writers, 2)
}

func TestNewLogEvent(t *testing.T) {
	t.Parallel()
	l := Logger{
		ShowLogSystemName: true,
		Spacer:            " | ",
		InfoHeader:        "[INFO]",
	}
	var buf bytes.Buffer
	require.NoError(t, l.newLogEvent("slice placed", l.InfoHeader, "TWAP", &buf), "newLogEvent must not error")
	assert.Equal(t, "[INFO] | TWAP |  | slice placed\n", buf.String())

	assert.Error(t, l.newLogEvent("x", l.InfoHeader, "TWAP", failWriter{}))
}

// TestLoggerOutput is not parallel as it mutates the global sub loggers
func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	Infof(TWAP, "slice %d/%d", 1, 4)
	Warnln(TWAP, "careful")
	Debug(TWAP, "debugging")
	Error(TWAP, "broken")
	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "slice 1/4")
	assert.Contains(t, out, "careful")
	assert.Contains(t, out, "[DEBUG]")
	assert.Contains(t, out, "broken")

	Infof(nil, "should not panic")

	cfg := GenDefaultSettings()
	cfg.SubLoggers = []SubLoggerConfig{{Name: "twap", Level: "ERROR", Output: "stdout"}}
	require.NoError(t, SetupGlobalLogger(&cfg), "SetupGlobalLogger must not error")
	lvl, err := Level("TWAP")
	require.NoError(t, err, "Level must not error")
	assert.Equal(t, Levels{Error: true}, lvl)

	_, err = Level("bogus")
	assert.ErrorIs(t, err, errSubLoggerNotFound)

	cfg.SubLoggers = []SubLoggerConfig{{Name: "bogus", Level: "ERROR"}}
	assert.ErrorIs(t, SetupGlobalLogger(&cfg), errSubLoggerNotFound)

	disabled := false
	cfg = GenDefaultSettings()
	cfg.Enabled = &disabled
	require.NoError(t, SetupGlobalLogger(&cfg), "SetupGlobalLogger must not error")
	buf.Reset()
	Info(TWAP, "silent")
	assert.Empty(t, buf.String())

	assert.ErrorIs(t, SetupGlobalLogger(nil), errSubloggerConfigIsNil)

	cfg = GenDefaultSettings()
	require.NoError(t, SetupGlobalLogger(&cfg), "SetupGlobalLogger must not error")
}

func TestFileOutput(t *testing.T) {
	LogPath = t.TempDir()
	t.Cleanup(func() {
		LogPath = ""
		cfg := GenDefaultSettings()
		_ = SetupGlobalLogger(&cfg)
	})
	cfg := GenDefaultSettings()
	cfg.Output = "file"
	cfg.LoggerFileConfig.FileName = "twap.log"
	require.NoError(t, SetupGlobalLogger(&cfg), "SetupGlobalLogger must not error")
	Errorf(Global, "written to %s", "file")
	require.NoError(t, CloseLogger(), "CloseLogger must not error")

	data, err := os.ReadFile(filepath.Join(LogPath, "twap.log"))
	require.NoError(t, err, "ReadFile must not error")
	assert.True(t, strings.Contains(string(data), "written to file"))
}
