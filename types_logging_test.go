package portal

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-logger/glog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logCall struct {
	level   string
	message string
	args    []any
}

type captureLogger struct {
	mu    sync.Mutex
	calls []logCall
}

func (l *captureLogger) record(level, message string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, logCall{level: level, message: message, args: args})
}

func (l *captureLogger) Debug(message string, args ...any) { l.record("debug", message, args...) }
func (l *captureLogger) Info(message string, args ...any)  { l.record("info", message, args...) }
func (l *captureLogger) Warn(message string, args ...any)  { l.record("warn", message, args...) }
func (l *captureLogger) Error(message string, args ...any) { l.record("error", message, args...) }

// find returns the first call with message.
func (l *captureLogger) find(message string) (logCall, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.calls {
		if c.message == message {
			return c, true
		}
	}
	return logCall{}, false
}

func (l *captureLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, c := range l.calls {
		if c.level == level {
			out = append(out, c.message)
		}
	}
	return out
}

// arg returns the value following key in the call args.
func (c logCall) arg(key string) any {
	for i := 0; i+1 < len(c.args); i += 2 {
		if k, ok := c.args[i].(string); ok && k == key {
			return c.args[i+1]
		}
	}
	return nil
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	orig := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	require.NoError(t, w.Close())
	os.Stdout = orig

	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}

func TestDefaultLoggerFormat(t *testing.T) {
	out := captureStdout(t, func() {
		DefaultLogger().Info("User signed in successfully", "userId", "u-1")
		DefaultLogger().Error("odd", "dangling")
	})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[INF] PORTAL User signed in successfully userId=u-1")
	assert.Contains(t, lines[1], "[ERR] PORTAL odd dangling")
}

func TestNormalizeLogger(t *testing.T) {
	assert.IsType(t, defLogger{}, normalizeLogger(nil))

	l := &captureLogger{}
	assert.Same(t, l, normalizeLogger(l))
}

func TestGlogSatisfiesLogger(t *testing.T) {
	base := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithName("test"),
		glog.WithAddSource(false),
	)

	var logger Logger = base.GetLogger("portal")
	require.NotNil(t, logger)
	logger.Debug("debug message", "key", "value")
}

func TestWithMinLevel(t *testing.T) {
	l := &captureLogger{}
	logger := WithMinLevel(l, "warn")

	logger.Debug("d")
	logger.Info("i")
	logger.Warn("w")
	logger.Error("e")

	assert.Empty(t, l.messages("debug"))
	assert.Empty(t, l.messages("info"))
	assert.Equal(t, []string{"w"}, l.messages("warn"))
	assert.Equal(t, []string{"e"}, l.messages("error"))

	assert.Same(t, l, WithMinLevel(l, "debug"))
	assert.Same(t, l, WithMinLevel(l, "bogus"))
}
