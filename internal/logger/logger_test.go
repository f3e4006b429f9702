package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_TeesIntoJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	l, closeFn, err := New(Options{File: path})
	require.NoError(t, err)

	l.Named("bot").Debug("Debug line", zap.String("mint", "abc"))
	l.Info("Transaction sent", zap.String("signature", "5xyz"))
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"logger":"bot"`)
	assert.Contains(t, lines[0], `"mint":"abc"`)
	assert.Contains(t, lines[1], `"signature":"5xyz"`)
}

func TestNew_ConsoleOnly(t *testing.T) {
	l, closeFn, err := New(Options{Debug: true})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.NoError(t, closeFn())
}

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage("Transaction confirmed", zap.String("signature", "1234567890abcdefghijklmnop"))
	assert.Contains(t, msg, "12345678...ijklmnop")

	msg = FormatMessage("Task failed", zap.String("task", "buy-1"), zap.Error(errors.New("boom")))
	assert.Contains(t, msg, "buy-1 failed: boom")

	msg = FormatMessage("Bundle sent", zap.String("bundle_id", "b1"), zap.Int("transactions", 3))
	assert.Contains(t, msg, "(3 txs)")

	assert.Equal(t, "something else", FormatMessage("something else"))
}

func TestFieldFilterCore_FormatsAndDropsFields(t *testing.T) {
	inner, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(&FieldFilterCore{core: inner}).With(zap.String("task", "sell-2"))

	l.Info("Task failed", zap.Error(errors.New("slippage")))
	l.Debug("hidden")

	entries := logs.AllUntimed()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "sell-2 failed: slippage")
	assert.Empty(t, entries[0].Context)
}
