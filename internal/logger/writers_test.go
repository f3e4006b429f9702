package logger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSafeFileWriterConcurrentWrites(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "logs", "bot.log")

	core, logs := observer.New(zapcore.DebugLevel)
	writer, err := NewSafeFileWriter(testFile, 20*time.Millisecond, zap.New(core))
	require.NoError(t, err)

	var wg sync.WaitGroup
	numGoroutines := 10
	linesPerGoroutine := 100

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < linesPerGoroutine; j++ {
				_, err := writer.Write([]byte(fmt.Sprintf("goroutine %d line %d\n", id, j)))
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	require.NoError(t, writer.Sync())
	require.NoError(t, writer.Close())

	closed := logs.FilterMessage("Log file closed").All()
	require.Len(t, closed, 1)
	fields := closed[0].ContextMap()
	assert.Equal(t, uint64(numGoroutines*linesPerGoroutine), fields["writes"])
	assert.GreaterOrEqual(t, fields["flushes"], uint64(1))

	data, err := os.ReadFile(testFile)
	require.NoError(t, err)
	assert.Equal(t, numGoroutines*linesPerGoroutine, strings.Count(string(data), "\n"))
}

func TestSafeFileWriterCloseTwice(t *testing.T) {
	writer, err := NewSafeFileWriter(filepath.Join(t.TempDir(), "x.log"), time.Second, zap.NewNop())
	require.NoError(t, err)
	_, err = writer.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.NoError(t, writer.Close())
	assert.NoError(t, writer.Close())
}

func TestSafeCSVWriterHeaderOnce(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "results.csv")
	header := []string{"task", "signature"}

	writer, err := NewSafeCSVWriter(testFile, header)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				assert.NoError(t, writer.WriteRecord([]string{fmt.Sprintf("task_%d", id), fmt.Sprintf("sig_%d", j)}))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, uint64(100), writer.Records())
	require.NoError(t, writer.Close())

	// Reopening an existing file must not repeat the header.
	writer, err = NewSafeCSVWriter(testFile, header)
	require.NoError(t, err)
	require.NoError(t, writer.WriteRecord([]string{"last", "sig"}))
	require.NoError(t, writer.Close())

	f, err := os.Open(testFile)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 102)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, []string{"last", "sig"}, rows[101])
}
