package logger

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SafeFileWriter is a buffered, mutex guarded file sink flushed on a ticker.
// It satisfies zapcore.WriteSyncer.
type SafeFileWriter struct {
	mu       sync.Mutex
	writer   *bufio.Writer
	file     *os.File
	ticker   *time.Ticker
	done     chan struct{}
	once     sync.Once
	logger   *zap.Logger
	filePath string

	writtenLines uint64
	flushCount   uint64
}

func openAppend(filePath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// NewSafeFileWriter opens filePath for appending and flushes it every flushInterval.
func NewSafeFileWriter(filePath string, flushInterval time.Duration, logger *zap.Logger) (*SafeFileWriter, error) {
	file, err := openAppend(filePath)
	if err != nil {
		return nil, err
	}
	sfw := &SafeFileWriter{
		writer:   bufio.NewWriter(file),
		file:     file,
		ticker:   time.NewTicker(flushInterval),
		done:     make(chan struct{}),
		logger:   logger,
		filePath: filePath,
	}
	go sfw.periodicFlush()
	return sfw, nil
}

func (sfw *SafeFileWriter) Write(data []byte) (int, error) {
	sfw.mu.Lock()
	defer sfw.mu.Unlock()

	n, err := sfw.writer.Write(data)
	if err != nil {
		return n, fmt.Errorf("failed to write data: %w", err)
	}
	sfw.writtenLines++
	return n, nil
}

// Sync flushes buffered data to disk.
func (sfw *SafeFileWriter) Sync() error {
	sfw.mu.Lock()
	defer sfw.mu.Unlock()
	return sfw.flushLocked()
}

func (sfw *SafeFileWriter) flushLocked() error {
	if err := sfw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	if err := sfw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	sfw.flushCount++
	return nil
}

func (sfw *SafeFileWriter) periodicFlush() {
	for {
		select {
		case <-sfw.ticker.C:
			if err := sfw.Sync(); err != nil {
				sfw.logger.Error("Periodic flush failed", zap.String("file", sfw.filePath), zap.Error(err))
			}
		case <-sfw.done:
			return
		}
	}
}

// Close stops the flusher, writes what is buffered and closes the file. It is safe to call twice.
func (sfw *SafeFileWriter) Close() error {
	var err error
	sfw.once.Do(func() {
		close(sfw.done)
		sfw.ticker.Stop()

		sfw.mu.Lock()
		defer sfw.mu.Unlock()
		if ferr := sfw.writer.Flush(); ferr != nil {
			err = fmt.Errorf("failed to flush on close: %w", ferr)
			return
		}
		err = sfw.file.Close()
		sfw.logger.Debug("Log file closed",
			zap.String("file", sfw.filePath),
			zap.Uint64("writes", sfw.writtenLines),
			zap.Uint64("flushes", sfw.flushCount))
	})
	return err
}

// SafeCSVWriter appends records to a CSV file shared by concurrent workers.
// The header is written only when the file is new.
type SafeCSVWriter struct {
	mu       sync.Mutex
	writer   *csv.Writer
	file     *os.File
	filePath string

	writtenRecords uint64
}

func NewSafeCSVWriter(filePath string, header []string) (*SafeCSVWriter, error) {
	file, err := openAppend(filePath)
	if err != nil {
		return nil, err
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	scw := &SafeCSVWriter{writer: csv.NewWriter(file), file: file, filePath: filePath}
	if stat.Size() == 0 && len(header) > 0 {
		if err := scw.writer.Write(header); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		scw.writer.Flush()
	}
	return scw, nil
}

// WriteRecord writes and flushes one record.
func (scw *SafeCSVWriter) WriteRecord(record []string) error {
	scw.mu.Lock()
	defer scw.mu.Unlock()

	if err := scw.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	scw.writer.Flush()
	if err := scw.writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	scw.writtenRecords++
	return nil
}

func (scw *SafeCSVWriter) Close() error {
	scw.mu.Lock()
	defer scw.mu.Unlock()

	scw.writer.Flush()
	if err := scw.writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error on close: %w", err)
	}
	return scw.file.Close()
}

func (scw *SafeCSVWriter) Records() uint64 {
	scw.mu.Lock()
	defer scw.mu.Unlock()
	return scw.writtenRecords
}
