package bot

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// CloseFunc allows using a function as an io.Closer
type CloseFunc func() error

func (f CloseFunc) Close() error {
	return f()
}

type namedService struct {
	name   string
	closer io.Closer
}

// ShutdownHandler closes registered services in reverse registration order.
type ShutdownHandler struct {
	logger   *zap.Logger
	mu       sync.Mutex
	services []namedService
}

func NewShutdownHandler(logger *zap.Logger) *ShutdownHandler {
	return &ShutdownHandler{logger: logger.Named("shutdown")}
}

// Add registers a service for shutdown
func (sh *ShutdownHandler) Add(name string, closer io.Closer) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.services = append(sh.services, namedService{name: name, closer: closer})
	sh.logger.Debug("Registered service for shutdown", zap.String("service", name))
}

// AddFunc registers a shutdown function
func (sh *ShutdownHandler) AddFunc(name string, fn func() error) {
	sh.Add(name, CloseFunc(fn))
}

// Shutdown closes every service (LIFO) and returns the combined errors.
// Services still closing when ctx ends are reported as timed out.
func (sh *ShutdownHandler) Shutdown(ctx context.Context) error {
	sh.mu.Lock()
	services := sh.services
	sh.services = nil
	sh.mu.Unlock()

	var errs error
	for i := len(services) - 1; i >= 0; i-- {
		s := services[i]
		done := make(chan error, 1)
		go func() { done <- s.closer.Close() }()

		select {
		case err := <-done:
			if err != nil {
				sh.logger.Error("Failed to shutdown service", zap.String("service", s.name), zap.Error(err))
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.name, err))
			}
		case <-ctx.Done():
			errs = multierr.Append(errs, fmt.Errorf("%s: shutdown timeout", s.name))
		}
	}
	return errs
}
