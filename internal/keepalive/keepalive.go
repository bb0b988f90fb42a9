// Package keepalive pings the database on a fixed interval so an idle hosted instance stays warm.
package keepalive

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/storage"
)

// Service runs the ping loop between Start and Stop. It never starts on its own.
type Service struct {
	pinger   storage.Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a stopped service.
func New(pinger storage.Pinger, interval time.Duration, logger *zap.Logger) *Service {
	return &Service{pinger: pinger, interval: interval, timeout: 10 * time.Second, logger: logger}
}

// Start pings once immediately and then every interval until Stop or ctx is done.
// Calling Start on a running service does nothing.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	s.logger.Info("keep-alive started", zap.Duration("interval", s.interval))
}

// Stop halts the loop and waits for an in-flight ping to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("keep-alive stopped")
}

// Active reports whether the loop is running.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Service) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.ping(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ping(ctx)
		}
	}
}

func (s *Service) ping(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.pinger.Ping(ctx); err != nil {
		s.logger.Warn("keep-alive ping failed", zap.Error(err))
		return
	}
	s.logger.Debug("keep-alive ping ok")
}
