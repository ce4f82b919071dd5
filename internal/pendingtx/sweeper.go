package pendingtx

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	sweepInterval = 1 * time.Minute
	// sweepHorizon is how old a pending record must be before the sweep
	// re-checks it; younger records are covered by their delayed task.
	sweepHorizon = 5 * time.Minute
)

// Sweeper is the background loop behind SweepExpired. One instance runs in
// the worker process.
type Sweeper struct {
	svc    *Service
	logger *logrus.Logger
	done   chan struct{}
}

func NewSweeper(svc *Service, logger *logrus.Logger) *Sweeper {
	return &Sweeper{
		svc:    svc,
		logger: logger,
		done:   make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go s.run()
}

func (s *Sweeper) Stop() {
	close(s.done)
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	s.logger.Info("pending transaction sweeper started")

	for {
		select {
		case <-ticker.C:
			if err := s.svc.SweepExpired(context.Background(), time.Now().Add(-sweepHorizon)); err != nil {
				s.logger.Errorf("fail to sweep expired transactions, err: %v", err)
			}
		case <-s.done:
			return
		}
	}
}
