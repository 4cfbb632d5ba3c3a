package services

import (
	"context"
	"time"

	"issuance-backend/internal/clients"
	"issuance-backend/internal/engine"
	"issuance-backend/internal/metrics"

	"github.com/sirupsen/logrus"
)

// HeightService polls the chain for the latest block height and advances the
// engine's monotonic counter. Credit grant windows are bounded by this
// counter, so the feed is the only production writer of height.
type HeightService struct {
	engine   *engine.Engine
	client   *clients.ChainClient
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewHeightService(eng *engine.Engine, client *clients.ChainClient, interval time.Duration) *HeightService {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &HeightService{
		engine:   eng,
		client:   client,
		interval: interval,
	}
}

// Start launches the polling loop. It returns immediately; Stop shuts the
// loop down and waits for it to exit.
func (s *HeightService) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx)
	logrus.WithFields(logrus.Fields{
		"interval": s.interval,
		"endpoint": s.client.ActiveEndpoint(),
	}).Info("height feed started")
}

func (s *HeightService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	logrus.Info("height feed stopped")
}

func (s *HeightService) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *HeightService) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	height, err := s.client.LatestHeight(pollCtx)
	if err != nil {
		metrics.ChainFeedErrors.Inc()
		logrus.WithError(err).WithField("endpoint", s.client.ActiveEndpoint()).Warn("height poll failed")
		return
	}

	s.engine.SetHeight(height)
	metrics.ChainHeight.Set(float64(height))
}
