package services

import (
	"context"
	"time"

	"issuance-backend/internal/engine"
	"issuance-backend/internal/events"
	"issuance-backend/internal/models"
	"issuance-backend/internal/repository"
	"issuance-backend/internal/vault"

	"github.com/sirupsen/logrus"
)

// SnapshotService records the reserve state on a fixed cadence: one
// reserve_snapshots row for reconciliation and one NATS event for live
// consumers. Snapshots are observations, not state; losing one loses
// nothing that the next tick does not recapture.
type SnapshotService struct {
	engine    *engine.Engine
	snapshots repository.SnapshotRepository
	publisher *events.Publisher
	interval  time.Duration
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewSnapshotService(eng *engine.Engine, snapshots repository.SnapshotRepository, publisher *events.Publisher, interval time.Duration) *SnapshotService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SnapshotService{
		engine:    eng,
		snapshots: snapshots,
		publisher: publisher,
		interval:  interval,
	}
}

func (s *SnapshotService) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx)
	logrus.WithField("interval", s.interval).Info("reserve snapshot service started")
}

func (s *SnapshotService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	logrus.Info("reserve snapshot service stopped")
}

func (s *SnapshotService) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.capture(ctx)
		}
	}
}

// Capture records one snapshot immediately, outside the periodic cadence.
func (s *SnapshotService) Capture(ctx context.Context) {
	s.capture(ctx)
}

func (s *SnapshotService) capture(ctx context.Context) {
	var state vault.State
	var height uint64
	s.engine.View(func() {
		state = s.engine.Vault.StateView()
	})
	height = s.engine.Height()

	if s.snapshots != nil {
		record := &models.ReserveSnapshot{
			TotalIssued: state.TotalIssued.String(),
			LegABalance: state.LegABalance.String(),
			LegBBalance: state.LegBBalance.String(),
			AccruedFees: state.AccruedFees.String(),
			MintFeeRate: state.MintFeeRate.String(),
			BurnFeeRate: state.BurnFeeRate.String(),
			Height:      height,
		}
		if err := s.snapshots.Create(ctx, record); err != nil {
			logrus.WithError(err).Error("failed to persist reserve snapshot")
		}
	}

	s.publisher.PublishReserveState(events.ReserveStateEvent{
		TotalIssued: state.TotalIssued.String(),
		LegABalance: state.LegABalance.String(),
		LegBBalance: state.LegBBalance.String(),
		AccruedFees: state.AccruedFees.String(),
		Height:      height,
	})
}
