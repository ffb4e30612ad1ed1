package auction

import (
	"context"
	"time"

	"eco-loop-rewards-go/internal/models"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Sweeper periodically opens eligible auctions and settles expired ones so
// nothing stays "active" past its end time when nobody is listing.
type Sweeper struct {
	service   *Service
	interval  time.Duration
	scheduler *gocron.Scheduler
}

func NewSweeper(service *Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		service:   service,
		interval:  interval,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// Start runs one sweep immediately and then every interval.
func (w *Sweeper) Start(ctx context.Context) error {
	zap.L().Info("Starting auction sweeper", zap.Duration("interval", w.interval))

	_, err := w.scheduler.Every(w.interval).SingletonMode().Do(func() {
		w.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	w.scheduler.StartAsync()
	return nil
}

func (w *Sweeper) Stop() {
	zap.L().Info("Stopping auction sweeper")
	w.scheduler.Stop()
}

// Sweep is one pass: convert, then finalize.
func (w *Sweeper) Sweep(ctx context.Context) {
	ctx = models.WithRequestContext(ctx, &models.RequestContext{Source: models.SourceScheduler})

	opened, err := w.service.ConvertEligible(ctx)
	if err != nil {
		zap.L().Error("Auction conversion failed", zap.Error(err))
	}

	settled, err := w.service.Finalize(ctx)
	if err != nil {
		zap.L().Error("Auction finalization failed", zap.Error(err))
	}

	if opened > 0 || len(settled) > 0 {
		zap.L().Info("Auction sweep complete",
			zap.Int("opened", opened),
			zap.Int("settled", len(settled)))
	}
}
