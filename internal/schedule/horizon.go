package schedule

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"service-booking-backend/config"
	"service-booking-backend/internal/parse"
)

// Horizon keeps the configured template generated for the next HorizonDays
// days, starting today in the configured timezone.
type Horizon struct {
	cfg         config.GeneratorConfig
	generator   *Generator
	log         *zap.Logger
	loc         *time.Location
	now         func() time.Time
	onGenerated func()
}

func NewHorizon(cfg config.GeneratorConfig, generator *Generator, log *zap.Logger) (*Horizon, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}
	return &Horizon{
		cfg:       cfg,
		generator: generator,
		log:       log,
		loc:       loc,
		now:       time.Now,
	}, nil
}

// OnGenerated registers fn to run after a pass that created slots, for
// example to flush cached slot listings.
func (h *Horizon) OnGenerated(fn func()) {
	h.onGenerated = fn
}

// Template returns the template covering the horizon as of now.
func (h *Horizon) Template() Template {
	today := h.now().In(h.loc)
	last := today.AddDate(0, 0, h.cfg.HorizonDays-1)
	return Template{
		StartDate:           parse.FormatDate(today),
		EndDate:             parse.FormatDate(last),
		StartTime:           h.cfg.StartTime,
		EndTime:             h.cfg.EndTime,
		SlotDurationMinutes: h.cfg.SlotDurationMinutes,
		MaxCapacity:         h.cfg.MaxCapacity,
	}
}

// Run generates once immediately and then on every interval until ctx is done.
func (h *Horizon) Run(ctx context.Context) {
	if !h.cfg.Enabled {
		h.log.Info("slot horizon generation is disabled, not starting")
		return
	}
	h.log.Info("starting slot horizon generation",
		zap.Int("horizon_days", h.cfg.HorizonDays),
		zap.Duration("interval", h.cfg.Interval))

	if _, err := h.RunOnce(ctx); err != nil {
		h.log.Error("slot horizon generation failed", zap.Error(err))
	}

	timer := time.NewTimer(h.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("slot horizon generation shutting down")
			return
		case <-timer.C:
			if _, err := h.RunOnce(ctx); err != nil {
				h.log.Error("slot horizon generation failed", zap.Error(err))
			}
			timer.Reset(h.cfg.Interval)
		}
	}
}

// RunOnce fills any missing slots in the horizon and returns how many were
// created.
func (h *Horizon) RunOnce(ctx context.Context) (int, error) {
	created, err := h.generator.Generate(ctx, h.Template())
	if err != nil {
		return 0, err
	}
	if len(created) > 0 && h.onGenerated != nil {
		h.onGenerated()
	}
	return len(created), nil
}
