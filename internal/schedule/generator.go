package schedule

import (
	"context"

	"go.uber.org/zap"

	"service-booking-backend/internal/model"
	"service-booking-backend/internal/store"
)

// Generator persists the slots of a template.
type Generator struct {
	store store.Store
	log   *zap.Logger
}

func NewGenerator(s store.Store, log *zap.Logger) *Generator {
	return &Generator{store: s, log: log}
}

// Generate expands tpl and inserts the result in one batch. Windows that
// already exist are left untouched, so re-running an overlapping template is
// safe. Only the slots actually inserted are returned.
func (g *Generator) Generate(ctx context.Context, tpl Template) ([]model.TimeSlot, error) {
	slots, err := Expand(tpl)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return []model.TimeSlot{}, nil
	}

	created, err := g.store.CreateSlots(ctx, slots)
	if err != nil {
		return nil, err
	}
	g.log.Info("slots generated",
		zap.String("from", tpl.StartDate),
		zap.String("to", tpl.EndDate),
		zap.Int("candidates", len(slots)),
		zap.Int("created", len(created)))
	return created, nil
}
