package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"service-booking-backend/internal/booking"
	"service-booking-backend/internal/mw"
	"service-booking-backend/internal/schedule"
	"service-booking-backend/internal/store"
)

// Deps are the collaborators the HTTP handlers call into.
type Deps struct {
	Store     store.Store
	Allocator *booking.Allocator
	Bookings  *booking.StateMachine
	Generator *schedule.Generator
	Cache     *mw.ResponseCache
	WebPush   *webpush.Options
	Log       *zap.Logger
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	allocator *booking.Allocator
	bookings  *booking.StateMachine
	generator *schedule.Generator
	cache     *mw.ResponseCache
	webpush   *webpush.Options
	log       *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	cache := d.Cache
	if cache == nil {
		cache = mw.NewResponseCache(5 * time.Second)
	}
	return &Handler{
		store:     d.Store,
		allocator: d.Allocator,
		bookings:  d.Bookings,
		generator: d.Generator,
		cache:     cache,
		webpush:   d.WebPush,
		log:       log,
	}
}

// flushCache invalidates cached slot listings after a committed change.
func (h *Handler) flushCache() {
	h.cache.Flush()
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// fail writes the status that matches err. Storage failures are logged and
// reported without internals.
func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, booking.ErrInvalidRange),
		errors.Is(err, schedule.ErrInvalidRange),
		errors.Is(err, booking.ErrInvalidStatus):
		status = http.StatusBadRequest
	case errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrConcurrentUpdate),
		errors.Is(err, store.ErrDuplicateSlot),
		errors.Is(err, store.ErrSlotAlreadyHeld),
		errors.Is(err, store.ErrBookingClosed):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
