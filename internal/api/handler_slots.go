package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"service-booking-backend/internal/model"
	"service-booking-backend/internal/schedule"
)

// ListAvailableSlots handles GET /api/slots/available?date=YYYY-MM-DD.
func (h *Handler) ListAvailableSlots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
		return
	}
	slots, err := h.allocator.ListAvailable(c.Request.Context(), date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": nonNil(slots)})
}

// ListSlots handles GET /api/slots?start=&end=, full slots included.
func (h *Handler) ListSlots(c *gin.Context) {
	start, end := c.Query("start"), c.Query("end")
	if start == "" || end == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end are required"})
		return
	}
	slots, err := h.allocator.ListInRange(c.Request.Context(), start, end)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": nonNil(slots)})
}

type createSlotRequest struct {
	Date        string `json:"date" binding:"required"`
	StartTime   string `json:"startTime" binding:"required"`
	EndTime     string `json:"endTime" binding:"required"`
	MaxCapacity int    `json:"maxCapacity"`
}

// CreateSlot handles POST /api/slots.
func (h *Handler) CreateSlot(c *gin.Context) {
	var req createSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.MaxCapacity == 0 {
		req.MaxCapacity = 1
	}

	slot, err := h.allocator.CreateSlot(c.Request.Context(), req.Date, req.StartTime, req.EndTime, req.MaxCapacity)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.flushCache()
	c.JSON(http.StatusCreated, slot)
}

// GenerateSlots handles POST /api/slots/generate.
func (h *Handler) GenerateSlots(c *gin.Context) {
	var tpl schedule.Template
	if err := c.ShouldBindJSON(&tpl); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	created, err := h.generator.Generate(c.Request.Context(), tpl)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.flushCache()
	c.JSON(http.StatusCreated, gin.H{"created": len(created), "slots": nonNil(created)})
}

type reserveSlotRequest struct {
	BookingID string `json:"bookingId" binding:"required"`
}

// ReserveSlot handles POST /api/slots/:id/reserve.
func (h *Handler) ReserveSlot(c *gin.Context) {
	slotID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reserveSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bookingId"})
		return
	}

	reserved, err := h.allocator.Reserve(c.Request.Context(), slotID, bookingID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !reserved {
		c.JSON(http.StatusConflict, gin.H{"error": "slot no longer available"})
		return
	}
	h.flushCache()
	h.respondSlot(c, slotID, gin.H{"reserved": true})
}

// ReleaseSlot handles POST /api/slots/:id/release.
func (h *Handler) ReleaseSlot(c *gin.Context) {
	slotID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.allocator.Release(c.Request.Context(), slotID); err != nil {
		h.fail(c, err)
		return
	}
	h.flushCache()
	h.respondSlot(c, slotID, gin.H{"released": true})
}

// respondSlot writes body plus the slot's current state.
func (h *Handler) respondSlot(c *gin.Context, slotID uuid.UUID, body gin.H) {
	slot, err := h.store.GetSlot(c.Request.Context(), slotID)
	if err != nil {
		h.fail(c, err)
		return
	}
	body["slot"] = slot
	c.JSON(http.StatusOK, body)
}

func nonNil(slots []model.TimeSlot) []model.TimeSlot {
	if slots == nil {
		return []model.TimeSlot{}
	}
	return slots
}
