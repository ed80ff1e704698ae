package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"service-booking-backend/internal/model"
)

// GetBooking handles GET /api/bookings/:id.
func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.store.GetBooking(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ReleaseBookingSlot handles POST /api/bookings/:id/release. Releasing a
// booking that holds nothing succeeds with released=false.
func (h *Handler) ReleaseBookingSlot(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	released, err := h.allocator.ReleaseBooking(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if released {
		h.flushCache()
	}
	c.JSON(http.StatusOK, gin.H{"released": released})
}

type updateStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Notes  *string `json:"notes"`
}

// UpdateBookingStatus handles PATCH /api/bookings/:id/status. A failed
// completion notification is returned as a warning on a 200.
func (h *Handler) UpdateBookingStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := h.bookings.UpdateStatus(c.Request.Context(), id, model.BookingStatus(req.Status), req.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}
	if res.Booking.Status == model.BookingStatusCancelled {
		h.flushCache()
	}

	body := gin.H{
		"booking":  res.Booking,
		"notified": res.Notified,
	}
	if res.Warning != nil {
		body["warning"] = res.Warning.Error()
	}
	c.JSON(http.StatusOK, body)
}
