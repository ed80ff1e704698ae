package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"service-booking-backend/config"
	"service-booking-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig) *gin.Engine {
	r := gin.New()
	r.Use(mw.Recovery(h.log))
	r.Use(mw.RequestLogger(h.log))
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	r.GET("/healthz", h.Health)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	caching := h.cache.Middleware()
	anyRole := mw.RequireRole()
	adminOnly := mw.RequireRole(mw.RoleAdmin)
	staff := mw.RequireRole(mw.RoleAdmin, mw.RoleTechnician)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/slots/available", caching, h.ListAvailableSlots)
		api.GET("/slots", caching, h.ListSlots)
		api.POST("/slots", adminOnly, h.CreateSlot)
		api.POST("/slots/generate", adminOnly, h.GenerateSlots)
		api.POST("/slots/:id/reserve", anyRole, h.ReserveSlot)
		api.POST("/slots/:id/release", adminOnly, h.ReleaseSlot)

		api.GET("/bookings/:id", anyRole, h.GetBooking)
		api.POST("/bookings/:id/release", anyRole, h.ReleaseBookingSlot)
		api.PATCH("/bookings/:id/status", staff, h.UpdateBookingStatus)

		api.GET("/subscriptions", anyRole, h.GetSubscription)
		api.PUT("/subscriptions", anyRole, h.PutSubscription)
		api.DELETE("/subscriptions", anyRole, h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}

// corsConfig allows the browser booking UI to call the API. No configured
// origins means any origin.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", mw.RoleHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
