package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/paddocklabs/studbook/internal/domain/models"
	bookingsvc "github.com/paddocklabs/studbook/internal/service/booking"
	"github.com/paddocklabs/studbook/internal/service/effects"
)

// BookingHandler exposes the booking lifecycle over HTTP.
type BookingHandler struct {
	svc        *bookingsvc.Service
	dispatcher *effects.Dispatcher
	logger     *zap.Logger
}

// NewBookingHandler constructs the HTTP handler adapter.
func NewBookingHandler(svc *bookingsvc.Service, dispatcher *effects.Dispatcher, logger *zap.Logger) *BookingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingHandler{svc: svc, dispatcher: dispatcher, logger: logger}
}

// Create opens a booking inquiry.
func (h *BookingHandler) Create(c *gin.Context) {
	var in models.CreateBookingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	booking, effs, err := h.svc.CreateBooking(c.Request.Context(), tenantID(c), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.dispatcher.Dispatch(effs)
	c.JSON(http.StatusCreated, booking)
}

// List returns the tenant's bookings.
func (h *BookingHandler) List(c *gin.Context) {
	bookings, err := h.svc.ListBookings(c.Request.Context(), tenantID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// Get returns one booking.
func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	booking, err := h.svc.GetBooking(c.Request.Context(), tenantID(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// Transition requests a status change.
func (h *BookingHandler) Transition(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in models.TransitionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	booking, effs, err := h.svc.RequestTransition(c.Request.Context(), tenantID(c), id, in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.dispatcher.Dispatch(effs)
	c.JSON(http.StatusOK, booking)
}

// RecordPayment records a payment in integer cents.
func (h *BookingHandler) RecordPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in models.PaymentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	booking, effs, err := h.svc.RecordPayment(c.Request.Context(), tenantID(c), id, in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.dispatcher.Dispatch(effs)
	c.JSON(http.StatusOK, gin.H{
		"booking":         booking,
		"balanceDueCents": booking.BalanceDueCents(),
	})
}

// ShipSemen ships doses from an inventory batch against the booking.
func (h *BookingHandler) ShipSemen(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in models.ShipSemenInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	booking, result, effs, err := h.svc.ShipSemen(c.Request.Context(), tenantID(c), id, in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.dispatcher.Dispatch(effs)
	c.JSON(http.StatusOK, gin.H{
		"booking":  booking,
		"dispense": result,
	})
}
