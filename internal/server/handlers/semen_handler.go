package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/paddocklabs/studbook/internal/domain/models"
	"github.com/paddocklabs/studbook/internal/service/effects"
	semensvc "github.com/paddocklabs/studbook/internal/service/semen"
)

// SemenHandler exposes the semen inventory ledger over HTTP.
type SemenHandler struct {
	svc        *semensvc.Service
	dispatcher *effects.Dispatcher
	logger     *zap.Logger
}

// NewSemenHandler constructs the HTTP handler adapter.
func NewSemenHandler(svc *semensvc.Service, dispatcher *effects.Dispatcher, logger *zap.Logger) *SemenHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemenHandler{svc: svc, dispatcher: dispatcher, logger: logger}
}

// CreateBatch records a new collection batch.
func (h *SemenHandler) CreateBatch(c *gin.Context) {
	var in models.CreateBatchInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	batch, effs, err := h.svc.CreateBatch(c.Request.Context(), tenantID(c), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.dispatcher.Dispatch(effs)
	c.JSON(http.StatusCreated, batch)
}

// ListBatches returns the tenant's non-archived batches.
func (h *SemenHandler) ListBatches(c *gin.Context) {
	batches, err := h.svc.ListBatches(c.Request.Context(), tenantID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

// GetBatch returns one batch.
func (h *SemenHandler) GetBatch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	batch, err := h.svc.GetBatch(c.Request.Context(), tenantID(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// UpdateBatch applies manual edits to a batch.
func (h *SemenHandler) UpdateBatch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in models.UpdateBatchInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	batch, effs, err := h.svc.UpdateBatch(c.Request.Context(), tenantID(c), id, in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.dispatcher.Dispatch(effs)
	c.JSON(http.StatusOK, batch)
}

// Dispense consumes doses from a batch.
func (h *SemenHandler) Dispense(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in models.DispenseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, effs, err := h.svc.Dispense(c.Request.Context(), tenantID(c), id, in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.dispatcher.Dispatch(effs)
	c.JSON(http.StatusCreated, result)
}

// ListUsages returns a batch's ledger entries.
func (h *SemenHandler) ListUsages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	usages, err := h.svc.ListUsages(c.Request.Context(), tenantID(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"usages": usages})
}

// ArchiveBatch soft-deletes a batch.
func (h *SemenHandler) ArchiveBatch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	batch, effs, err := h.svc.ArchiveBatch(c.Request.Context(), tenantID(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.dispatcher.Dispatch(effs)
	c.JSON(http.StatusOK, batch)
}

// DeleteBatch hard-deletes a batch with no usage records.
func (h *SemenHandler) DeleteBatch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	effs, err := h.svc.DeleteBatch(c.Request.Context(), tenantID(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.dispatcher.Dispatch(effs)
	c.Status(http.StatusNoContent)
}
