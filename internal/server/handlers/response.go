package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/paddocklabs/studbook/internal/domain/apperr"
)

// tenantIDKey is the gin context key the tenant middleware populates.
const tenantIDKey = "tenantID"

// TenantContext resolves the caller's tenant from the X-Tenant-ID header.
// Every route behind it rejects requests without a resolved tenant.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Tenant-ID")
		tenantID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || tenantID <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "a valid X-Tenant-ID header is required",
				"kind":  string(apperr.KindTenantRequired),
			})
			return
		}
		c.Set(tenantIDKey, tenantID)
		c.Next()
	}
}

func tenantID(c *gin.Context) int64 {
	return c.GetInt64(tenantIDKey)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name, "kind": string(apperr.KindInvalidInput)})
		return 0, false
	}
	return id, true
}

// statusByKind maps the domain error taxonomy onto HTTP statuses: validation
// 422, not-found 404, state conflicts 409, missing tenant 400.
var statusByKind = map[apperr.Kind]int{
	apperr.KindInvalidInput:        http.StatusUnprocessableEntity,
	apperr.KindInvalidAmount:       http.StatusUnprocessableEntity,
	apperr.KindInvalidDoses:        http.StatusUnprocessableEntity,
	apperr.KindInvalidSire:         http.StatusUnprocessableEntity,
	apperr.KindExpirationRequired:  http.StatusUnprocessableEntity,
	apperr.KindShippingName:        http.StatusUnprocessableEntity,
	apperr.KindInvalidAttempt:      http.StatusUnprocessableEntity,
	apperr.KindTenantRequired:      http.StatusBadRequest,
	apperr.KindNotFound:            http.StatusNotFound,
	apperr.KindInventoryNotFound:   http.StatusNotFound,
	apperr.KindInvalidTransition:   http.StatusConflict,
	apperr.KindAlreadyCancelled:    http.StatusConflict,
	apperr.KindCancelCompleted:     http.StatusConflict,
	apperr.KindShippingNotRequired: http.StatusConflict,
	apperr.KindInsufficientDoses:   http.StatusConflict,
	apperr.KindBatchDepleted:       http.StatusConflict,
	apperr.KindBatchExpired:        http.StatusConflict,
	apperr.KindBatchDiscarded:      http.StatusConflict,
	apperr.KindHasUsages:           http.StatusConflict,
}

func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		status, ok := statusByKind[appErr.Kind]
		if !ok {
			status = http.StatusUnprocessableEntity
		}
		body := gin.H{"error": appErr.Message, "kind": string(appErr.Kind)}
		if len(appErr.Meta) > 0 {
			body["meta"] = appErr.Meta
		}
		c.JSON(status, body)
		return
	}

	if logger != nil {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
