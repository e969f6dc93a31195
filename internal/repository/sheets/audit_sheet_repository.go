package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/paddocklabs/studbook/internal/config"
	"github.com/paddocklabs/studbook/internal/domain/models"
)

const auditRange = "Activity!A:F"

// AuditSink receives activity effects for audit visibility.
type AuditSink interface {
	AppendActivity(ctx context.Context, effect models.Effect) error
}

// AuditSheetRepository appends activity rows to a Google spreadsheet, giving
// small operations an audit trail they can read without any extra tooling.
type AuditSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewAuditSheetRepository builds a Google Sheets backed audit sink.
func NewAuditSheetRepository(ctx context.Context, cfg config.AuditConfig, logger *zap.Logger) (AuditSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &AuditSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// AppendActivity appends one activity effect as a spreadsheet row.
func (r *AuditSheetRepository) AppendActivity(ctx context.Context, effect models.Effect) error {
	detail := ""
	if effect.Payload != nil {
		raw, err := json.Marshal(effect.Payload)
		if err == nil {
			detail = string(raw)
		}
	}

	values := []interface{}{
		effect.OccurredAt.Format(time.RFC3339),
		effect.TenantID,
		effect.Event,
		effect.Subject,
		detail,
		effect.ID,
	}
	payload := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, auditRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append activity row: %w", err)
	}

	r.logger.Debug("activity row appended", zap.String("event", effect.Event))
	return nil
}
