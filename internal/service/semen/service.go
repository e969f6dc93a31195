// Package semen implements the dose-level inventory ledger for collected
// genetic material: collection batches, atomic dispense accounting and status
// derivation.
package semen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/paddocklabs/studbook/internal/domain/apperr"
	"github.com/paddocklabs/studbook/internal/domain/models"
	"github.com/paddocklabs/studbook/internal/repository"
)

// Service is the semen inventory ledger.
type Service struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService constructs the ledger service.
func NewService(store repository.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetBatch returns a tenant's batch.
func (s *Service) GetBatch(ctx context.Context, tenantID, id int64) (*models.SemenInventory, error) {
	if tenantID == 0 {
		return nil, apperr.New(apperr.KindTenantRequired, "tenant context required")
	}
	batch, err := s.store.GetBatch(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Newf(apperr.KindNotFound, "batch %d not found", id)
	}
	return batch, err
}

// ListBatches returns a tenant's non-archived batches.
func (s *Service) ListBatches(ctx context.Context, tenantID int64) ([]models.SemenInventory, error) {
	if tenantID == 0 {
		return nil, apperr.New(apperr.KindTenantRequired, "tenant context required")
	}
	return s.store.ListBatches(ctx, tenantID)
}

// ListUsages returns a batch's ledger entries.
func (s *Service) ListUsages(ctx context.Context, tenantID, batchID int64) ([]models.SemenUsage, error) {
	if tenantID == 0 {
		return nil, apperr.New(apperr.KindTenantRequired, "tenant context required")
	}
	if _, err := s.GetBatch(ctx, tenantID, batchID); err != nil {
		return nil, err
	}
	return s.store.ListUsages(ctx, tenantID, batchID)
}

// CreateBatch records a new collection batch. The source animal must be a male
// owned by the tenant. COOLED batches require an explicit expiry date; FRESH
// batches are forced to expire at the end of the collection day.
func (s *Service) CreateBatch(ctx context.Context, tenantID int64, in models.CreateBatchInput) (*models.SemenInventory, []models.Effect, error) {
	if tenantID == 0 {
		return nil, nil, apperr.New(apperr.KindTenantRequired, "tenant context required")
	}
	if !in.Storage.IsValid() {
		return nil, nil, apperr.Newf(apperr.KindInvalidInput, "unknown storage type %q", in.Storage)
	}
	if in.InitialDoses <= 0 {
		return nil, nil, apperr.New(apperr.KindInvalidDoses, "initial dose count must be positive")
	}
	if in.CollectionDate.IsZero() {
		return nil, nil, apperr.New(apperr.KindInvalidInput, "collection date is required")
	}

	sire, err := s.store.GetAnimal(ctx, tenantID, in.SireID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperr.Newf(apperr.KindNotFound, "animal %d not found", in.SireID)
	}
	if err != nil {
		return nil, nil, err
	}
	if sire.Sex != "MALE" {
		return nil, nil, apperr.Newf(apperr.KindInvalidSire, "animal %d is not male", in.SireID)
	}

	expiry := in.ExpiryDate
	switch in.Storage {
	case models.StorageCooled:
		if expiry == nil {
			return nil, nil, apperr.New(apperr.KindExpirationRequired, "cooled storage requires an expiry date")
		}
	case models.StorageFresh:
		// Same-day-use semantics: any supplied expiry is overridden.
		endOfDay := endOfCollectionDay(in.CollectionDate)
		expiry = &endOfDay
	}

	year := in.CollectionDate.Year()
	batchNumber, err := s.nextBatchNumber(ctx, tenantID, sire, year)
	if err != nil {
		return nil, nil, err
	}

	id, err := s.store.NextID(ctx, "semen_batches")
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	batch := &models.SemenInventory{
		ID:               id,
		TenantID:         tenantID,
		BatchNumber:      batchNumber,
		SireID:           sire.ID,
		CollectionDate:   in.CollectionDate,
		CollectionMethod: in.CollectionMethod,
		Storage:          in.Storage,
		InitialDoses:     in.InitialDoses,
		AvailableDoses:   in.InitialDoses,
		Status:           models.BatchAvailable,
		ExpiryDate:       expiry,
		MotilityPct:      in.MotilityPct,
		MorphologyPct:    in.MorphologyPct,
		Grade:            models.GradeFromQuality(in.MotilityPct, in.MorphologyPct),
		Notes:            in.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.CreateBatch(ctx, batch); err != nil {
		return nil, nil, err
	}

	s.logger.Info("batch created",
		zap.Int64("tenant_id", tenantID),
		zap.String("batch_number", batch.BatchNumber),
		zap.Int("initial_doses", batch.InitialDoses))

	effects := []models.Effect{
		models.NewActivity(tenantID, "semen.batch_created", batch.BatchNumber, map[string]any{
			"batchId":      batch.ID,
			"sireId":       batch.SireID,
			"initialDoses": batch.InitialDoses,
			"storage":      string(batch.Storage),
		}),
	}
	return batch, effects, nil
}

// UpdateBatch applies manual edits to quality fields, notes, expiry or discard
// status. The quality grade is recomputed when motility changes and no
// explicit grade override accompanies it.
func (s *Service) UpdateBatch(ctx context.Context, tenantID, id int64, in models.UpdateBatchInput) (*models.SemenInventory, []models.Effect, error) {
	batch, err := s.GetBatch(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}

	if in.MotilityPct != nil {
		batch.MotilityPct = in.MotilityPct
	}
	if in.MorphologyPct != nil {
		batch.MorphologyPct = in.MorphologyPct
	}
	switch {
	case in.Grade != nil:
		batch.Grade = in.Grade
	case in.MotilityPct != nil:
		batch.Grade = models.GradeFromQuality(batch.MotilityPct, batch.MorphologyPct)
	}
	if in.ExpiryDate != nil && batch.Storage != models.StorageFresh {
		batch.ExpiryDate = in.ExpiryDate
	}
	if in.Notes != nil {
		batch.Notes = *in.Notes
	}
	if in.Discard {
		batch.Status = models.BatchDiscarded
	}
	batch.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateBatch(ctx, batch); err != nil {
		return nil, nil, err
	}

	effects := []models.Effect{
		models.NewActivity(tenantID, "semen.batch_updated", batch.BatchNumber, map[string]any{
			"batchId": batch.ID,
			"status":  string(batch.Status),
		}),
	}
	return batch, effects, nil
}

// DispenseResult is what a successful dispense returns: the immutable ledger
// entry plus the batch's updated stock state.
type DispenseResult struct {
	Usage          *models.SemenUsage     `json:"usage"`
	AvailableDoses int                    `json:"availableDoses"`
	Status         models.BatchStatus     `json:"status"`
	Batch          *models.SemenInventory `json:"-"`
}

// Dispense consumes doses from a batch: validates, writes the usage record and
// decrements available stock in one transaction. Two concurrent dispenses on
// the same batch can never jointly exceed its available doses.
func (s *Service) Dispense(ctx context.Context, tenantID, batchID int64, in models.DispenseInput) (*DispenseResult, []models.Effect, error) {
	if tenantID == 0 {
		return nil, nil, apperr.New(apperr.KindTenantRequired, "tenant context required")
	}
	if !in.Type.IsValid() {
		return nil, nil, apperr.Newf(apperr.KindInvalidInput, "unknown usage type %q", in.Type)
	}
	if in.DosesUsed <= 0 {
		return nil, nil, apperr.New(apperr.KindInvalidDoses, "dose count must be positive")
	}

	var result *DispenseResult
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		batch, err := s.store.GetBatch(ctx, tenantID, batchID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Newf(apperr.KindNotFound, "batch %d not found", batchID)
		}
		if err != nil {
			return err
		}

		// Validation order is part of the contract: first failure wins.
		if batch.Status == models.BatchDepleted {
			return apperr.Newf(apperr.KindBatchDepleted, "batch %s is depleted", batch.BatchNumber)
		}
		if batch.ExpiredAt(s.now()) {
			return apperr.Newf(apperr.KindBatchExpired, "batch %s is expired", batch.BatchNumber)
		}
		if batch.Status == models.BatchDiscarded {
			return apperr.Newf(apperr.KindBatchDiscarded, "batch %s was discarded", batch.BatchNumber)
		}
		if in.DosesUsed > batch.AvailableDoses {
			return apperr.Newf(apperr.KindInsufficientDoses,
				"requested %d doses, %d available", in.DosesUsed, batch.AvailableDoses).
				WithMeta("available", batch.AvailableDoses).
				WithMeta("requested", in.DosesUsed)
		}
		if in.BreedingAttemptID != nil {
			if _, err := s.store.GetBreedingAttempt(ctx, tenantID, *in.BreedingAttemptID); err != nil {
				return apperr.Newf(apperr.KindInvalidAttempt, "breeding attempt %d not found", *in.BreedingAttemptID)
			}
		}
		if in.Type == models.UsageShipped && strings.TrimSpace(in.ShipToName) == "" {
			return apperr.New(apperr.KindShippingName, "shipped usage requires a ship-to name")
		}

		updated, err := s.store.DecrementDoses(ctx, tenantID, batchID, in.DosesUsed)
		if errors.Is(err, repository.ErrInsufficientDoses) {
			// A concurrent dispense won the race between our read and the
			// guarded decrement.
			current, getErr := s.store.GetBatch(ctx, tenantID, batchID)
			available := 0
			if getErr == nil {
				available = current.AvailableDoses
			}
			return apperr.Newf(apperr.KindInsufficientDoses,
				"requested %d doses, %d available", in.DosesUsed, available).
				WithMeta("available", available).
				WithMeta("requested", in.DosesUsed)
		}
		if err != nil {
			return err
		}

		usageID, err := s.store.NextID(ctx, "semen_usages")
		if err != nil {
			return err
		}

		usageDate := s.now().UTC()
		if in.UsageDate != nil {
			usageDate = *in.UsageDate
		}
		usage := &models.SemenUsage{
			ID:                usageID,
			TenantID:          tenantID,
			InventoryID:       batchID,
			Type:              in.Type,
			DosesUsed:         in.DosesUsed,
			UsageDate:         usageDate,
			ShipToName:        in.ShipToName,
			ShipToAddress:     in.ShipToAddress,
			Carrier:           in.Carrier,
			TrackingNumber:    in.TrackingNumber,
			TransferRecipient: in.TransferRecipient,
			BreedingAttemptID: in.BreedingAttemptID,
			Notes:             in.Notes,
			CreatedAt:         s.now().UTC(),
		}
		if err := s.store.CreateUsage(ctx, usage); err != nil {
			return err
		}

		result = &DispenseResult{
			Usage:          usage,
			AvailableDoses: updated.AvailableDoses,
			Status:         updated.Status,
			Batch:          updated,
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("doses dispensed",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("batch_id", batchID),
		zap.Int("doses", in.DosesUsed),
		zap.String("status", string(result.Status)))

	effects := []models.Effect{
		models.NewActivity(tenantID, "semen.dispensed", result.Batch.BatchNumber, map[string]any{
			"batchId":        batchID,
			"usageId":        result.Usage.ID,
			"usageType":      string(in.Type),
			"dosesUsed":      in.DosesUsed,
			"availableDoses": result.AvailableDoses,
		}),
	}
	return result, effects, nil
}

// ArchiveBatch soft-deletes a batch. Always allowed; the usage ledger stays
// intact.
func (s *Service) ArchiveBatch(ctx context.Context, tenantID, id int64) (*models.SemenInventory, []models.Effect, error) {
	batch, err := s.GetBatch(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}
	now := s.now().UTC()
	batch.ArchivedAt = &now
	batch.UpdatedAt = now
	if err := s.store.UpdateBatch(ctx, batch); err != nil {
		return nil, nil, err
	}
	effects := []models.Effect{
		models.NewActivity(tenantID, "semen.batch_archived", batch.BatchNumber, map[string]any{"batchId": id}),
	}
	return batch, effects, nil
}

// DeleteBatch hard-deletes a batch without usage records. Batches that have
// been dispensed from must be archived instead.
func (s *Service) DeleteBatch(ctx context.Context, tenantID, id int64) ([]models.Effect, error) {
	batch, err := s.GetBatch(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountUsages(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.Newf(apperr.KindHasUsages,
			"batch %s has %d usage records; archive it instead", batch.BatchNumber, count).
			WithMeta("usages", count)
	}
	if err := s.store.DeleteBatch(ctx, tenantID, id); err != nil {
		return nil, err
	}
	effects := []models.Effect{
		models.NewActivity(tenantID, "semen.batch_deleted", batch.BatchNumber, map[string]any{"batchId": id}),
	}
	return effects, nil
}

// SweepExpired marks past-expiry AVAILABLE batches as EXPIRED. Invoked by the
// scheduler.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int, []models.Effect, error) {
	batches, err := s.store.ListExpiredAvailable(ctx, now)
	if err != nil {
		return 0, nil, err
	}

	var effects []models.Effect
	swept := 0
	for i := range batches {
		batch := batches[i]
		batch.Status = models.BatchExpired
		batch.UpdatedAt = now.UTC()
		if err := s.store.UpdateBatch(ctx, &batch); err != nil {
			s.logger.Error("failed to expire batch",
				zap.Int64("batch_id", batch.ID), zap.Error(err))
			continue
		}
		swept++
		effects = append(effects, models.NewActivity(batch.TenantID, "semen.batch_expired", batch.BatchNumber, map[string]any{
			"batchId": batch.ID,
		}))
	}
	return swept, effects, nil
}

// nextBatchNumber formats {SIR}-{year}-{NNN} with the sequence backed by an
// atomic counter per (tenant, sire, year), so concurrent creations for the
// same sire cannot collide.
func (s *Service) nextBatchNumber(ctx context.Context, tenantID int64, sire *models.Animal, year int) (string, error) {
	seq, err := s.store.NextID(ctx, fmt.Sprintf("batch_seq:%d:%d:%d", tenantID, sire.ID, year))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%03d", sirePrefix(sire.Name), year, seq), nil
}

func sirePrefix(name string) string {
	var letters []rune
	for _, r := range name {
		if unicode.IsLetter(r) {
			letters = append(letters, unicode.ToUpper(r))
			if len(letters) == 3 {
				break
			}
		}
	}
	if len(letters) < 3 {
		return "XXX"
	}
	return string(letters)
}

func endOfCollectionDay(collected time.Time) time.Time {
	y, m, d := collected.Date()
	return time.Date(y, m, d, 23, 59, 59, 999_000_000, collected.Location())
}
