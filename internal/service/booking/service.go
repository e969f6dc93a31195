// Package booking implements the breeding-booking lifecycle: the status state
// machine, payment-threshold auto-transitions and semen-shipment side effects.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/paddocklabs/studbook/internal/domain/apperr"
	"github.com/paddocklabs/studbook/internal/domain/models"
	"github.com/paddocklabs/studbook/internal/repository"
	"github.com/paddocklabs/studbook/internal/service/semen"
)

// SemenLedger is the slice of the ledger the lifecycle needs for shipments.
type SemenLedger interface {
	Dispense(ctx context.Context, tenantID, batchID int64, in models.DispenseInput) (*semen.DispenseResult, []models.Effect, error)
}

// Service owns the booking lifecycle.
type Service struct {
	store  repository.Store
	ledger SemenLedger
	logger *zap.Logger
	now    func() time.Time
}

// NewService constructs the lifecycle service.
func NewService(store repository.Store, ledger SemenLedger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		ledger: ledger,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetBooking returns a booking visible to the tenant.
func (s *Service) GetBooking(ctx context.Context, tenantID, id int64) (*models.BreedingBooking, error) {
	if tenantID == 0 {
		return nil, apperr.New(apperr.KindTenantRequired, "tenant context required")
	}
	booking, err := s.store.GetBooking(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Newf(apperr.KindNotFound, "booking %d not found", id)
	}
	return booking, err
}

// ListBookings returns the tenant's bookings as either counterparty.
func (s *Service) ListBookings(ctx context.Context, tenantID int64) ([]models.BreedingBooking, error) {
	if tenantID == 0 {
		return nil, apperr.New(apperr.KindTenantRequired, "tenant context required")
	}
	return s.store.ListBookings(ctx, tenantID)
}

// CreateBooking opens a booking inquiry. The caller is the offering tenant.
func (s *Service) CreateBooking(ctx context.Context, tenantID int64, in models.CreateBookingInput) (*models.BreedingBooking, []models.Effect, error) {
	if tenantID == 0 {
		return nil, nil, apperr.New(apperr.KindTenantRequired, "tenant context required")
	}
	if in.AgreedFeeCents < 0 || in.DepositCents < 0 {
		return nil, nil, apperr.New(apperr.KindInvalidAmount, "fee and deposit must be non-negative")
	}
	if in.DepositCents > in.AgreedFeeCents {
		return nil, nil, apperr.New(apperr.KindInvalidAmount, "deposit cannot exceed the agreed fee")
	}
	if in.SeekingTenantID == 0 {
		return nil, nil, apperr.New(apperr.KindInvalidInput, "seeking tenant is required")
	}
	if in.SeekingAnimalID == nil && in.ExternalAnimal == nil {
		return nil, nil, apperr.New(apperr.KindInvalidInput, "a seeking animal (registered or external) is required")
	}

	offering, err := s.store.GetAnimal(ctx, tenantID, in.OfferingAnimalID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperr.Newf(apperr.KindNotFound, "animal %d not found", in.OfferingAnimalID)
	}
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	id, err := s.store.NextID(ctx, "bookings")
	if err != nil {
		return nil, nil, err
	}
	seq, err := s.store.NextID(ctx, fmt.Sprintf("booking_no:%d", now.Year()))
	if err != nil {
		return nil, nil, err
	}

	booking := &models.BreedingBooking{
		ID:               id,
		BookingNumber:    fmt.Sprintf("BRD-%d-%04d", now.Year(), seq),
		OfferingTenantID: tenantID,
		OfferingAnimalID: offering.ID,
		SeekingTenantID:  in.SeekingTenantID,
		SeekingAnimalID:  in.SeekingAnimalID,
		ExternalAnimal:   in.ExternalAnimal,
		AgreedFeeCents:   in.AgreedFeeCents,
		DepositCents:     in.DepositCents,
		FeeDirection:     in.FeeDirection,
		PreferredStart:   in.PreferredStart,
		PreferredEnd:     in.PreferredEnd,
		ShippingRequired: in.ShippingRequired,
		ShippingAddress:  in.ShippingAddress,
		Status:           models.StatusInquiry,
		StatusChangedAt:  now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if booking.FeeDirection == "" {
		booking.FeeDirection = models.SeekingPays
	}

	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return nil, nil, err
	}

	s.logger.Info("booking created",
		zap.Int64("tenant_id", tenantID),
		zap.String("booking_number", booking.BookingNumber))

	effects := []models.Effect{
		models.NewNotification(in.SeekingTenantID, "booking.inquiry_received", booking.BookingNumber, map[string]any{
			"bookingId": booking.ID,
		}),
		models.NewActivity(tenantID, "booking.created", booking.BookingNumber, map[string]any{
			"bookingId": booking.ID,
		}),
	}
	return booking, effects, nil
}

// RequestTransition moves a booking to a new status. The target must be a
// direct member of the current status's allowed set; there is no override.
func (s *Service) RequestTransition(ctx context.Context, tenantID, id int64, in models.TransitionInput) (*models.BreedingBooking, []models.Effect, error) {
	booking, err := s.GetBooking(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}
	if !in.TargetStatus.IsValid() {
		return nil, nil, apperr.Newf(apperr.KindInvalidInput, "unknown status %q", in.TargetStatus)
	}

	if err := validateTransition(booking.Status, in.TargetStatus); err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	var effects []models.Effect

	switch in.TargetStatus {
	case models.StatusScheduled:
		if in.ScheduledDate != nil {
			booking.ScheduledDate = in.ScheduledDate
		}
	case models.StatusInProgress:
		planEffects, err := s.startBreeding(ctx, booking, now)
		if err != nil {
			return nil, nil, err
		}
		effects = append(effects, planEffects...)
	case models.StatusCancelled:
		booking.CancelledAt = &now
		booking.CancellationReason = in.CancellationReason
	}

	from := booking.Status
	booking.Status = in.TargetStatus
	booking.StatusChangedAt = now
	booking.UpdatedAt = now

	if err := s.store.UpdateBooking(ctx, booking); err != nil {
		return nil, nil, err
	}

	s.logger.Info("booking transitioned",
		zap.String("booking_number", booking.BookingNumber),
		zap.String("from", string(from)),
		zap.String("to", string(booking.Status)))

	effects = append(effects, statusEffects(booking, from)...)
	return booking, effects, nil
}

// RecordPayment increments the booking's running total and applies the
// payment-threshold auto-transitions. Both threshold checks use the updated
// total, so one large payment can cascade APPROVED through CONFIRMED.
func (s *Service) RecordPayment(ctx context.Context, tenantID, id int64, in models.PaymentInput) (*models.BreedingBooking, []models.Effect, error) {
	if in.AmountCents <= 0 {
		return nil, nil, apperr.New(apperr.KindInvalidAmount, "payment amount must be a positive integer")
	}
	booking, err := s.GetBooking(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	booking.TotalPaidCents += in.AmountCents

	var crossed []models.BookingStatus
	if booking.Status == models.StatusApproved &&
		booking.DepositCents > 0 &&
		booking.TotalPaidCents >= booking.DepositCents {
		booking.Status = models.StatusDepositPaid
		booking.StatusChangedAt = now
		crossed = append(crossed, models.StatusDepositPaid)
	}
	if booking.Status == models.StatusDepositPaid &&
		booking.TotalPaidCents >= booking.AgreedFeeCents {
		booking.Status = models.StatusConfirmed
		booking.StatusChangedAt = now
		crossed = append(crossed, models.StatusConfirmed)
	}
	booking.UpdatedAt = now

	if err := s.store.UpdateBooking(ctx, booking); err != nil {
		return nil, nil, err
	}

	s.logger.Info("payment recorded",
		zap.String("booking_number", booking.BookingNumber),
		zap.Int64("amount_cents", in.AmountCents),
		zap.Int64("total_paid_cents", booking.TotalPaidCents),
		zap.String("status", string(booking.Status)))

	effects := []models.Effect{
		models.NewNotification(booking.OfferingTenantID, "booking.payment_received", booking.BookingNumber, map[string]any{
			"bookingId":       booking.ID,
			"amountCents":     in.AmountCents,
			"totalPaidCents":  booking.TotalPaidCents,
			"balanceDueCents": booking.BalanceDueCents(),
		}),
	}
	for _, status := range crossed {
		effects = append(effects, models.NewNotification(booking.SeekingTenantID, "booking.status_changed", booking.BookingNumber, map[string]any{
			"bookingId": booking.ID,
			"status":    string(status),
		}))
	}
	return booking, effects, nil
}

// ShipSemen dispenses doses for a shipping booking and stamps the resulting
// usage on the booking, all or nothing.
func (s *Service) ShipSemen(ctx context.Context, tenantID, id int64, in models.ShipSemenInput) (*models.BreedingBooking, *semen.DispenseResult, []models.Effect, error) {
	booking, err := s.GetBooking(ctx, tenantID, id)
	if err != nil {
		return nil, nil, nil, err
	}
	if !booking.ShippingRequired {
		return nil, nil, nil, apperr.Newf(apperr.KindShippingNotRequired,
			"booking %s does not require shipping", booking.BookingNumber)
	}

	var (
		result      *semen.DispenseResult
		sideEffects []models.Effect
	)
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		dispensed, effects, err := s.ledger.Dispense(ctx, tenantID, in.InventoryID, models.DispenseInput{
			Type:           models.UsageShipped,
			DosesUsed:      in.DosesUsed,
			ShipToName:     in.ShipToName,
			ShipToAddress:  in.ShipToAddress,
			Carrier:        in.Carrier,
			TrackingNumber: in.TrackingNumber,
		})
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				return apperr.Newf(apperr.KindInventoryNotFound, "inventory batch %d not found", in.InventoryID)
			}
			return err
		}

		booking.SemenUsageID = &dispensed.Usage.ID
		booking.UpdatedAt = s.now().UTC()
		if err := s.store.UpdateBooking(ctx, booking); err != nil {
			return err
		}

		result = dispensed
		sideEffects = effects
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}

	s.logger.Info("semen shipped",
		zap.String("booking_number", booking.BookingNumber),
		zap.Int64("inventory_id", in.InventoryID),
		zap.Int("doses", in.DosesUsed))

	sideEffects = append(sideEffects, models.NewNotification(booking.SeekingTenantID, "booking.semen_shipped", booking.BookingNumber, map[string]any{
		"bookingId":    booking.ID,
		"inventoryId":  in.InventoryID,
		"dosesShipped": in.DosesUsed,
		"shipToName":   in.ShipToName,
	}))
	return booking, result, sideEffects, nil
}

// startBreeding creates the breeding plan (idempotent per booking) and,
// best-effort, one breeding-attempt event per participating animal. Attempt
// failures are logged and never fail the transition.
func (s *Service) startBreeding(ctx context.Context, booking *models.BreedingBooking, now time.Time) ([]models.Effect, error) {
	if booking.BreedingPlanID == nil {
		planID, err := s.store.NextID(ctx, "breeding_plans")
		if err != nil {
			return nil, err
		}
		plan := &models.BreedingPlan{
			ID:        planID,
			TenantID:  booking.OfferingTenantID,
			BookingID: booking.ID,
			SireID:    booking.OfferingAnimalID,
			DamID:     booking.SeekingAnimalID,
			CreatedAt: now,
		}
		if err := s.store.CreateBreedingPlan(ctx, plan); err != nil {
			return nil, err
		}
		booking.BreedingPlanID = &planID
	}

	participants := []int64{booking.OfferingAnimalID}
	if booking.SeekingAnimalID != nil {
		participants = append(participants, *booking.SeekingAnimalID)
	}
	for _, animalID := range participants {
		attemptID, err := s.store.NextID(ctx, "breeding_attempts")
		if err != nil {
			s.logger.Warn("skipping breeding attempt event",
				zap.Int64("animal_id", animalID), zap.Error(err))
			continue
		}
		attempt := &models.BreedingAttempt{
			ID:        attemptID,
			TenantID:  booking.OfferingTenantID,
			PlanID:    *booking.BreedingPlanID,
			AnimalID:  animalID,
			Date:      now,
			CreatedAt: now,
		}
		if err := s.store.CreateBreedingAttempt(ctx, attempt); err != nil {
			s.logger.Warn("failed to record breeding attempt",
				zap.Int64("animal_id", animalID), zap.Error(err))
		}
	}

	return []models.Effect{
		models.NewActivity(booking.OfferingTenantID, "booking.breeding_started", booking.BookingNumber, map[string]any{
			"bookingId":      booking.ID,
			"breedingPlanId": *booking.BreedingPlanID,
		}),
	}, nil
}

// validateTransition checks the move against the transition table and returns
// the specific terminal-state error kinds the contract names.
func validateTransition(from, to models.BookingStatus) error {
	if from == models.StatusCancelled && to == models.StatusCancelled {
		return apperr.New(apperr.KindAlreadyCancelled, "booking is already cancelled")
	}
	if from == models.StatusCompleted && to == models.StatusCancelled {
		return apperr.New(apperr.KindCancelCompleted, "a completed booking cannot be cancelled")
	}
	if !from.CanTransitionTo(to) {
		return apperr.Newf(apperr.KindInvalidTransition,
			"cannot transition from %s to %s", from, to).
			WithMeta("validTransitions", from.ValidTargets())
	}
	return nil
}

func statusEffects(booking *models.BreedingBooking, from models.BookingStatus) []models.Effect {
	payload := map[string]any{
		"bookingId": booking.ID,
		"from":      string(from),
		"to":        string(booking.Status),
	}
	return []models.Effect{
		models.NewNotification(booking.SeekingTenantID, "booking.status_changed", booking.BookingNumber, payload),
		models.NewActivity(booking.OfferingTenantID, "booking.status_changed", booking.BookingNumber, payload),
	}
}
