package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paddocklabs/studbook/internal/domain/apperr"
	"github.com/paddocklabs/studbook/internal/domain/models"
	"github.com/paddocklabs/studbook/internal/repository/memory"
	semensvc "github.com/paddocklabs/studbook/internal/service/semen"
)

const (
	offeringTenant int64 = 1
	seekingTenant  int64 = 2
)

func newTestService(t *testing.T) (*Service, *semensvc.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	store.SeedAnimal(models.Animal{ID: 10, TenantID: offeringTenant, Name: "Thunder", Sex: "MALE"})
	store.SeedAnimal(models.Animal{ID: 20, TenantID: seekingTenant, Name: "Bella", Sex: "FEMALE"})
	ledger := semensvc.NewService(store, nil)
	svc := NewService(store, ledger, nil)
	return svc, ledger, store
}

func seedBooking(t *testing.T, store *memory.Store, status models.BookingStatus) *models.BreedingBooking {
	t.Helper()
	now := time.Now().UTC()
	damID := int64(20)
	booking := &models.BreedingBooking{
		ID:               100,
		BookingNumber:    "BRD-2025-0001",
		OfferingTenantID: offeringTenant,
		OfferingAnimalID: 10,
		SeekingTenantID:  seekingTenant,
		SeekingAnimalID:  &damID,
		AgreedFeeCents:   2000,
		DepositCents:     500,
		FeeDirection:     models.SeekingPays,
		Status:           status,
		StatusChangedAt:  now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := store.CreateBooking(context.Background(), booking); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return booking
}

func TestCreateBookingStartsAsInquiry(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	damID := int64(20)
	booking, effs, err := svc.CreateBooking(ctx, offeringTenant, models.CreateBookingInput{
		OfferingAnimalID: 10,
		SeekingTenantID:  seekingTenant,
		SeekingAnimalID:  &damID,
		AgreedFeeCents:   2000,
		DepositCents:     500,
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if booking.Status != models.StatusInquiry {
		t.Errorf("expected INQUIRY, got %s", booking.Status)
	}
	if booking.BookingNumber == "" {
		t.Error("expected a booking number")
	}
	if len(effs) == 0 {
		t.Error("expected effects on creation")
	}
}

func TestCreateBookingRejectsDepositAboveFee(t *testing.T) {
	svc, _, _ := newTestService(t)

	damID := int64(20)
	_, _, err := svc.CreateBooking(context.Background(), offeringTenant, models.CreateBookingInput{
		OfferingAnimalID: 10,
		SeekingTenantID:  seekingTenant,
		SeekingAnimalID:  &damID,
		AgreedFeeCents:   1000,
		DepositCents:     1500,
	})
	if !apperr.IsKind(err, apperr.KindInvalidAmount) {
		t.Errorf("expected invalid_amount, got %v", err)
	}
}

func TestTransitionTableLegality(t *testing.T) {
	allStatuses := []models.BookingStatus{
		models.StatusInquiry, models.StatusPendingRequirements, models.StatusApproved,
		models.StatusDepositPaid, models.StatusConfirmed, models.StatusScheduled,
		models.StatusInProgress, models.StatusCompleted, models.StatusCancelled,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			t.Run(string(from)+"_to_"+string(to), func(t *testing.T) {
				svc, _, store := newTestService(t)
				seedBooking(t, store, from)

				booking, _, err := svc.RequestTransition(context.Background(), offeringTenant, 100, models.TransitionInput{TargetStatus: to})
				if from.CanTransitionTo(to) {
					if err != nil {
						t.Fatalf("expected legal transition %s -> %s, got %v", from, to, err)
					}
					if booking.Status != to {
						t.Errorf("expected status %s, got %s", to, booking.Status)
					}
					return
				}

				if err == nil {
					t.Fatalf("expected illegal transition %s -> %s to fail", from, to)
				}
				// Status must be untouched on failure.
				current, getErr := svc.GetBooking(context.Background(), offeringTenant, 100)
				if getErr != nil {
					t.Fatalf("GetBooking: %v", getErr)
				}
				if current.Status != from {
					t.Errorf("status mutated on failed transition: %s", current.Status)
				}
			})
		}
	}
}

func TestInvalidTransitionReportsValidTargets(t *testing.T) {
	svc, _, store := newTestService(t)
	seedBooking(t, store, models.StatusInquiry)

	_, _, err := svc.RequestTransition(context.Background(), offeringTenant, 100, models.TransitionInput{TargetStatus: models.StatusCompleted})
	if !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid_transition, got %v", err)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected a domain error")
	}
	targets, ok := appErr.Meta["validTransitions"].([]models.BookingStatus)
	if !ok || len(targets) != 3 {
		t.Errorf("expected 3 valid targets from INQUIRY, got %v", appErr.Meta["validTransitions"])
	}
}

func TestTerminalStateErrors(t *testing.T) {
	svc, _, store := newTestService(t)
	seedBooking(t, store, models.StatusCancelled)

	_, _, err := svc.RequestTransition(context.Background(), offeringTenant, 100, models.TransitionInput{TargetStatus: models.StatusCancelled})
	if !apperr.IsKind(err, apperr.KindAlreadyCancelled) {
		t.Errorf("expected already_cancelled, got %v", err)
	}

	svc2, _, store2 := newTestService(t)
	seedBooking(t, store2, models.StatusCompleted)
	_, _, err = svc2.RequestTransition(context.Background(), offeringTenant, 100, models.TransitionInput{TargetStatus: models.StatusCancelled})
	if !apperr.IsKind(err, apperr.KindCancelCompleted) {
		t.Errorf("expected cannot_cancel_completed, got %v", err)
	}
}

func TestCancellationStampsReasonAndTime(t *testing.T) {
	svc, _, store := newTestService(t)
	seedBooking(t, store, models.StatusApproved)

	reason := "mare injured"
	booking, _, err := svc.RequestTransition(context.Background(), offeringTenant, 100, models.TransitionInput{
		TargetStatus:       models.StatusCancelled,
		CancellationReason: &reason,
	})
	if err != nil {
		t.Fatalf("RequestTransition: %v", err)
	}
	if booking.CancelledAt == nil {
		t.Error("expected cancelled_at to be stamped")
	}
	if booking.CancellationReason == nil || *booking.CancellationReason != reason {
		t.Errorf("expected cancellation reason %q, got %v", reason, booking.CancellationReason)
	}
}

func TestScheduledDatePersisted(t *testing.T) {
	svc, _, store := newTestService(t)
	seedBooking(t, store, models.StatusConfirmed)

	date := time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)
	booking, _, err := svc.RequestTransition(context.Background(), offeringTenant, 100, models.TransitionInput{
		TargetStatus:  models.StatusScheduled,
		ScheduledDate: &date,
	})
	if err != nil {
		t.Fatalf("RequestTransition: %v", err)
	}
	if booking.ScheduledDate == nil || !booking.ScheduledDate.Equal(date) {
		t.Errorf("expected scheduled date %v, got %v", date, booking.ScheduledDate)
	}
}

func TestStartBreedingCreatesPlanIdempotently(t *testing.T) {
	svc, _, store := newTestService(t)
	seedBooking(t, store, models.StatusScheduled)

	booking, _, err := svc.RequestTransition(context.Background(), offeringTenant, 100, models.TransitionInput{TargetStatus: models.StatusInProgress})
	if err != nil {
		t.Fatalf("RequestTransition: %v", err)
	}
	if booking.BreedingPlanID == nil {
		t.Fatal("expected a breeding plan to be created")
	}
	planID := *booking.BreedingPlanID

	// Both participating animals get an attempt event.
	if got := store.CountAttempts(planID); got != 2 {
		t.Errorf("expected 2 breeding attempts, got %d", got)
	}

	// A booking that re-enters IN_PROGRESS keeps its plan.
	booking.Status = models.StatusScheduled
	if err := store.UpdateBooking(context.Background(), booking); err != nil {
		t.Fatalf("UpdateBooking: %v", err)
	}
	again, _, err := svc.RequestTransition(context.Background(), offeringTenant, 100, models.TransitionInput{TargetStatus: models.StatusInProgress})
	if err != nil {
		t.Fatalf("RequestTransition: %v", err)
	}
	if again.BreedingPlanID == nil || *again.BreedingPlanID != planID {
		t.Errorf("expected plan %d to be reused, got %v", planID, again.BreedingPlanID)
	}
}

func TestStartBreedingAttemptFailureIsBestEffort(t *testing.T) {
	svc, _, store := newTestService(t)
	seedBooking(t, store, models.StatusScheduled)
	store.AttemptErr = errors.New("attempt store down")

	booking, _, err := svc.RequestTransition(context.Background(), offeringTenant, 100, models.TransitionInput{TargetStatus: models.StatusInProgress})
	if err != nil {
		t.Fatalf("expected transition to survive attempt failures, got %v", err)
	}
	if booking.Status != models.StatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", booking.Status)
	}
	if booking.BreedingPlanID == nil {
		t.Error("expected breeding plan despite attempt failures")
	}
}

func TestRecordPaymentRejectsNonPositiveAmount(t *testing.T) {
	svc, _, store := newTestService(t)
	seedBooking(t, store, models.StatusApproved)

	for _, amount := range []int64{0, -100} {
		_, _, err := svc.RecordPayment(context.Background(), offeringTenant, 100, models.PaymentInput{AmountCents: amount})
		if !apperr.IsKind(err, apperr.KindInvalidAmount) {
			t.Errorf("amount %d: expected invalid_amount, got %v", amount, err)
		}
	}
}

func TestRecordPaymentPartialStaysApproved(t *testing.T) {
	svc, _, store := newTestService(t)
	seedBooking(t, store, models.StatusApproved)

	booking, _, err := svc.RecordPayment(context.Background(), offeringTenant, 100, models.PaymentInput{AmountCents: 300})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if booking.Status != models.StatusApproved {
		t.Errorf("expected APPROVED below deposit threshold, got %s", booking.Status)
	}
	if booking.TotalPaidCents != 300 {
		t.Errorf("expected total paid 300, got %d", booking.TotalPaidCents)
	}
	if booking.BalanceDueCents() != 1700 {
		t.Errorf("expected balance 1700, got %d", booking.BalanceDueCents())
	}
}

func TestRecordPaymentDepositThreshold(t *testing.T) {
	svc, _, store := newTestService(t)
	seedBooking(t, store, models.StatusApproved)

	booking, _, err := svc.RecordPayment(context.Background(), offeringTenant, 100, models.PaymentInput{AmountCents: 500})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if booking.Status != models.StatusDepositPaid {
		t.Errorf("expected DEPOSIT_PAID, got %s", booking.Status)
	}
}

func TestRecordPaymentCascadesBothThresholds(t *testing.T) {
	svc, _, store := newTestService(t)
	seedBooking(t, store, models.StatusApproved)

	booking, _, err := svc.RecordPayment(context.Background(), offeringTenant, 100, models.PaymentInput{AmountCents: 2000})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if booking.Status != models.StatusConfirmed {
		t.Errorf("expected CONFIRMED after one large payment, got %s", booking.Status)
	}
	if booking.BalanceDueCents() != 0 {
		t.Errorf("expected zero balance, got %d", booking.BalanceDueCents())
	}
}

func TestRecordPaymentNoDepositSkipsAutoAdvance(t *testing.T) {
	svc, _, store := newTestService(t)
	booking := seedBooking(t, store, models.StatusApproved)
	booking.DepositCents = 0
	if err := store.UpdateBooking(context.Background(), booking); err != nil {
		t.Fatalf("UpdateBooking: %v", err)
	}

	updated, _, err := svc.RecordPayment(context.Background(), offeringTenant, 100, models.PaymentInput{AmountCents: 100})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if updated.Status != models.StatusApproved {
		t.Errorf("expected APPROVED with zero deposit, got %s", updated.Status)
	}
}

func TestRecordPaymentOverpaymentBalanceClampsAtZero(t *testing.T) {
	svc, _, store := newTestService(t)
	seedBooking(t, store, models.StatusApproved)

	booking, _, err := svc.RecordPayment(context.Background(), offeringTenant, 100, models.PaymentInput{AmountCents: 2500})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if booking.TotalPaidCents != 2500 {
		t.Errorf("expected total 2500, got %d", booking.TotalPaidCents)
	}
	if booking.BalanceDueCents() != 0 {
		t.Errorf("expected balance clamped at 0, got %d", booking.BalanceDueCents())
	}
}

func shippingBooking(t *testing.T, store *memory.Store) *models.BreedingBooking {
	t.Helper()
	booking := seedBooking(t, store, models.StatusConfirmed)
	booking.ShippingRequired = true
	booking.ShippingAddress = "1 Paddock Lane"
	if err := store.UpdateBooking(context.Background(), booking); err != nil {
		t.Fatalf("UpdateBooking: %v", err)
	}
	return booking
}

func seedBatch(t *testing.T, ledger *semensvc.Service, doses int) *models.SemenInventory {
	t.Helper()
	batch, _, err := ledger.CreateBatch(context.Background(), offeringTenant, models.CreateBatchInput{
		SireID:         10,
		CollectionDate: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		Storage:        models.StorageFrozen,
		InitialDoses:   doses,
	})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	return batch
}

func TestShipSemenSuccess(t *testing.T) {
	svc, ledger, store := newTestService(t)
	shippingBooking(t, store)
	batch := seedBatch(t, ledger, 10)

	booking, result, _, err := svc.ShipSemen(context.Background(), offeringTenant, 100, models.ShipSemenInput{
		InventoryID: batch.ID,
		DosesUsed:   4,
		ShipToName:  "Willow Farm",
	})
	if err != nil {
		t.Fatalf("ShipSemen: %v", err)
	}
	if booking.SemenUsageID == nil || *booking.SemenUsageID != result.Usage.ID {
		t.Errorf("expected semen usage %d stamped on booking, got %v", result.Usage.ID, booking.SemenUsageID)
	}
	if result.AvailableDoses != 6 {
		t.Errorf("expected 6 doses left, got %d", result.AvailableDoses)
	}
	if result.Usage.Type != models.UsageShipped {
		t.Errorf("expected SHIPPED usage, got %s", result.Usage.Type)
	}
}

func TestShipSemenNotRequired(t *testing.T) {
	svc, ledger, store := newTestService(t)
	seedBooking(t, store, models.StatusConfirmed)
	batch := seedBatch(t, ledger, 10)

	_, _, _, err := svc.ShipSemen(context.Background(), offeringTenant, 100, models.ShipSemenInput{
		InventoryID: batch.ID,
		DosesUsed:   1,
		ShipToName:  "Willow Farm",
	})
	if !apperr.IsKind(err, apperr.KindShippingNotRequired) {
		t.Errorf("expected shipping_not_required, got %v", err)
	}
}

func TestShipSemenUnknownInventory(t *testing.T) {
	svc, _, store := newTestService(t)
	shippingBooking(t, store)

	_, _, _, err := svc.ShipSemen(context.Background(), offeringTenant, 100, models.ShipSemenInput{
		InventoryID: 999,
		DosesUsed:   1,
		ShipToName:  "Willow Farm",
	})
	if !apperr.IsKind(err, apperr.KindInventoryNotFound) {
		t.Errorf("expected inventory_not_found, got %v", err)
	}
}

func TestShipSemenInsufficientLeavesBookingUntouched(t *testing.T) {
	svc, ledger, store := newTestService(t)
	shippingBooking(t, store)
	batch := seedBatch(t, ledger, 3)

	_, _, _, err := svc.ShipSemen(context.Background(), offeringTenant, 100, models.ShipSemenInput{
		InventoryID: batch.ID,
		DosesUsed:   5,
		ShipToName:  "Willow Farm",
	})
	if !apperr.IsKind(err, apperr.KindInsufficientDoses) {
		t.Fatalf("expected insufficient_doses, got %v", err)
	}

	booking, getErr := svc.GetBooking(context.Background(), offeringTenant, 100)
	if getErr != nil {
		t.Fatalf("GetBooking: %v", getErr)
	}
	if booking.SemenUsageID != nil {
		t.Errorf("expected semen usage unset after failed shipment, got %v", booking.SemenUsageID)
	}

	current, getErr := ledger.GetBatch(context.Background(), offeringTenant, batch.ID)
	if getErr != nil {
		t.Fatalf("GetBatch: %v", getErr)
	}
	if current.AvailableDoses != 3 {
		t.Errorf("expected inventory unchanged at 3, got %d", current.AvailableDoses)
	}
}

func TestSeekingTenantCanReadBooking(t *testing.T) {
	svc, _, store := newTestService(t)
	seedBooking(t, store, models.StatusInquiry)

	if _, err := svc.GetBooking(context.Background(), seekingTenant, 100); err != nil {
		t.Errorf("expected seeking tenant to see the booking, got %v", err)
	}
	if _, err := svc.GetBooking(context.Background(), 3, 100); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not_found for an unrelated tenant, got %v", err)
	}
}
