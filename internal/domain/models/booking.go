package models

import (
	"fmt"
	"time"
)

// BookingStatus represents the current state of a breeding booking in its lifecycle.
type BookingStatus string

const (
	StatusInquiry             BookingStatus = "INQUIRY"
	StatusPendingRequirements BookingStatus = "PENDING_REQUIREMENTS"
	StatusApproved            BookingStatus = "APPROVED"
	StatusDepositPaid         BookingStatus = "DEPOSIT_PAID"
	StatusConfirmed           BookingStatus = "CONFIRMED"
	StatusScheduled           BookingStatus = "SCHEDULED"
	StatusInProgress          BookingStatus = "IN_PROGRESS"
	StatusCompleted           BookingStatus = "COMPLETED"
	StatusCancelled           BookingStatus = "CANCELLED"
)

// bookingTransitions is the single source of truth for legal status transitions.
// Every entry point that changes a booking's status must consult this table.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	StatusInquiry:             {StatusPendingRequirements, StatusApproved, StatusCancelled},
	StatusPendingRequirements: {StatusApproved, StatusCancelled},
	StatusApproved:            {StatusDepositPaid, StatusCancelled},
	StatusDepositPaid:         {StatusConfirmed, StatusCancelled},
	StatusConfirmed:           {StatusScheduled, StatusCancelled},
	StatusScheduled:           {StatusInProgress, StatusCancelled},
	StatusInProgress:          {StatusCompleted, StatusCancelled},
	StatusCompleted:           {},
	StatusCancelled:           {},
}

// IsValid reports whether the status is a recognized booking status.
func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// ValidTargets returns the statuses reachable from this one in a single transition.
func (s BookingStatus) ValidTargets() []BookingStatus {
	targets := bookingTransitions[s]
	out := make([]BookingStatus, len(targets))
	copy(out, targets)
	return out
}

// CanTransitionTo reports whether a transition from this status to target is allowed.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range bookingTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible from this status.
func (s BookingStatus) IsTerminal() bool {
	targets, ok := bookingTransitions[s]
	if !ok {
		return true
	}
	return len(targets) == 0
}

// ParseBookingStatus converts a string to a BookingStatus.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}

// FeeDirection indicates which counterparty pays the agreed fee.
type FeeDirection string

const (
	SeekingPays  FeeDirection = "SEEKING_PAYS"
	OfferingPays FeeDirection = "OFFERING_PAYS"
)

// ExternalAnimalRef describes a seeking animal that is not registered in the system.
type ExternalAnimalRef struct {
	Name         string `bson:"name" json:"name"`
	Registration string `bson:"registration,omitempty" json:"registration,omitempty"`
	Breed        string `bson:"breed,omitempty" json:"breed,omitempty"`
	Sex          string `bson:"sex,omitempty" json:"sex,omitempty"`
}

// BreedingBooking is an agreement between an offering party (owns the sire) and a
// seeking party, progressing through a fixed lifecycle to a completed breeding.
// All money fields are integer minor units (cents).
type BreedingBooking struct {
	ID            int64  `bson:"_id" json:"id"`
	BookingNumber string `bson:"booking_number" json:"bookingNumber"`

	OfferingTenantID int64              `bson:"offering_tenant_id" json:"offeringTenantId"`
	OfferingAnimalID int64              `bson:"offering_animal_id" json:"offeringAnimalId"`
	SeekingTenantID  int64              `bson:"seeking_tenant_id" json:"seekingTenantId"`
	SeekingAnimalID  *int64             `bson:"seeking_animal_id,omitempty" json:"seekingAnimalId,omitempty"`
	ExternalAnimal   *ExternalAnimalRef `bson:"external_animal,omitempty" json:"externalAnimal,omitempty"`

	AgreedFeeCents int64        `bson:"agreed_fee_cents" json:"agreedFeeCents"`
	DepositCents   int64        `bson:"deposit_cents" json:"depositCents"`
	FeeDirection   FeeDirection `bson:"fee_direction" json:"feeDirection"`
	TotalPaidCents int64        `bson:"total_paid_cents" json:"totalPaidCents"`

	PreferredStart   *time.Time `bson:"preferred_start,omitempty" json:"preferredStart,omitempty"`
	PreferredEnd     *time.Time `bson:"preferred_end,omitempty" json:"preferredEnd,omitempty"`
	ScheduledDate    *time.Time `bson:"scheduled_date,omitempty" json:"scheduledDate,omitempty"`
	ShippingRequired bool       `bson:"shipping_required" json:"shippingRequired"`
	ShippingAddress  string     `bson:"shipping_address,omitempty" json:"shippingAddress,omitempty"`

	Status             BookingStatus `bson:"status" json:"status"`
	StatusChangedAt    time.Time     `bson:"status_changed_at" json:"statusChangedAt"`
	CancelledAt        *time.Time    `bson:"cancelled_at,omitempty" json:"cancelledAt,omitempty"`
	CancellationReason *string       `bson:"cancellation_reason,omitempty" json:"cancellationReason,omitempty"`

	BreedingPlanID *int64 `bson:"breeding_plan_id,omitempty" json:"breedingPlanId,omitempty"`
	SemenUsageID   *int64 `bson:"semen_usage_id,omitempty" json:"semenUsageId,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// BalanceDueCents returns the outstanding balance, never negative.
func (b *BreedingBooking) BalanceDueCents() int64 {
	due := b.AgreedFeeCents - b.TotalPaidCents
	if due < 0 {
		return 0
	}
	return due
}

// InvolvesTenant reports whether the tenant is one of the booking's counterparties.
func (b *BreedingBooking) InvolvesTenant(tenantID int64) bool {
	return b.OfferingTenantID == tenantID || b.SeekingTenantID == tenantID
}

// BreedingPlan is created when a booking enters IN_PROGRESS and links the booking
// to the breeding workflow.
type BreedingPlan struct {
	ID        int64     `bson:"_id" json:"id"`
	TenantID  int64     `bson:"tenant_id" json:"tenantId"`
	BookingID int64     `bson:"booking_id" json:"bookingId"`
	SireID    int64     `bson:"sire_id" json:"sireId"`
	DamID     *int64    `bson:"dam_id,omitempty" json:"damId,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// BreedingAttempt is a best-effort event recorded per participating animal when
// breeding starts.
type BreedingAttempt struct {
	ID        int64     `bson:"_id" json:"id"`
	TenantID  int64     `bson:"tenant_id" json:"tenantId"`
	PlanID    int64     `bson:"plan_id" json:"planId"`
	AnimalID  int64     `bson:"animal_id" json:"animalId"`
	Date      time.Time `bson:"date" json:"date"`
	Notes     string    `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// Animal is the minimal animal record these components need: identity, sex and
// ownership for sire validation and attempt events.
type Animal struct {
	ID           int64  `bson:"_id" json:"id"`
	TenantID     int64  `bson:"tenant_id" json:"tenantId"`
	Name         string `bson:"name" json:"name"`
	Sex          string `bson:"sex" json:"sex"` // MALE or FEMALE
	Breed        string `bson:"breed,omitempty" json:"breed,omitempty"`
	Registration string `bson:"registration,omitempty" json:"registration,omitempty"`
}
