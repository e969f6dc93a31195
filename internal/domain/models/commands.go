package models

import "time"

// Explicit command types per operation. Request bodies are bound into these and
// validated before anything reaches the lifecycle or ledger layer; nothing
// loosely typed is passed through to persistence.

// CreateBookingInput opens a booking inquiry between the offering tenant and a
// seeking party.
type CreateBookingInput struct {
	OfferingAnimalID int64              `json:"offeringAnimalId"`
	SeekingTenantID  int64              `json:"seekingTenantId"`
	SeekingAnimalID  *int64             `json:"seekingAnimalId,omitempty"`
	ExternalAnimal   *ExternalAnimalRef `json:"externalAnimal,omitempty"`
	AgreedFeeCents   int64              `json:"agreedFeeCents"`
	DepositCents     int64              `json:"depositCents"`
	FeeDirection     FeeDirection       `json:"feeDirection"`
	PreferredStart   *time.Time         `json:"preferredStart,omitempty"`
	PreferredEnd     *time.Time         `json:"preferredEnd,omitempty"`
	ShippingRequired bool               `json:"shippingRequired"`
	ShippingAddress  string             `json:"shippingAddress,omitempty"`
}

// TransitionInput requests a booking status change.
type TransitionInput struct {
	TargetStatus       BookingStatus `json:"targetStatus"`
	ScheduledDate      *time.Time    `json:"scheduledDate,omitempty"`
	CancellationReason *string       `json:"cancellationReason,omitempty"`
}

// PaymentInput records a payment against a booking, in integer cents.
type PaymentInput struct {
	AmountCents int64 `json:"amountCents"`
}

// ShipSemenInput ships doses from an inventory batch against a booking.
type ShipSemenInput struct {
	InventoryID    int64  `json:"inventoryId"`
	DosesUsed      int    `json:"dosesUsed"`
	ShipToName     string `json:"shipToName"`
	ShipToAddress  string `json:"shipToAddress,omitempty"`
	Carrier        string `json:"carrier,omitempty"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
}

// CreateBatchInput records a new collection batch.
type CreateBatchInput struct {
	SireID           int64       `json:"sireId"`
	CollectionDate   time.Time   `json:"collectionDate"`
	CollectionMethod string      `json:"collectionMethod,omitempty"`
	Storage          StorageType `json:"storage"`
	InitialDoses     int         `json:"initialDoses"`
	ExpiryDate       *time.Time  `json:"expiryDate,omitempty"`
	MotilityPct      *int        `json:"motilityPct,omitempty"`
	MorphologyPct    *int        `json:"morphologyPct,omitempty"`
	Notes            string      `json:"notes,omitempty"`
}

// UpdateBatchInput carries the fields a manual batch edit may change. Nil means
// leave unchanged.
type UpdateBatchInput struct {
	MotilityPct   *int          `json:"motilityPct,omitempty"`
	MorphologyPct *int          `json:"morphologyPct,omitempty"`
	Grade         *QualityGrade `json:"grade,omitempty"`
	Discard       bool          `json:"discard,omitempty"`
	ExpiryDate    *time.Time    `json:"expiryDate,omitempty"`
	Notes         *string       `json:"notes,omitempty"`
}

// DispenseInput consumes doses from a batch.
type DispenseInput struct {
	Type              UsageType  `json:"type"`
	DosesUsed         int        `json:"dosesUsed"`
	UsageDate         *time.Time `json:"usageDate,omitempty"`
	ShipToName        string     `json:"shipToName,omitempty"`
	ShipToAddress     string     `json:"shipToAddress,omitempty"`
	Carrier           string     `json:"carrier,omitempty"`
	TrackingNumber    string     `json:"trackingNumber,omitempty"`
	TransferRecipient string     `json:"transferRecipient,omitempty"`
	BreedingAttemptID *int64     `json:"breedingAttemptId,omitempty"`
	Notes             string     `json:"notes,omitempty"`
}
