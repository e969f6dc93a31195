package models

import "time"

// StorageType describes how a collected batch is preserved.
type StorageType string

const (
	StorageFresh  StorageType = "FRESH"
	StorageCooled StorageType = "COOLED"
	StorageFrozen StorageType = "FROZEN"
)

// IsValid reports whether the storage type is recognized.
func (s StorageType) IsValid() bool {
	switch s {
	case StorageFresh, StorageCooled, StorageFrozen:
		return true
	}
	return false
}

// BatchStatus is the derived availability status of an inventory batch.
type BatchStatus string

const (
	BatchAvailable BatchStatus = "AVAILABLE"
	BatchDepleted  BatchStatus = "DEPLETED"
	BatchExpired   BatchStatus = "EXPIRED"
	BatchDiscarded BatchStatus = "DISCARDED"
)

// QualityGrade buckets motility/morphology measurements.
type QualityGrade string

const (
	GradeExcellent QualityGrade = "EXCELLENT"
	GradeGood      QualityGrade = "GOOD"
	GradeFair      QualityGrade = "FAIR"
	GradePoor      QualityGrade = "POOR"
)

// GradeFromQuality derives the quality grade from motility and morphology
// percentages. Returns nil when motility is unknown.
func GradeFromQuality(motilityPct, morphologyPct *int) *QualityGrade {
	if motilityPct == nil {
		return nil
	}
	var grade QualityGrade
	switch {
	case *motilityPct >= 70 && (morphologyPct == nil || *morphologyPct >= 70):
		grade = GradeExcellent
	case *motilityPct >= 50:
		grade = GradeGood
	case *motilityPct >= 30:
		grade = GradeFair
	default:
		grade = GradePoor
	}
	return &grade
}

// SemenInventory is one collection event's worth of genetic material, tracked at
// the dose level.
type SemenInventory struct {
	ID          int64  `bson:"_id" json:"id"`
	TenantID    int64  `bson:"tenant_id" json:"tenantId"`
	BatchNumber string `bson:"batch_number" json:"batchNumber"`

	SireID           int64       `bson:"sire_id" json:"sireId"`
	CollectionDate   time.Time   `bson:"collection_date" json:"collectionDate"`
	CollectionMethod string      `bson:"collection_method,omitempty" json:"collectionMethod,omitempty"`
	Storage          StorageType `bson:"storage" json:"storage"`

	InitialDoses   int         `bson:"initial_doses" json:"initialDoses"`
	AvailableDoses int         `bson:"available_doses" json:"availableDoses"`
	Status         BatchStatus `bson:"status" json:"status"`
	ExpiryDate     *time.Time  `bson:"expiry_date,omitempty" json:"expiryDate,omitempty"`

	MotilityPct   *int          `bson:"motility_pct,omitempty" json:"motilityPct,omitempty"`
	MorphologyPct *int          `bson:"morphology_pct,omitempty" json:"morphologyPct,omitempty"`
	Grade         *QualityGrade `bson:"grade,omitempty" json:"grade,omitempty"`

	Notes      string     `bson:"notes,omitempty" json:"notes,omitempty"`
	ArchivedAt *time.Time `bson:"archived_at,omitempty" json:"archivedAt,omitempty"`
	CreatedAt  time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updatedAt"`
}

// ExpiredAt reports whether the batch is past its expiry at the given instant,
// either by stored status or by expiry date.
func (b *SemenInventory) ExpiredAt(now time.Time) bool {
	if b.Status == BatchExpired {
		return true
	}
	return b.ExpiryDate != nil && b.ExpiryDate.Before(now)
}

// UsageType classifies what a dispense consumed doses for.
type UsageType string

const (
	UsageOnSite      UsageType = "ON_SITE"
	UsageShipped     UsageType = "SHIPPED"
	UsageTransferred UsageType = "TRANSFERRED"
	UsageTesting     UsageType = "TESTING"
	UsageDiscarded   UsageType = "DISCARDED"
)

// IsValid reports whether the usage type is recognized.
func (u UsageType) IsValid() bool {
	switch u {
	case UsageOnSite, UsageShipped, UsageTransferred, UsageTesting, UsageDiscarded:
		return true
	}
	return false
}

// SemenUsage is an immutable ledger entry recording doses consumed from a batch.
// Created atomically with the corresponding inventory decrement.
type SemenUsage struct {
	ID          int64     `bson:"_id" json:"id"`
	TenantID    int64     `bson:"tenant_id" json:"tenantId"`
	InventoryID int64     `bson:"inventory_id" json:"inventoryId"`
	Type        UsageType `bson:"type" json:"type"`
	DosesUsed   int       `bson:"doses_used" json:"dosesUsed"`
	UsageDate   time.Time `bson:"usage_date" json:"usageDate"`

	ShipToName        string `bson:"ship_to_name,omitempty" json:"shipToName,omitempty"`
	ShipToAddress     string `bson:"ship_to_address,omitempty" json:"shipToAddress,omitempty"`
	Carrier           string `bson:"carrier,omitempty" json:"carrier,omitempty"`
	TrackingNumber    string `bson:"tracking_number,omitempty" json:"trackingNumber,omitempty"`
	TransferRecipient string `bson:"transfer_recipient,omitempty" json:"transferRecipient,omitempty"`

	BreedingAttemptID *int64 `bson:"breeding_attempt_id,omitempty" json:"breedingAttemptId,omitempty"`
	Notes             string `bson:"notes,omitempty" json:"notes,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}
