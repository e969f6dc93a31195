// Package repository declares the persistence operations the lifecycle and
// ledger services depend on. Implementations live in the mongodb (production)
// and memory (tests, storeless local runs) subpackages.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/paddocklabs/studbook/internal/domain/models"
)

// ErrNotFound is returned when a record does not exist or does not belong to
// the caller's tenant. Both cases are indistinguishable on purpose.
var ErrNotFound = errors.New("record not found")

// ErrInsufficientDoses is returned by DecrementDoses when the conditional
// decrement did not match: the batch no longer has enough available doses or
// is no longer dispensable.
var ErrInsufficientDoses = errors.New("insufficient available doses")

// Store is the persistent-store collaborator for bookings, semen inventory and
// the surrounding records. All reads are tenant-scoped.
type Store interface {
	// Bookings. GetBooking matches either counterparty tenant.
	GetBooking(ctx context.Context, tenantID, id int64) (*models.BreedingBooking, error)
	ListBookings(ctx context.Context, tenantID int64) ([]models.BreedingBooking, error)
	CreateBooking(ctx context.Context, booking *models.BreedingBooking) error
	UpdateBooking(ctx context.Context, booking *models.BreedingBooking) error

	// Semen inventory batches.
	GetBatch(ctx context.Context, tenantID, id int64) (*models.SemenInventory, error)
	ListBatches(ctx context.Context, tenantID int64) ([]models.SemenInventory, error)
	CreateBatch(ctx context.Context, batch *models.SemenInventory) error
	UpdateBatch(ctx context.Context, batch *models.SemenInventory) error
	DeleteBatch(ctx context.Context, tenantID, id int64) error

	// DecrementDoses atomically decrements available doses if and only if the
	// batch is AVAILABLE and holds at least doses. Sets the status to DEPLETED
	// when the result is exactly zero. Returns the updated batch.
	DecrementDoses(ctx context.Context, tenantID, id int64, doses int) (*models.SemenInventory, error)

	// ListExpiredAvailable returns AVAILABLE batches across all tenants whose
	// expiry date lies before now. Used by the expiry sweeper.
	ListExpiredAvailable(ctx context.Context, now time.Time) ([]models.SemenInventory, error)

	// Usage ledger entries. Immutable after creation.
	CreateUsage(ctx context.Context, usage *models.SemenUsage) error
	ListUsages(ctx context.Context, tenantID, inventoryID int64) ([]models.SemenUsage, error)
	CountUsages(ctx context.Context, tenantID, inventoryID int64) (int64, error)

	// Animals and breeding records.
	GetAnimal(ctx context.Context, tenantID, id int64) (*models.Animal, error)
	GetBreedingAttempt(ctx context.Context, tenantID, id int64) (*models.BreedingAttempt, error)
	CreateBreedingPlan(ctx context.Context, plan *models.BreedingPlan) error
	CreateBreedingAttempt(ctx context.Context, attempt *models.BreedingAttempt) error

	// NextID returns the next value of the named monotonic sequence.
	NextID(ctx context.Context, name string) (int64, error)

	// WithTransaction runs fn atomically. Writes made inside fn become visible
	// all at once or not at all. Nested calls join the outer transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
