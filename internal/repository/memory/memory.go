// Package memory provides a mutex-guarded in-memory implementation of
// repository.Store, used by the service tests and for running without MongoDB.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/paddocklabs/studbook/internal/domain/models"
	"github.com/paddocklabs/studbook/internal/repository"
)

// Store keeps all records in maps behind one mutex. The guarded dose
// decrement is a check-and-decrement under the lock, giving the same
// serializability as the production conditional update.
type Store struct {
	mu sync.Mutex

	sequences map[string]int64
	bookings  map[int64]models.BreedingBooking
	batches   map[int64]models.SemenInventory
	usages    map[int64]models.SemenUsage
	animals   map[int64]models.Animal
	plans     map[int64]models.BreedingPlan
	attempts  map[int64]models.BreedingAttempt

	// AttemptErr, when set, makes CreateBreedingAttempt fail. Used by tests to
	// verify that attempt creation is best-effort.
	AttemptErr error
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		sequences: make(map[string]int64),
		bookings:  make(map[int64]models.BreedingBooking),
		batches:   make(map[int64]models.SemenInventory),
		usages:    make(map[int64]models.SemenUsage),
		animals:   make(map[int64]models.Animal),
		plans:     make(map[int64]models.BreedingPlan),
		attempts:  make(map[int64]models.BreedingAttempt),
	}
}

// SeedAnimal inserts an animal record directly, for tests and local seeding.
func (s *Store) SeedAnimal(animal models.Animal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.animals[animal.ID] = animal
}

// SeedAttempt inserts a breeding attempt directly.
func (s *Store) SeedAttempt(attempt models.BreedingAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.ID] = attempt
}

func (s *Store) GetBooking(_ context.Context, tenantID, id int64) (*models.BreedingBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	booking, ok := s.bookings[id]
	if !ok || !booking.InvolvesTenant(tenantID) {
		return nil, repository.ErrNotFound
	}
	out := booking
	return &out, nil
}

func (s *Store) ListBookings(_ context.Context, tenantID int64) ([]models.BreedingBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.BreedingBooking
	for _, booking := range s.bookings {
		if booking.InvolvesTenant(tenantID) {
			out = append(out, booking)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateBooking(_ context.Context, booking *models.BreedingBooking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[booking.ID] = *booking
	return nil
}

func (s *Store) UpdateBooking(_ context.Context, booking *models.BreedingBooking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[booking.ID]; !ok {
		return repository.ErrNotFound
	}
	s.bookings[booking.ID] = *booking
	return nil
}

func (s *Store) GetBatch(_ context.Context, tenantID, id int64) (*models.SemenInventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[id]
	if !ok || batch.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	out := batch
	return &out, nil
}

func (s *Store) ListBatches(_ context.Context, tenantID int64) ([]models.SemenInventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SemenInventory
	for _, batch := range s.batches {
		if batch.TenantID == tenantID && batch.ArchivedAt == nil {
			out = append(out, batch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateBatch(_ context.Context, batch *models.SemenInventory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[batch.ID] = *batch
	return nil
}

func (s *Store) UpdateBatch(_ context.Context, batch *models.SemenInventory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.batches[batch.ID]
	if !ok || existing.TenantID != batch.TenantID {
		return repository.ErrNotFound
	}
	s.batches[batch.ID] = *batch
	return nil
}

func (s *Store) DeleteBatch(_ context.Context, tenantID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[id]
	if !ok || batch.TenantID != tenantID {
		return repository.ErrNotFound
	}
	delete(s.batches, id)
	return nil
}

func (s *Store) DecrementDoses(_ context.Context, tenantID, id int64, doses int) (*models.SemenInventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[id]
	if !ok || batch.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	if batch.Status != models.BatchAvailable || batch.AvailableDoses < doses {
		return nil, repository.ErrInsufficientDoses
	}
	batch.AvailableDoses -= doses
	batch.UpdatedAt = time.Now().UTC()
	if batch.AvailableDoses == 0 {
		batch.Status = models.BatchDepleted
	}
	s.batches[id] = batch
	out := batch
	return &out, nil
}

func (s *Store) ListExpiredAvailable(_ context.Context, now time.Time) ([]models.SemenInventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SemenInventory
	for _, batch := range s.batches {
		if batch.Status == models.BatchAvailable && batch.ExpiryDate != nil && batch.ExpiryDate.Before(now) {
			out = append(out, batch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateUsage(_ context.Context, usage *models.SemenUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usages[usage.ID] = *usage
	return nil
}

func (s *Store) ListUsages(_ context.Context, tenantID, inventoryID int64) ([]models.SemenUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SemenUsage
	for _, usage := range s.usages {
		if usage.TenantID == tenantID && usage.InventoryID == inventoryID {
			out = append(out, usage)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CountUsages(_ context.Context, tenantID, inventoryID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, usage := range s.usages {
		if usage.TenantID == tenantID && usage.InventoryID == inventoryID {
			count++
		}
	}
	return count, nil
}

func (s *Store) GetAnimal(_ context.Context, tenantID, id int64) (*models.Animal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	animal, ok := s.animals[id]
	if !ok || animal.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	out := animal
	return &out, nil
}

func (s *Store) GetBreedingAttempt(_ context.Context, tenantID, id int64) (*models.BreedingAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[id]
	if !ok || attempt.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	out := attempt
	return &out, nil
}

func (s *Store) CreateBreedingPlan(_ context.Context, plan *models.BreedingPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ID] = *plan
	return nil
}

func (s *Store) CreateBreedingAttempt(_ context.Context, attempt *models.BreedingAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AttemptErr != nil {
		return s.AttemptErr
	}
	s.attempts[attempt.ID] = *attempt
	return nil
}

// CountAttempts reports how many breeding attempts exist for a plan.
func (s *Store) CountAttempts(planID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, attempt := range s.attempts {
		if attempt.PlanID == planID {
			count++
		}
	}
	return count
}

func (s *Store) NextID(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[name]++
	return s.sequences[name], nil
}

// WithTransaction runs fn directly. Operations here are individually atomic
// under the store mutex, and callers order their writes so a validation
// failure happens before any mutation, which is what the tests rely on.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
