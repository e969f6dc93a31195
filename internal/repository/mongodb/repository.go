package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/paddocklabs/studbook/internal/domain/models"
	"github.com/paddocklabs/studbook/internal/repository"
)

const (
	collBookings = "bookings"
	collBatches  = "semen_batches"
	collUsages   = "semen_usages"
	collAnimals  = "animals"
	collPlans    = "breeding_plans"
	collAttempts = "breeding_attempts"
	collCounters = "counters"
)

// Repository implements repository.Store on top of MongoDB.
type Repository struct {
	client *mongo.Client
	dbName string
}

// New connects to MongoDB and verifies the connection.
func New(ctx context.Context, uri, dbName string) (*Repository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Repository{client: client, dbName: dbName}, nil
}

// Close closes the MongoDB connection.
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *Repository) coll(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// GetBooking fetches a booking visible to the tenant, which may be either
// counterparty.
func (r *Repository) GetBooking(ctx context.Context, tenantID, id int64) (*models.BreedingBooking, error) {
	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"offering_tenant_id": tenantID},
			bson.M{"seeking_tenant_id": tenantID},
		},
	}

	var booking models.BreedingBooking
	if err := r.coll(collBookings).FindOne(ctx, filter).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch booking %d: %w", id, err)
	}
	return &booking, nil
}

// ListBookings returns bookings where the tenant is a counterparty.
func (r *Repository) ListBookings(ctx context.Context, tenantID int64) ([]models.BreedingBooking, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"offering_tenant_id": tenantID},
		bson.M{"seeking_tenant_id": tenantID},
	}}

	cursor, err := r.coll(collBookings).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.BreedingBooking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

// CreateBooking inserts a new booking.
func (r *Repository) CreateBooking(ctx context.Context, booking *models.BreedingBooking) error {
	if _, err := r.coll(collBookings).InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

// UpdateBooking replaces the stored booking document.
func (r *Repository) UpdateBooking(ctx context.Context, booking *models.BreedingBooking) error {
	result, err := r.coll(collBookings).ReplaceOne(ctx, bson.M{"_id": booking.ID}, booking)
	if err != nil {
		return fmt.Errorf("failed to update booking %d: %w", booking.ID, err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetBatch fetches a tenant's inventory batch.
func (r *Repository) GetBatch(ctx context.Context, tenantID, id int64) (*models.SemenInventory, error) {
	var batch models.SemenInventory
	err := r.coll(collBatches).FindOne(ctx, bson.M{"_id": id, "tenant_id": tenantID}).Decode(&batch)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch batch %d: %w", id, err)
	}
	return &batch, nil
}

// ListBatches returns a tenant's non-archived batches, newest collection first.
func (r *Repository) ListBatches(ctx context.Context, tenantID int64) ([]models.SemenInventory, error) {
	filter := bson.M{"tenant_id": tenantID, "archived_at": nil}
	cursor, err := r.coll(collBatches).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "collection_date", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer cursor.Close(ctx)

	var batches []models.SemenInventory
	if err := cursor.All(ctx, &batches); err != nil {
		return nil, fmt.Errorf("failed to decode batches: %w", err)
	}
	return batches, nil
}

// CreateBatch inserts a new inventory batch.
func (r *Repository) CreateBatch(ctx context.Context, batch *models.SemenInventory) error {
	if _, err := r.coll(collBatches).InsertOne(ctx, batch); err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}
	return nil
}

// UpdateBatch replaces the stored batch document.
func (r *Repository) UpdateBatch(ctx context.Context, batch *models.SemenInventory) error {
	result, err := r.coll(collBatches).ReplaceOne(ctx, bson.M{"_id": batch.ID, "tenant_id": batch.TenantID}, batch)
	if err != nil {
		return fmt.Errorf("failed to update batch %d: %w", batch.ID, err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteBatch removes a batch document. Callers must have verified the batch
// has no usage records.
func (r *Repository) DeleteBatch(ctx context.Context, tenantID, id int64) error {
	result, err := r.coll(collBatches).DeleteOne(ctx, bson.M{"_id": id, "tenant_id": tenantID})
	if err != nil {
		return fmt.Errorf("failed to delete batch %d: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DecrementDoses performs the atomic guarded decrement. The filter only
// matches while the batch is AVAILABLE and holds at least doses, so two
// concurrent dispenses can never jointly oversell a batch.
func (r *Repository) DecrementDoses(ctx context.Context, tenantID, id int64, doses int) (*models.SemenInventory, error) {
	filter := bson.M{
		"_id":             id,
		"tenant_id":       tenantID,
		"status":          models.BatchAvailable,
		"available_doses": bson.M{"$gte": doses},
	}
	update := bson.M{
		"$inc": bson.M{"available_doses": -doses},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var batch models.SemenInventory
	err := r.coll(collBatches).FindOneAndUpdate(ctx, filter, update, opts).Decode(&batch)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Distinguish a missing batch from a failed guard.
			if _, getErr := r.GetBatch(ctx, tenantID, id); getErr != nil {
				return nil, getErr
			}
			return nil, repository.ErrInsufficientDoses
		}
		return nil, fmt.Errorf("failed to decrement doses on batch %d: %w", id, err)
	}

	if batch.AvailableDoses == 0 {
		_, err := r.coll(collBatches).UpdateOne(ctx,
			bson.M{"_id": id, "tenant_id": tenantID, "available_doses": 0, "status": models.BatchAvailable},
			bson.M{"$set": bson.M{"status": models.BatchDepleted}})
		if err != nil {
			return nil, fmt.Errorf("failed to mark batch %d depleted: %w", id, err)
		}
		batch.Status = models.BatchDepleted
	}
	return &batch, nil
}

// ListExpiredAvailable returns AVAILABLE batches past their expiry date.
func (r *Repository) ListExpiredAvailable(ctx context.Context, now time.Time) ([]models.SemenInventory, error) {
	filter := bson.M{
		"status":      models.BatchAvailable,
		"expiry_date": bson.M{"$lt": now},
	}
	cursor, err := r.coll(collBatches).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired batches: %w", err)
	}
	defer cursor.Close(ctx)

	var batches []models.SemenInventory
	if err := cursor.All(ctx, &batches); err != nil {
		return nil, fmt.Errorf("failed to decode expired batches: %w", err)
	}
	return batches, nil
}

// CreateUsage inserts a ledger entry.
func (r *Repository) CreateUsage(ctx context.Context, usage *models.SemenUsage) error {
	if _, err := r.coll(collUsages).InsertOne(ctx, usage); err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	return nil
}

// ListUsages returns a batch's ledger entries in creation order.
func (r *Repository) ListUsages(ctx context.Context, tenantID, inventoryID int64) ([]models.SemenUsage, error) {
	filter := bson.M{"tenant_id": tenantID, "inventory_id": inventoryID}
	cursor, err := r.coll(collUsages).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list usages: %w", err)
	}
	defer cursor.Close(ctx)

	var usages []models.SemenUsage
	if err := cursor.All(ctx, &usages); err != nil {
		return nil, fmt.Errorf("failed to decode usages: %w", err)
	}
	return usages, nil
}

// CountUsages counts a batch's ledger entries.
func (r *Repository) CountUsages(ctx context.Context, tenantID, inventoryID int64) (int64, error) {
	count, err := r.coll(collUsages).CountDocuments(ctx, bson.M{"tenant_id": tenantID, "inventory_id": inventoryID})
	if err != nil {
		return 0, fmt.Errorf("failed to count usages: %w", err)
	}
	return count, nil
}

// GetAnimal fetches a tenant's animal record.
func (r *Repository) GetAnimal(ctx context.Context, tenantID, id int64) (*models.Animal, error) {
	var animal models.Animal
	err := r.coll(collAnimals).FindOne(ctx, bson.M{"_id": id, "tenant_id": tenantID}).Decode(&animal)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch animal %d: %w", id, err)
	}
	return &animal, nil
}

// GetBreedingAttempt fetches a tenant's breeding attempt record.
func (r *Repository) GetBreedingAttempt(ctx context.Context, tenantID, id int64) (*models.BreedingAttempt, error) {
	var attempt models.BreedingAttempt
	err := r.coll(collAttempts).FindOne(ctx, bson.M{"_id": id, "tenant_id": tenantID}).Decode(&attempt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch breeding attempt %d: %w", id, err)
	}
	return &attempt, nil
}

// CreateBreedingPlan inserts a breeding plan.
func (r *Repository) CreateBreedingPlan(ctx context.Context, plan *models.BreedingPlan) error {
	if _, err := r.coll(collPlans).InsertOne(ctx, plan); err != nil {
		return fmt.Errorf("failed to insert breeding plan: %w", err)
	}
	return nil
}

// CreateBreedingAttempt inserts a breeding attempt event.
func (r *Repository) CreateBreedingAttempt(ctx context.Context, attempt *models.BreedingAttempt) error {
	if _, err := r.coll(collAttempts).InsertOne(ctx, attempt); err != nil {
		return fmt.Errorf("failed to insert breeding attempt: %w", err)
	}
	return nil
}

// NextID returns the next value of the named sequence, backed by an atomic
// upsert on the counters collection.
func (r *Repository) NextID(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.coll(collCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", name, err)
	}
	return counter.Seq, nil
}

// WithTransaction runs fn inside a session transaction. A nested call joins
// the transaction already carried by ctx.
func (r *Repository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
