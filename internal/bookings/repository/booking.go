package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	bookingserrors "defensebook/internal/bookings/errors"
	"defensebook/pkg/config"
	mongotx "defensebook/pkg/db/mongo"
	apperrors "defensebook/pkg/errors"
	"defensebook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"

	// Unique indexes scoped to active bookings. Their names are matched
	// against duplicate-key errors to recover the violated rule.
	IndexActiveRequester = "active_requester_unique"
	IndexActiveSlot      = "active_slot_unique"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	ListActive(ctx context.Context) ([]*model.Booking, error)
	ListActiveBetween(ctx context.Context, from, to time.Time) ([]*model.Booking, error)
	FindActiveByRequester(ctx context.Context, requesterID string) ([]*model.Booking, error)
	FindActiveBySlot(ctx context.Context, slotKey string) ([]*model.Booking, error)
	UpdateStatus(ctx context.Context, id string, status model.BookingStatus, approverID string) (*model.Booking, error)
	SoftDelete(ctx context.Context, id string) error
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function, as we cannot wrap SessionContext without breaking
// transaction semantics. The transaction itself is bounded in RunInTransaction.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}

	return context.WithTimeout(ctx, timeout)
}

func activeFilter() bson.M {
	return bson.M{"active": true}
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.ID = ""
	booking.Status = model.StatusPending
	booking.IsDeleted = false
	booking.ApproverID = ""
	booking.Active = true
	booking.SlotKey = model.SlotKeyFor(booking.StartDate, r.cfg.Location)
	booking.CreatedAt = now
	booking.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return translateWriteError("create booking", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, storeError("find booking", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) ListActive(ctx context.Context) ([]*model.Booking, error) {
	return r.find(ctx, "list active bookings", activeFilter())
}

func (r *mongoBookingRepository) ListActiveBetween(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	filter := activeFilter()
	filter["start_date"] = bson.M{"$gte": from, "$lt": to}
	return r.find(ctx, "list active bookings in range", filter)
}

func (r *mongoBookingRepository) FindActiveByRequester(ctx context.Context, requesterID string) ([]*model.Booking, error) {
	filter := activeFilter()
	filter["requester_id"] = requesterID
	return r.find(ctx, "find active bookings by requester", filter)
}

func (r *mongoBookingRepository) FindActiveBySlot(ctx context.Context, slotKey string) ([]*model.Booking, error) {
	filter := activeFilter()
	filter["slot_key"] = slotKey
	return r.find(ctx, "find active bookings by slot", filter)
}

func (r *mongoBookingRepository) find(ctx context.Context, op string, filter bson.M) ([]*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, storeError(op, err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, storeError(op, err)
	}

	return bookings, nil
}

// UpdateStatus moves a PENDING booking to status in one conditional write.
// A miss is resolved into not-found or invalid-transition.
func (r *mongoBookingRepository) UpdateStatus(ctx context.Context, id string, status model.BookingStatus, approverID string) (*model.Booking, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	if !status.Terminal() {
		return nil, bookingserrors.ErrInvalidTransition
	}

	set := bson.M{
		"status":     status,
		"active":     status != model.StatusRejected,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}
	if status == model.StatusApproved {
		set["approver_id"] = approverID
	}

	writeCtx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	var updated model.Booking
	err = r.collection.FindOneAndUpdate(writeCtx,
		pendingFilter(objectID),
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, translateWriteError("update booking status", err)
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, bookingserrors.ErrInvalidTransition
}

// SoftDelete withdraws a PENDING booking. Withdrawing twice is a no-op.
func (r *mongoBookingRepository) SoftDelete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	writeCtx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(writeCtx, pendingFilter(objectID), bson.M{
		"$set": bson.M{
			"is_deleted": true,
			"active":     false,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	})
	if err != nil {
		return storeError("withdraw booking", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsDeleted {
		return nil
	}
	return bookingserrors.ErrInvalidTransition
}

func pendingFilter(id primitive.ObjectID) bson.M {
	return bson.M{
		"_id":        id,
		"status":     model.StatusPending,
		"is_deleted": false,
	}
}

func (r *mongoBookingRepository) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	err := r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return fn(sessCtx)
	})
	if err == nil || isDomainError(err) {
		return err
	}
	return storeError("run transaction", err)
}

// translateWriteError maps unique index violations back to the booking rule
// they protect. Everything else is a store failure.
func translateWriteError(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		msg := err.Error()
		switch {
		case strings.Contains(msg, IndexActiveRequester):
			return bookingserrors.ErrAlreadyBooked
		case strings.Contains(msg, IndexActiveSlot):
			return bookingserrors.ErrSlotTaken
		}
	}
	return storeError(op, err)
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", bookingserrors.ErrStore, op, err)
}

func isDomainError(err error) bool {
	if apperrors.IsAppError(err) {
		return true
	}
	for _, target := range []error{
		bookingserrors.ErrStore,
		bookingserrors.ErrOutOfHorizon,
		bookingserrors.ErrAlreadyBooked,
		bookingserrors.ErrSlotTaken,
		bookingserrors.ErrInvalidTransition,
		bookingserrors.ErrNotFound,
		bookingserrors.ErrInvalidID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
