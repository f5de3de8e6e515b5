package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zaikaroot/zaika_backend/models"
)

// LedgerStore covers the three append-only ledgers (codSettlements, payouts,
// refunds). Entries are never edited or deleted; corrections are appended as
// reversing entries. FinalizeGatewayEntry is the one exception: it closes out a
// pending gateway entry with the call's outcome and is only reachable from the
// settlement service while it holds the party lock.
type LedgerStore interface {
	Append(ctx context.Context, ledger models.LedgerType, entry *models.LedgerEntry) (primitive.ObjectID, error)
	ListByParty(ctx context.Context, ledger models.LedgerType, partyID primitive.ObjectID) ([]models.LedgerEntry, error)
	ListRecent(ctx context.Context, ledger models.LedgerType, limit int64) ([]models.LedgerEntry, error)
	SumCompleted(ctx context.Context, ledger models.LedgerType, partyID primitive.ObjectID) (float64, error)
	FindByRequestID(ctx context.Context, ledger models.LedgerType, requestID string) (*models.LedgerEntry, error)
	FinalizeGatewayEntry(ctx context.Context, ledger models.LedgerType, id primitive.ObjectID, status, externalRef, failureNote string) error
}

type LedgerRepository struct {
	db *mongo.Database
}

func NewLedgerRepository(db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) collection(ledger models.LedgerType) *mongo.Collection {
	return r.db.Collection(string(ledger))
}

func (r *LedgerRepository) Append(ctx context.Context, ledger models.LedgerType, entry *models.LedgerEntry) (primitive.ObjectID, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := r.collection(ledger).InsertOne(ctx, entry)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return entry.ID, nil
}

func (r *LedgerRepository) ListByParty(ctx context.Context, ledger models.LedgerType, partyID primitive.ObjectID) ([]models.LedgerEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cursor, err := r.collection(ledger).Find(ctx,
		bson.M{"partyId": partyID},
		&options.FindOptions{Sort: bson.M{"createdAt": -1}},
	)
	if err != nil {
		return nil, err
	}
	var entries []models.LedgerEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *LedgerRepository) ListRecent(ctx context.Context, ledger models.LedgerType, limit int64) ([]models.LedgerEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := &options.FindOptions{Sort: bson.M{"createdAt": -1}}
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.collection(ledger).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var entries []models.LedgerEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SumCompleted returns the authoritative settled/paid figure for a party:
// the sum of completed entry amounts. Pending and failed entries stay visible
// for audit but never count toward balances.
func (r *LedgerRepository) SumCompleted(ctx context.Context, ledger models.LedgerType, partyID primitive.ObjectID) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pipeline := []bson.M{
		{"$match": bson.M{"partyId": partyID, "status": models.LedgerStatusCompleted}},
		{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": "$amount"}}},
	}
	cursor, err := r.collection(ledger).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	var results []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

func (r *LedgerRepository) FindByRequestID(ctx context.Context, ledger models.LedgerType, requestID string) (*models.LedgerEntry, error) {
	if requestID == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var entry models.LedgerEntry
	err := r.collection(ledger).FindOne(ctx, bson.M{"requestId": requestID}).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *LedgerRepository) FinalizeGatewayEntry(ctx context.Context, ledger models.LedgerType, id primitive.ObjectID, status, externalRef, failureNote string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := time.Now()
	set := bson.M{"status": status, "processedAt": now}
	if externalRef != "" {
		set["externalRef"] = externalRef
	}
	if failureNote != "" {
		set["failureNote"] = failureNote
	}
	_, err := r.collection(ledger).UpdateOne(ctx,
		bson.M{"_id": id, "status": models.LedgerStatusPending},
		bson.M{"$set": set},
	)
	return err
}
