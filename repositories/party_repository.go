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

// PartyStore covers the vendors and deliveryPartners collections. The balance
// fields written here are a display projection; the settlement service always
// revalidates against orders plus the ledger sums before calling the Apply
// methods.
type PartyStore interface {
	FindVendor(ctx context.Context, id primitive.ObjectID) (*models.Vendor, error)
	FindPartner(ctx context.Context, id primitive.ObjectID) (*models.DeliveryPartner, error)
	ListVendors(ctx context.Context) ([]models.Vendor, error)
	ListPartners(ctx context.Context) ([]models.DeliveryPartner, error)

	ApplyPayout(ctx context.Context, partyType string, id primitive.ObjectID, amount, pendingAfter float64) error
	ApplyCODSettlement(ctx context.Context, partnerID primitive.ObjectID, amount, pendingAfter float64) error
	SyncVendorBalance(ctx context.Context, id primitive.ObjectID, revenue, earnings, paid float64) error
	SyncPartnerBalance(ctx context.Context, id primitive.ObjectID, earnings, paid, codCollected, codSettled float64) error

	SetVendorCommission(ctx context.Context, vendorID primitive.ObjectID, rate float64) error
	AppendCommissionChange(ctx context.Context, change *models.CommissionChange) (primitive.ObjectID, error)
	ListCommissionChanges(ctx context.Context, vendorID primitive.ObjectID) ([]models.CommissionChange, error)
}

type PartyRepository struct {
	vendors    *mongo.Collection
	partners   *mongo.Collection
	commission *mongo.Collection
}

func NewPartyRepository(db *mongo.Database) *PartyRepository {
	return &PartyRepository{
		vendors:    db.Collection("vendors"),
		partners:   db.Collection("deliveryPartners"),
		commission: db.Collection("commissionHistory"),
	}
}

func (r *PartyRepository) FindVendor(ctx context.Context, id primitive.ObjectID) (*models.Vendor, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var vendor models.Vendor
	if err := r.vendors.FindOne(ctx, bson.M{"_id": id}).Decode(&vendor); err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *PartyRepository) FindPartner(ctx context.Context, id primitive.ObjectID) (*models.DeliveryPartner, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var partner models.DeliveryPartner
	if err := r.partners.FindOne(ctx, bson.M{"_id": id}).Decode(&partner); err != nil {
		return nil, err
	}
	return &partner, nil
}

func (r *PartyRepository) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cursor, err := r.vendors.Find(ctx, bson.M{}, &options.FindOptions{Sort: bson.M{"businessName": 1}})
	if err != nil {
		return nil, err
	}
	var vendors []models.Vendor
	if err := cursor.All(ctx, &vendors); err != nil {
		return nil, err
	}
	return vendors, nil
}

func (r *PartyRepository) ListPartners(ctx context.Context) ([]models.DeliveryPartner, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cursor, err := r.partners.Find(ctx, bson.M{}, &options.FindOptions{Sort: bson.M{"fullName": 1}})
	if err != nil {
		return nil, err
	}
	var partners []models.DeliveryPartner
	if err := cursor.All(ctx, &partners); err != nil {
		return nil, err
	}
	return partners, nil
}

func (r *PartyRepository) partyCollection(partyType string) *mongo.Collection {
	if partyType == models.PartyVendor {
		return r.vendors
	}
	return r.partners
}

// ApplyPayout increments the paid projection after a payout ledger entry
// completes. paidAmount only ever grows; pendingAmount is the recomputed
// display value.
func (r *PartyRepository) ApplyPayout(ctx context.Context, partyType string, id primitive.ObjectID, amount, pendingAfter float64) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.partyCollection(partyType).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"paidAmount": amount},
			"$set": bson.M{"pendingAmount": pendingAfter, "updatedAt": time.Now()},
		},
	)
	return err
}

func (r *PartyRepository) ApplyCODSettlement(ctx context.Context, partnerID primitive.ObjectID, amount, pendingAfter float64) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.partners.UpdateOne(ctx,
		bson.M{"_id": partnerID},
		bson.M{
			"$inc": bson.M{"codSettledAmount": amount},
			"$set": bson.M{"codPending": pendingAfter, "updatedAt": time.Now()},
		},
	)
	return err
}

// SyncVendorBalance overwrites the cached projection with freshly recomputed
// figures. Read paths call this when the cache has drifted from the ledger.
func (r *PartyRepository) SyncVendorBalance(ctx context.Context, id primitive.ObjectID, revenue, earnings, paid float64) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pending := earnings - paid
	if pending < 0 {
		pending = 0
	}
	_, err := r.vendors.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"totalRevenue":  revenue,
			"totalEarnings": earnings,
			"paidAmount":    paid,
			"pendingAmount": pending,
			"updatedAt":     time.Now(),
		}},
	)
	return err
}

func (r *PartyRepository) SyncPartnerBalance(ctx context.Context, id primitive.ObjectID, earnings, paid, codCollected, codSettled float64) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pending := earnings - paid
	if pending < 0 {
		pending = 0
	}
	_, err := r.partners.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"totalEarnings":    earnings,
			"paidAmount":       paid,
			"pendingAmount":    pending,
			"codCollected":     codCollected,
			"codSettledAmount": codSettled,
			"codPending":       codCollected - codSettled,
			"updatedAt":        time.Now(),
		}},
	)
	return err
}

func (r *PartyRepository) SetVendorCommission(ctx context.Context, vendorID primitive.ObjectID, rate float64) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.vendors.UpdateOne(ctx,
		bson.M{"_id": vendorID},
		bson.M{"$set": bson.M{"customCommission": rate, "updatedAt": time.Now()}},
	)
	return err
}

func (r *PartyRepository) AppendCommissionChange(ctx context.Context, change *models.CommissionChange) (primitive.ObjectID, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if change.ID.IsZero() {
		change.ID = primitive.NewObjectID()
	}
	if change.ChangedAt.IsZero() {
		change.ChangedAt = time.Now()
	}
	_, err := r.commission.InsertOne(ctx, change)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return change.ID, nil
}

func (r *PartyRepository) ListCommissionChanges(ctx context.Context, vendorID primitive.ObjectID) ([]models.CommissionChange, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cursor, err := r.commission.Find(ctx,
		bson.M{"vendorId": vendorID},
		&options.FindOptions{Sort: bson.M{"changedAt": -1}},
	)
	if err != nil {
		return nil, err
	}
	var changes []models.CommissionChange
	if err := cursor.All(ctx, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}
