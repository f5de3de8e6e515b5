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

// OrderStore is the engine's read view of the orders collection. Orders are
// created and transitioned by the consumer backend; this service only scans
// them and flips the two settlement flag fields.
type OrderStore interface {
	ScanOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	FindOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FlagCODSettled(ctx context.Context, orderIDs []primitive.ObjectID, settlementID primitive.ObjectID) error
	SetRefundStatus(ctx context.Context, orderID primitive.ObjectID, status string) error
}

type OrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{collection: db.Collection("orders")}
}

func (r *OrderRepository) ScanOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	query := bson.M{}
	if filter.VendorID != nil {
		query["vendorId"] = *filter.VendorID
	}
	if filter.DeliveryPersonID != nil {
		query["deliveryPersonId"] = *filter.DeliveryPersonID
	}
	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": filter.Statuses}
	}
	if filter.PaymentMode != "" {
		query["paymentMode"] = filter.PaymentMode
	}
	if filter.From != nil || filter.To != nil {
		createdAt := bson.M{}
		if filter.From != nil {
			createdAt["$gte"] = *filter.From
		}
		if filter.To != nil {
			createdAt["$lt"] = *filter.To
		}
		query["createdAt"] = createdAt
	}

	cursor, err := r.collection.Find(ctx, query, &options.FindOptions{
		Sort: bson.M{"createdAt": 1},
	})
	if err != nil {
		return nil, err
	}
	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) FindOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var order models.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FlagCODSettled marks every listed order as discharged by the given
// settlement ledger entry.
func (r *OrderRepository) FlagCODSettled(ctx context.Context, orderIDs []primitive.ObjectID, settlementID primitive.ObjectID) error {
	if len(orderIDs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": orderIDs}},
		bson.M{"$set": bson.M{
			"codSettled":      true,
			"codSettlementId": settlementID,
		}},
	)
	return err
}

func (r *OrderRepository) SetRefundStatus(ctx context.Context, orderID primitive.ObjectID, status string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": orderID},
		bson.M{"$set": bson.M{"refundStatus": status}},
	)
	return err
}
