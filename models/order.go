package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPreparing       OrderStatus = "preparing"
	OrderStatusSentForDelivery OrderStatus = "sent_for_delivery"
	OrderStatusOutForDelivery  OrderStatus = "out_for_delivery"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusNotResponded    OrderStatus = "not_responded"
	OrderStatusDeclined        OrderStatus = "declined"
	OrderStatusExpired         OrderStatus = "expired"
)

// Payment modes
const (
	PaymentModeOnline = "online"
	PaymentModeCOD    = "cod"
)

// Refund statuses stored on the order
const (
	RefundStatusNone     = ""
	RefundStatusPending  = "PENDING"
	RefundStatusRefunded = "REFUNDED"
)

// Order is created and transitioned by the consumer app backend. This service
// only reads orders and flips the settlement flag fields (codSettled,
// codSettlementId, refundStatus); the financial fields are immutable once written.
type Order struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	VendorID         primitive.ObjectID  `bson:"vendorId" json:"vendorId"`
	CustomerID       primitive.ObjectID  `bson:"customerId" json:"customerId"`
	DeliveryPersonID *primitive.ObjectID `bson:"deliveryPersonId,omitempty" json:"deliveryPersonId,omitempty"`

	ItemTotal           float64 `bson:"itemTotal" json:"itemTotal"`
	Discount            float64 `bson:"discount,omitempty" json:"discount,omitempty"`
	Subtotal            float64 `bson:"subtotal,omitempty" json:"subtotal,omitempty"`
	DeliveryFee         float64 `bson:"deliveryFee" json:"deliveryFee"` // what the customer paid for delivery
	SmallOrderFee       float64 `bson:"smallOrderFee,omitempty" json:"smallOrderFee,omitempty"`
	DistanceKm          float64 `bson:"distanceKm" json:"distanceKm"`
	Total               float64 `bson:"total" json:"total"`
	DeliveryEarning     float64 `bson:"deliveryEarning,omitempty" json:"deliveryEarning,omitempty"` // stored partner earning; 0 means derive from distance
	Status              OrderStatus `bson:"status" json:"status"`
	PaymentMode         string  `bson:"paymentMode" json:"paymentMode"`
	PaymentStatus       string  `bson:"paymentStatus,omitempty" json:"paymentStatus,omitempty"`
	PaymentRef          string  `bson:"paymentRef,omitempty" json:"paymentRef,omitempty"` // gateway payment id, online orders only

	CODSettled      bool                `bson:"codSettled,omitempty" json:"codSettled,omitempty"`
	CODSettlementID *primitive.ObjectID `bson:"codSettlementId,omitempty" json:"codSettlementId,omitempty"`
	RefundStatus    string              `bson:"refundStatus,omitempty" json:"refundStatus,omitempty"`

	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	DeliveredAt *time.Time `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
}

// IsSettleable reports whether the order contributes to revenue, commission and
// earnings aggregates. Only delivered/completed orders count; the check runs at
// query time so aggregates are always a pure recomputation.
func (o *Order) IsSettleable() bool {
	return o.Status == OrderStatusDelivered || o.Status == OrderStatusCompleted
}

// EffectiveSubtotal returns the order subtotal, falling back to
// total - deliveryFee for historical orders that predate the subtotal field.
func (o *Order) EffectiveSubtotal() float64 {
	if o.Subtotal > 0 {
		return o.Subtotal
	}
	return o.Total - o.DeliveryFee
}

// OrderFilter narrows an order scan. Zero-value fields are ignored.
type OrderFilter struct {
	VendorID         *primitive.ObjectID
	DeliveryPersonID *primitive.ObjectID
	Statuses         []OrderStatus
	PaymentMode      string
	From             *time.Time
	To               *time.Time
}

// SettleableStatuses is the status set used by every financial read path.
var SettleableStatuses = []OrderStatus{OrderStatusDelivered, OrderStatusCompleted}
