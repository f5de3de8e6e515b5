package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeliveryPartner represents a delivery person. CODCollected/CODSettledAmount
// and the earnings fields are cached projections like the vendor balance fields;
// validation always recomputes from orders plus the ledgers.
type DeliveryPartner struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName string             `bson:"fullName" json:"fullName"`
	Email    string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone    string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Active   bool               `bson:"active" json:"active"`

	TotalEarnings float64 `bson:"totalEarnings,omitempty" json:"totalEarnings"`
	PaidAmount    float64 `bson:"paidAmount,omitempty" json:"paidAmount"`
	PendingAmount float64 `bson:"pendingAmount,omitempty" json:"pendingAmount"`

	CODCollected     float64 `bson:"codCollected,omitempty" json:"codCollected"`
	CODSettledAmount float64 `bson:"codSettledAmount,omitempty" json:"codSettledAmount"`
	CODPending       float64 `bson:"codPending,omitempty" json:"codPending"`

	BankDetails *BankDetails `bson:"bankDetails,omitempty" json:"bankDetails,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}
