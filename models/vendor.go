package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vendor represents a restaurant/store on the platform. The balance fields
// (totalRevenue, totalEarnings, paidAmount, pendingAmount) are a cached
// projection over orders and the payouts ledger; read paths recompute them and
// the ledger always wins on a discrepancy.
type Vendor struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BusinessName string             `bson:"businessName" json:"businessName"`
	Email        string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Active       bool               `bson:"active" json:"active"`

	// CustomCommission overrides the platform default rate when set (percent, 0-100).
	CustomCommission *float64 `bson:"customCommission,omitempty" json:"customCommission,omitempty"`

	TotalRevenue  float64 `bson:"totalRevenue,omitempty" json:"totalRevenue"`
	TotalEarnings float64 `bson:"totalEarnings,omitempty" json:"totalEarnings"`
	PaidAmount    float64 `bson:"paidAmount,omitempty" json:"paidAmount"`
	PendingAmount float64 `bson:"pendingAmount,omitempty" json:"pendingAmount"`

	BankDetails *BankDetails `bson:"bankDetails,omitempty" json:"bankDetails,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// BankDetails holds payout destination details for a party.
type BankDetails struct {
	AccountHolder string `bson:"accountHolder,omitempty" json:"accountHolder,omitempty"`
	AccountNumber string `bson:"accountNumber,omitempty" json:"accountNumber,omitempty"`
	IFSC          string `bson:"ifsc,omitempty" json:"ifsc,omitempty"`
	UpiID         string `bson:"upiId,omitempty" json:"upiId,omitempty"`
}
