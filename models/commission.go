package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Platform-wide default rates. Commission applies on the order subtotal; GST
// applies on the commission amount, not on the order itself.
const (
	DefaultCommissionRate = 15.0 // percent of subtotal
	GSTRate               = 18.0 // percent of commission
)

// CommissionChange is one append-only audit record of a vendor commission
// override. Exactly one rate is effective per vendor at any instant: the
// vendor's customCommission if set, else the platform default.
type CommissionChange struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VendorID     primitive.ObjectID `bson:"vendorId" json:"vendorId"`
	PreviousRate float64            `bson:"previousRate" json:"previousRate"`
	NewRate      float64            `bson:"newRate" json:"newRate"`
	Reason       string             `bson:"reason" json:"reason"`
	ChangedBy    string             `bson:"changedBy,omitempty" json:"changedBy,omitempty"`
	ChangedAt    time.Time          `bson:"changedAt" json:"changedAt"`
}

// EffectiveCommissionRate returns the rate in effect for a vendor (percent).
func EffectiveCommissionRate(v *Vendor) float64 {
	if v != nil && v.CustomCommission != nil {
		return *v.CustomCommission
	}
	return DefaultCommissionRate
}
