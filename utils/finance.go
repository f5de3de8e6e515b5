package utils

import (
	"math"

	"github.com/zaikaroot/zaika_backend/models"
)

// Delivery pricing constants. The customer fee and the partner earning use
// different per-km rates, so the platform usually subsidizes delivery.
const (
	DeliveryBaseFee      = 10.0
	CustomerPerKmRate    = 4.5
	PartnerPerKmRate     = 6.5
)

// OrderEarnings is the per-order financial breakdown used by every aggregate.
type OrderEarnings struct {
	Subtotal        float64
	Commission      float64
	GST             float64
	VendorPayable   float64
	DeliveryFee     float64 // what the customer paid
	PartnerEarning  float64
	DeliveryMargin  float64 // deliveryFee - partnerEarning, may be negative
	PlatformEarning float64
}

// Commission returns the platform commission on a subtotal at the given
// percent rate.
func Commission(subtotal, ratePercent float64) float64 {
	return subtotal * ratePercent / 100
}

// GSTOnCommission returns the GST charged on a commission amount.
func GSTOnCommission(commission float64) float64 {
	return commission * models.GSTRate / 100
}

// PartnerDeliveryEarning returns what a delivery partner earns for a trip of
// the given distance, rounded to the nearest rupee.
func PartnerDeliveryEarning(distanceKm float64) float64 {
	return math.Round(DeliveryBaseFee + distanceKm*PartnerPerKmRate)
}

// CustomerDeliveryFee returns the delivery fee charged to the customer for a
// trip of the given distance, rounded to the nearest rupee.
func CustomerDeliveryFee(distanceKm float64) float64 {
	return math.Round(DeliveryBaseFee + distanceKm*CustomerPerKmRate)
}

// ComputeOrderEarnings breaks one order down at the given commission rate
// (percent). The subtotal falls back to total - deliveryFee for orders that
// predate the subtotal field. The stored partner earning is used when present;
// otherwise it is derived from the trip distance.
func ComputeOrderEarnings(o *models.Order, ratePercent float64) OrderEarnings {
	subtotal := o.EffectiveSubtotal()
	commission := Commission(subtotal, ratePercent)
	gst := GSTOnCommission(commission)

	partnerEarning := o.DeliveryEarning
	if partnerEarning == 0 {
		partnerEarning = PartnerDeliveryEarning(o.DistanceKm)
	}
	// Margin is allowed to go negative: delivery is typically subsidized.
	margin := o.DeliveryFee - partnerEarning

	return OrderEarnings{
		Subtotal:        subtotal,
		Commission:      commission,
		GST:             gst,
		VendorPayable:   subtotal - commission - gst,
		DeliveryFee:     o.DeliveryFee,
		PartnerEarning:  partnerEarning,
		DeliveryMargin:  margin,
		PlatformEarning: commission + gst + o.SmallOrderFee + margin,
	}
}
