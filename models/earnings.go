package models

import "time"

// WindowTotals holds the platform totals for one time window.
type WindowTotals struct {
	Orders          int     `json:"orders"`
	Revenue         float64 `json:"revenue"`
	Commission      float64 `json:"commission"`
	GST             float64 `json:"gst"`
	DeliveryMargin  float64 `json:"deliveryMargin"`
	PlatformEarning float64 `json:"platformEarning"`
}

// TrendPoint is one bucket of the revenue trend series. Key is a local
// calendar date ("2006-01-02") or month ("2006-01").
type TrendPoint struct {
	Key             string  `json:"key"`
	Orders          int     `json:"orders"`
	Revenue         float64 `json:"revenue"`
	PlatformEarning float64 `json:"platformEarning"`
}

// VendorTotals is the per-vendor projection of one aggregation pass.
type VendorTotals struct {
	VendorID       string    `json:"vendorId"`
	VendorName     string    `json:"vendorName,omitempty"`
	Orders         int       `json:"orders"`
	Revenue        float64   `json:"revenue"`
	Commission     float64   `json:"commission"`
	GST            float64   `json:"gst"`
	VendorPayable  float64   `json:"vendorPayable"`
	CommissionRate float64   `json:"commissionRate"`
	LastOrderAt    time.Time `json:"lastOrderAt,omitempty"`
}

// PartnerTotals is the per-delivery-partner projection of one aggregation pass.
type PartnerTotals struct {
	PartnerID    string    `json:"partnerId"`
	PartnerName  string    `json:"partnerName,omitempty"`
	Orders       int       `json:"orders"`
	Earnings     float64   `json:"earnings"`
	CODCollected float64   `json:"codCollected"`
	LastOrderAt  time.Time `json:"lastOrderAt,omitempty"`
}

// EarningsSummary is the output of a single aggregation fold. Every view shown
// together on the dashboard comes from the same pass over the same snapshot.
type EarningsSummary struct {
	AsOf time.Time `json:"asOf"`

	Today   WindowTotals `json:"today"`
	Week    WindowTotals `json:"week"`
	Month   WindowTotals `json:"month"`
	AllTime WindowTotals `json:"allTime"`

	// SkippedFromWindows counts orders with unusable timestamps; they are in
	// AllTime but absent from the dated windows and trends.
	SkippedFromWindows int `json:"skippedFromWindows,omitempty"`

	DailyTrend   []TrendPoint `json:"dailyTrend,omitempty"`
	MonthlyTrend []TrendPoint `json:"monthlyTrend,omitempty"`

	Vendors  []VendorTotals  `json:"vendors,omitempty"`
	Partners []PartnerTotals `json:"partners,omitempty"`
}

// PendingBalance reports a party's live reconciled position. Pending values are
// clamped for display; the Unclamped fields keep the signed value so an
// overpayment shows up as an anomaly instead of disappearing.
type PendingBalance struct {
	PartyID          string  `json:"partyId"`
	Earned           float64 `json:"earned"`
	Paid             float64 `json:"paid"`
	Pending          float64 `json:"pending"`
	UnclampedPending float64 `json:"unclampedPending"`
	Overpaid         bool    `json:"overpaid,omitempty"`
}

// CODBalance reports a delivery partner's live COD position.
type CODBalance struct {
	PartnerID        string  `json:"partnerId"`
	Collected        float64 `json:"collected"`
	Settled          float64 `json:"settled"`
	Pending          float64 `json:"pending"`
	UnclampedPending float64 `json:"unclampedPending"`
	UnsettledOrders  int     `json:"unsettledOrders"`
}
