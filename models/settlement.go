package models

// CODSettlementRequest records cash handed over by a delivery partner.
type CODSettlementRequest struct {
	PartnerID string   `json:"partnerId" validate:"required"`
	Amount    float64  `json:"amount" validate:"required"`
	Method    string   `json:"method" validate:"required,oneof=cash bank_transfer upi"`
	OrderIDs  []string `json:"orderIds,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	RequestID string   `json:"requestId,omitempty"` // idempotency key
}

// PayoutRequest records a payout to a vendor or delivery partner.
type PayoutRequest struct {
	PartyID   string  `json:"partyId" validate:"required"`
	PartyType string  `json:"partyType" validate:"required,oneof=vendor delivery_partner"`
	Amount    float64 `json:"amount" validate:"required"`
	Method    string  `json:"method" validate:"required,oneof=cash bank_transfer upi gateway"`
	UpiID     string  `json:"upiId,omitempty"`
	Notes     string  `json:"notes,omitempty"`
	RequestID string  `json:"requestId,omitempty"`

	BankDetails *BankDetails `json:"bankDetails,omitempty"`
}

// RefundRequest returns money to a customer for one order.
type RefundRequest struct {
	OrderID    string  `json:"orderId" validate:"required"`
	Amount     float64 `json:"amount" validate:"required"`
	Reason     string  `json:"reason,omitempty"`
	RefundType string  `json:"refundType,omitempty"` // "full" or "partial"
	RequestID  string  `json:"requestId,omitempty"`
}

// CommissionRateRequest changes a vendor's commission override.
type CommissionRateRequest struct {
	Rate   float64 `json:"rate"`
	Reason string  `json:"reason" validate:"required"`
}

// SettlementResult is returned by every mutating settlement operation.
type SettlementResult struct {
	LedgerID    string `json:"ledgerId"`
	ReceiptID   string `json:"receiptId,omitempty"`
	Status      string `json:"status"`
	ExternalRef string `json:"externalRef,omitempty"`
	Replayed    bool   `json:"replayed,omitempty"` // true when an idempotent retry returned the original entry
}
