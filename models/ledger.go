package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LedgerType selects one of the three append-only ledgers.
type LedgerType string

const (
	LedgerCODSettlement LedgerType = "codSettlements"
	LedgerPayout        LedgerType = "payouts"
	LedgerRefund        LedgerType = "refunds"
)

// Ledger entry statuses
const (
	LedgerStatusPending   = "pending"
	LedgerStatusCompleted = "completed"
	LedgerStatusFailed    = "failed"
)

// Settlement / payout methods
const (
	MethodCash         = "cash"
	MethodBankTransfer = "bank_transfer"
	MethodUPI          = "upi"
	MethodGateway      = "gateway"
	MethodManual       = "manual"
)

// Party types recorded on ledger entries
const (
	PartyVendor          = "vendor"
	PartyDeliveryPartner = "delivery_partner"
	PartyCustomer        = "customer"
)

// LedgerEntry is one immutable record in a settlement, payout or refund ledger.
// Entries are never updated or deleted; corrections are made by appending a
// reversing entry. The sum of completed amounts per party, per ledger, is the
// authoritative paid/settled figure.
type LedgerEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PartyID   primitive.ObjectID `bson:"partyId" json:"partyId"`
	PartyType string             `bson:"partyType" json:"partyType"`
	PartyName string             `bson:"partyName,omitempty" json:"partyName,omitempty"` // denormalized for display
	Amount    float64            `bson:"amount" json:"amount"`
	Method    string             `bson:"method" json:"method"`
	Status    string             `bson:"status" json:"status"`

	// ReceiptID is a human-facing receipt number; RequestID is the caller's
	// idempotency key, indexed sparse-unique per ledger.
	ReceiptID string `bson:"receiptId,omitempty" json:"receiptId,omitempty"`
	RequestID string `bson:"requestId,omitempty" json:"requestId,omitempty"`

	// ExternalRef holds the gateway transaction id for gateway flows.
	ExternalRef string `bson:"externalRef,omitempty" json:"externalRef,omitempty"`

	// OrderIDs lists the orders a COD settlement discharges. For refunds the
	// single refunded order is stored here as well.
	OrderIDs []primitive.ObjectID `bson:"orderIds,omitempty" json:"orderIds,omitempty"`

	Notes       string     `bson:"notes,omitempty" json:"notes,omitempty"`
	FailureNote string     `bson:"failureNote,omitempty" json:"failureNote,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	ProcessedAt *time.Time `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
}
