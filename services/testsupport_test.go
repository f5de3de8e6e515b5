package services

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/zaikaroot/zaika_backend/models"
)

// In-memory stand-ins for the Mongo repositories. They mirror the repository
// contracts closely enough for the engine tests and are safe for concurrent
// use, which the double-settlement test depends on.

type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[primitive.ObjectID]*models.Order
}

func newFakeOrderStore(orders ...*models.Order) *fakeOrderStore {
	s := &fakeOrderStore{orders: make(map[primitive.ObjectID]*models.Order)}
	for _, o := range orders {
		if o.ID.IsZero() {
			o.ID = primitive.NewObjectID()
		}
		s.orders[o.ID] = o
	}
	return s
}

func (s *fakeOrderStore) ScanOrders(_ context.Context, filter models.OrderFilter) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Order
	for _, o := range s.orders {
		if filter.VendorID != nil && o.VendorID != *filter.VendorID {
			continue
		}
		if filter.DeliveryPersonID != nil && (o.DeliveryPersonID == nil || *o.DeliveryPersonID != *filter.DeliveryPersonID) {
			continue
		}
		if filter.PaymentMode != "" && o.PaymentMode != filter.PaymentMode {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, st := range filter.Statuses {
				if o.Status == st {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *o)
	}
	return out, nil
}

func (s *fakeOrderStore) FindOrder(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *o
	return &copied, nil
}

func (s *fakeOrderStore) FlagCODSettled(_ context.Context, orderIDs []primitive.ObjectID, settlementID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range orderIDs {
		if o, ok := s.orders[id]; ok {
			o.CODSettled = true
			sid := settlementID
			o.CODSettlementID = &sid
		}
	}
	return nil
}

func (s *fakeOrderStore) SetRefundStatus(_ context.Context, orderID primitive.ObjectID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[orderID]; ok {
		o.RefundStatus = status
	}
	return nil
}

type fakeLedgerStore struct {
	mu      sync.Mutex
	entries map[models.LedgerType][]*models.LedgerEntry
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{entries: make(map[models.LedgerType][]*models.LedgerEntry)}
}

func (s *fakeLedgerStore) Append(_ context.Context, ledger models.LedgerType, entry *models.LedgerEntry) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	copied := *entry
	s.entries[ledger] = append(s.entries[ledger], &copied)
	return entry.ID, nil
}

func (s *fakeLedgerStore) ListByParty(_ context.Context, ledger models.LedgerType, partyID primitive.ObjectID) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LedgerEntry
	for i := len(s.entries[ledger]) - 1; i >= 0; i-- {
		if s.entries[ledger][i].PartyID == partyID {
			out = append(out, *s.entries[ledger][i])
		}
	}
	return out, nil
}

func (s *fakeLedgerStore) ListRecent(_ context.Context, ledger models.LedgerType, limit int64) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LedgerEntry
	for i := len(s.entries[ledger]) - 1; i >= 0; i-- {
		out = append(out, *s.entries[ledger][i])
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeLedgerStore) SumCompleted(_ context.Context, ledger models.LedgerType, partyID primitive.ObjectID) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, e := range s.entries[ledger] {
		if e.PartyID == partyID && e.Status == models.LedgerStatusCompleted {
			total += e.Amount
		}
	}
	return total, nil
}

func (s *fakeLedgerStore) FindByRequestID(_ context.Context, ledger models.LedgerType, requestID string) (*models.LedgerEntry, error) {
	if requestID == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries[ledger] {
		if e.RequestID == requestID {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeLedgerStore) FinalizeGatewayEntry(_ context.Context, ledger models.LedgerType, id primitive.ObjectID, status, externalRef, failureNote string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries[ledger] {
		if e.ID == id && e.Status == models.LedgerStatusPending {
			e.Status = status
			if externalRef != "" {
				e.ExternalRef = externalRef
			}
			if failureNote != "" {
				e.FailureNote = failureNote
			}
		}
	}
	return nil
}

func (s *fakeLedgerStore) entry(ledger models.LedgerType, idHex string) *models.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries[ledger] {
		if e.ID.Hex() == idHex {
			copied := *e
			return &copied
		}
	}
	return nil
}

type fakePartyStore struct {
	mu       sync.Mutex
	vendors  map[primitive.ObjectID]*models.Vendor
	partners map[primitive.ObjectID]*models.DeliveryPartner
	changes  []models.CommissionChange
}

func newFakePartyStore() *fakePartyStore {
	return &fakePartyStore{
		vendors:  make(map[primitive.ObjectID]*models.Vendor),
		partners: make(map[primitive.ObjectID]*models.DeliveryPartner),
	}
}

func (s *fakePartyStore) addVendor(v *models.Vendor) *models.Vendor {
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	s.vendors[v.ID] = v
	return v
}

func (s *fakePartyStore) addPartner(p *models.DeliveryPartner) *models.DeliveryPartner {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	s.partners[p.ID] = p
	return p
}

func (s *fakePartyStore) FindVendor(_ context.Context, id primitive.ObjectID) (*models.Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vendors[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *v
	return &copied, nil
}

func (s *fakePartyStore) FindPartner(_ context.Context, id primitive.ObjectID) (*models.DeliveryPartner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partners[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *p
	return &copied, nil
}

func (s *fakePartyStore) ListVendors(_ context.Context) ([]models.Vendor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Vendor
	for _, v := range s.vendors {
		out = append(out, *v)
	}
	return out, nil
}

func (s *fakePartyStore) ListPartners(_ context.Context) ([]models.DeliveryPartner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DeliveryPartner
	for _, p := range s.partners {
		out = append(out, *p)
	}
	return out, nil
}

func (s *fakePartyStore) ApplyPayout(_ context.Context, partyType string, id primitive.ObjectID, amount, pendingAfter float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if partyType == models.PartyVendor {
		if v, ok := s.vendors[id]; ok {
			v.PaidAmount += amount
			v.PendingAmount = pendingAfter
		}
		return nil
	}
	if p, ok := s.partners[id]; ok {
		p.PaidAmount += amount
		p.PendingAmount = pendingAfter
	}
	return nil
}

func (s *fakePartyStore) ApplyCODSettlement(_ context.Context, partnerID primitive.ObjectID, amount, pendingAfter float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.partners[partnerID]; ok {
		p.CODSettledAmount += amount
		p.CODPending = pendingAfter
	}
	return nil
}

func (s *fakePartyStore) SyncVendorBalance(_ context.Context, id primitive.ObjectID, revenue, earnings, paid float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.vendors[id]; ok {
		v.TotalRevenue = revenue
		v.TotalEarnings = earnings
		v.PaidAmount = paid
		v.PendingAmount = earnings - paid
		if v.PendingAmount < 0 {
			v.PendingAmount = 0
		}
	}
	return nil
}

func (s *fakePartyStore) SyncPartnerBalance(_ context.Context, id primitive.ObjectID, earnings, paid, codCollected, codSettled float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.partners[id]; ok {
		p.TotalEarnings = earnings
		p.PaidAmount = paid
		p.CODCollected = codCollected
		p.CODSettledAmount = codSettled
		p.CODPending = codCollected - codSettled
	}
	return nil
}

func (s *fakePartyStore) SetVendorCommission(_ context.Context, vendorID primitive.ObjectID, rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.vendors[vendorID]; ok {
		r := rate
		v.CustomCommission = &r
	}
	return nil
}

func (s *fakePartyStore) AppendCommissionChange(_ context.Context, change *models.CommissionChange) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if change.ID.IsZero() {
		change.ID = primitive.NewObjectID()
	}
	s.changes = append(s.changes, *change)
	return change.ID, nil
}

func (s *fakePartyStore) ListCommissionChanges(_ context.Context, vendorID primitive.ObjectID) ([]models.CommissionChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CommissionChange
	for i := len(s.changes) - 1; i >= 0; i-- {
		if s.changes[i].VendorID == vendorID {
			out = append(out, s.changes[i])
		}
	}
	return out, nil
}

// fakeGateway counts calls and can be told to fail.
type fakeGateway struct {
	mu         sync.Mutex
	configured bool
	failWith   error
	refunds    int
	payouts    int
}

func (g *fakeGateway) Configured() bool { return g.configured }

func (g *fakeGateway) Refund(paymentRef string, amount float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds++
	if g.failWith != nil {
		return "", g.failWith
	}
	return fmt.Sprintf("rfnd_%s_%d", paymentRef, g.refunds), nil
}

func (g *fakeGateway) Payout(name, contact string, bank *models.BankDetails, amount float64, referenceID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payouts++
	if g.failWith != nil {
		return "", g.failWith
	}
	return fmt.Sprintf("pout_%d", g.payouts), nil
}
