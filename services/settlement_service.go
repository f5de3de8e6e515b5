package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/zaikaroot/zaika_backend/models"
	"github.com/zaikaroot/zaika_backend/repositories"
	"github.com/zaikaroot/zaika_backend/utils"
)

// Two float rupee amounts within half a paisa are the same amount.
const amountEpsilon = 0.005

// SettlementService is the single write path for money movements. Every
// mutation revalidates against a freshly recomputed pending amount while
// holding a per-party lock, appends a ledger entry, then updates the cached
// balance projection. The ledger sum stays the source of truth throughout.
type SettlementService struct {
	orders  repositories.OrderStore
	ledgers repositories.LedgerStore
	parties repositories.PartyStore
	gateway PaymentGateway

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSettlementService(orders repositories.OrderStore, ledgers repositories.LedgerStore, parties repositories.PartyStore, gateway PaymentGateway) *SettlementService {
	return &SettlementService{
		orders:  orders,
		ledgers: ledgers,
		parties: parties,
		gateway: gateway,
		locks:   make(map[string]*sync.Mutex),
	}
}

// lockKey serializes settlements per (ledger, party): at most one request may
// pass validation for a given pair at a time. Reads for other parties and all
// aggregation stay unaffected.
func (s *SettlementService) lockKey(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func notFoundErr(err error) error {
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	return err
}

// CODBalanceFor recomputes a delivery partner's live COD position from the
// settleable COD orders assigned to them and the completed settlement entries.
// The cached fields on the partner record are display only and never trusted
// for validation.
func (s *SettlementService) CODBalanceFor(ctx context.Context, partnerID primitive.ObjectID) (*models.CODBalance, []models.Order, error) {
	orders, err := s.orders.ScanOrders(ctx, models.OrderFilter{
		DeliveryPersonID: &partnerID,
		Statuses:         models.SettleableStatuses,
		PaymentMode:      models.PaymentModeCOD,
	})
	if err != nil {
		return nil, nil, err
	}

	var collected float64
	var unsettled []models.Order
	for _, o := range orders {
		collected += o.Total
		if !o.CODSettled {
			unsettled = append(unsettled, o)
		}
	}

	settled, err := s.ledgers.SumCompleted(ctx, models.LedgerCODSettlement, partnerID)
	if err != nil {
		return nil, nil, err
	}

	pending := collected - settled
	balance := &models.CODBalance{
		PartnerID:        partnerID.Hex(),
		Collected:        collected,
		Settled:          settled,
		UnclampedPending: pending,
		Pending:          pending,
		UnsettledOrders:  len(unsettled),
	}
	if balance.Pending < 0 {
		balance.Pending = 0
	}
	return balance, unsettled, nil
}

// PayoutBalanceFor recomputes what a party has earned and what has been paid.
// The unclamped pending value is preserved so an overpayment surfaces as an
// anomaly instead of silently clamping to zero.
func (s *SettlementService) PayoutBalanceFor(ctx context.Context, partyType string, partyID primitive.ObjectID) (*models.PendingBalance, error) {
	var earned float64

	switch partyType {
	case models.PartyVendor:
		vendor, err := s.parties.FindVendor(ctx, partyID)
		if err != nil {
			return nil, notFoundErr(err)
		}
		rate := models.EffectiveCommissionRate(vendor)
		orders, err := s.orders.ScanOrders(ctx, models.OrderFilter{
			VendorID: &partyID,
			Statuses: models.SettleableStatuses,
		})
		if err != nil {
			return nil, err
		}
		var revenue float64
		for i := range orders {
			e := utils.ComputeOrderEarnings(&orders[i], rate)
			earned += e.VendorPayable
			revenue += e.Subtotal
		}
		paid, err := s.ledgers.SumCompleted(ctx, models.LedgerPayout, partyID)
		if err != nil {
			return nil, err
		}
		s.reconcileVendorCache(ctx, vendor, revenue, earned, paid)
		return buildPendingBalance(partyID, earned, paid), nil

	case models.PartyDeliveryPartner:
		partner, err := s.parties.FindPartner(ctx, partyID)
		if err != nil {
			return nil, notFoundErr(err)
		}
		orders, err := s.orders.ScanOrders(ctx, models.OrderFilter{
			DeliveryPersonID: &partyID,
			Statuses:         models.SettleableStatuses,
		})
		if err != nil {
			return nil, err
		}
		var codCollected float64
		for i := range orders {
			e := utils.ComputeOrderEarnings(&orders[i], models.DefaultCommissionRate)
			earned += e.PartnerEarning
			if orders[i].PaymentMode == models.PaymentModeCOD {
				codCollected += orders[i].Total
			}
		}
		paid, err := s.ledgers.SumCompleted(ctx, models.LedgerPayout, partyID)
		if err != nil {
			return nil, err
		}
		codSettled, err := s.ledgers.SumCompleted(ctx, models.LedgerCODSettlement, partyID)
		if err != nil {
			return nil, err
		}
		s.reconcilePartnerCache(ctx, partner, earned, paid, codCollected, codSettled)
		return buildPendingBalance(partyID, earned, paid), nil
	}

	return nil, validationErr("unknown party type %q", partyType)
}

func buildPendingBalance(partyID primitive.ObjectID, earned, paid float64) *models.PendingBalance {
	pending := earned - paid
	b := &models.PendingBalance{
		PartyID:          partyID.Hex(),
		Earned:           earned,
		Paid:             paid,
		UnclampedPending: pending,
		Pending:          pending,
		Overpaid:         pending < -amountEpsilon,
	}
	if b.Pending < 0 {
		b.Pending = 0
	}
	return b
}

// reconcileVendorCache rewrites the cached projection when it has drifted from
// the recomputed figures. The ledger wins; failures here only cost freshness.
func (s *SettlementService) reconcileVendorCache(ctx context.Context, vendor *models.Vendor, revenue, earnings, paid float64) {
	if almost(vendor.TotalEarnings, earnings) && almost(vendor.PaidAmount, paid) && almost(vendor.TotalRevenue, revenue) {
		return
	}
	if err := s.parties.SyncVendorBalance(ctx, vendor.ID, revenue, earnings, paid); err != nil {
		log.Printf("Failed to reconcile vendor %s balance cache: %v", vendor.ID.Hex(), err)
	}
}

func (s *SettlementService) reconcilePartnerCache(ctx context.Context, partner *models.DeliveryPartner, earnings, paid, codCollected, codSettled float64) {
	if almost(partner.TotalEarnings, earnings) && almost(partner.PaidAmount, paid) &&
		almost(partner.CODCollected, codCollected) && almost(partner.CODSettledAmount, codSettled) {
		return
	}
	if err := s.parties.SyncPartnerBalance(ctx, partner.ID, earnings, paid, codCollected, codSettled); err != nil {
		log.Printf("Failed to reconcile partner %s balance cache: %v", partner.ID.Hex(), err)
	}
}

func almost(a, b float64) bool {
	d := a - b
	return d < amountEpsilon && d > -amountEpsilon
}

// RecordCODSettlement records cash handed over by a delivery partner. The
// amount must not exceed the freshly recomputed pending COD; the listed orders
// are flagged settled against the new ledger entry.
func (s *SettlementService) RecordCODSettlement(ctx context.Context, req *models.CODSettlementRequest) (*models.SettlementResult, error) {
	if req.Amount <= 0 {
		return nil, validationErr("amount must be greater than zero")
	}
	partnerID, err := primitive.ObjectIDFromHex(req.PartnerID)
	if err != nil {
		return nil, validationErr("invalid partner id")
	}
	orderIDs, err := parseObjectIDs(req.OrderIDs)
	if err != nil {
		return nil, validationErr("invalid order id in request")
	}

	unlock := s.lockKey(string(models.LedgerCODSettlement) + ":" + req.PartnerID)
	defer unlock()

	if result, err := s.replayed(ctx, models.LedgerCODSettlement, req.RequestID); result != nil || err != nil {
		return result, err
	}

	partner, err := s.parties.FindPartner(ctx, partnerID)
	if err != nil {
		return nil, notFoundErr(err)
	}

	balance, _, err := s.CODBalanceFor(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	if req.Amount > balance.Pending+amountEpsilon {
		return nil, ErrLimitExceeded
	}

	now := time.Now()
	entry := &models.LedgerEntry{
		PartyID:     partnerID,
		PartyType:   models.PartyDeliveryPartner,
		PartyName:   partner.FullName,
		Amount:      req.Amount,
		Method:      req.Method,
		Status:      models.LedgerStatusCompleted,
		ReceiptID:   uuid.NewString(),
		RequestID:   req.RequestID,
		OrderIDs:    orderIDs,
		Notes:       req.Notes,
		CreatedAt:   now,
		ProcessedAt: &now,
	}
	entryID, err := s.ledgers.Append(ctx, models.LedgerCODSettlement, entry)
	if err != nil {
		return nil, err
	}

	if err := s.orders.FlagCODSettled(ctx, orderIDs, entryID); err != nil {
		// The ledger entry already exists and is the source of truth; the
		// flags converge on the next reconciliation pass.
		log.Printf("Failed to flag %d orders for settlement %s: %v", len(orderIDs), entryID.Hex(), err)
	}
	pendingAfter := balance.Pending - req.Amount
	if err := s.parties.ApplyCODSettlement(ctx, partnerID, req.Amount, pendingAfter); err != nil {
		log.Printf("Failed to update partner %s COD projection: %v", req.PartnerID, err)
	}

	return &models.SettlementResult{
		LedgerID:  entryID.Hex(),
		ReceiptID: entry.ReceiptID,
		Status:    entry.Status,
	}, nil
}

// RecordPayout records a payout to a vendor or delivery partner. Manual
// methods complete immediately; the gateway method appends a pending entry,
// attempts the transfer, and finalizes the entry with the outcome. Absent
// gateway credentials the payout degrades to a manual record rather than
// failing.
func (s *SettlementService) RecordPayout(ctx context.Context, req *models.PayoutRequest) (*models.SettlementResult, error) {
	if req.Amount <= 0 {
		return nil, validationErr("amount must be greater than zero")
	}
	if req.PartyType != models.PartyVendor && req.PartyType != models.PartyDeliveryPartner {
		return nil, validationErr("unknown party type %q", req.PartyType)
	}
	partyID, err := primitive.ObjectIDFromHex(req.PartyID)
	if err != nil {
		return nil, validationErr("invalid party id")
	}

	name, contact, bank, err := s.payoutDestination(ctx, req)
	if err != nil {
		return nil, err
	}

	unlock := s.lockKey(string(models.LedgerPayout) + ":" + req.PartyID)
	defer unlock()

	if result, err := s.replayed(ctx, models.LedgerPayout, req.RequestID); result != nil || err != nil {
		return result, err
	}

	balance, err := s.PayoutBalanceFor(ctx, req.PartyType, partyID)
	if err != nil {
		return nil, err
	}
	if req.Amount > balance.Pending+amountEpsilon {
		return nil, ErrLimitExceeded
	}

	method := req.Method
	viaGateway := method == models.MethodGateway && s.gateway.Configured()
	if method == models.MethodGateway && !viaGateway {
		// Deliberate degraded mode: no credentials, record manually.
		method = models.MethodManual
	}

	now := time.Now()
	entry := &models.LedgerEntry{
		PartyID:   partyID,
		PartyType: req.PartyType,
		PartyName: name,
		Amount:    req.Amount,
		Method:    method,
		Status:    models.LedgerStatusCompleted,
		ReceiptID: uuid.NewString(),
		RequestID: req.RequestID,
		Notes:     req.Notes,
		CreatedAt: now,
	}
	if viaGateway {
		entry.Status = models.LedgerStatusPending
	} else {
		entry.ProcessedAt = &now
	}

	entryID, err := s.ledgers.Append(ctx, models.LedgerPayout, entry)
	if err != nil {
		return nil, err
	}
	result := &models.SettlementResult{
		LedgerID:  entryID.Hex(),
		ReceiptID: entry.ReceiptID,
		Status:    entry.Status,
	}

	if viaGateway {
		// A timeout is an unknown outcome: record failed, never assume
		// success, so a fresh retry cannot double-pay past validation.
		externalRef, gwErr := s.gateway.Payout(name, contact, bank, req.Amount, entry.ReceiptID)
		if gwErr != nil {
			if err := s.ledgers.FinalizeGatewayEntry(ctx, models.LedgerPayout, entryID, models.LedgerStatusFailed, "", gwErr.Error()); err != nil {
				log.Printf("Failed to finalize payout entry %s: %v", entryID.Hex(), err)
			}
			result.Status = models.LedgerStatusFailed
			return result, &GatewayError{Op: "payout", Err: gwErr}
		}
		if err := s.ledgers.FinalizeGatewayEntry(ctx, models.LedgerPayout, entryID, models.LedgerStatusCompleted, externalRef, ""); err != nil {
			log.Printf("Failed to finalize payout entry %s: %v", entryID.Hex(), err)
		}
		result.Status = models.LedgerStatusCompleted
		result.ExternalRef = externalRef
	}

	pendingAfter := balance.Pending - req.Amount
	if err := s.parties.ApplyPayout(ctx, req.PartyType, partyID, req.Amount, pendingAfter); err != nil {
		log.Printf("Failed to update %s %s payout projection: %v", req.PartyType, req.PartyID, err)
	}
	return result, nil
}

// payoutDestination resolves who is being paid and where the money goes, and
// rejects method/detail mismatches before anything is written.
func (s *SettlementService) payoutDestination(ctx context.Context, req *models.PayoutRequest) (name, contact string, bank *models.BankDetails, err error) {
	partyID, _ := primitive.ObjectIDFromHex(req.PartyID)

	switch req.PartyType {
	case models.PartyVendor:
		vendor, ferr := s.parties.FindVendor(ctx, partyID)
		if ferr != nil {
			return "", "", nil, notFoundErr(ferr)
		}
		name, contact, bank = vendor.BusinessName, vendor.Phone, vendor.BankDetails
	default:
		partner, ferr := s.parties.FindPartner(ctx, partyID)
		if ferr != nil {
			return "", "", nil, notFoundErr(ferr)
		}
		name, contact, bank = partner.FullName, partner.Phone, partner.BankDetails
	}

	// Request-supplied details override the stored ones.
	if req.BankDetails != nil {
		bank = req.BankDetails
	}
	if req.UpiID != "" {
		if bank == nil {
			bank = &models.BankDetails{}
		}
		bank.UpiID = req.UpiID
	}

	switch req.Method {
	case models.MethodUPI:
		if bank == nil || bank.UpiID == "" {
			return "", "", nil, validationErr("UPI payout requires a UPI id")
		}
	case models.MethodBankTransfer:
		if bank == nil || bank.AccountNumber == "" || bank.IFSC == "" {
			return "", "", nil, validationErr("bank transfer requires an account number and IFSC")
		}
	case models.MethodGateway:
		if bank == nil || (bank.UpiID == "" && (bank.AccountNumber == "" || bank.IFSC == "")) {
			return "", "", nil, validationErr("gateway payout requires a UPI id or bank account on record")
		}
	}
	return name, contact, bank, nil
}

// ProcessRefund returns money to the customer for one order. COD orders are
// refunded by ledger entry alone (the customer was never charged online);
// online orders go through the gateway, and a gateway failure is recorded as a
// failed entry with the order left untouched.
func (s *SettlementService) ProcessRefund(ctx context.Context, req *models.RefundRequest) (*models.SettlementResult, error) {
	if req.Amount <= 0 {
		return nil, validationErr("amount must be greater than zero")
	}
	orderID, err := primitive.ObjectIDFromHex(req.OrderID)
	if err != nil {
		return nil, validationErr("invalid order id")
	}

	unlock := s.lockKey(string(models.LedgerRefund) + ":" + req.OrderID)
	defer unlock()

	if result, err := s.replayed(ctx, models.LedgerRefund, req.RequestID); result != nil || err != nil {
		return result, err
	}

	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		return nil, notFoundErr(err)
	}
	if order.RefundStatus == models.RefundStatusRefunded {
		return nil, ErrAlreadyRefunded
	}
	if req.Amount > order.Total+amountEpsilon {
		return nil, validationErr("refund amount exceeds order total")
	}

	notes := req.Reason
	if req.RefundType != "" {
		notes = req.RefundType + " refund: " + notes
	}
	now := time.Now()
	entry := &models.LedgerEntry{
		PartyID:   order.CustomerID,
		PartyType: models.PartyCustomer,
		Amount:    req.Amount,
		Status:    models.LedgerStatusCompleted,
		Method:    models.MethodManual,
		ReceiptID: uuid.NewString(),
		RequestID: req.RequestID,
		OrderIDs:  []primitive.ObjectID{orderID},
		Notes:     notes,
		CreatedAt: now,
	}

	if order.PaymentMode != models.PaymentModeOnline {
		// Cash order: nothing to reverse at the gateway.
		entry.ProcessedAt = &now
		entryID, err := s.ledgers.Append(ctx, models.LedgerRefund, entry)
		if err != nil {
			return nil, err
		}
		if err := s.orders.SetRefundStatus(ctx, orderID, models.RefundStatusRefunded); err != nil {
			log.Printf("Failed to mark order %s refunded: %v", req.OrderID, err)
		}
		return &models.SettlementResult{
			LedgerID:  entryID.Hex(),
			ReceiptID: entry.ReceiptID,
			Status:    entry.Status,
		}, nil
	}

	if order.PaymentRef == "" {
		return nil, validationErr("online order has no payment reference to refund against")
	}

	entry.Method = models.MethodGateway
	entry.Status = models.LedgerStatusPending
	entryID, err := s.ledgers.Append(ctx, models.LedgerRefund, entry)
	if err != nil {
		return nil, err
	}
	result := &models.SettlementResult{
		LedgerID:  entryID.Hex(),
		ReceiptID: entry.ReceiptID,
	}

	externalRef, gwErr := s.gateway.Refund(order.PaymentRef, req.Amount)
	if gwErr != nil {
		if err := s.ledgers.FinalizeGatewayEntry(ctx, models.LedgerRefund, entryID, models.LedgerStatusFailed, "", gwErr.Error()); err != nil {
			log.Printf("Failed to finalize refund entry %s: %v", entryID.Hex(), err)
		}
		result.Status = models.LedgerStatusFailed
		return result, &GatewayError{Op: "refund", Err: gwErr}
	}

	if err := s.ledgers.FinalizeGatewayEntry(ctx, models.LedgerRefund, entryID, models.LedgerStatusCompleted, externalRef, ""); err != nil {
		log.Printf("Failed to finalize refund entry %s: %v", entryID.Hex(), err)
	}
	if err := s.orders.SetRefundStatus(ctx, orderID, models.RefundStatusRefunded); err != nil {
		log.Printf("Failed to mark order %s refunded: %v", req.OrderID, err)
	}
	result.Status = models.LedgerStatusCompleted
	result.ExternalRef = externalRef
	return result, nil
}

// SetCommissionRate changes a vendor's commission override and appends the
// audit record. Rates are percentages in [0, 100].
func (s *SettlementService) SetCommissionRate(ctx context.Context, vendorIDHex string, rate float64, reason, changedBy string) (*models.CommissionChange, error) {
	if rate < 0 || rate > 100 {
		return nil, validationErr("commission rate must be between 0 and 100")
	}
	if reason == "" {
		return nil, validationErr("a reason is required for commission changes")
	}
	vendorID, err := primitive.ObjectIDFromHex(vendorIDHex)
	if err != nil {
		return nil, validationErr("invalid vendor id")
	}

	vendor, err := s.parties.FindVendor(ctx, vendorID)
	if err != nil {
		return nil, notFoundErr(err)
	}

	change := &models.CommissionChange{
		VendorID:     vendorID,
		PreviousRate: models.EffectiveCommissionRate(vendor),
		NewRate:      rate,
		Reason:       reason,
		ChangedBy:    changedBy,
		ChangedAt:    time.Now(),
	}
	if _, err := s.parties.AppendCommissionChange(ctx, change); err != nil {
		return nil, err
	}
	if err := s.parties.SetVendorCommission(ctx, vendorID, rate); err != nil {
		return nil, err
	}
	return change, nil
}

// replayed returns the original result when the caller resubmits a request id
// that already produced a ledger entry.
func (s *SettlementService) replayed(ctx context.Context, ledger models.LedgerType, requestID string) (*models.SettlementResult, error) {
	if requestID == "" {
		return nil, nil
	}
	entry, err := s.ledgers.FindByRequestID(ctx, ledger, requestID)
	if err != nil || entry == nil {
		return nil, err
	}
	return &models.SettlementResult{
		LedgerID:    entry.ID.Hex(),
		ReceiptID:   entry.ReceiptID,
		Status:      entry.Status,
		ExternalRef: entry.ExternalRef,
		Replayed:    true,
	}, nil
}

func parseObjectIDs(hexes []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
