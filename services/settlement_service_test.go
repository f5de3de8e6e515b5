package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/zaikaroot/zaika_backend/models"
)

func codOrder(partnerID primitive.ObjectID, total float64) *models.Order {
	return &models.Order{
		ID:               primitive.NewObjectID(),
		VendorID:         primitive.NewObjectID(),
		CustomerID:       primitive.NewObjectID(),
		DeliveryPersonID: &partnerID,
		Status:           models.OrderStatusDelivered,
		PaymentMode:      models.PaymentModeCOD,
		Subtotal:         total - 40,
		DeliveryFee:      40,
		Total:            total,
		DistanceKm:       3,
	}
}

// A partner with 5000 collected and nothing settled: 6000 is rejected, 5000
// succeeds and leaves zero pending.
func TestCODSettlementBound(t *testing.T) {
	ctx := context.Background()
	parties := newFakePartyStore()
	partner := parties.addPartner(&models.DeliveryPartner{FullName: "Ramesh K"})

	orders := newFakeOrderStore(
		codOrder(partner.ID, 2000),
		codOrder(partner.ID, 3000),
	)
	ledgers := newFakeLedgerStore()
	svc := NewSettlementService(orders, ledgers, parties, &fakeGateway{})

	_, err := svc.RecordCODSettlement(ctx, &models.CODSettlementRequest{
		PartnerID: partner.ID.Hex(),
		Amount:    6000,
		Method:    models.MethodCash,
	})
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("6000 against 5000 pending: got %v, want ErrLimitExceeded", err)
	}

	result, err := svc.RecordCODSettlement(ctx, &models.CODSettlementRequest{
		PartnerID: partner.ID.Hex(),
		Amount:    5000,
		Method:    models.MethodCash,
	})
	if err != nil {
		t.Fatalf("5000 against 5000 pending: %v", err)
	}
	if result.Status != models.LedgerStatusCompleted {
		t.Errorf("status: got %s, want completed", result.Status)
	}
	if result.ReceiptID == "" {
		t.Error("expected a receipt id")
	}

	balance, _, err := svc.CODBalanceFor(ctx, partner.ID)
	if err != nil {
		t.Fatal(err)
	}
	if balance.Pending != 0 {
		t.Errorf("pending after full settlement: got %v, want 0", balance.Pending)
	}
}

// Two concurrent 3000 settlements against 5000 pending: exactly one wins.
func TestConcurrentSettlementsOneWins(t *testing.T) {
	ctx := context.Background()
	parties := newFakePartyStore()
	partner := parties.addPartner(&models.DeliveryPartner{FullName: "Ramesh K"})

	orders := newFakeOrderStore(
		codOrder(partner.ID, 2500),
		codOrder(partner.ID, 2500),
	)
	ledgers := newFakeLedgerStore()
	svc := NewSettlementService(orders, ledgers, parties, &fakeGateway{})

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.RecordCODSettlement(ctx, &models.CODSettlementRequest{
				PartnerID: partner.ID.Hex(),
				Amount:    3000,
				Method:    models.MethodCash,
			})
		}(i)
	}
	wg.Wait()

	var ok, limited int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrLimitExceeded):
			limited++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || limited != 1 {
		t.Fatalf("got %d successes and %d rejections, want exactly 1 and 1", ok, limited)
	}

	settled, _ := ledgers.SumCompleted(ctx, models.LedgerCODSettlement, partner.ID)
	if settled != 3000 {
		t.Errorf("settled total: got %v, want 3000", settled)
	}
}

// Orders listed on a settlement get flagged against the new ledger entry.
func TestCODSettlementFlagsOrders(t *testing.T) {
	ctx := context.Background()
	parties := newFakePartyStore()
	partner := parties.addPartner(&models.DeliveryPartner{FullName: "Ramesh K"})

	o1 := codOrder(partner.ID, 1200)
	o2 := codOrder(partner.ID, 800)
	orders := newFakeOrderStore(o1, o2)
	ledgers := newFakeLedgerStore()
	svc := NewSettlementService(orders, ledgers, parties, &fakeGateway{})

	result, err := svc.RecordCODSettlement(ctx, &models.CODSettlementRequest{
		PartnerID: partner.ID.Hex(),
		Amount:    2000,
		Method:    models.MethodBankTransfer,
		OrderIDs:  []string{o1.ID.Hex(), o2.ID.Hex()},
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, o := range []*models.Order{o1, o2} {
		got, _ := orders.FindOrder(ctx, o.ID)
		if !got.CODSettled {
			t.Errorf("order %s not flagged settled", o.ID.Hex())
		}
		if got.CODSettlementID == nil || got.CODSettlementID.Hex() != result.LedgerID {
			t.Errorf("order %s settlement id not linked to ledger entry", o.ID.Hex())
		}
	}
}

func TestSettlementValidation(t *testing.T) {
	ctx := context.Background()
	parties := newFakePartyStore()
	svc := NewSettlementService(newFakeOrderStore(), newFakeLedgerStore(), parties, &fakeGateway{})

	_, err := svc.RecordCODSettlement(ctx, &models.CODSettlementRequest{
		PartnerID: primitive.NewObjectID().Hex(),
		Amount:    -50,
		Method:    models.MethodCash,
	})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("negative amount: got %v, want ValidationError", err)
	}

	_, err = svc.RecordCODSettlement(ctx, &models.CODSettlementRequest{
		PartnerID: primitive.NewObjectID().Hex(),
		Amount:    100,
		Method:    models.MethodCash,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown partner: got %v, want ErrNotFound", err)
	}
}

// Replaying a request id returns the original entry instead of writing twice.
func TestSettlementIdempotency(t *testing.T) {
	ctx := context.Background()
	parties := newFakePartyStore()
	partner := parties.addPartner(&models.DeliveryPartner{FullName: "Ramesh K"})
	orders := newFakeOrderStore(codOrder(partner.ID, 4000))
	ledgers := newFakeLedgerStore()
	svc := NewSettlementService(orders, ledgers, parties, &fakeGateway{})

	req := &models.CODSettlementRequest{
		PartnerID: partner.ID.Hex(),
		Amount:    1500,
		Method:    models.MethodCash,
		RequestID: "req-abc-1",
	}
	first, err := svc.RecordCODSettlement(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.RecordCODSettlement(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Replayed {
		t.Error("second submission not marked as a replay")
	}
	if second.LedgerID != first.LedgerID {
		t.Errorf("replay returned a different entry: %s vs %s", second.LedgerID, first.LedgerID)
	}
	settled, _ := ledgers.SumCompleted(ctx, models.LedgerCODSettlement, partner.ID)
	if settled != 1500 {
		t.Errorf("settled total after replay: got %v, want 1500", settled)
	}
}

func deliveredOrder(vendorID, partnerID primitive.ObjectID, subtotal float64) *models.Order {
	return &models.Order{
		ID:               primitive.NewObjectID(),
		VendorID:         vendorID,
		CustomerID:       primitive.NewObjectID(),
		DeliveryPersonID: &partnerID,
		Status:           models.OrderStatusCompleted,
		PaymentMode:      models.PaymentModeOnline,
		PaymentRef:       "pay_" + primitive.NewObjectID().Hex()[:8],
		Subtotal:         subtotal,
		DeliveryFee:      33,
		Total:            subtotal + 33,
		DistanceKm:       5,
	}
}

// Vendor payout bound: earned-to-date caps the payout, and the bound tracks
// completed ledger entries, not the cached balance fields.
func TestVendorPayoutBound(t *testing.T) {
	ctx := context.Background()
	parties := newFakePartyStore()
	vendor := parties.addVendor(&models.Vendor{BusinessName: "Spice Villa"})
	partnerID := primitive.NewObjectID()

	// Two orders of 1000 subtotal each at 15%: payable 823 each.
	orders := newFakeOrderStore(
		deliveredOrder(vendor.ID, partnerID, 1000),
		deliveredOrder(vendor.ID, partnerID, 1000),
	)
	ledgers := newFakeLedgerStore()
	svc := NewSettlementService(orders, ledgers, parties, &fakeGateway{})

	balance, err := svc.PayoutBalanceFor(ctx, models.PartyVendor, vendor.ID)
	if err != nil {
		t.Fatal(err)
	}
	if balance.Pending != 1646 {
		t.Fatalf("pending: got %v, want 1646", balance.Pending)
	}

	_, err = svc.RecordPayout(ctx, &models.PayoutRequest{
		PartyID:   vendor.ID.Hex(),
		PartyType: models.PartyVendor,
		Amount:    2000,
		Method:    models.MethodCash,
	})
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("overdraw: got %v, want ErrLimitExceeded", err)
	}

	result, err := svc.RecordPayout(ctx, &models.PayoutRequest{
		PartyID:   vendor.ID.Hex(),
		PartyType: models.PartyVendor,
		Amount:    1646,
		Method:    models.MethodCash,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != models.LedgerStatusCompleted {
		t.Errorf("status: got %s, want completed", result.Status)
	}

	after, err := svc.PayoutBalanceFor(ctx, models.PartyVendor, vendor.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Pending != 0 {
		t.Errorf("pending after payout: got %v, want 0", after.Pending)
	}
}

func TestPayoutMethodValidation(t *testing.T) {
	ctx := context.Background()
	parties := newFakePartyStore()
	vendor := parties.addVendor(&models.Vendor{BusinessName: "Spice Villa"}) // no bank details
	svc := NewSettlementService(newFakeOrderStore(), newFakeLedgerStore(), parties, &fakeGateway{})

	_, err := svc.RecordPayout(ctx, &models.PayoutRequest{
		PartyID:   vendor.ID.Hex(),
		PartyType: models.PartyVendor,
		Amount:    100,
		Method:    models.MethodBankTransfer,
	})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("bank transfer without account: got %v, want ValidationError", err)
	}

	_, err = svc.RecordPayout(ctx, &models.PayoutRequest{
		PartyID:   vendor.ID.Hex(),
		PartyType: models.PartyVendor,
		Amount:    100,
		Method:    models.MethodUPI,
	})
	if !errors.As(err, &ve) {
		t.Errorf("UPI without address: got %v, want ValidationError", err)
	}
}

// With no gateway credentials a gateway payout degrades to a manual record.
func TestPayoutManualFallbackWithoutGateway(t *testing.T) {
	ctx := context.Background()
	parties := newFakePartyStore()
	vendor := parties.addVendor(&models.Vendor{
		BusinessName: "Spice Villa",
		BankDetails:  &models.BankDetails{UpiID: "spicevilla@upi"},
	})
	partnerID := primitive.NewObjectID()
	orders := newFakeOrderStore(deliveredOrder(vendor.ID, partnerID, 1000))
	ledgers := newFakeLedgerStore()
	gw := &fakeGateway{configured: false}
	svc := NewSettlementService(orders, ledgers, parties, gw)

	result, err := svc.RecordPayout(ctx, &models.PayoutRequest{
		PartyID:   vendor.ID.Hex(),
		PartyType: models.PartyVendor,
		Amount:    500,
		Method:    models.MethodGateway,
	})
	if err != nil {
		t.Fatal(err)
	}
	if gw.payouts != 0 {
		t.Errorf("gateway called %d times despite missing credentials", gw.payouts)
	}
	entry := ledgers.entry(models.LedgerPayout, result.LedgerID)
	if entry.Method != models.MethodManual {
		t.Errorf("method: got %s, want manual", entry.Method)
	}
	if entry.Status != models.LedgerStatusCompleted {
		t.Errorf("status: got %s, want completed", entry.Status)
	}
}

// A gateway payout failure leaves a failed entry and no balance movement.
func TestPayoutGatewayFailureRecorded(t *testing.T) {
	ctx := context.Background()
	parties := newFakePartyStore()
	vendor := parties.addVendor(&models.Vendor{
		BusinessName: "Spice Villa",
		BankDetails:  &models.BankDetails{UpiID: "spicevilla@upi"},
	})
	partnerID := primitive.NewObjectID()
	orders := newFakeOrderStore(deliveredOrder(vendor.ID, partnerID, 1000))
	ledgers := newFakeLedgerStore()
	gw := &fakeGateway{configured: true, failWith: fmt.Errorf("connection timed out")}
	svc := NewSettlementService(orders, ledgers, parties, gw)

	result, err := svc.RecordPayout(ctx, &models.PayoutRequest{
		PartyID:   vendor.ID.Hex(),
		PartyType: models.PartyVendor,
		Amount:    500,
		Method:    models.MethodGateway,
	})
	var ge *GatewayError
	if !errors.As(err, &ge) {
		t.Fatalf("got %v, want GatewayError", err)
	}
	entry := ledgers.entry(models.LedgerPayout, result.LedgerID)
	if entry.Status != models.LedgerStatusFailed {
		t.Errorf("status: got %s, want failed", entry.Status)
	}
	if entry.FailureNote == "" {
		t.Error("failure note not recorded")
	}
	paid, _ := ledgers.SumCompleted(ctx, models.LedgerPayout, vendor.ID)
	if paid != 0 {
		t.Errorf("completed sum after failure: got %v, want 0", paid)
	}
	// The full amount is still claimable by a fresh request.
	balance, _ := svc.PayoutBalanceFor(ctx, models.PartyVendor, vendor.ID)
	if balance.Pending != 823 {
		t.Errorf("pending after failed payout: got %v, want 823", balance.Pending)
	}
}

// A COD refund completes by ledger entry alone; a failed online refund leaves
// a failed entry and the order unmarked.
func TestRefundBranches(t *testing.T) {
	ctx := context.Background()
	parties := newFakePartyStore()
	partnerID := primitive.NewObjectID()

	codOrd := codOrder(partnerID, 600)
	onlineOrd := deliveredOrder(primitive.NewObjectID(), partnerID, 900)
	orders := newFakeOrderStore(codOrd, onlineOrd)
	ledgers := newFakeLedgerStore()
	gw := &fakeGateway{configured: true}
	svc := NewSettlementService(orders, ledgers, parties, gw)

	// COD branch: no gateway call, completed entry, order marked refunded.
	result, err := svc.ProcessRefund(ctx, &models.RefundRequest{
		OrderID: codOrd.ID.Hex(),
		Amount:  600,
		Reason:  "order never delivered",
	})
	if err != nil {
		t.Fatal(err)
	}
	if gw.refunds != 0 {
		t.Errorf("gateway called for a COD refund")
	}
	if result.Status != models.LedgerStatusCompleted {
		t.Errorf("COD refund status: got %s, want completed", result.Status)
	}
	got, _ := orders.FindOrder(ctx, codOrd.ID)
	if got.RefundStatus != models.RefundStatusRefunded {
		t.Errorf("COD order refund status: got %q, want REFUNDED", got.RefundStatus)
	}

	// Online branch, gateway down: failed entry, order untouched.
	gw.failWith = fmt.Errorf("gateway unreachable")
	result, err = svc.ProcessRefund(ctx, &models.RefundRequest{
		OrderID: onlineOrd.ID.Hex(),
		Amount:  900,
		Reason:  "spilled order",
	})
	var ge *GatewayError
	if !errors.As(err, &ge) {
		t.Fatalf("got %v, want GatewayError", err)
	}
	entry := ledgers.entry(models.LedgerRefund, result.LedgerID)
	if entry == nil || entry.Status != models.LedgerStatusFailed {
		t.Error("failed online refund not recorded as a failed entry")
	}
	got, _ = orders.FindOrder(ctx, onlineOrd.ID)
	if got.RefundStatus == models.RefundStatusRefunded {
		t.Error("order marked refunded despite gateway failure")
	}

	// Gateway back up: refund completes with the gateway reference.
	gw.failWith = nil
	result, err = svc.ProcessRefund(ctx, &models.RefundRequest{
		OrderID: onlineOrd.ID.Hex(),
		Amount:  900,
		Reason:  "spilled order",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.ExternalRef == "" {
		t.Error("gateway refund id missing")
	}

	// Repeating the refund is rejected.
	_, err = svc.ProcessRefund(ctx, &models.RefundRequest{
		OrderID: onlineOrd.ID.Hex(),
		Amount:  900,
	})
	if !errors.Is(err, ErrAlreadyRefunded) {
		t.Errorf("double refund: got %v, want ErrAlreadyRefunded", err)
	}
}

func TestRefundUnknownOrder(t *testing.T) {
	svc := NewSettlementService(newFakeOrderStore(), newFakeLedgerStore(), newFakePartyStore(), &fakeGateway{})
	_, err := svc.ProcessRefund(context.Background(), &models.RefundRequest{
		OrderID: primitive.NewObjectID().Hex(),
		Amount:  100,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestSetCommissionRate(t *testing.T) {
	ctx := context.Background()
	parties := newFakePartyStore()
	vendor := parties.addVendor(&models.Vendor{BusinessName: "Spice Villa"})
	svc := NewSettlementService(newFakeOrderStore(), newFakeLedgerStore(), parties, &fakeGateway{})

	_, err := svc.SetCommissionRate(ctx, vendor.ID.Hex(), 120, "promo", "admin@zaika")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("rate 120: got %v, want ValidationError", err)
	}
	_, err = svc.SetCommissionRate(ctx, vendor.ID.Hex(), 10, "", "admin@zaika")
	if !errors.As(err, &ve) {
		t.Errorf("missing reason: got %v, want ValidationError", err)
	}

	change, err := svc.SetCommissionRate(ctx, vendor.ID.Hex(), 12.5, "volume discount", "admin@zaika")
	if err != nil {
		t.Fatal(err)
	}
	if change.PreviousRate != models.DefaultCommissionRate {
		t.Errorf("previous rate: got %v, want platform default", change.PreviousRate)
	}
	updated, _ := parties.FindVendor(ctx, vendor.ID)
	if models.EffectiveCommissionRate(updated) != 12.5 {
		t.Errorf("effective rate after change: got %v, want 12.5", models.EffectiveCommissionRate(updated))
	}

	// Second change records the override as the previous rate.
	change, err = svc.SetCommissionRate(ctx, vendor.ID.Hex(), 15, "discount expired", "admin@zaika")
	if err != nil {
		t.Fatal(err)
	}
	if change.PreviousRate != 12.5 {
		t.Errorf("previous rate on second change: got %v, want 12.5", change.PreviousRate)
	}
	history, _ := parties.ListCommissionChanges(ctx, vendor.ID)
	if len(history) != 2 {
		t.Errorf("history length: got %d, want 2", len(history))
	}
}

// An overpaid party reports a negative unclamped pending instead of hiding it.
func TestOverpaymentSurfacesAsAnomaly(t *testing.T) {
	ctx := context.Background()
	parties := newFakePartyStore()
	vendor := parties.addVendor(&models.Vendor{BusinessName: "Spice Villa"})
	partnerID := primitive.NewObjectID()
	orders := newFakeOrderStore(deliveredOrder(vendor.ID, partnerID, 1000)) // payable 823

	ledgers := newFakeLedgerStore()
	// A historical manual entry that overshoots what was ever earned.
	_, err := ledgers.Append(ctx, models.LedgerPayout, &models.LedgerEntry{
		PartyID:   vendor.ID,
		PartyType: models.PartyVendor,
		Amount:    1000,
		Method:    models.MethodCash,
		Status:    models.LedgerStatusCompleted,
	})
	if err != nil {
		t.Fatal(err)
	}

	svc := NewSettlementService(orders, ledgers, parties, &fakeGateway{})
	balance, err := svc.PayoutBalanceFor(ctx, models.PartyVendor, vendor.ID)
	if err != nil {
		t.Fatal(err)
	}
	if balance.Pending != 0 {
		t.Errorf("display pending: got %v, want 0", balance.Pending)
	}
	if balance.UnclampedPending >= 0 {
		t.Errorf("unclamped pending: got %v, want negative", balance.UnclampedPending)
	}
	if !balance.Overpaid {
		t.Error("overpayment not flagged")
	}
}
