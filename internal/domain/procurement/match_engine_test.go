package procurement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type matchFixture struct {
	po      *PurchaseOrder
	line    *PurchaseOrderLine
	engine  *MatchEngine
	vendor  uuid.UUID
	product uuid.UUID
}

func newMatchFixture(t *testing.T, orderedQty, unitPrice decimal.Decimal, policy TolerancePolicy) *matchFixture {
	t.Helper()

	vendorID := uuid.New()
	productID := uuid.New()

	po, err := NewPurchaseOrder("PO-001", vendorID)
	require.NoError(t, err)
	line, err := po.AddLine(productID, nil, orderedQty, unitPrice)
	require.NoError(t, err)

	rule, err := NewPolicyRule(PolicyLevelGlobal, nil, policy)
	require.NoError(t, err)
	set, err := NewPolicySet([]PolicyRule{*rule})
	require.NoError(t, err)

	return &matchFixture{
		po:      po,
		line:    line,
		engine:  NewMatchEngine(set),
		vendor:  vendorID,
		product: productID,
	}
}

func (f *matchFixture) receipt(t *testing.T, qty decimal.Decimal) *GoodsReceipt {
	t.Helper()
	receipt, err := NewGoodsReceipt("GRN-001", f.po.ID, []ReceivedLineInput{
		{POLineID: f.line.ID, ReceivedQty: qty, ReceivedAt: time.Now()},
	})
	require.NoError(t, err)
	return receipt
}

func (f *matchFixture) invoice(t *testing.T, qty, unitPrice decimal.Decimal) *VendorInvoice {
	t.Helper()
	invoice, err := NewVendorInvoice("INV-001", f.vendor, &f.po.ID)
	require.NoError(t, err)
	err = invoice.SetLines([]InvoiceLineInput{
		{POLineID: f.line.ID, InvoicedQty: qty, UnitPrice: unitPrice},
	})
	require.NoError(t, err)
	require.NoError(t, invoice.Submit())
	return invoice
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMatchEngine_ExactMatch(t *testing.T) {
	f := newMatchFixture(t, dec("100"), dec("10"), DefaultTolerancePolicy())
	receipt := f.receipt(t, dec("100"))
	invoice := f.invoice(t, dec("100"), dec("10"))

	result, err := f.engine.EvaluateInvoice(f.po, []*GoodsReceipt{receipt}, []*VendorInvoice{invoice}, invoice)
	require.NoError(t, err)

	assert.Equal(t, MatchStatusMatched, result.Status)
	require.Len(t, result.LineResults, 1)
	lr := result.LineResults[0]
	assert.Equal(t, MatchStatusMatched, lr.Status)
	assert.True(t, lr.QtyVariance.IsZero())
	assert.True(t, lr.PriceVariance.IsZero())
	require.NotNil(t, lr.QtyVariancePct)
	assert.True(t, lr.QtyVariancePct.IsZero())
}

func TestMatchEngine_PriceBeyondTolerance(t *testing.T) {
	policy := DefaultTolerancePolicy()
	policy.PriceTolerancePct = dec("0.05")
	f := newMatchFixture(t, dec("100"), dec("10"), policy)
	receipt := f.receipt(t, dec("100"))
	invoice := f.invoice(t, dec("100"), dec("10.60"))

	result, err := f.engine.EvaluateInvoice(f.po, []*GoodsReceipt{receipt}, []*VendorInvoice{invoice}, invoice)
	require.NoError(t, err)

	assert.Equal(t, MatchStatusMismatch, result.Status)
	lr := result.LineResults[0]
	assert.True(t, lr.PriceVariance.Equal(dec("0.60")))
	require.NotNil(t, lr.PriceVariancePct)
	assert.True(t, lr.PriceVariancePct.Equal(dec("0.06")))
}

func TestMatchEngine_PriceWithinTolerance(t *testing.T) {
	policy := DefaultTolerancePolicy()
	policy.PriceTolerancePct = dec("0.05")
	f := newMatchFixture(t, dec("100"), dec("10"), policy)
	receipt := f.receipt(t, dec("100"))
	invoice := f.invoice(t, dec("100"), dec("10.40"))

	result, err := f.engine.EvaluateInvoice(f.po, []*GoodsReceipt{receipt}, []*VendorInvoice{invoice}, invoice)
	require.NoError(t, err)

	assert.Equal(t, MatchStatusMatched, result.Status)
}

func TestMatchEngine_PartialBilling(t *testing.T) {
	f := newMatchFixture(t, dec("100"), dec("10"), DefaultTolerancePolicy())
	receipt := f.receipt(t, dec("100"))
	invoice := f.invoice(t, dec("40"), dec("10"))

	result, err := f.engine.EvaluateInvoice(f.po, []*GoodsReceipt{receipt}, []*VendorInvoice{invoice}, invoice)
	require.NoError(t, err)

	assert.Equal(t, MatchStatusPartiallyMatched, result.Status)
	lr := result.LineResults[0]
	assert.Equal(t, MatchStatusPartiallyMatched, lr.Status)
	assert.True(t, lr.QtyVariance.Equal(dec("-60")))
	assert.False(t, lr.OverReceiptFlagged)
}

func TestMatchEngine_PartialBillingSixtyOfHundred(t *testing.T) {
	f := newMatchFixture(t, dec("100"), dec("10"), DefaultTolerancePolicy())
	receipt := f.receipt(t, dec("100"))
	invoice := f.invoice(t, dec("60"), dec("10"))

	result, err := f.engine.EvaluateInvoice(f.po, []*GoodsReceipt{receipt}, []*VendorInvoice{invoice}, invoice)
	require.NoError(t, err)

	assert.Equal(t, MatchStatusPartiallyMatched, result.Status)
	assert.NotEqual(t, MatchStatusMismatch, result.Status)
}

func TestMatchEngine_OverBillingBeyondTolerance(t *testing.T) {
	policy := DefaultTolerancePolicy()
	policy.QtyTolerancePct = dec("0.02")
	f := newMatchFixture(t, dec("100"), dec("10"), policy)
	receipt := f.receipt(t, dec("100"))
	invoice := f.invoice(t, dec("110"), dec("10"))

	result, err := f.engine.EvaluateInvoice(f.po, []*GoodsReceipt{receipt}, []*VendorInvoice{invoice}, invoice)
	require.NoError(t, err)

	assert.Equal(t, MatchStatusMismatch, result.Status)
	lr := result.LineResults[0]
	assert.True(t, lr.QtyVariance.Equal(dec("10")))
}

func TestMatchEngine_OverBillingWithinTolerance(t *testing.T) {
	policy := DefaultTolerancePolicy()
	policy.QtyTolerancePct = dec("0.10")
	f := newMatchFixture(t, dec("100"), dec("10"), policy)
	receipt := f.receipt(t, dec("100"))
	invoice := f.invoice(t, dec("105"), dec("10"))

	result, err := f.engine.EvaluateInvoice(f.po, []*GoodsReceipt{receipt}, []*VendorInvoice{invoice}, invoice)
	require.NoError(t, err)

	assert.Equal(t, MatchStatusMatched, result.Status)
}

func TestMatchEngine_UnderBillingWithinTolerance(t *testing.T) {
	policy := DefaultTolerancePolicy()
	policy.QtyTolerancePct = dec("0.10")
	f := newMatchFixture(t, dec("100"), dec("10"), policy)
	receipt := f.receipt(t, dec("100"))
	invoice := f.invoice(t, dec("95"), dec("10"))

	// Tolerance forgives over-billing, never an incomplete bill: 95 of 100
	// received leaves a remainder the vendor may still invoice.
	result, err := f.engine.EvaluateInvoice(f.po, []*GoodsReceipt{receipt}, []*VendorInvoice{invoice}, invoice)
	require.NoError(t, err)

	assert.Equal(t, MatchStatusPartiallyMatched, result.Status)
	lr := result.LineResults[0]
	assert.Equal(t, MatchStatusPartiallyMatched, lr.Status)
	assert.True(t, lr.QtyVariance.Equal(dec("-5")))
}

func TestMatchEngine_BillBeforeReceiptAllowed(t *testing.T) {
	policy := DefaultTolerancePolicy()
	policy.AllowBillBeforeReceipt = true
	f := newMatchFixture(t, dec("100"), dec("10"), policy)
	invoice := f.invoice(t, dec("100"), dec("10"))

	// Nothing received yet; the full invoiced quantity is ahead of receipt
	// but inside the ordered ceiling.
	result, err := f.engine.EvaluateInvoice(f.po, nil, []*VendorInvoice{invoice}, invoice)
	require.NoError(t, err)

	assert.Equal(t, MatchStatusMatched, result.Status)
	lr := result.LineResults[0]
	assert.True(t, lr.QtyVariance.Equal(dec("100")))
}

func TestMatchEngine_BillBeforeReceiptBeyondOrdered(t *testing.T) {
	policy := DefaultTolerancePolicy()
	policy.AllowBillBeforeReceipt = true
	f := newMatchFixture(t, dec("100"), dec("10"), policy)
	invoice := f.invoice(t, dec("120"), dec("10"))

	result, err := f.engine.EvaluateInvoice(f.po, nil, []*VendorInvoice{invoice}, invoice)
	require.NoError(t, err)

	assert.Equal(t, MatchStatusMismatch, result.Status)
}

func TestMatchEngine_BillBeforeReceiptDisallowed(t *testing.T) {
	f := newMatchFixture(t, dec("100"), dec("10"), DefaultTolerancePolicy())
	invoice := f.invoice(t, dec("100"), dec("10"))

	result, err := f.engine.EvaluateInvoice(f.po, nil, []*VendorInvoice{invoice}, invoice)
	require.NoError(t, err)

	assert.Equal(t, MatchStatusMismatch, result.Status)
}

func TestMatchEngine_ZeroOrderedQtyZeroVariance(t *testing.T) {
	policy := DefaultTolerancePolicy()
	policy.PriceTolerancePct = dec("0.05")
	f := newMatchFixture(t, dec("0"), dec("10"), policy)
	invoice := f.invoice(t, dec("0"), dec("12"))

	result, err := f.engine.EvaluateInvoice(f.po, nil, []*VendorInvoice{invoice}, invoice)
	require.NoError(t, err)

	// Quantity variance is zero against a zero baseline, so the verdict is
	// driven by price alone.
	assert.Equal(t, MatchStatusMismatch, result.Status)
	lr := result.LineResults[0]
	require.NotNil(t, lr.QtyVariancePct)
	assert.True(t, lr.QtyVariancePct.IsZero())
}

func TestMatchEngine_ZeroOrderedQtyNonzeroVariance(t *testing.T) {
	f := newMatchFixture(t, dec("0"), dec("10"), DefaultTolerancePolicy())
	invoice := f.invoice(t, dec("5"), dec("10"))

	result, err := f.engine.EvaluateInvoice(f.po, nil, []*VendorInvoice{invoice}, invoice)
	require.NoError(t, err)

	assert.Equal(t, MatchStatusUnresolved, result.Status)
	lr := result.LineResults[0]
	assert.Nil(t, lr.QtyVariancePct)
	assert.NotEmpty(t, lr.Notes)
}

func TestMatchEngine_ZeroOrderedPrice(t *testing.T) {
	f := newMatchFixture(t, dec("100"), dec("0"), DefaultTolerancePolicy())
	receipt := f.receipt(t, dec("100"))
	invoice := f.invoice(t, dec("100"), dec("5"))

	result, err := f.engine.EvaluateInvoice(f.po, []*GoodsReceipt{receipt}, []*VendorInvoice{invoice}, invoice)
	require.NoError(t, err)

	assert.Equal(t, MatchStatusUnresolved, result.Status)
	assert.Nil(t, result.LineResults[0].PriceVariancePct)
}

func TestMatchEngine_SiblingInvoicesAggregate(t *testing.T) {
	policy := DefaultTolerancePolicy()
	policy.QtyTolerancePct = dec("0.02")
	f := newMatchFixture(t, dec("100"), dec("10"), policy)
	receipt := f.receipt(t, dec("100"))

	first := f.invoice(t, dec("60"), dec("10"))
	second, err := NewVendorInvoice("INV-002", f.vendor, &f.po.ID)
	require.NoError(t, err)
	require.NoError(t, second.SetLines([]InvoiceLineInput{
		{POLineID: f.line.ID, InvoicedQty: dec("70"), UnitPrice: dec("10")},
	}))
	require.NoError(t, second.Submit())

	// 60 + 70 invoiced against 100 received is over-billing across the pair.
	result, err := f.engine.EvaluateInvoice(f.po, []*GoodsReceipt{receipt}, []*VendorInvoice{first, second}, second)
	require.NoError(t, err)

	assert.Equal(t, MatchStatusMismatch, result.Status)
	lr := result.LineResults[0]
	assert.True(t, lr.InvoicedQty.Equal(dec("130")))
	assert.True(t, lr.InvoicedQtyThisInvoice.Equal(dec("70")))
}

func TestMatchEngine_VoidedSiblingExcluded(t *testing.T) {
	f := newMatchFixture(t, dec("100"), dec("10"), DefaultTolerancePolicy())
	receipt := f.receipt(t, dec("100"))

	voided := f.invoice(t, dec("100"), dec("10"))
	require.NoError(t, voided.Void("duplicate upload"))
	invoice, err := NewVendorInvoice("INV-002", f.vendor, &f.po.ID)
	require.NoError(t, err)
	require.NoError(t, invoice.SetLines([]InvoiceLineInput{
		{POLineID: f.line.ID, InvoicedQty: dec("100"), UnitPrice: dec("10")},
	}))
	require.NoError(t, invoice.Submit())

	result, err := f.engine.EvaluateInvoice(f.po, []*GoodsReceipt{receipt}, []*VendorInvoice{voided, invoice}, invoice)
	require.NoError(t, err)

	assert.Equal(t, MatchStatusMatched, result.Status)
	assert.True(t, result.LineResults[0].InvoicedQty.Equal(dec("100")))
}

func TestMatchEngine_OverReceiptFlagged(t *testing.T) {
	policy := DefaultTolerancePolicy()
	policy.QtyTolerancePct = dec("1")
	f := newMatchFixture(t, dec("100"), dec("10"), policy)
	receipt := f.receipt(t, dec("130"))
	invoice := f.invoice(t, dec("130"), dec("10"))

	result, err := f.engine.EvaluateInvoice(f.po, []*GoodsReceipt{receipt}, []*VendorInvoice{invoice}, invoice)
	require.NoError(t, err)

	lr := result.LineResults[0]
	assert.True(t, lr.OverReceiptFlagged)
	assert.Equal(t, MatchStatusMatched, lr.Status)
}

func TestMatchEngine_DocumentVerdictIsSeverityMax(t *testing.T) {
	vendorID := uuid.New()
	po, err := NewPurchaseOrder("PO-001", vendorID)
	require.NoError(t, err)
	lineA, err := po.AddLine(uuid.New(), nil, dec("10"), dec("5"))
	require.NoError(t, err)
	lineB, err := po.AddLine(uuid.New(), nil, dec("10"), dec("5"))
	require.NoError(t, err)

	rule, err := NewPolicyRule(PolicyLevelGlobal, nil, DefaultTolerancePolicy())
	require.NoError(t, err)
	set, err := NewPolicySet([]PolicyRule{*rule})
	require.NoError(t, err)
	engine := NewMatchEngine(set)

	receipt, err := NewGoodsReceipt("GRN-001", po.ID, []ReceivedLineInput{
		{POLineID: lineA.ID, ReceivedQty: dec("10"), ReceivedAt: time.Now()},
		{POLineID: lineB.ID, ReceivedQty: dec("10"), ReceivedAt: time.Now()},
	})
	require.NoError(t, err)

	invoice, err := NewVendorInvoice("INV-001", vendorID, &po.ID)
	require.NoError(t, err)
	require.NoError(t, invoice.SetLines([]InvoiceLineInput{
		{POLineID: lineA.ID, InvoicedQty: dec("10"), UnitPrice: dec("5")},
		{POLineID: lineB.ID, InvoicedQty: dec("10"), UnitPrice: dec("9")},
	}))
	require.NoError(t, invoice.Submit())

	result, err := engine.EvaluateInvoice(po, []*GoodsReceipt{receipt}, []*VendorInvoice{invoice}, invoice)
	require.NoError(t, err)

	require.Len(t, result.LineResults, 2)
	assert.Equal(t, MatchStatusMismatch, result.Status)
	for _, lr := range result.LineResults {
		assert.False(t, lr.Status.MoreSevereThan(result.Status))
	}
}

func TestMatchEngine_UnknownPOLine(t *testing.T) {
	f := newMatchFixture(t, dec("100"), dec("10"), DefaultTolerancePolicy())
	invoice, err := NewVendorInvoice("INV-001", f.vendor, &f.po.ID)
	require.NoError(t, err)
	require.NoError(t, invoice.SetLines([]InvoiceLineInput{
		{POLineID: uuid.New(), InvoicedQty: dec("1"), UnitPrice: dec("10")},
	}))
	require.NoError(t, invoice.Submit())

	_, err = f.engine.EvaluateInvoice(f.po, nil, []*VendorInvoice{invoice}, invoice)
	assert.Error(t, err)
}

func TestMatchEngine_UnlinkedInvoiceRejected(t *testing.T) {
	f := newMatchFixture(t, dec("100"), dec("10"), DefaultTolerancePolicy())
	invoice, err := NewVendorInvoice("INV-001", f.vendor, nil)
	require.NoError(t, err)

	_, err = f.engine.EvaluateInvoice(f.po, nil, nil, invoice)
	assert.Error(t, err)
}

func TestMatchEngine_DeterministicOutcome(t *testing.T) {
	policy := DefaultTolerancePolicy()
	policy.PriceTolerancePct = dec("0.05")
	f := newMatchFixture(t, dec("100"), dec("10"), policy)
	receipt := f.receipt(t, dec("80"))
	invoice := f.invoice(t, dec("80"), dec("10.20"))

	first, err := f.engine.EvaluateInvoice(f.po, []*GoodsReceipt{receipt}, []*VendorInvoice{invoice}, invoice)
	require.NoError(t, err)
	second, err := f.engine.EvaluateInvoice(f.po, []*GoodsReceipt{receipt}, []*VendorInvoice{invoice}, invoice)
	require.NoError(t, err)

	assert.True(t, first.SameOutcome(second))
}
