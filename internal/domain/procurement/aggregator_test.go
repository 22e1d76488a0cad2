package procurement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildOrder(t *testing.T, lineQty ...string) (*PurchaseOrder, []*PurchaseOrderLine) {
	t.Helper()
	po, err := NewPurchaseOrder("PO-100", uuid.New())
	require.NoError(t, err)

	lines := make([]*PurchaseOrderLine, 0, len(lineQty))
	for _, q := range lineQty {
		line, err := po.AddLine(uuid.New(), nil, dec(q), dec("10"))
		require.NoError(t, err)
		lines = append(lines, line)
	}
	return po, lines
}

func TestAggregator_EveryLineGetsAnEntry(t *testing.T) {
	po, lines := buildOrder(t, "100", "50", "25")
	agg := NewAggregator()

	result, err := agg.AggregateOrder(po, nil, nil)
	require.NoError(t, err)

	require.Len(t, result, 3)
	for _, line := range lines {
		entry, ok := result[line.ID]
		require.True(t, ok)
		assert.True(t, entry.ReceivedQty.IsZero())
		assert.True(t, entry.InvoicedQty.IsZero())
	}
}

func TestAggregator_SumsAcrossReceipts(t *testing.T) {
	po, lines := buildOrder(t, "100")
	agg := NewAggregator()

	r1, err := NewGoodsReceipt("GRN-1", po.ID, []ReceivedLineInput{
		{POLineID: lines[0].ID, ReceivedQty: dec("50"), ReceivedAt: time.Now()},
	})
	require.NoError(t, err)
	r2, err := NewGoodsReceipt("GRN-2", po.ID, []ReceivedLineInput{
		{POLineID: lines[0].ID, ReceivedQty: dec("50"), ReceivedAt: time.Now()},
	})
	require.NoError(t, err)

	result, err := agg.AggregateOrder(po, []*GoodsReceipt{r1, r2}, nil)
	require.NoError(t, err)

	assert.True(t, result[lines[0].ID].ReceivedQty.Equal(dec("100")))
}

func TestAggregator_CancelledReceiptExcluded(t *testing.T) {
	po, lines := buildOrder(t, "100")
	agg := NewAggregator()

	live, err := NewGoodsReceipt("GRN-1", po.ID, []ReceivedLineInput{
		{POLineID: lines[0].ID, ReceivedQty: dec("60"), ReceivedAt: time.Now()},
	})
	require.NoError(t, err)
	cancelled, err := NewGoodsReceipt("GRN-2", po.ID, []ReceivedLineInput{
		{POLineID: lines[0].ID, ReceivedQty: dec("40"), ReceivedAt: time.Now()},
	})
	require.NoError(t, err)
	require.NoError(t, cancelled.Cancel("wrong warehouse"))

	result, err := agg.AggregateOrder(po, []*GoodsReceipt{live, cancelled}, nil)
	require.NoError(t, err)

	assert.True(t, result[lines[0].ID].ReceivedQty.Equal(dec("60")))
}

func TestAggregator_VoidedInvoiceExcluded(t *testing.T) {
	po, lines := buildOrder(t, "100")
	agg := NewAggregator()

	live, err := NewVendorInvoice("INV-1", po.VendorID, &po.ID)
	require.NoError(t, err)
	require.NoError(t, live.SetLines([]InvoiceLineInput{
		{POLineID: lines[0].ID, InvoicedQty: dec("30"), UnitPrice: dec("10")},
	}))

	voided, err := NewVendorInvoice("INV-2", po.VendorID, &po.ID)
	require.NoError(t, err)
	require.NoError(t, voided.SetLines([]InvoiceLineInput{
		{POLineID: lines[0].ID, InvoicedQty: dec("70"), UnitPrice: dec("10")},
	}))
	require.NoError(t, voided.Void("duplicate"))

	result, err := agg.AggregateOrder(po, nil, []*VendorInvoice{live, voided})
	require.NoError(t, err)

	assert.True(t, result[lines[0].ID].InvoicedQty.Equal(dec("30")))
}

func TestAggregator_AddingReceiptNeverDecreasesTotal(t *testing.T) {
	po, lines := buildOrder(t, "100")
	agg := NewAggregator()

	receipts := make([]*GoodsReceipt, 0, 5)
	previous := dec("0")
	for i := 0; i < 5; i++ {
		r, err := NewGoodsReceipt("GRN", po.ID, []ReceivedLineInput{
			{POLineID: lines[0].ID, ReceivedQty: dec("7"), ReceivedAt: time.Now()},
		})
		require.NoError(t, err)
		receipts = append(receipts, r)

		result, err := agg.AggregateOrder(po, receipts, nil)
		require.NoError(t, err)
		total := result[lines[0].ID].ReceivedQty
		assert.True(t, total.GreaterThanOrEqual(previous))
		previous = total
	}
	assert.True(t, previous.Equal(dec("35")))
}

func TestAggregator_ForeignDocumentsRejected(t *testing.T) {
	po, _ := buildOrder(t, "100")
	other, otherLines := buildOrder(t, "100")
	agg := NewAggregator()

	t.Run("receipt for another order", func(t *testing.T) {
		r, err := NewGoodsReceipt("GRN-1", other.ID, []ReceivedLineInput{
			{POLineID: otherLines[0].ID, ReceivedQty: dec("10"), ReceivedAt: time.Now()},
		})
		require.NoError(t, err)
		_, err = agg.AggregateOrder(po, []*GoodsReceipt{r}, nil)
		assert.Error(t, err)
	})

	t.Run("receipt line for unknown po line", func(t *testing.T) {
		r, err := NewGoodsReceipt("GRN-2", po.ID, []ReceivedLineInput{
			{POLineID: uuid.New(), ReceivedQty: dec("10"), ReceivedAt: time.Now()},
		})
		require.NoError(t, err)
		_, err = agg.AggregateOrder(po, []*GoodsReceipt{r}, nil)
		assert.Error(t, err)
	})

	t.Run("invoice for another order", func(t *testing.T) {
		inv, err := NewVendorInvoice("INV-1", other.VendorID, &other.ID)
		require.NoError(t, err)
		require.NoError(t, inv.SetLines([]InvoiceLineInput{
			{POLineID: otherLines[0].ID, InvoicedQty: dec("1"), UnitPrice: dec("10")},
		}))
		_, err = agg.AggregateOrder(po, nil, []*VendorInvoice{inv})
		assert.Error(t, err)
	})
}

func TestAggregator_NilOrderRejected(t *testing.T) {
	_, err := NewAggregator().AggregateOrder(nil, nil, nil)
	assert.Error(t, err)
}
