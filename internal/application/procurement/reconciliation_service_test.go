package procurement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ==================== In-memory fakes ====================

type fakePORepo struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*procurement.PurchaseOrder
}

func newFakePORepo() *fakePORepo {
	return &fakePORepo{orders: make(map[uuid.UUID]*procurement.PurchaseOrder)}
}

func (r *fakePORepo) FindByID(_ context.Context, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	po, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return po, nil
}

func (r *fakePORepo) FindByOrderNumber(_ context.Context, number string) (*procurement.PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, po := range r.orders {
		if po.OrderNumber == number {
			return po, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakePORepo) FindAll(_ context.Context, _ shared.Filter) ([]procurement.PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]procurement.PurchaseOrder, 0, len(r.orders))
	for _, po := range r.orders {
		out = append(out, *po)
	}
	return out, nil
}

func (r *fakePORepo) Save(_ context.Context, po *procurement.PurchaseOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[po.ID] = po
	return nil
}

func (r *fakePORepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.orders)), nil
}

type fakeReceiptRepo struct {
	mu       sync.RWMutex
	receipts map[uuid.UUID]*procurement.GoodsReceipt
}

func newFakeReceiptRepo() *fakeReceiptRepo {
	return &fakeReceiptRepo{receipts: make(map[uuid.UUID]*procurement.GoodsReceipt)}
}

func (r *fakeReceiptRepo) FindByID(_ context.Context, id uuid.UUID) (*procurement.GoodsReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	receipt, ok := r.receipts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return receipt, nil
}

func (r *fakeReceiptRepo) FindByReceiptNumber(_ context.Context, number string) (*procurement.GoodsReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, receipt := range r.receipts {
		if receipt.ReceiptNumber == number {
			return receipt, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeReceiptRepo) FindByPurchaseOrder(_ context.Context, poID uuid.UUID) ([]*procurement.GoodsReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*procurement.GoodsReceipt, 0)
	for _, receipt := range r.receipts {
		if receipt.POID == poID {
			out = append(out, receipt)
		}
	}
	return out, nil
}

func (r *fakeReceiptRepo) Save(_ context.Context, receipt *procurement.GoodsReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts[receipt.ID] = receipt
	return nil
}

func (r *fakeReceiptRepo) SaveWithLock(ctx context.Context, receipt *procurement.GoodsReceipt) error {
	return r.Save(ctx, receipt)
}

func (r *fakeReceiptRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.receipts)), nil
}

type fakeInvoiceRepo struct {
	mu       sync.RWMutex
	invoices map[uuid.UUID]*procurement.VendorInvoice
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[uuid.UUID]*procurement.VendorInvoice)}
}

func (r *fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*procurement.VendorInvoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	invoice, ok := r.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return invoice, nil
}

func (r *fakeInvoiceRepo) FindByInvoiceNumber(_ context.Context, vendorID uuid.UUID, number string) (*procurement.VendorInvoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, invoice := range r.invoices {
		if invoice.VendorID == vendorID && invoice.InvoiceNumber == number {
			return invoice, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeInvoiceRepo) FindByPurchaseOrder(_ context.Context, poID uuid.UUID) ([]*procurement.VendorInvoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*procurement.VendorInvoice, 0)
	for _, invoice := range r.invoices {
		if invoice.POID != nil && *invoice.POID == poID {
			out = append(out, invoice)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) FindByStatus(_ context.Context, status procurement.InvoiceStatus, _ shared.Filter) ([]procurement.VendorInvoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]procurement.VendorInvoice, 0)
	for _, invoice := range r.invoices {
		if invoice.Status == status {
			out = append(out, *invoice)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) Save(_ context.Context, invoice *procurement.VendorInvoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[invoice.ID] = invoice
	return nil
}

func (r *fakeInvoiceRepo) SaveWithLock(ctx context.Context, invoice *procurement.VendorInvoice) error {
	return r.Save(ctx, invoice)
}

func (r *fakeInvoiceRepo) CountByStatus(_ context.Context, status procurement.InvoiceStatus) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, invoice := range r.invoices {
		if invoice.Status == status {
			n++
		}
	}
	return n, nil
}

type fakeResultRepo struct {
	mu      sync.RWMutex
	results map[uuid.UUID]*procurement.MatchResult
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{results: make(map[uuid.UUID]*procurement.MatchResult)}
}

func (r *fakeResultRepo) FindByInvoice(_ context.Context, invoiceID uuid.UUID) (*procurement.MatchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.results[invoiceID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return result, nil
}

func (r *fakeResultRepo) FindByPurchaseOrder(_ context.Context, poID uuid.UUID) ([]*procurement.MatchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*procurement.MatchResult, 0)
	for _, result := range r.results {
		if result.POID == poID {
			out = append(out, result)
		}
	}
	return out, nil
}

func (r *fakeResultRepo) ReplaceForInvoice(_ context.Context, result *procurement.MatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result.InvoiceID] = result
	return nil
}

func (r *fakeResultRepo) List(_ context.Context, filter procurement.MatchResultFilter, _ string, limit int) (*shared.KeysetPage[procurement.MatchResult], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	page := &shared.KeysetPage[procurement.MatchResult]{}
	for _, result := range r.results {
		if filter.Status != "" && result.Status != filter.Status {
			continue
		}
		if filter.ComputedAfter != nil && result.ComputedAt.Before(*filter.ComputedAfter) {
			continue
		}
		if filter.ComputedBefore != nil && result.ComputedAt.After(*filter.ComputedBefore) {
			continue
		}
		if len(page.Items) < limit {
			page.Items = append(page.Items, *result)
		}
	}
	return page, nil
}

type fakeRuleRepo struct {
	mu    sync.RWMutex
	rules map[uuid.UUID]*procurement.PolicyRule
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{rules: make(map[uuid.UUID]*procurement.PolicyRule)}
}

func (r *fakeRuleRepo) FindByID(_ context.Context, id uuid.UUID) (*procurement.PolicyRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return rule, nil
}

func (r *fakeRuleRepo) FindAll(_ context.Context) ([]procurement.PolicyRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]procurement.PolicyRule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, *rule)
	}
	return out, nil
}

func (r *fakeRuleRepo) Save(_ context.Context, rule *procurement.PolicyRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.ID] = rule
	return nil
}

func (r *fakeRuleRepo) SaveWithLock(ctx context.Context, rule *procurement.PolicyRule) error {
	return r.Save(ctx, rule)
}

func (r *fakeRuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rules, id)
	return nil
}

// testLocker serializes per order with plain in-process mutexes
type testLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newTestLocker() *testLocker {
	return &testLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *testLocker) Acquire(_ context.Context, poID uuid.UUID) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[poID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[poID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock, nil
}

type failingLocker struct{}

func (failingLocker) Acquire(context.Context, uuid.UUID) (func(), error) {
	return nil, shared.ErrConcurrentUpdateConflict
}

// ==================== Fixtures ====================

type reconFixture struct {
	svc         *ReconciliationService
	poRepo      *fakePORepo
	receiptRepo *fakeReceiptRepo
	invoiceRepo *fakeInvoiceRepo
	resultRepo  *fakeResultRepo
	ruleRepo    *fakeRuleRepo
	po          *procurement.PurchaseOrder
	line        *procurement.PurchaseOrderLine
}

func newReconFixture(t *testing.T) *reconFixture {
	t.Helper()

	f := &reconFixture{
		poRepo:      newFakePORepo(),
		receiptRepo: newFakeReceiptRepo(),
		invoiceRepo: newFakeInvoiceRepo(),
		resultRepo:  newFakeResultRepo(),
		ruleRepo:    newFakeRuleRepo(),
	}
	f.svc = NewReconciliationService(
		f.poRepo, f.receiptRepo, f.invoiceRepo, f.resultRepo, f.ruleRepo,
		newTestLocker(), zap.NewNop(),
	)

	po, err := procurement.NewPurchaseOrder("PO-001", uuid.New())
	require.NoError(t, err)
	line, err := po.AddLine(uuid.New(), nil, decimal.NewFromInt(100), decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, f.poRepo.Save(context.Background(), po))

	f.po = po
	f.line = line
	return f
}

func (f *reconFixture) postReceipt(t *testing.T, number string, qty int64) {
	t.Helper()
	receipt, err := procurement.NewGoodsReceipt(number, f.po.ID, []procurement.ReceivedLineInput{
		{POLineID: f.line.ID, ReceivedQty: decimal.NewFromInt(qty), ReceivedAt: time.Now()},
	})
	require.NoError(t, err)
	require.NoError(t, f.receiptRepo.Save(context.Background(), receipt))
}

func (f *reconFixture) submitInvoice(t *testing.T, number string, qty, price int64) *procurement.VendorInvoice {
	t.Helper()
	invoice, err := procurement.NewVendorInvoice(number, f.po.VendorID, &f.po.ID)
	require.NoError(t, err)
	require.NoError(t, invoice.SetLines([]procurement.InvoiceLineInput{
		{POLineID: f.line.ID, InvoicedQty: decimal.NewFromInt(qty), UnitPrice: decimal.NewFromInt(price)},
	}))
	require.NoError(t, invoice.Submit())
	invoice.ClearDomainEvents()
	require.NoError(t, f.invoiceRepo.Save(context.Background(), invoice))
	return invoice
}

// ==================== Tests ====================

func TestReconciliationService_Recompute(t *testing.T) {
	ctx := context.Background()

	t.Run("matched invoice moves to MATCHED", func(t *testing.T) {
		f := newReconFixture(t)
		f.postReceipt(t, "GRN-1", 100)
		invoice := f.submitInvoice(t, "INV-1", 100, 10)

		result, err := f.svc.Recompute(ctx, invoice.ID)
		require.NoError(t, err)

		assert.Equal(t, "MATCHED", result.Status)
		assert.Equal(t, int64(1), result.Version)

		stored, err := f.invoiceRepo.FindByID(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, procurement.InvoiceStatusMatched, stored.Status)
	})

	t.Run("over-billed invoice moves to MISMATCH", func(t *testing.T) {
		f := newReconFixture(t)
		f.postReceipt(t, "GRN-1", 100)
		invoice := f.submitInvoice(t, "INV-1", 120, 10)

		result, err := f.svc.Recompute(ctx, invoice.ID)
		require.NoError(t, err)

		assert.Equal(t, "MISMATCH", result.Status)
		stored, err := f.invoiceRepo.FindByID(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, procurement.InvoiceStatusMismatch, stored.Status)
	})

	t.Run("recompute without document change keeps version", func(t *testing.T) {
		f := newReconFixture(t)
		f.postReceipt(t, "GRN-1", 100)
		invoice := f.submitInvoice(t, "INV-1", 100, 10)

		first, err := f.svc.Recompute(ctx, invoice.ID)
		require.NoError(t, err)
		second, err := f.svc.Recompute(ctx, invoice.ID)
		require.NoError(t, err)

		assert.Equal(t, first.Version, second.Version)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("document change bumps version", func(t *testing.T) {
		f := newReconFixture(t)
		f.postReceipt(t, "GRN-1", 50)
		invoice := f.submitInvoice(t, "INV-1", 100, 10)

		first, err := f.svc.Recompute(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, "MISMATCH", first.Status)

		f.postReceipt(t, "GRN-2", 50)
		second, err := f.svc.Recompute(ctx, invoice.ID)
		require.NoError(t, err)

		assert.Equal(t, "MATCHED", second.Status)
		assert.Equal(t, first.Version+1, second.Version)
	})

	t.Run("unlinked invoice is rejected", func(t *testing.T) {
		f := newReconFixture(t)
		invoice, err := procurement.NewVendorInvoice("INV-9", f.po.VendorID, nil)
		require.NoError(t, err)
		require.NoError(t, f.invoiceRepo.Save(ctx, invoice))

		_, err = f.svc.Recompute(ctx, invoice.ID)
		require.Error(t, err)
		assert.True(t, shared.HasErrorCode(err, "UNLINKED_INVOICE"))
	})

	t.Run("unknown invoice propagates not found", func(t *testing.T) {
		f := newReconFixture(t)
		_, err := f.svc.Recompute(ctx, uuid.New())
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("lock contention surfaces conflict error", func(t *testing.T) {
		f := newReconFixture(t)
		f.postReceipt(t, "GRN-1", 100)
		invoice := f.submitInvoice(t, "INV-1", 100, 10)

		conflicted := NewReconciliationService(
			f.poRepo, f.receiptRepo, f.invoiceRepo, f.resultRepo, f.ruleRepo,
			failingLocker{}, zap.NewNop(),
		)
		_, err := conflicted.Recompute(ctx, invoice.ID)
		require.Error(t, err)
		assert.True(t, shared.HasErrorCode(err, "CONCURRENT_UPDATE_CONFLICT"))
	})

	t.Run("invalid policy blocks matching", func(t *testing.T) {
		f := newReconFixture(t)
		f.postReceipt(t, "GRN-1", 100)
		invoice := f.submitInvoice(t, "INV-1", 100, 10)

		rule, err := procurement.NewPolicyRule(procurement.PolicyLevelGlobal, nil, procurement.DefaultTolerancePolicy())
		require.NoError(t, err)
		rule.Policy.QtyTolerancePct = decimal.NewFromInt(-1)
		require.NoError(t, f.ruleRepo.Save(ctx, rule))

		_, err = f.svc.Recompute(ctx, invoice.ID)
		require.Error(t, err)
		assert.True(t, shared.HasErrorCode(err, "INVALID_POLICY"))
	})
}

func TestReconciliationService_ConcurrentReceipts(t *testing.T) {
	// Two receipts posted concurrently against the same order line must both
	// land in the totals; the serialized recompute then sees 100, not 50.
	ctx := context.Background()
	f := newReconFixture(t)
	invoice := f.submitInvoice(t, "INV-1", 100, 10)

	var wg sync.WaitGroup
	for _, number := range []string{"GRN-A", "GRN-B"} {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			receipt, err := procurement.NewGoodsReceipt(n, f.po.ID, []procurement.ReceivedLineInput{
				{POLineID: f.line.ID, ReceivedQty: decimal.NewFromInt(50), ReceivedAt: time.Now()},
			})
			assert.NoError(t, err)
			assert.NoError(t, f.receiptRepo.Save(ctx, receipt))
			assert.NoError(t, f.svc.RecomputeOrder(ctx, f.po.ID))
		}(number)
	}
	wg.Wait()

	result, err := f.svc.Recompute(ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, result.LineResults, 1)
	assert.True(t, result.LineResults[0].ReceivedQty.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "MATCHED", result.Status)
}

func TestReconciliationService_RecomputeOrderSkipsDecided(t *testing.T) {
	ctx := context.Background()
	f := newReconFixture(t)
	f.postReceipt(t, "GRN-1", 100)

	open := f.submitInvoice(t, "INV-1", 100, 10)
	decided := f.submitInvoice(t, "INV-2", 100, 10)
	require.NoError(t, decided.ApplyMatchVerdict(procurement.MatchStatusMatched))
	require.NoError(t, decided.Approve("alice"))
	decided.ClearDomainEvents()
	require.NoError(t, f.invoiceRepo.Save(ctx, decided))

	require.NoError(t, f.svc.RecomputeOrder(ctx, f.po.ID))

	_, err := f.resultRepo.FindByInvoice(ctx, open.ID)
	assert.NoError(t, err)
	_, err = f.resultRepo.FindByInvoice(ctx, decided.ID)
	assert.True(t, shared.IsNotFound(err))
}

func TestReconciliationService_Decisions(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, invoicedQty int64) (*reconFixture, *procurement.VendorInvoice) {
		f := newReconFixture(t)
		f.postReceipt(t, "GRN-1", 100)
		invoice := f.submitInvoice(t, "INV-1", invoicedQty, 10)
		_, err := f.svc.Recompute(ctx, invoice.ID)
		require.NoError(t, err)
		return f, invoice
	}

	t.Run("approve then post", func(t *testing.T) {
		f, invoice := setup(t, 100)

		approved, err := f.svc.Approve(ctx, invoice.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, "APPROVED", approved.Status)

		posted, err := f.svc.Post(ctx, invoice.ID, "carol")
		require.NoError(t, err)
		assert.Equal(t, "POSTED", posted.Status)
	})

	t.Run("approve on mismatch fails", func(t *testing.T) {
		f, invoice := setup(t, 130)
		_, err := f.svc.Approve(ctx, invoice.ID, "alice")
		require.Error(t, err)
		assert.True(t, shared.HasErrorCode(err, "ILLEGAL_TRANSITION"))
	})

	t.Run("override on mismatch records justification", func(t *testing.T) {
		f, invoice := setup(t, 130)

		overridden, err := f.svc.Override(ctx, invoice.ID, "alice", "vendor ships in packs of 130")
		require.NoError(t, err)
		assert.Equal(t, "APPROVED", overridden.Status)
		assert.Equal(t, "vendor ships in packs of 130", overridden.DecisionNote)
	})

	t.Run("override without justification fails", func(t *testing.T) {
		f, invoice := setup(t, 130)
		_, err := f.svc.Override(ctx, invoice.ID, "alice", "")
		assert.Error(t, err)
	})

	t.Run("reject works from matched", func(t *testing.T) {
		f, invoice := setup(t, 100)
		rejected, err := f.svc.Reject(ctx, invoice.ID, "bob", "duplicate billing")
		require.NoError(t, err)
		assert.Equal(t, "REJECTED", rejected.Status)
	})
}

func TestReconciliationService_ListMismatches(t *testing.T) {
	ctx := context.Background()
	f := newReconFixture(t)
	f.postReceipt(t, "GRN-1", 100)

	matched := f.submitInvoice(t, "INV-1", 100, 10)
	mismatched := f.submitInvoice(t, "INV-2", 200, 10)
	_, err := f.svc.Recompute(ctx, matched.ID)
	// The second submission over-bills the pair; INV-1 may flip too, which is
	// fine for this test since we only assert on INV-2's presence.
	require.NoError(t, err)
	_, err = f.svc.Recompute(ctx, mismatched.ID)
	require.NoError(t, err)

	page, err := f.svc.ListMismatches(ctx, procurement.MatchResultFilter{}, "", 10)
	require.NoError(t, err)

	found := false
	for _, item := range page.Items {
		if item.InvoiceID == mismatched.ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestReconciliationService_ListFilters(t *testing.T) {
	ctx := context.Background()
	f := newReconFixture(t)
	f.postReceipt(t, "GRN-1", 100)

	invoice := f.submitInvoice(t, "INV-1", 100, 10)
	_, err := f.svc.Recompute(ctx, invoice.ID)
	require.NoError(t, err)

	t.Run("unknown status is rejected", func(t *testing.T) {
		_, err := f.svc.List(ctx, procurement.MatchResultFilter{Status: "BOGUS"}, "", 10)
		assert.Error(t, err)
	})

	t.Run("empty status lists every result", func(t *testing.T) {
		page, err := f.svc.List(ctx, procurement.MatchResultFilter{}, "", 10)
		require.NoError(t, err)
		assert.Len(t, page.Items, 1)
	})

	t.Run("time range excludes results computed outside it", func(t *testing.T) {
		future := time.Now().Add(time.Hour)
		page, err := f.svc.List(ctx, procurement.MatchResultFilter{ComputedAfter: &future}, "", 10)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})
}
