package persistence

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMatchResultRepository implements MatchResultRepository using GORM
type GormMatchResultRepository struct {
	db *gorm.DB
}

// NewGormMatchResultRepository creates a new GormMatchResultRepository
func NewGormMatchResultRepository(db *gorm.DB) *GormMatchResultRepository {
	return &GormMatchResultRepository{db: db}
}

// FindByInvoice finds the current match result for an invoice
func (r *GormMatchResultRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) (*procurement.MatchResult, error) {
	var result procurement.MatchResult
	if err := r.db.WithContext(ctx).
		Preload("LineResults").
		Where("invoice_id = ?", invoiceID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

// FindByPurchaseOrder finds current match results for all invoices of an order
func (r *GormMatchResultRepository) FindByPurchaseOrder(ctx context.Context, poID uuid.UUID) ([]*procurement.MatchResult, error) {
	var results []*procurement.MatchResult
	if err := r.db.WithContext(ctx).
		Preload("LineResults").
		Where("po_id = ?", poID).
		Order("computed_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ReplaceForInvoice atomically swaps the stored result for an invoice with a
// new one. The caller sets the version; line results of the replaced row are
// removed by the cascading foreign key.
func (r *GormMatchResultRepository) ReplaceForInvoice(ctx context.Context, result *procurement.MatchResult) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", result.InvoiceID).
			Delete(&procurement.MatchResult{}).Error; err != nil {
			return err
		}
		return tx.Create(result).Error
	})
}

// List pages through results matching the filter ordered by computation time
// then ID. The returned token resumes after the last item of the page. Vendor
// filtering joins through the invoice since results do not denormalize the
// vendor.
func (r *GormMatchResultRepository) List(ctx context.Context, filter procurement.MatchResultFilter, pageToken string, limit int) (*shared.KeysetPage[procurement.MatchResult], error) {
	if limit <= 0 {
		limit = 50
	}

	query := r.db.WithContext(ctx).
		Model(&procurement.MatchResult{})

	if filter.Status != "" {
		query = query.Where("match_results.status = ?", filter.Status)
	}
	if filter.VendorID != nil {
		query = query.
			Joins("JOIN vendor_invoices ON vendor_invoices.id = match_results.invoice_id").
			Where("vendor_invoices.vendor_id = ?", *filter.VendorID)
	}
	if filter.ComputedAfter != nil {
		query = query.Where("match_results.computed_at >= ?", *filter.ComputedAfter)
	}
	if filter.ComputedBefore != nil {
		query = query.Where("match_results.computed_at <= ?", *filter.ComputedBefore)
	}

	if pageToken != "" {
		after, afterID, err := decodePageToken(pageToken)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_PAGE_TOKEN", "Page token is malformed")
		}
		query = query.Where("(match_results.computed_at, match_results.id) > (?, ?)", after, afterID)
	}

	var results []procurement.MatchResult
	if err := query.
		Preload("LineResults").
		Order("match_results.computed_at ASC, match_results.id ASC").
		Limit(limit + 1).
		Find(&results).Error; err != nil {
		return nil, err
	}

	page := &shared.KeysetPage[procurement.MatchResult]{Items: results}
	if len(results) > limit {
		page.Items = results[:limit]
		last := page.Items[limit-1]
		page.NextPageToken = encodePageToken(last.ComputedAt, last.ID)
	}
	return page, nil
}

// encodePageToken packs the keyset position into an opaque token
func encodePageToken(computedAt time.Time, id uuid.UUID) string {
	raw := fmt.Sprintf("%s|%s", computedAt.UTC().Format(time.RFC3339Nano), id)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// decodePageToken unpacks a token produced by encodePageToken
func decodePageToken(token string) (time.Time, uuid.UUID, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, uuid.Nil, fmt.Errorf("malformed page token")
	}
	computedAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}
	return computedAt, id, nil
}

// Ensure GormMatchResultRepository implements MatchResultRepository
var _ procurement.MatchResultRepository = (*GormMatchResultRepository)(nil)
