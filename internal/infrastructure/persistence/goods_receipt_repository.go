package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormGoodsReceiptRepository implements GoodsReceiptRepository using GORM
type GormGoodsReceiptRepository struct {
	db *gorm.DB
}

// NewGormGoodsReceiptRepository creates a new GormGoodsReceiptRepository
func NewGormGoodsReceiptRepository(db *gorm.DB) *GormGoodsReceiptRepository {
	return &GormGoodsReceiptRepository{db: db}
}

// FindByID finds a goods receipt by its ID
func (r *GormGoodsReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.GoodsReceipt, error) {
	var receipt procurement.GoodsReceipt
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&receipt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

// FindByReceiptNumber finds a goods receipt by receipt number
func (r *GormGoodsReceiptRepository) FindByReceiptNumber(ctx context.Context, receiptNumber string) (*procurement.GoodsReceipt, error) {
	var receipt procurement.GoodsReceipt
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("receipt_number = ?", receiptNumber).
		First(&receipt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

// FindByPurchaseOrder finds all receipts recorded against a purchase order
func (r *GormGoodsReceiptRepository) FindByPurchaseOrder(ctx context.Context, poID uuid.UUID) ([]*procurement.GoodsReceipt, error) {
	var receipts []*procurement.GoodsReceipt
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("po_id = ?", poID).
		Order("posted_at ASC").
		Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}

// Save creates or updates a goods receipt together with its lines
func (r *GormGoodsReceiptRepository) Save(ctx context.Context, receipt *procurement.GoodsReceipt) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(receipt).Error; err != nil {
			return err
		}

		// Receipt lines are immutable after posting; only inserts happen here
		for i := range receipt.Lines {
			receipt.Lines[i].ReceiptID = receipt.ID
			if err := tx.Save(&receipt.Lines[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// SaveWithLock updates the receipt header guarded by the version the caller
// loaded. Lines never change after posting, so only the header is written.
func (r *GormGoodsReceiptRepository) SaveWithLock(ctx context.Context, receipt *procurement.GoodsReceipt) error {
	result := r.db.WithContext(ctx).
		Model(receipt).
		Where("id = ? AND version = ?", receipt.ID, receipt.Version-1).
		Select("*").
		Omit("Lines", "created_at").
		Updates(receipt)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The record has been modified by another transaction")
	}
	return nil
}

// Count counts goods receipts matching the filter
func (r *GormGoodsReceiptRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&procurement.GoodsReceipt{})
	query = r.applyFilterWithoutPagination(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormGoodsReceiptRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("receipt_number ILIKE ?", searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "po_id":
			query = query.Where("po_id = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "posted_after":
			if t, ok := value.(time.Time); ok {
				query = query.Where("posted_at >= ?", t)
			}
		case "posted_before":
			if t, ok := value.(time.Time); ok {
				query = query.Where("posted_at <= ?", t)
			}
		}
	}

	return query
}

// Ensure GormGoodsReceiptRepository implements GoodsReceiptRepository
var _ procurement.GoodsReceiptRepository = (*GormGoodsReceiptRepository)(nil)
