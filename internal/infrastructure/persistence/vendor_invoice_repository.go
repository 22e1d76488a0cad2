package persistence

import (
	"context"
	"errors"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormVendorInvoiceRepository implements VendorInvoiceRepository using GORM
type GormVendorInvoiceRepository struct {
	db *gorm.DB
}

// NewGormVendorInvoiceRepository creates a new GormVendorInvoiceRepository
func NewGormVendorInvoiceRepository(db *gorm.DB) *GormVendorInvoiceRepository {
	return &GormVendorInvoiceRepository{db: db}
}

// FindByID finds a vendor invoice by its ID
func (r *GormVendorInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.VendorInvoice, error) {
	var invoice procurement.VendorInvoice
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindByInvoiceNumber finds an invoice by vendor and invoice number.
// Invoice numbers are only unique within a vendor.
func (r *GormVendorInvoiceRepository) FindByInvoiceNumber(ctx context.Context, vendorID uuid.UUID, invoiceNumber string) (*procurement.VendorInvoice, error) {
	var invoice procurement.VendorInvoice
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("vendor_id = ? AND invoice_number = ?", vendorID, invoiceNumber).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindByPurchaseOrder finds all invoices linked to a purchase order
func (r *GormVendorInvoiceRepository) FindByPurchaseOrder(ctx context.Context, poID uuid.UUID) ([]*procurement.VendorInvoice, error) {
	var invoices []*procurement.VendorInvoice
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("po_id = ?", poID).
		Order("created_at ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindByStatus finds invoices by status with filtering
func (r *GormVendorInvoiceRepository) FindByStatus(ctx context.Context, status procurement.InvoiceStatus, filter shared.Filter) ([]procurement.VendorInvoice, error) {
	var invoices []procurement.VendorInvoice

	query := r.db.WithContext(ctx).Model(&procurement.VendorInvoice{}).
		Where("status = ?", status)
	query = r.applyFilter(query, filter)

	if err := query.Preload("Lines").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// Save creates or updates a vendor invoice together with its lines
func (r *GormVendorInvoiceRepository) Save(ctx context.Context, invoice *procurement.VendorInvoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(invoice).Error; err != nil {
			return err
		}

		if invoice.ID != uuid.Nil {
			currentLineIDs := make([]uuid.UUID, len(invoice.Lines))
			for i, line := range invoice.Lines {
				currentLineIDs[i] = line.ID
			}

			// Remove lines dropped during a draft edit or resubmission
			if len(currentLineIDs) > 0 {
				if err := tx.Where("invoice_id = ? AND id NOT IN ?", invoice.ID, currentLineIDs).
					Delete(&procurement.VendorInvoiceLine{}).Error; err != nil {
					return err
				}
			} else {
				if err := tx.Where("invoice_id = ?", invoice.ID).
					Delete(&procurement.VendorInvoiceLine{}).Error; err != nil {
					return err
				}
			}

			for i := range invoice.Lines {
				invoice.Lines[i].InvoiceID = invoice.ID
				if err := tx.Save(&invoice.Lines[i]).Error; err != nil {
					return err
				}
			}
		}

		return nil
	})
}

// SaveWithLock updates the invoice header guarded by the version the caller
// loaded. Status transitions never touch lines, so only the header is written.
// Zero values must be written too: a resubmission clears the decision fields.
func (r *GormVendorInvoiceRepository) SaveWithLock(ctx context.Context, invoice *procurement.VendorInvoice) error {
	result := r.db.WithContext(ctx).
		Model(invoice).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
		Select("*").
		Omit("Lines", "created_at").
		Updates(invoice)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The record has been modified by another transaction")
	}
	return nil
}

// CountByStatus counts invoices in a given status
func (r *GormVendorInvoiceRepository) CountByStatus(ctx context.Context, status procurement.InvoiceStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&procurement.VendorInvoice{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options including pagination and ordering
func (r *GormVendorInvoiceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("invoice_number ILIKE ?", searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "vendor_id":
			query = query.Where("vendor_id = ?", value)
		case "po_id":
			query = query.Where("po_id = ?", value)
		case "unlinked":
			if b, ok := value.(bool); ok && b {
				query = query.Where("po_id IS NULL")
			}
		}
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, VendorInvoiceSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	return query.Order(sortField + " " + sortOrder)
}

// Ensure GormVendorInvoiceRepository implements VendorInvoiceRepository
var _ procurement.VendorInvoiceRepository = (*GormVendorInvoiceRepository)(nil)
