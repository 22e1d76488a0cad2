package persistence

import (
	"context"
	"errors"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPolicyRuleRepository implements PolicyRuleRepository using GORM
type GormPolicyRuleRepository struct {
	db *gorm.DB
}

// NewGormPolicyRuleRepository creates a new GormPolicyRuleRepository
func NewGormPolicyRuleRepository(db *gorm.DB) *GormPolicyRuleRepository {
	return &GormPolicyRuleRepository{db: db}
}

// FindByID finds a policy rule by its ID
func (r *GormPolicyRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.PolicyRule, error) {
	var rule procurement.PolicyRule
	if err := r.db.WithContext(ctx).
		First(&rule, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// FindAll returns every policy rule. The rule set is small by construction
// so no pagination is offered; callers fold the rows into a PolicySet.
func (r *GormPolicyRuleRepository) FindAll(ctx context.Context) ([]procurement.PolicyRule, error) {
	var rules []procurement.PolicyRule
	if err := r.db.WithContext(ctx).
		Order("level ASC, created_at ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// Save creates or updates a policy rule
func (r *GormPolicyRuleRepository) Save(ctx context.Context, rule *procurement.PolicyRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

// SaveWithLock updates the rule guarded by the version the caller loaded
func (r *GormPolicyRuleRepository) SaveWithLock(ctx context.Context, rule *procurement.PolicyRule) error {
	result := r.db.WithContext(ctx).
		Model(rule).
		Where("id = ? AND version = ?", rule.ID, rule.Version-1).
		Select("*").
		Omit("created_at").
		Updates(rule)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The record has been modified by another transaction")
	}
	return nil
}

// Delete removes a policy rule
func (r *GormPolicyRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&procurement.PolicyRule{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormPolicyRuleRepository implements PolicyRuleRepository
var _ procurement.PolicyRuleRepository = (*GormPolicyRuleRepository)(nil)
