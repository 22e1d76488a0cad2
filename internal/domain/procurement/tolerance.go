package procurement

import (
	"fmt"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PolicyLevel identifies the scope of a tolerance policy rule.
// Resolution walks PRODUCT → VENDOR → CATEGORY → GLOBAL; first match wins,
// levels are never merged.
type PolicyLevel string

const (
	PolicyLevelProduct  PolicyLevel = "PRODUCT"
	PolicyLevelVendor   PolicyLevel = "VENDOR"
	PolicyLevelCategory PolicyLevel = "CATEGORY"
	PolicyLevelGlobal   PolicyLevel = "GLOBAL"
)

// IsValid checks if the level is a valid PolicyLevel
func (l PolicyLevel) IsValid() bool {
	switch l {
	case PolicyLevelProduct, PolicyLevelVendor, PolicyLevelCategory, PolicyLevelGlobal:
		return true
	}
	return false
}

// String returns the string representation of PolicyLevel
func (l PolicyLevel) String() string {
	return string(l)
}

// TolerancePolicy is the allowed deviation between invoiced/received figures
// and the purchase order baseline before a discrepancy is flagged.
// Percentages are fractions: 0.05 means 5%.
type TolerancePolicy struct {
	QtyTolerancePct         decimal.Decimal `gorm:"type:decimal(9,6);not null;default:0" json:"qty_tolerance_pct"`
	PriceTolerancePct       decimal.Decimal `gorm:"type:decimal(9,6);not null;default:0" json:"price_tolerance_pct"`
	OverReceiptTolerancePct decimal.Decimal `gorm:"type:decimal(9,6);not null;default:0" json:"over_receipt_tolerance_pct"`
	AllowBillBeforeReceipt  bool            `gorm:"not null;default:false" json:"allow_bill_before_receipt"`
}

// DefaultTolerancePolicy returns the strictest policy: zero tolerance on
// everything and no billing ahead of receipt. Used when no rule resolves.
func DefaultTolerancePolicy() TolerancePolicy {
	return TolerancePolicy{
		QtyTolerancePct:         decimal.Zero,
		PriceTolerancePct:       decimal.Zero,
		OverReceiptTolerancePct: decimal.Zero,
		AllowBillBeforeReceipt:  false,
	}
}

// Validate checks the policy for malformed configuration. Negative
// tolerances are rejected here, at load time, never at match time.
func (p TolerancePolicy) Validate() error {
	if p.QtyTolerancePct.IsNegative() {
		return shared.NewDomainError("INVALID_POLICY", "Quantity tolerance cannot be negative")
	}
	if p.PriceTolerancePct.IsNegative() {
		return shared.NewDomainError("INVALID_POLICY", "Price tolerance cannot be negative")
	}
	if p.OverReceiptTolerancePct.IsNegative() {
		return shared.NewDomainError("INVALID_POLICY", "Over-receipt tolerance cannot be negative")
	}
	return nil
}

// PolicyRule binds a TolerancePolicy to a scope. Exactly one scope field is
// set according to the level; GLOBAL rules have none.
type PolicyRule struct {
	shared.BaseAggregateRoot
	Level      PolicyLevel     `gorm:"type:varchar(20);not null;index"`
	ProductID  *uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
	VendorID   *uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
	CategoryID *uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
	Policy     TolerancePolicy `gorm:"embedded;embeddedPrefix:policy_"`
}

// TableName returns the table name for GORM
func (PolicyRule) TableName() string {
	return "tolerance_policy_rules"
}

// NewPolicyRule creates a new tolerance policy rule for the given scope
func NewPolicyRule(level PolicyLevel, scopeID *uuid.UUID, policy TolerancePolicy) (*PolicyRule, error) {
	if !level.IsValid() {
		return nil, shared.NewDomainError("INVALID_POLICY", fmt.Sprintf("Unknown policy level %q", level))
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	rule := &PolicyRule{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Level:             level,
		Policy:            policy,
	}

	switch level {
	case PolicyLevelGlobal:
		if scopeID != nil {
			return nil, shared.NewDomainError("INVALID_POLICY", "Global rules cannot carry a scope ID")
		}
	default:
		if scopeID == nil || *scopeID == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_POLICY", fmt.Sprintf("%s rules require a scope ID", level))
		}
		switch level {
		case PolicyLevelProduct:
			rule.ProductID = scopeID
		case PolicyLevelVendor:
			rule.VendorID = scopeID
		case PolicyLevelCategory:
			rule.CategoryID = scopeID
		}
	}

	rule.AddDomainEvent(NewTolerancePolicyChangedEvent(rule))

	return rule, nil
}

// UpdatePolicy replaces the rule's tolerance values
func (r *PolicyRule) UpdatePolicy(policy TolerancePolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	r.Policy = policy
	r.IncrementVersion()
	r.AddDomainEvent(NewTolerancePolicyChangedEvent(r))
	return nil
}

// PolicySet is an in-memory index of validated policy rules supporting the
// four-level resolution order. Built once from the rule store; rebuilding on
// rule change keeps INVALID_POLICY a load-time failure that blocks matching
// for the whole set until the configuration is fixed.
type PolicySet struct {
	byProduct  map[uuid.UUID]TolerancePolicy
	byVendor   map[uuid.UUID]TolerancePolicy
	byCategory map[uuid.UUID]TolerancePolicy
	global     *TolerancePolicy
}

// NewPolicySet validates and indexes the given rules
func NewPolicySet(rules []PolicyRule) (*PolicySet, error) {
	set := &PolicySet{
		byProduct:  make(map[uuid.UUID]TolerancePolicy),
		byVendor:   make(map[uuid.UUID]TolerancePolicy),
		byCategory: make(map[uuid.UUID]TolerancePolicy),
	}

	for i := range rules {
		rule := &rules[i]
		if err := rule.Policy.Validate(); err != nil {
			return nil, shared.NewDomainError("INVALID_POLICY",
				fmt.Sprintf("Rule %s (%s) is invalid: %s", rule.ID, rule.Level, err.Error()))
		}
		switch rule.Level {
		case PolicyLevelProduct:
			if rule.ProductID == nil {
				return nil, shared.NewDomainError("INVALID_POLICY", fmt.Sprintf("Product rule %s has no product ID", rule.ID))
			}
			set.byProduct[*rule.ProductID] = rule.Policy
		case PolicyLevelVendor:
			if rule.VendorID == nil {
				return nil, shared.NewDomainError("INVALID_POLICY", fmt.Sprintf("Vendor rule %s has no vendor ID", rule.ID))
			}
			set.byVendor[*rule.VendorID] = rule.Policy
		case PolicyLevelCategory:
			if rule.CategoryID == nil {
				return nil, shared.NewDomainError("INVALID_POLICY", fmt.Sprintf("Category rule %s has no category ID", rule.ID))
			}
			set.byCategory[*rule.CategoryID] = rule.Policy
		case PolicyLevelGlobal:
			p := rule.Policy
			set.global = &p
		default:
			return nil, shared.NewDomainError("INVALID_POLICY", fmt.Sprintf("Rule %s has unknown level %q", rule.ID, rule.Level))
		}
	}

	return set, nil
}

// Resolve returns the tolerance policy for a vendor/product pair. The most
// specific rule wins: product override, then vendor, then the product's
// category default, then the global default. Levels are not merged; a partial
// product rule does not inherit vendor values.
func (s *PolicySet) Resolve(vendorID, productID uuid.UUID, categoryID *uuid.UUID) TolerancePolicy {
	if p, ok := s.byProduct[productID]; ok {
		return p
	}
	if p, ok := s.byVendor[vendorID]; ok {
		return p
	}
	if categoryID != nil {
		if p, ok := s.byCategory[*categoryID]; ok {
			return p
		}
	}
	if s.global != nil {
		return *s.global
	}
	return DefaultTolerancePolicy()
}
