package procurement

import (
	"testing"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTolerancePolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  TolerancePolicy
		wantErr bool
	}{
		{
			name:   "zero tolerances are valid",
			policy: DefaultTolerancePolicy(),
		},
		{
			name: "positive tolerances are valid",
			policy: TolerancePolicy{
				QtyTolerancePct:         dec("0.05"),
				PriceTolerancePct:       dec("0.02"),
				OverReceiptTolerancePct: dec("0.10"),
			},
		},
		{
			name:    "negative quantity tolerance",
			policy:  TolerancePolicy{QtyTolerancePct: dec("-0.01")},
			wantErr: true,
		},
		{
			name:    "negative price tolerance",
			policy:  TolerancePolicy{PriceTolerancePct: dec("-0.01")},
			wantErr: true,
		},
		{
			name:    "negative over-receipt tolerance",
			policy:  TolerancePolicy{OverReceiptTolerancePct: dec("-1")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, shared.HasErrorCode(err, "INVALID_POLICY"))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewPolicyRule_ScopeValidation(t *testing.T) {
	scopeID := uuid.New()

	t.Run("global rule rejects scope", func(t *testing.T) {
		_, err := NewPolicyRule(PolicyLevelGlobal, &scopeID, DefaultTolerancePolicy())
		assert.Error(t, err)
	})

	t.Run("vendor rule requires scope", func(t *testing.T) {
		_, err := NewPolicyRule(PolicyLevelVendor, nil, DefaultTolerancePolicy())
		assert.Error(t, err)
	})

	t.Run("product rule carries product ID", func(t *testing.T) {
		rule, err := NewPolicyRule(PolicyLevelProduct, &scopeID, DefaultTolerancePolicy())
		require.NoError(t, err)
		require.NotNil(t, rule.ProductID)
		assert.Equal(t, scopeID, *rule.ProductID)
		assert.Nil(t, rule.VendorID)
	})

	t.Run("invalid level rejected", func(t *testing.T) {
		_, err := NewPolicyRule(PolicyLevel("WAREHOUSE"), &scopeID, DefaultTolerancePolicy())
		assert.Error(t, err)
	})

	t.Run("invalid policy rejected at creation", func(t *testing.T) {
		_, err := NewPolicyRule(PolicyLevelGlobal, nil, TolerancePolicy{QtyTolerancePct: dec("-1")})
		assert.Error(t, err)
	})
}

func TestNewPolicySet_RejectsInvalidRules(t *testing.T) {
	rule, err := NewPolicyRule(PolicyLevelGlobal, nil, DefaultTolerancePolicy())
	require.NoError(t, err)
	rule.Policy.PriceTolerancePct = dec("-0.5")

	_, err = NewPolicySet([]PolicyRule{*rule})
	require.Error(t, err)
	assert.True(t, shared.HasErrorCode(err, "INVALID_POLICY"))
}

func TestPolicySet_ResolutionOrder(t *testing.T) {
	vendorID := uuid.New()
	productID := uuid.New()
	categoryID := uuid.New()

	mk := func(level PolicyLevel, scope *uuid.UUID, qtyTol string) PolicyRule {
		rule, err := NewPolicyRule(level, scope, TolerancePolicy{QtyTolerancePct: dec(qtyTol)})
		require.NoError(t, err)
		return *rule
	}

	set, err := NewPolicySet([]PolicyRule{
		mk(PolicyLevelProduct, &productID, "0.01"),
		mk(PolicyLevelVendor, &vendorID, "0.02"),
		mk(PolicyLevelCategory, &categoryID, "0.03"),
		mk(PolicyLevelGlobal, nil, "0.04"),
	})
	require.NoError(t, err)

	t.Run("product override wins", func(t *testing.T) {
		p := set.Resolve(vendorID, productID, &categoryID)
		assert.True(t, p.QtyTolerancePct.Equal(dec("0.01")))
	})

	t.Run("vendor override next", func(t *testing.T) {
		p := set.Resolve(vendorID, uuid.New(), &categoryID)
		assert.True(t, p.QtyTolerancePct.Equal(dec("0.02")))
	})

	t.Run("category default next", func(t *testing.T) {
		p := set.Resolve(uuid.New(), uuid.New(), &categoryID)
		assert.True(t, p.QtyTolerancePct.Equal(dec("0.03")))
	})

	t.Run("global default last", func(t *testing.T) {
		p := set.Resolve(uuid.New(), uuid.New(), nil)
		assert.True(t, p.QtyTolerancePct.Equal(dec("0.04")))
	})
}

func TestPolicySet_NoMergingAcrossLevels(t *testing.T) {
	vendorID := uuid.New()
	productID := uuid.New()

	productRule, err := NewPolicyRule(PolicyLevelProduct, &productID, TolerancePolicy{QtyTolerancePct: dec("0.10")})
	require.NoError(t, err)
	vendorRule, err := NewPolicyRule(PolicyLevelVendor, &vendorID, TolerancePolicy{
		QtyTolerancePct:   dec("0.05"),
		PriceTolerancePct: dec("0.05"),
	})
	require.NoError(t, err)

	set, err := NewPolicySet([]PolicyRule{*productRule, *vendorRule})
	require.NoError(t, err)

	// The product rule has no price tolerance of its own; the vendor rule's
	// price tolerance must not leak into the resolved policy.
	p := set.Resolve(vendorID, productID, nil)
	assert.True(t, p.QtyTolerancePct.Equal(dec("0.10")))
	assert.True(t, p.PriceTolerancePct.IsZero())
}

func TestPolicySet_FallsBackToStrictDefault(t *testing.T) {
	set, err := NewPolicySet(nil)
	require.NoError(t, err)

	p := set.Resolve(uuid.New(), uuid.New(), nil)
	assert.True(t, p.QtyTolerancePct.IsZero())
	assert.True(t, p.PriceTolerancePct.IsZero())
	assert.False(t, p.AllowBillBeforeReceipt)
}

func TestPolicyRule_UpdatePolicy(t *testing.T) {
	rule, err := NewPolicyRule(PolicyLevelGlobal, nil, DefaultTolerancePolicy())
	require.NoError(t, err)
	rule.ClearDomainEvents()
	before := rule.Version

	require.NoError(t, rule.UpdatePolicy(TolerancePolicy{QtyTolerancePct: dec("0.05")}))
	assert.True(t, rule.Policy.QtyTolerancePct.Equal(dec("0.05")))
	assert.Equal(t, before+1, rule.Version)
	assert.Len(t, rule.GetDomainEvents(), 1)

	err = rule.UpdatePolicy(TolerancePolicy{QtyTolerancePct: dec("-1")})
	assert.Error(t, err)
}
