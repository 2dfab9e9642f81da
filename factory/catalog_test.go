package factory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/ledger"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
)

// =============================================================================
// PARSING TESTS
// =============================================================================

func TestCatalogFactory_StandardPreset(t *testing.T) {
	// The shipped preset must always parse cleanly and cover the accounts
	// a posting needs.
	f := factory.NewCatalogFactory()

	catalog, err := f.ParseCatalog(factory.StandardCatalogJSON())
	require.NoError(t, err)
	assert.Len(t, catalog.Deductions, 6)
	assert.Len(t, catalog.Accounts, 7)

	codes := map[ledger.AccountCode]bool{}
	for _, a := range catalog.Accounts {
		codes[a.Code] = true
		assert.True(t, a.Active)
		assert.NotEmpty(t, a.ID)
	}
	assert.True(t, codes[ledger.AccountWagesExpense])
	assert.True(t, codes[ledger.AccountCash])
	assert.True(t, codes[ledger.AccountPayrollLiabilities])
}

func TestCatalogFactory_ParsesDeductionFields(t *testing.T) {
	f := factory.NewCatalogFactory()

	catalog, err := f.ParseCatalog(`{
		"deductions": [
			{"id": "union-dues", "name": "Union Dues", "category": "other", "method": "fixed_amount", "default_amount": "25.00", "active": false}
		]
	}`)
	require.NoError(t, err)
	require.Len(t, catalog.Deductions, 1)

	d := catalog.Deductions[0]
	assert.Equal(t, payroll.DeductionID("union-dues"), d.ID)
	assert.Equal(t, payroll.CategoryOther, d.Category)
	assert.Equal(t, payroll.MethodFixedAmount, d.Method)
	assert.True(t, d.DefaultAmount.Equal(payroll.MustDecimal("25.00")))
	assert.False(t, d.Active, "explicit active=false must be honored")
}

func TestCatalogFactory_ActiveDefaultsTrue(t *testing.T) {
	f := factory.NewCatalogFactory()

	catalog, err := f.ParseCatalog(`{
		"deductions": [
			{"id": "d1", "name": "D1", "category": "tax", "method": "percentage", "default_amount": "5"}
		]
	}`)
	require.NoError(t, err)
	assert.True(t, catalog.Deductions[0].Active)
}

func TestCatalogFactory_RejectsInvalidDefinitions(t *testing.T) {
	f := factory.NewCatalogFactory()

	cases := []struct {
		name string
		json string
	}{
		{
			name: "unknown category",
			json: `{"deductions": [{"id": "d", "name": "D", "category": "mystery", "method": "percentage", "default_amount": "5"}]}`,
		},
		{
			name: "unknown method",
			json: `{"deductions": [{"id": "d", "name": "D", "category": "tax", "method": "sliding_scale", "default_amount": "5"}]}`,
		},
		{
			name: "negative amount",
			json: `{"deductions": [{"id": "d", "name": "D", "category": "tax", "method": "percentage", "default_amount": "-5"}]}`,
		},
		{
			name: "percentage over 100",
			json: `{"deductions": [{"id": "d", "name": "D", "category": "tax", "method": "percentage", "default_amount": "150"}]}`,
		},
		{
			name: "missing id",
			json: `{"deductions": [{"name": "D", "category": "tax", "method": "percentage", "default_amount": "5"}]}`,
		},
		{
			name: "unknown account type",
			json: `{"accounts": [{"code": "petty_cash", "name": "Petty Cash", "type": "equity"}]}`,
		},
		{
			name: "account missing name",
			json: `{"accounts": [{"code": "cash", "type": "asset"}]}`,
		},
		{
			name: "malformed JSON",
			json: `{"deductions": [`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ParseCatalog(tc.json)
			assert.Error(t, err)
		})
	}
}

// =============================================================================
// SEEDING TESTS
// =============================================================================

func TestCatalogFactory_SeedIsIdempotent(t *testing.T) {
	// Seeding runs on every startup; a second pass must not duplicate
	// anything.
	f := factory.NewCatalogFactory()
	mem := store.NewMemory()
	ctx := context.Background()

	catalog, err := f.ParseCatalog(factory.StandardCatalogJSON())
	require.NoError(t, err)

	require.NoError(t, f.Seed(ctx, mem, mem, catalog))
	require.NoError(t, f.Seed(ctx, mem, mem, catalog))

	defs, err := mem.ListDeductions(ctx)
	require.NoError(t, err)
	assert.Len(t, defs, 6)

	accounts, err := mem.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 7)

	// The posting accounts resolve after seeding.
	for _, code := range []ledger.AccountCode{
		ledger.AccountWagesExpense, ledger.AccountCash, ledger.AccountPayrollLiabilities,
	} {
		a, err := mem.AccountByCode(ctx, code)
		require.NoError(t, err)
		assert.NotNil(t, a, "account %s must resolve", code)
	}
}
