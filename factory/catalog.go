/*
Package factory provides JSON to Go catalog conversion.

PURPOSE:
  Converts JSON deduction-catalog and chart-of-accounts definitions into
  domain structs. This enables payroll configuration without code changes -
  finance can define deductions and GL accounts in JSON, and the factory
  creates the proper Go structs and seeds the stores.

WHY JSON?
  - Non-developers can modify deduction schedules
  - Easy integration with an admin UI
  - Version control for payroll configuration
  - Database storage of catalog configs

JSON SCHEMA:
  {
    "deductions": [
      {
        "id": "federal-tax",
        "name": "Federal Income Tax",
        "category": "tax",
        "method": "percentage",
        "default_amount": "15.0",
        "pre_tax": false,
        "active": true
      }
    ],
    "accounts": [
      {"code": "wages_expense", "name": "Wages Expense", "type": "expense"}
    ]
  }

KEY FEATURES:
  - Validates category, method and amount values
  - Sets sensible defaults (active=true, percentage bounds checked)
  - Seeds stores idempotently (upsert semantics)
  - Ships a standard preset covering the usual payroll slice

USAGE:
  f := factory.NewCatalogFactory()
  catalog, err := f.ParseCatalog(factory.StandardCatalogJSON())
  if err != nil {
      log.Fatal(err)
  }
  if err := f.Seed(ctx, st, st, catalog); err != nil {
      log.Fatal(err)
  }

SEE ALSO:
  - payroll/deductions.go: DeductionDefinition and the two-tier resolution
  - ledger/types.go: Account and the required account codes
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/ledger"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CatalogJSON is the JSON representation of a payroll configuration bundle.
type CatalogJSON struct {
	Deductions []DeductionJSON `json:"deductions"`
	Accounts   []AccountJSON   `json:"accounts"`
}

// DeductionJSON represents one deduction definition.
type DeductionJSON struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	Method        string `json:"method"`
	DefaultAmount string `json:"default_amount"`
	PreTax        bool   `json:"pre_tax,omitempty"`
	Active        *bool  `json:"active,omitempty"` // Default true
}

// AccountJSON represents one GL account.
type AccountJSON struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Catalog is the parsed, validated configuration bundle.
type Catalog struct {
	Deductions []payroll.DeductionDefinition
	Accounts   []ledger.Account
}

// =============================================================================
// CATALOG FACTORY
// =============================================================================

// CatalogFactory converts JSON catalogs to domain structs.
type CatalogFactory struct{}

// NewCatalogFactory creates a new catalog factory.
func NewCatalogFactory() *CatalogFactory {
	return &CatalogFactory{}
}

// ParseCatalog parses a JSON string into a validated Catalog.
func (f *CatalogFactory) ParseCatalog(jsonStr string) (*Catalog, error) {
	var cj CatalogJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	return f.FromJSON(cj)
}

// FromJSON converts CatalogJSON to a Catalog.
func (f *CatalogFactory) FromJSON(cj CatalogJSON) (*Catalog, error) {
	now := time.Now().UTC()
	catalog := &Catalog{}

	for _, dj := range cj.Deductions {
		def, err := parseDeduction(dj, now)
		if err != nil {
			return nil, err
		}
		catalog.Deductions = append(catalog.Deductions, def)
	}

	for _, aj := range cj.Accounts {
		account, err := parseAccount(aj, now)
		if err != nil {
			return nil, err
		}
		catalog.Accounts = append(catalog.Accounts, account)
	}

	return catalog, nil
}

// Seed writes the catalog into the given stores. Upsert semantics make it
// safe to call on every startup.
func (f *CatalogFactory) Seed(ctx context.Context, deductions payroll.DeductionStore, accounts ledger.AccountStore, catalog *Catalog) error {
	for _, d := range catalog.Deductions {
		if err := deductions.SaveDeduction(ctx, d); err != nil {
			return fmt.Errorf("failed to seed deduction %s: %w", d.ID, err)
		}
	}
	for _, a := range catalog.Accounts {
		if err := accounts.SaveAccount(ctx, a); err != nil {
			return fmt.Errorf("failed to seed account %s: %w", a.Code, err)
		}
	}
	return nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseDeduction(dj DeductionJSON, now time.Time) (payroll.DeductionDefinition, error) {
	var def payroll.DeductionDefinition

	if dj.ID == "" || dj.Name == "" {
		return def, fmt.Errorf("deduction requires id and name")
	}

	category, err := parseCategory(dj.Category)
	if err != nil {
		return def, fmt.Errorf("deduction %s: %w", dj.ID, err)
	}
	method, err := parseMethod(dj.Method)
	if err != nil {
		return def, fmt.Errorf("deduction %s: %w", dj.ID, err)
	}

	amount, err := decimal.NewFromString(dj.DefaultAmount)
	if err != nil {
		return def, fmt.Errorf("deduction %s: invalid default_amount %q", dj.ID, dj.DefaultAmount)
	}
	if amount.IsNegative() {
		return def, fmt.Errorf("deduction %s: default_amount must not be negative", dj.ID)
	}
	if method == payroll.MethodPercentage && amount.GreaterThan(decimal.NewFromInt(100)) {
		return def, fmt.Errorf("deduction %s: percentage must not exceed 100", dj.ID)
	}

	active := true
	if dj.Active != nil {
		active = *dj.Active
	}

	return payroll.DeductionDefinition{
		ID:            payroll.DeductionID(dj.ID),
		Name:          dj.Name,
		Category:      category,
		Method:        method,
		DefaultAmount: amount,
		PreTax:        dj.PreTax,
		Active:        active,
		CreatedAt:     now,
	}, nil
}

func parseCategory(s string) (payroll.DeductionCategory, error) {
	switch payroll.DeductionCategory(s) {
	case payroll.CategoryTax, payroll.CategoryInsurance, payroll.CategoryRetirement,
		payroll.CategoryGarnishment, payroll.CategoryOther:
		return payroll.DeductionCategory(s), nil
	default:
		return "", fmt.Errorf("unknown category: %s", s)
	}
}

func parseMethod(s string) (payroll.CalculationMethod, error) {
	switch payroll.CalculationMethod(s) {
	case payroll.MethodPercentage, payroll.MethodFixedAmount:
		return payroll.CalculationMethod(s), nil
	default:
		return "", fmt.Errorf("unknown calculation method: %s", s)
	}
}

func parseAccount(aj AccountJSON, now time.Time) (ledger.Account, error) {
	var account ledger.Account

	if aj.Code == "" || aj.Name == "" {
		return account, fmt.Errorf("account requires code and name")
	}

	switch ledger.AccountType(aj.Type) {
	case ledger.TypeExpense, ledger.TypeAsset, ledger.TypeLiability:
	default:
		return account, fmt.Errorf("account %s: unknown type: %s", aj.Code, aj.Type)
	}

	return ledger.Account{
		ID:        uuid.NewString(),
		Code:      ledger.AccountCode(aj.Code),
		Name:      aj.Name,
		Type:      ledger.AccountType(aj.Type),
		Active:    true,
		CreatedAt: now,
	}, nil
}

// =============================================================================
// PRESET CATALOG
// =============================================================================

// StandardCatalogJSON returns the default deduction schedule and the GL
// accounts a payroll posting touches. Percentages are of gross pay.
func StandardCatalogJSON() string {
	return `{
		"deductions": [
			{"id": "federal-tax", "name": "Federal Income Tax", "category": "tax", "method": "percentage", "default_amount": "15.0"},
			{"id": "state-tax", "name": "State Income Tax", "category": "tax", "method": "percentage", "default_amount": "5.0"},
			{"id": "social-security", "name": "Social Security", "category": "tax", "method": "percentage", "default_amount": "6.2"},
			{"id": "medicare", "name": "Medicare", "category": "tax", "method": "percentage", "default_amount": "1.45"},
			{"id": "health-insurance", "name": "Health Insurance", "category": "insurance", "method": "fixed_amount", "default_amount": "120.00", "pre_tax": true},
			{"id": "retirement-401k", "name": "401(k) Contribution", "category": "retirement", "method": "percentage", "default_amount": "4.0", "pre_tax": true}
		],
		"accounts": [
			{"code": "wages_expense", "name": "Wages Expense", "type": "expense"},
			{"code": "cash", "name": "Cash", "type": "asset"},
			{"code": "payroll_liabilities", "name": "Payroll Liabilities", "type": "liability"},
			{"code": "federal_tax_payable", "name": "Federal Tax Payable", "type": "liability"},
			{"code": "state_tax_payable", "name": "State Tax Payable", "type": "liability"},
			{"code": "fica_payable", "name": "FICA Payable", "type": "liability"},
			{"code": "medicare_payable", "name": "Medicare Payable", "type": "liability"}
		]
	}`
}
