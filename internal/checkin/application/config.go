package application

import (
	"context"
	"errors"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// BillingConfig carries the organization-wide billing defaults. Values come
// from a YAML file pointed at by BILLING_CONFIG with env fallbacks, so a
// deployment without the file still gets sane defaults.
type BillingConfig struct {
	TaxRate            float64 `yaml:"tax_rate"`
	Currency           string  `yaml:"currency"`
	InvoiceRefPrefix   string  `yaml:"invoice_ref_prefix"`
	DraftExportHeading string  `yaml:"draft_export_heading"`
}

// LoadBillingConfig loads billing defaults from yaml or env.
func LoadBillingConfig() (BillingConfig, error) {
	cfg := BillingConfig{
		TaxRate:            getenvFloatDefault("ORG_TAX_RATE", 0.15),
		Currency:           getenvDefault("CURRENCY", "NZD"),
		InvoiceRefPrefix:   getenvDefault("INVOICE_REF_PREFIX", ""),
		DraftExportHeading: getenvDefault("DRAFT_EXPORT_HEADING", "Flight Check-In Draft"),
	}

	if path := os.Getenv("BILLING_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.TaxRate < 0 || cfg.TaxRate >= 1 {
		return cfg, errors.New("billing config: tax rate must be a decimal fraction in [0, 1)")
	}
	if cfg.Currency == "" {
		return cfg, errors.New("billing config: currency required")
	}
	return cfg, nil
}

// OrgTaxRate implements TaxRateProvider.
func (c BillingConfig) OrgTaxRate(ctx context.Context) (float64, error) {
	_ = ctx
	return c.TaxRate, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
