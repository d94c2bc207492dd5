package application

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBillingConfigDefaults(t *testing.T) {
	t.Setenv("ORG_TAX_RATE", "")
	t.Setenv("CURRENCY", "")
	t.Setenv("BILLING_CONFIG", "")

	cfg, err := LoadBillingConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TaxRate != 0.15 {
		t.Fatalf("expected default tax rate 0.15, got %v", cfg.TaxRate)
	}
	if cfg.Currency != "NZD" {
		t.Fatalf("expected default currency NZD, got %q", cfg.Currency)
	}
}

func TestLoadBillingConfigEnvOverride(t *testing.T) {
	t.Setenv("ORG_TAX_RATE", "0.10")
	t.Setenv("CURRENCY", "AUD")
	t.Setenv("BILLING_CONFIG", "")

	cfg, err := LoadBillingConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TaxRate != 0.10 || cfg.Currency != "AUD" {
		t.Fatalf("env override not applied: %+v", cfg)
	}
}

func TestLoadBillingConfigYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "billing.yaml")
	content := "tax_rate: 0.125\ncurrency: USD\ndraft_export_heading: Draft Invoice\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ORG_TAX_RATE", "")
	t.Setenv("CURRENCY", "")
	t.Setenv("BILLING_CONFIG", path)

	cfg, err := LoadBillingConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TaxRate != 0.125 || cfg.Currency != "USD" {
		t.Fatalf("yaml overlay not applied: %+v", cfg)
	}
	if cfg.DraftExportHeading != "Draft Invoice" {
		t.Fatalf("unexpected heading %q", cfg.DraftExportHeading)
	}
}

func TestLoadBillingConfigRejectsBadTaxRate(t *testing.T) {
	t.Setenv("BILLING_CONFIG", "")
	t.Setenv("CURRENCY", "")

	for _, value := range []string{"1.0", "-0.1", "1.5"} {
		t.Setenv("ORG_TAX_RATE", value)
		if _, err := LoadBillingConfig(); err == nil {
			t.Fatalf("tax rate %s must be rejected", value)
		}
	}
}

func TestOrgTaxRate(t *testing.T) {
	cfg := BillingConfig{TaxRate: 0.15}
	rate, err := cfg.OrgTaxRate(context.Background())
	if err != nil {
		t.Fatalf("org tax rate: %v", err)
	}
	if rate != 0.15 {
		t.Fatalf("expected 0.15, got %v", rate)
	}
}
