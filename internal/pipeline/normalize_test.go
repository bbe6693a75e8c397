package pipeline

import (
	"strings"
	"testing"

	"offerhub/internal"
	"offerhub/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestNormalizeAliases(t *testing.T) {
	cfg := testConfig(t)
	row := internal.RawRow{
		"Product Description": "Wireless Mouse Premium",
		"Part Number":         "WM-001",
		"Vendor":              "Acme Co.",
		"List Price":          "29.99",
		"Quantity":            "10",
		"Remarks":             "bulk offer",
	}

	offer, skip := Normalize(row, cfg)
	if skip != nil {
		t.Fatalf("unexpected skip: %+v", skip)
	}
	if offer.ProductName != "Wireless Mouse Premium" {
		t.Fatalf("name=%q", offer.ProductName)
	}
	if offer.SKU == nil || *offer.SKU != "WM-001" {
		t.Fatalf("sku=%v", offer.SKU)
	}
	if offer.SupplierName != "Acme Co." {
		t.Fatalf("supplier=%q", offer.SupplierName)
	}
	if offer.Price != 29.99 {
		t.Fatalf("price=%v", offer.Price)
	}
	if offer.Currency != "USD" {
		t.Fatalf("currency=%q", offer.Currency)
	}
	if offer.Quantity == nil || *offer.Quantity != 10 {
		t.Fatalf("quantity=%v", offer.Quantity)
	}
	if offer.Description == nil || *offer.Description != "bulk offer" {
		t.Fatalf("description=%v", offer.Description)
	}
}

func TestNormalizeMissingProductName(t *testing.T) {
	cfg := testConfig(t)
	_, skip := Normalize(internal.RawRow{"Product Name": "  ", "Price": "19.99"}, cfg)
	if skip == nil {
		t.Fatal("expected skip")
	}
	if !strings.Contains(skip.Reason, "missing product name") {
		t.Fatalf("reason=%q", skip.Reason)
	}
	if skip.ProductName != "(Empty)" {
		t.Fatalf("productName=%q", skip.ProductName)
	}
}

func TestNormalizeInvalidPrice(t *testing.T) {
	cfg := testConfig(t)
	_, skip := Normalize(internal.RawRow{"Product Name": "Keyboard", "SKU": "KB-1", "Price": "not-a-number"}, cfg)
	if skip == nil {
		t.Fatal("expected skip")
	}
	if !strings.Contains(skip.Reason, "not-a-number") {
		t.Fatalf("reason should reference raw price, got %q", skip.Reason)
	}
	if !strings.Contains(skip.Reason, "invalid/missing price") {
		t.Fatalf("reason=%q", skip.Reason)
	}
}

func TestNormalizeNonPositivePrice(t *testing.T) {
	cfg := testConfig(t)
	_, skip := Normalize(internal.RawRow{"Product Name": "Keyboard", "Price": "0"}, cfg)
	if skip == nil {
		t.Fatal("expected skip for zero price")
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := testConfig(t)
	offer, skip := Normalize(internal.RawRow{"Product Name": "Hub", "Price": "49.99", "Quantity": "many"}, cfg)
	if skip != nil {
		t.Fatalf("unexpected skip: %+v", skip)
	}
	if offer.SupplierName != cfg.UnknownSupplier {
		t.Fatalf("supplier=%q", offer.SupplierName)
	}
	if offer.Quantity != nil {
		t.Fatalf("quantity should be absent, got %d", *offer.Quantity)
	}
	if offer.SKU != nil {
		t.Fatalf("sku should be absent")
	}
}
