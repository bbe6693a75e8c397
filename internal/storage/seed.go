package storage

import (
	"offerhub/internal"
	"offerhub/internal/util"
)

// SeedCatalog loads the demo catalog and suppliers. Inserts are
// conflict-tolerant so reseeding an existing database is safe.
func (d *DB) SeedCatalog() (int, int, error) {
	products := []internal.ProductRecord{
		{
			Name:     "Wireless Mouse",
			SKU:      "WM-2024-001",
			Category: util.StringPtr("Electronics"),
			Specs: map[string]any{
				"color":        "Black",
				"connectivity": "Wireless",
				"battery":      "2x AA",
				"dpi":          "1600",
				"buttons":      5,
			},
		},
		{
			Name:     "USB-C Hub",
			SKU:      "HUB-2024-002",
			Category: util.StringPtr("Electronics"),
			Specs: map[string]any{
				"ports":         7,
				"hdmiSupport":   "4K@60Hz",
				"powerDelivery": "100W",
				"ethernet":      true,
			},
		},
		{
			Name:     "Mechanical Keyboard",
			SKU:      "KB-2024-003",
			Category: util.StringPtr("Electronics"),
			Specs: map[string]any{
				"switchType": "Cherry MX Blue",
				"backlight":  "RGB",
				"layout":     "Full-size",
				"wired":      true,
			},
		},
		{
			Name:     "Laptop Stand",
			SKU:      "LS-2024-004",
			Category: util.StringPtr("Accessories"),
			Specs: map[string]any{
				"material":   "Aluminum",
				"adjustable": true,
				"maxWeight":  "5kg",
				"color":      "Silver",
			},
		},
	}

	suppliers := []struct {
		name    string
		contact map[string]any
	}{
		{"Tech Supplies Inc.", map[string]any{
			"email":   "contact@techsupplies.com",
			"phone":   "+1-555-0100",
			"address": "123 Tech Street, Silicon Valley, CA 94025",
			"rating":  4.5,
		}},
		{"Office Essentials Ltd.", map[string]any{
			"email":   "sales@officeessentials.com",
			"phone":   "+1-555-0200",
			"address": "456 Business Ave, New York, NY 10001",
			"rating":  4.2,
		}},
		{"Global Electronics Co.", map[string]any{
			"email":   "info@globalelectronics.com",
			"phone":   "+1-555-0300",
			"address": "789 Commerce Blvd, Los Angeles, CA 90001",
			"rating":  4.7,
		}},
	}

	seededProducts := 0
	for _, p := range products {
		p.Source = "seed"
		existing, err := d.findProductBySKU(p.SKU)
		if err != nil {
			return seededProducts, 0, err
		}
		if existing != nil {
			continue
		}
		if _, err := d.CreateProduct(p); err != nil {
			return seededProducts, 0, err
		}
		seededProducts++
	}

	seededSuppliers := 0
	for _, s := range suppliers {
		existing, err := d.FindSupplierByName(s.name)
		if err != nil {
			return seededProducts, seededSuppliers, err
		}
		if existing != nil {
			continue
		}
		if _, err := d.CreateSupplier(s.name, s.contact, false); err != nil {
			return seededProducts, seededSuppliers, err
		}
		seededSuppliers++
	}

	return seededProducts, seededSuppliers, nil
}

func (d *DB) findProductBySKU(sku string) (*internal.ProductRecord, error) {
	row := d.conn.QueryRow(`
SELECT id, name, sku, category, specs, autoCreated, source FROM products WHERE sku = ?
`, sku)
	return scanProduct(row)
}
