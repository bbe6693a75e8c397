package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"offerhub/internal"
	"offerhub/internal/storage"
)

// Resolver turns a match outcome into concrete catalog entities,
// creating products and suppliers that do not exist yet.
type Resolver struct {
	db *storage.DB
}

func NewResolver(db *storage.DB) *Resolver {
	return &Resolver{db: db}
}

// ResolveProduct reuses the matched product or auto-creates a new one
// flagged for manual enrichment. The second return reports whether a
// product was created for this offer.
func (r *Resolver) ResolveProduct(offer internal.NormalizedOffer, outcome internal.MatchOutcome) (internal.ProductRecord, bool, error) {
	if outcome.ProductID != nil {
		product, err := r.db.GetProduct(*outcome.ProductID)
		if err != nil {
			return internal.ProductRecord{}, false, err
		}
		if product == nil {
			return internal.ProductRecord{}, false, fmt.Errorf("matched product %s not found", *outcome.ProductID)
		}
		return *product, false, nil
	}

	sku := ""
	if offer.SKU != nil {
		sku = *offer.SKU
	}
	if sku == "" {
		sku = placeholderSKU()
	}

	specs := map[string]any{"autoGenerated": true}
	if offer.Description != nil {
		specs["description"] = *offer.Description
	}

	category := "Auto-Generated"
	product := internal.ProductRecord{
		Name:        offer.ProductName,
		SKU:         sku,
		Category:    &category,
		Specs:       specs,
		AutoCreated: true,
		Source:      "auto",
	}
	created, err := r.db.CreateProduct(product)
	if err != nil {
		return internal.ProductRecord{}, false, err
	}
	fmt.Printf("auto-created product %q (%s)\n", created.Name, created.SKU)
	return created, true, nil
}

// ResolveSupplier finds a supplier by exact name or creates it. The
// storage layer enforces name uniqueness, so concurrent batches racing
// on the same new name converge on one record.
func (r *Resolver) ResolveSupplier(name string) (internal.SupplierRecord, error) {
	existing, err := r.db.FindSupplierByName(name)
	if err != nil {
		return internal.SupplierRecord{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	supplier, err := r.db.CreateSupplier(name, map[string]any{"autoCreated": true, "source": "upload"}, true)
	if err != nil {
		return internal.SupplierRecord{}, err
	}
	fmt.Printf("created supplier %q\n", supplier.Name)
	return supplier, nil
}

func placeholderSKU() string {
	var b [3]byte
	suffix := fmt.Sprintf("%05d", time.Now().UnixNano()%100000)
	if _, err := rand.Read(b[:]); err == nil {
		suffix = hex.EncodeToString(b[:])[:5]
	}
	return strings.ToUpper(fmt.Sprintf("AUTO-%d-%s", time.Now().UnixMilli(), suffix))
}
