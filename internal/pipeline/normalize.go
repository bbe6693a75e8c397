package pipeline

import (
	"fmt"
	"strings"

	"offerhub/internal"
	"offerhub/internal/config"
	"offerhub/internal/util"
)

// Column aliases tried in order per canonical field. Supplier sheets
// use anything from tidy exports to lower-camel API dumps.
var (
	nameAliases     = []string{"Product Name", "Product Description", "productName", "product", "name"}
	skuAliases      = []string{"SKU", "Part Number", "sku", "productSKU", "partNumber"}
	supplierAliases = []string{"Supplier", "Vendor", "supplier", "supplierName", "vendor"}
	priceAliases    = []string{"Price", "List Price", "price", "unitPrice", "listPrice"}
	currencyAliases = []string{"Currency", "currency"}
	quantityAliases = []string{"Quantity", "quantity", "qty"}
	descAliases     = []string{"Description", "Remarks", "description", "remarks"}
)

// Normalize extracts the canonical offer fields from one raw row. It
// either yields a NormalizedOffer or a SkippedRow with the reason, and
// has no side effects.
func Normalize(row internal.RawRow, cfg config.Config) (internal.NormalizedOffer, *internal.SkippedRow) {
	productName := strings.TrimSpace(pickField(row, nameAliases))
	sku := pickField(row, skuAliases)
	supplierName := strings.TrimSpace(pickField(row, supplierAliases))
	if supplierName == "" {
		supplierName = cfg.UnknownSupplier
	}

	rawPrice := pickField(row, priceAliases)
	price, ok := util.ParsePrice(rawPrice)
	if !ok || price <= 0 {
		return internal.NormalizedOffer{}, &internal.SkippedRow{
			ProductName:  orPlaceholder(productName, "(Empty)"),
			SupplierName: supplierName,
			SKU:          orPlaceholder(sku, "(None)"),
			Price:        rawPrice,
			Reason:       fmt.Sprintf("invalid/missing price: %q", rawPrice),
		}
	}

	if productName == "" {
		return internal.NormalizedOffer{}, &internal.SkippedRow{
			ProductName:  "(Empty)",
			SupplierName: supplierName,
			SKU:          orPlaceholder(sku, "(None)"),
			Price:        rawPrice,
			Reason:       "missing product name",
		}
	}

	currency := strings.TrimSpace(pickField(row, currencyAliases))
	if currency == "" {
		currency = cfg.DefaultCurrency
	}

	offer := internal.NormalizedOffer{
		ProductName:  productName,
		SupplierName: supplierName,
		Price:        price,
		Currency:     currency,
		Quantity:     util.ParseQuantity(pickField(row, quantityAliases)),
	}
	if trimmed := strings.TrimSpace(sku); trimmed != "" {
		offer.SKU = util.StringPtr(trimmed)
	}
	if desc := strings.TrimSpace(pickField(row, descAliases)); desc != "" {
		offer.Description = util.StringPtr(desc)
	}

	return offer, nil
}

func pickField(row internal.RawRow, aliases []string) string {
	for _, alias := range aliases {
		if value, ok := row[alias]; ok && strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func orPlaceholder(value, placeholder string) string {
	if strings.TrimSpace(value) == "" {
		return placeholder
	}
	return value
}
