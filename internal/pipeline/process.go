package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"offerhub/internal"
	"offerhub/internal/config"
	"offerhub/internal/storage"
	"offerhub/internal/util"
)

// Processor drives one batch through the full pipeline: normalize,
// match, resolve, classify, persist, snapshot. Rows are processed
// sequentially; independent batches may each run their own Processor.
type Processor struct {
	db       *storage.DB
	cfg      config.Config
	strategy MatchStrategy
	resolver *Resolver
}

func NewProcessor(db *storage.DB, cfg config.Config) *Processor {
	return &Processor{
		db:       db,
		cfg:      cfg,
		strategy: NewStrategy(cfg),
		resolver: NewResolver(db),
	}
}

// NewProcessorWithStrategy is the test seam for substituting either
// matcher implementation.
func NewProcessorWithStrategy(db *storage.DB, cfg config.Config, strategy MatchStrategy) *Processor {
	return &Processor{db: db, cfg: cfg, strategy: strategy, resolver: NewResolver(db)}
}

type rowResult struct {
	audit   internal.AuditMatch
	product internal.ProductRecord
}

// IngestFile extracts a spreadsheet, registers the batch and runs it.
func (p *Processor) IngestFile(ctx context.Context, path string) (internal.BatchSummary, error) {
	rows, totalRows, err := ExtractRows(path)
	if err != nil {
		return internal.BatchSummary{}, err
	}
	if len(rows) == 0 {
		return internal.BatchSummary{}, fmt.Errorf("no data found in %s", filepath.Base(path))
	}

	batch, err := p.db.CreateBatch(filepath.Base(path))
	if err != nil {
		return internal.BatchSummary{}, err
	}
	return p.Run(ctx, batch.ID, rows, totalRows)
}

// Run processes every row of one batch, then writes the aggregate
// counters and the immutable snapshot exactly once each. A failure of
// either final write is fatal for the batch and must not be retried by
// re-ingesting, which would duplicate suppliers, products and offers.
func (p *Processor) Run(ctx context.Context, batchID string, rows []internal.RawRow, totalRows int) (internal.BatchSummary, error) {
	start := time.Now()

	var results []rowResult
	var skipped []internal.SkippedRow

	for _, row := range rows {
		offer, skip := Normalize(row, p.cfg)
		if skip != nil {
			fmt.Printf("batch %s: skipping row (%s)\n", batchID, skip.Reason)
			skipped = append(skipped, *skip)
			continue
		}

		result, err := p.processOffer(ctx, batchID, offer)
		if err != nil {
			// Unexpected row failure: the batch continues, the row is
			// accounted as skipped so totals stay consistent. Partial
			// entity writes for this row are not rolled back.
			fmt.Printf("batch %s: row error for %q: %v\n", batchID, offer.ProductName, err)
			skipped = append(skipped, internal.SkippedRow{
				ProductName:  offer.ProductName,
				SupplierName: offer.SupplierName,
				SKU:          derefOr(offer.SKU, "(None)"),
				Price:        strconv.FormatFloat(offer.Price, 'f', -1, 64),
				Reason:       fmt.Sprintf("processing error: %v", err),
			})
			continue
		}
		results = append(results, result)
	}

	summary := internal.BatchSummary{
		BatchID:    batchID,
		TotalRows:  totalRows,
		ValidCount: len(results),
	}
	summary.SkippedCount = totalRows - summary.ValidCount
	for _, r := range results {
		if r.product.AutoCreated {
			summary.NewlyCreatedCount++
		} else {
			summary.MatchedCount++
		}
	}

	if err := p.db.UpdateBatchCounters(batchID, summary); err != nil {
		return summary, fmt.Errorf("finalize batch %s: %w", batchID, err)
	}

	snapshot := internal.BatchSnapshot{
		BatchID:           batchID,
		SkippedRows:       skipped,
		AnalyzedMatches:   buildAnalyzedMatches(results),
		TotalRows:         summary.TotalRows,
		ValidCount:        summary.ValidCount,
		SkippedCount:      summary.SkippedCount,
		MatchedCount:      summary.MatchedCount,
		NewlyCreatedCount: summary.NewlyCreatedCount,
	}
	if err := p.db.CreateSnapshot(snapshot); err != nil {
		return summary, fmt.Errorf("snapshot batch %s: %w", batchID, err)
	}

	fmt.Printf("batch %s done in %dms: total=%d valid=%d skipped=%d matched=%d created=%d\n",
		batchID, time.Since(start).Milliseconds(),
		summary.TotalRows, summary.ValidCount, summary.SkippedCount, summary.MatchedCount, summary.NewlyCreatedCount)

	return summary, nil
}

func (p *Processor) processOffer(ctx context.Context, batchID string, offer internal.NormalizedOffer) (rowResult, error) {
	// Re-read the catalog each row so products auto-created earlier in
	// the batch are visible to later rows.
	catalog, err := p.db.ListCatalogProducts()
	if err != nil {
		return rowResult{}, err
	}

	outcome := p.strategy.Match(ctx, offer, catalog)

	product, created, err := p.resolver.ResolveProduct(offer, outcome)
	if err != nil {
		return rowResult{}, err
	}

	confidence := outcome.Confidence
	rationale := outcome.Rationale
	if created {
		confidence = 1.0
		rationale = "Auto-created new product from supplier offer. Requires manual review and enrichment."
	}

	supplier, err := p.resolver.ResolveSupplier(offer.SupplierName)
	if err != nil {
		return rowResult{}, err
	}

	productID := product.ID
	cls := Classify(p.cfg, &productID, confidence, created, time.Now())

	if _, err := p.db.CreateMatchedOffer(internal.MatchedOffer{
		SupplierID:      supplier.ID,
		ProductID:       &productID,
		OfferName:       offer.ProductName,
		OfferSKU:        offer.SKU,
		Price:           offer.Price,
		Currency:        offer.Currency,
		Quantity:        offer.Quantity,
		Status:          cls.OfferStatus,
		SourceBatchID:   batchID,
		MatchConfidence: confidence,
		MatchRationale:  rationale,
	}); err != nil {
		return rowResult{}, err
	}

	auditRationale := rationale
	if created {
		auditRationale = rationale + " (New product auto-created)"
	}
	audit, err := p.db.CreateAuditMatch(internal.AuditMatch{
		BatchID:          batchID,
		SupplierName:     offer.SupplierName,
		OfferProductName: offer.ProductName,
		OfferSKU:         offer.SKU,
		OfferPrice:       offer.Price,
		OfferCurrency:    offer.Currency,
		MatchedProductID: &productID,
		ConfidenceScore:  confidence,
		Status:           cls.MatchStatus,
		Rationale:        auditRationale,
		ApprovalType:     cls.ApprovalType,
		ApprovedAt:       cls.ApprovedAt,
	})
	if err != nil {
		return rowResult{}, err
	}

	return rowResult{audit: audit, product: product}, nil
}

func buildAnalyzedMatches(results []rowResult) []internal.AnalyzedMatch {
	out := make([]internal.AnalyzedMatch, 0, len(results))
	for _, r := range results {
		m := internal.AnalyzedMatch{
			SupplierName:     r.audit.SupplierName,
			ProductName:      r.audit.OfferProductName,
			SKU:              derefOr(r.audit.OfferSKU, ""),
			Price:            strconv.FormatFloat(r.audit.OfferPrice, 'f', 2, 64),
			Currency:         r.audit.OfferCurrency,
			MatchedProductID: r.audit.MatchedProductID,
			Confidence:       strconv.FormatFloat(r.audit.ConfidenceScore, 'f', 2, 64),
			Status:           string(r.audit.Status),
			Rationale:        r.audit.Rationale,
			WasAutoCreated:   r.product.AutoCreated,
		}
		m.MatchedProductName = util.StringPtr(r.product.Name)
		if r.audit.ApprovalType != nil {
			s := string(*r.audit.ApprovalType)
			m.ApprovalType = &s
		}
		out = append(out, m)
	}
	return out
}

func derefOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}
