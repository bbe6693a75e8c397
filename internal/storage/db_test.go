package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"offerhub/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCreateSupplierIsIdempotentByName(t *testing.T) {
	db := openTestDB(t)

	first, err := db.CreateSupplier("Acme Co.", map[string]any{"source": "upload"}, true)
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.CreateSupplier("Acme Co.", nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected one supplier row, got ids %s and %s", first.ID, second.ID)
	}

	found, err := db.FindSupplierByName("Acme Co.")
	if err != nil {
		t.Fatal(err)
	}
	if found == nil || found.ID != first.ID {
		t.Fatalf("lookup=%+v", found)
	}
}

func TestSnapshotImmutable(t *testing.T) {
	db := openTestDB(t)
	batch, err := db.CreateBatch("offers.xlsx")
	if err != nil {
		t.Fatal(err)
	}

	original := internal.BatchSnapshot{BatchID: batch.ID, TotalRows: 5, ValidCount: 4, SkippedCount: 1}
	if err := db.CreateSnapshot(original); err != nil {
		t.Fatal(err)
	}

	err = db.CreateSnapshot(internal.BatchSnapshot{BatchID: batch.ID, TotalRows: 99})
	if !errors.Is(err, ErrSnapshotExists) {
		t.Fatalf("err=%v", err)
	}

	snap, err := db.GetSnapshot(batch.ID)
	if err != nil {
		t.Fatal(err)
	}
	if snap.TotalRows != 5 || snap.ValidCount != 4 || snap.SkippedCount != 1 {
		t.Fatalf("original snapshot changed: %+v", snap)
	}
	if snap.SkippedRows == nil || snap.AnalyzedMatches == nil {
		t.Fatal("empty snapshot sections must round-trip as empty, not nil")
	}
}

func TestGetSnapshotAbsent(t *testing.T) {
	db := openTestDB(t)
	snap, err := db.GetSnapshot("no-such-batch")
	if err != nil {
		t.Fatal(err)
	}
	if snap != nil {
		t.Fatalf("snap=%+v", snap)
	}
}

func TestUpdateAuditMatchReview(t *testing.T) {
	db := openTestDB(t)
	batch, err := db.CreateBatch("offers.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	m, err := db.CreateAuditMatch(internal.AuditMatch{
		BatchID:          batch.ID,
		SupplierName:     "Acme Co.",
		OfferProductName: "Wireless Mouse",
		OfferPrice:       19.99,
		OfferCurrency:    "USD",
		ConfidenceScore:  0.62,
		Status:           internal.MatchPending,
		Rationale:        "Fallback match: found similar product (score: 0.62)",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := db.UpdateAuditMatchReview(m.ID, internal.MatchApproved, "sam"); err != nil {
		t.Fatal(err)
	}

	matches, err := db.ListAuditMatches(batch.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches=%d", len(matches))
	}
	got := matches[0]
	if got.Status != internal.MatchApproved {
		t.Fatalf("status=%s", got.Status)
	}
	if got.ApprovalType == nil || *got.ApprovalType != internal.ApprovalManual {
		t.Fatalf("approvalType=%v", got.ApprovalType)
	}
	if got.ApprovedAt == nil {
		t.Fatal("approvedAt not set")
	}
	if got.ReviewedBy == nil || *got.ReviewedBy != "sam" {
		t.Fatalf("reviewedBy=%v", got.ReviewedBy)
	}
	// descriptive fields written at ingestion stay fixed
	if got.ConfidenceScore != 0.62 || got.OfferProductName != "Wireless Mouse" {
		t.Fatalf("ingestion fields changed: %+v", got)
	}
}

func TestUpdateAuditMatchReviewRejectsUnknownStatus(t *testing.T) {
	db := openTestDB(t)
	if err := db.UpdateAuditMatchReview("any", internal.MatchStatus("bogus"), ""); err == nil {
		t.Fatal("expected validation error")
	}
	if err := db.UpdateAuditMatchReview("missing-id", internal.MatchApproved, ""); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestUpdateMatchedOfferStatus(t *testing.T) {
	db := openTestDB(t)
	supplier, err := db.CreateSupplier("Acme Co.", nil, true)
	if err != nil {
		t.Fatal(err)
	}
	offer, err := db.CreateMatchedOffer(internal.MatchedOffer{
		SupplierID:    supplier.ID,
		OfferName:     "Wireless Mouse",
		Price:         19.99,
		Currency:      "USD",
		Status:        internal.OfferPending,
		SourceBatchID: "batch-1",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := db.UpdateMatchedOfferStatus(offer.ID, internal.OfferAccepted); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateMatchedOfferStatus(offer.ID, internal.OfferStatus("shipped")); err == nil {
		t.Fatal("expected validation error")
	}
	if err := db.UpdateMatchedOfferStatus("missing-id", internal.OfferAccepted); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestUpdateBatchCounters(t *testing.T) {
	db := openTestDB(t)
	batch, err := db.CreateBatch("offers.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	summary := internal.BatchSummary{
		BatchID:    batch.ID,
		TotalRows:  3,
		ValidCount: 2, SkippedCount: 1, MatchedCount: 1, NewlyCreatedCount: 1,
	}
	if err := db.UpdateBatchCounters(batch.ID, summary); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetBatch(batch.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Processed || got.TotalRows != 3 || got.ValidCount != 2 || got.SkippedCount != 1 {
		t.Fatalf("batch=%+v", got)
	}

	if err := db.UpdateBatchCounters("missing-id", summary); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestSeedCatalogIdempotent(t *testing.T) {
	db := openTestDB(t)
	products, suppliers, err := db.SeedCatalog()
	if err != nil {
		t.Fatal(err)
	}
	if products != 4 || suppliers != 3 {
		t.Fatalf("seeded %d products, %d suppliers", products, suppliers)
	}

	products, suppliers, err = db.SeedCatalog()
	if err != nil {
		t.Fatal(err)
	}
	if products != 0 || suppliers != 0 {
		t.Fatalf("reseed created %d products, %d suppliers", products, suppliers)
	}

	catalog, err := db.ListCatalogProducts()
	if err != nil {
		t.Fatal(err)
	}
	if len(catalog) != 4 {
		t.Fatalf("catalog=%d", len(catalog))
	}
	if catalog[0].Name != "Wireless Mouse" {
		t.Fatalf("catalog order changed: first=%s", catalog[0].Name)
	}
}
