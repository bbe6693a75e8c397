package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"offerhub/internal"
)

// ErrSnapshotExists marks an attempt to write a second analysis
// snapshot for a batch. Snapshots are immutable; this is a programming
// error upstream, not a retry path.
var ErrSnapshotExists = errors.New("batch snapshot already exists")

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  sku TEXT NOT NULL UNIQUE,
  category TEXT,
  specs TEXT NOT NULL DEFAULT '{}',
  autoCreated INTEGER NOT NULL DEFAULT 0,
  source TEXT NOT NULL DEFAULT 'seed',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);

CREATE TABLE IF NOT EXISTS suppliers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  contactInfo TEXT NOT NULL DEFAULT '{}',
  autoCreated INTEGER NOT NULL DEFAULT 0,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS uploaded_batches (
  id TEXT PRIMARY KEY,
  originalName TEXT NOT NULL,
  processed INTEGER NOT NULL DEFAULT 0,
  totalRows INTEGER NOT NULL DEFAULT 0,
  validCount INTEGER NOT NULL DEFAULT 0,
  skippedCount INTEGER NOT NULL DEFAULT 0,
  matchedCount INTEGER NOT NULL DEFAULT 0,
  newlyCreatedCount INTEGER NOT NULL DEFAULT 0,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS supplier_offers (
  id TEXT PRIMARY KEY,
  supplierId TEXT NOT NULL,
  productId TEXT,
  offerName TEXT NOT NULL,
  offerSku TEXT,
  price REAL NOT NULL,
  currency TEXT NOT NULL,
  quantity INTEGER,
  status TEXT NOT NULL DEFAULT 'pending',
  sourceBatchId TEXT NOT NULL,
  matchConfidence REAL NOT NULL,
  matchRationale TEXT NOT NULL DEFAULT '',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(supplierId) REFERENCES suppliers(id),
  FOREIGN KEY(productId) REFERENCES products(id),
  FOREIGN KEY(sourceBatchId) REFERENCES uploaded_batches(id)
);
CREATE INDEX IF NOT EXISTS idx_offers_batch ON supplier_offers(sourceBatchId);

CREATE TABLE IF NOT EXISTS offer_matches (
  id TEXT PRIMARY KEY,
  batchId TEXT NOT NULL,
  supplierName TEXT NOT NULL,
  offerProductName TEXT NOT NULL,
  offerSku TEXT,
  offerPrice REAL NOT NULL,
  offerCurrency TEXT NOT NULL,
  matchedProductId TEXT,
  confidenceScore REAL NOT NULL,
  status TEXT NOT NULL,
  rationale TEXT NOT NULL DEFAULT '',
  approvalType TEXT,
  approvedAt TEXT,
  reviewedBy TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(batchId) REFERENCES uploaded_batches(id),
  FOREIGN KEY(matchedProductId) REFERENCES products(id)
);
CREATE INDEX IF NOT EXISTS idx_matches_batch ON offer_matches(batchId);

CREATE TABLE IF NOT EXISTS batch_snapshots (
  batchId TEXT PRIMARY KEY,
  skippedRowsJson TEXT NOT NULL,
  analyzedMatchesJson TEXT NOT NULL,
  totalRows INTEGER NOT NULL,
  validCount INTEGER NOT NULL,
  skippedCount INTEGER NOT NULL,
  matchedCount INTEGER NOT NULL,
  newlyCreatedCount INTEGER NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(batchId) REFERENCES uploaded_batches(id)
);
`
	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) CreateProduct(p internal.ProductRecord) (internal.ProductRecord, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	specsJSON, _ := json.Marshal(p.Specs)
	_, err := d.conn.Exec(`
INSERT INTO products (id, name, sku, category, specs, autoCreated, source)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, p.ID, p.Name, p.SKU, p.Category, string(specsJSON), boolToInt(p.AutoCreated), p.Source)
	if err != nil {
		return internal.ProductRecord{}, fmt.Errorf("create product %q: %w", p.Name, err)
	}
	return p, nil
}

func (d *DB) GetProduct(id string) (*internal.ProductRecord, error) {
	row := d.conn.QueryRow(`
SELECT id, name, sku, category, specs, autoCreated, source FROM products WHERE id = ?
`, id)
	return scanProduct(row)
}

// ListCatalogProducts returns every product in insertion order, so
// fallback matching ties resolve first-seen first.
func (d *DB) ListCatalogProducts() ([]internal.ProductRecord, error) {
	rows, err := d.conn.Query(`
SELECT id, name, sku, category, specs, autoCreated, source FROM products ORDER BY rowid ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ProductRecord
	for rows.Next() {
		var p internal.ProductRecord
		var specsJSON string
		var auto int
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Category, &specsJSON, &auto, &p.Source); err != nil {
			return nil, err
		}
		p.AutoCreated = auto != 0
		_ = json.Unmarshal([]byte(specsJSON), &p.Specs)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) FindSupplierByName(name string) (*internal.SupplierRecord, error) {
	row := d.conn.QueryRow(`
SELECT id, name, contactInfo, autoCreated FROM suppliers WHERE name = ?
`, name)
	return scanSupplier(row)
}

// CreateSupplier inserts with conflict tolerance on the name key: if a
// concurrent batch created the supplier first, the existing record is
// returned instead.
func (d *DB) CreateSupplier(name string, contact map[string]any, autoCreated bool) (internal.SupplierRecord, error) {
	contactJSON, _ := json.Marshal(contact)
	_, err := d.conn.Exec(`
INSERT INTO suppliers (id, name, contactInfo, autoCreated)
VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO NOTHING
`, uuid.NewString(), name, string(contactJSON), boolToInt(autoCreated))
	if err != nil {
		return internal.SupplierRecord{}, fmt.Errorf("create supplier %q: %w", name, err)
	}

	existing, err := d.FindSupplierByName(name)
	if err != nil {
		return internal.SupplierRecord{}, err
	}
	if existing == nil {
		return internal.SupplierRecord{}, fmt.Errorf("supplier %q vanished after insert", name)
	}
	return *existing, nil
}

func (d *DB) CreateBatch(originalName string) (internal.UploadedBatch, error) {
	batch := internal.UploadedBatch{ID: uuid.NewString(), OriginalName: originalName}
	_, err := d.conn.Exec(`
INSERT INTO uploaded_batches (id, originalName) VALUES (?, ?)
`, batch.ID, batch.OriginalName)
	if err != nil {
		return internal.UploadedBatch{}, err
	}
	return batch, nil
}

func (d *DB) GetBatch(id string) (*internal.UploadedBatch, error) {
	var b internal.UploadedBatch
	var processed int
	err := d.conn.QueryRow(`
SELECT id, originalName, processed, totalRows, validCount, skippedCount, matchedCount, newlyCreatedCount, createdAt
FROM uploaded_batches WHERE id = ?
`, id).Scan(&b.ID, &b.OriginalName, &processed, &b.TotalRows, &b.ValidCount, &b.SkippedCount, &b.MatchedCount, &b.NewlyCreatedCount, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b.Processed = processed != 0
	return &b, nil
}

func (d *DB) ListBatches() ([]internal.UploadedBatch, error) {
	rows, err := d.conn.Query(`
SELECT id, originalName, processed, totalRows, validCount, skippedCount, matchedCount, newlyCreatedCount, createdAt
FROM uploaded_batches ORDER BY createdAt DESC, rowid DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.UploadedBatch
	for rows.Next() {
		var b internal.UploadedBatch
		var processed int
		if err := rows.Scan(&b.ID, &b.OriginalName, &processed, &b.TotalRows, &b.ValidCount, &b.SkippedCount, &b.MatchedCount, &b.NewlyCreatedCount, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Processed = processed != 0
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateBatchCounters writes the aggregate counts and marks the batch
// processed. Called exactly once per batch by the orchestrator.
func (d *DB) UpdateBatchCounters(batchID string, summary internal.BatchSummary) error {
	result, err := d.conn.Exec(`
UPDATE uploaded_batches
SET processed = 1, totalRows = ?, validCount = ?, skippedCount = ?, matchedCount = ?, newlyCreatedCount = ?, updatedAt = CURRENT_TIMESTAMP
WHERE id = ?
`, summary.TotalRows, summary.ValidCount, summary.SkippedCount, summary.MatchedCount, summary.NewlyCreatedCount, batchID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("batch not found: %s", batchID)
	}
	return nil
}

func (d *DB) CreateMatchedOffer(offer internal.MatchedOffer) (internal.MatchedOffer, error) {
	if offer.ID == "" {
		offer.ID = uuid.NewString()
	}
	_, err := d.conn.Exec(`
INSERT INTO supplier_offers (id, supplierId, productId, offerName, offerSku, price, currency, quantity, status, sourceBatchId, matchConfidence, matchRationale)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, offer.ID, offer.SupplierID, offer.ProductID, offer.OfferName, offer.OfferSKU, offer.Price, offer.Currency, offer.Quantity,
		string(offer.Status), offer.SourceBatchID, offer.MatchConfidence, offer.MatchRationale)
	if err != nil {
		return internal.MatchedOffer{}, fmt.Errorf("create offer %q: %w", offer.OfferName, err)
	}
	return offer, nil
}

func (d *DB) CreateAuditMatch(m internal.AuditMatch) (internal.AuditMatch, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	var approvedAt *string
	if m.ApprovedAt != nil {
		s := m.ApprovedAt.UTC().Format(time.RFC3339)
		approvedAt = &s
	}
	_, err := d.conn.Exec(`
INSERT INTO offer_matches (id, batchId, supplierName, offerProductName, offerSku, offerPrice, offerCurrency, matchedProductId, confidenceScore, status, rationale, approvalType, approvedAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, m.ID, m.BatchID, m.SupplierName, m.OfferProductName, m.OfferSKU, m.OfferPrice, m.OfferCurrency, m.MatchedProductID,
		m.ConfidenceScore, string(m.Status), m.Rationale, approvalTypeString(m.ApprovalType), approvedAt)
	if err != nil {
		return internal.AuditMatch{}, fmt.Errorf("create audit match for %q: %w", m.OfferProductName, err)
	}
	return m, nil
}

// UpdateMatchedOfferStatus applies a human review decision to an
// actionable offer. The pipeline never calls this.
func (d *DB) UpdateMatchedOfferStatus(offerID string, status internal.OfferStatus) error {
	switch status {
	case internal.OfferPending, internal.OfferAccepted, internal.OfferRejected:
	default:
		return fmt.Errorf("invalid offer status: %s", status)
	}
	result, err := d.conn.Exec(`
UPDATE supplier_offers SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?
`, string(status), offerID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("offer not found: %s", offerID)
	}
	return nil
}

// UpdateAuditMatchReview records a manual review. Only the review
// fields change; the descriptive fields written at ingestion stay
// fixed.
func (d *DB) UpdateAuditMatchReview(matchID string, status internal.MatchStatus, reviewedBy string) error {
	switch status {
	case internal.MatchApproved, internal.MatchPending, internal.MatchRejected:
	default:
		return fmt.Errorf("invalid match status: %s", status)
	}
	result, err := d.conn.Exec(`
UPDATE offer_matches
SET status = ?, approvalType = 'manual', approvedAt = ?, reviewedBy = ?
WHERE id = ?
`, string(status), time.Now().UTC().Format(time.RFC3339), nullable(reviewedBy), matchID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("audit match not found: %s", matchID)
	}
	return nil
}

func (d *DB) ListAuditMatches(batchID string) ([]internal.AuditMatch, error) {
	rows, err := d.conn.Query(`
SELECT id, batchId, supplierName, offerProductName, offerSku, offerPrice, offerCurrency, matchedProductId, confidenceScore, status, rationale, approvalType, approvedAt, reviewedBy
FROM offer_matches WHERE batchId = ? ORDER BY rowid ASC
`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.AuditMatch
	for rows.Next() {
		var m internal.AuditMatch
		var status string
		var approvalType, approvedAt *string
		if err := rows.Scan(&m.ID, &m.BatchID, &m.SupplierName, &m.OfferProductName, &m.OfferSKU, &m.OfferPrice, &m.OfferCurrency,
			&m.MatchedProductID, &m.ConfidenceScore, &status, &m.Rationale, &approvalType, &approvedAt, &m.ReviewedBy); err != nil {
			return nil, err
		}
		m.Status = internal.MatchStatus(status)
		if approvalType != nil {
			at := internal.ApprovalType(*approvalType)
			m.ApprovalType = &at
		}
		if approvedAt != nil {
			if ts, err := time.Parse(time.RFC3339, *approvedAt); err == nil {
				m.ApprovedAt = &ts
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateSnapshot writes the immutable per-batch analysis record. A
// second write for the same batch fails with ErrSnapshotExists and
// leaves the original untouched.
func (d *DB) CreateSnapshot(snap internal.BatchSnapshot) error {
	skipped := snap.SkippedRows
	if skipped == nil {
		skipped = []internal.SkippedRow{}
	}
	analyzed := snap.AnalyzedMatches
	if analyzed == nil {
		analyzed = []internal.AnalyzedMatch{}
	}
	skippedJSON, _ := json.Marshal(skipped)
	analyzedJSON, _ := json.Marshal(analyzed)

	result, err := d.conn.Exec(`
INSERT INTO batch_snapshots (batchId, skippedRowsJson, analyzedMatchesJson, totalRows, validCount, skippedCount, matchedCount, newlyCreatedCount)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(batchId) DO NOTHING
`, snap.BatchID, string(skippedJSON), string(analyzedJSON), snap.TotalRows, snap.ValidCount, snap.SkippedCount, snap.MatchedCount, snap.NewlyCreatedCount)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: batch %s", ErrSnapshotExists, snap.BatchID)
	}
	return nil
}

// GetSnapshot returns nil when the batch has no snapshot yet, which
// callers present as "still processing".
func (d *DB) GetSnapshot(batchID string) (*internal.BatchSnapshot, error) {
	var snap internal.BatchSnapshot
	var skippedJSON, analyzedJSON string
	err := d.conn.QueryRow(`
SELECT batchId, skippedRowsJson, analyzedMatchesJson, totalRows, validCount, skippedCount, matchedCount, newlyCreatedCount
FROM batch_snapshots WHERE batchId = ?
`, batchID).Scan(&snap.BatchID, &skippedJSON, &analyzedJSON, &snap.TotalRows, &snap.ValidCount, &snap.SkippedCount, &snap.MatchedCount, &snap.NewlyCreatedCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(skippedJSON), &snap.SkippedRows); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(analyzedJSON), &snap.AnalyzedMatches); err != nil {
		return nil, err
	}
	return &snap, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*internal.ProductRecord, error) {
	var p internal.ProductRecord
	var specsJSON string
	var auto int
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Category, &specsJSON, &auto, &p.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.AutoCreated = auto != 0
	_ = json.Unmarshal([]byte(specsJSON), &p.Specs)
	return &p, nil
}

func scanSupplier(row rowScanner) (*internal.SupplierRecord, error) {
	var s internal.SupplierRecord
	var contactJSON string
	var auto int
	err := row.Scan(&s.ID, &s.Name, &contactJSON, &auto)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.AutoCreated = auto != 0
	_ = json.Unmarshal([]byte(contactJSON), &s.ContactInfo)
	return &s, nil
}

func approvalTypeString(t *internal.ApprovalType) *string {
	if t == nil {
		return nil
	}
	s := string(*t)
	return &s
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
