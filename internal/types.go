package internal

import "time"

// RawRow is one spreadsheet record keyed by column header. It only
// exists while a batch is being processed.
type RawRow map[string]string

type OfferStatus string

type MatchStatus string

type ApprovalType string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"

	MatchApproved  MatchStatus = "approved"
	MatchPending   MatchStatus = "pending"
	MatchRejected  MatchStatus = "rejected"
	MatchUnmatched MatchStatus = "unmatched"

	ApprovalAuto   ApprovalType = "auto"
	ApprovalManual ApprovalType = "manual"
)

// NormalizedOffer holds the canonical fields extracted from one valid
// raw row.
type NormalizedOffer struct {
	ProductName  string
	SKU          *string
	SupplierName string
	Price        float64
	Currency     string
	Quantity     *int
	Description  *string
}

// SkippedRow records why a raw row produced no offer. The original
// identifying fields are kept verbatim for the batch snapshot.
type SkippedRow struct {
	ProductName  string `json:"productName"`
	SupplierName string `json:"supplierName"`
	SKU          string `json:"sku"`
	Price        string `json:"price"`
	Reason       string `json:"reason"`
}

type ProductRecord struct {
	ID          string
	Name        string
	SKU         string
	Category    *string
	Specs       map[string]any
	AutoCreated bool
	Source      string
}

type SupplierRecord struct {
	ID          string
	Name        string
	ContactInfo map[string]any
	AutoCreated bool
}

type UploadedBatch struct {
	ID                string
	OriginalName      string
	Processed         bool
	TotalRows         int
	ValidCount        int
	SkippedCount      int
	MatchedCount      int
	NewlyCreatedCount int
	CreatedAt         string
}

// MatchOutcome is what a match strategy reports for one offer.
// ProductID may be set below the matched threshold; Matched is the
// strategy's own verdict.
type MatchOutcome struct {
	ProductID  *string
	Confidence float64
	Rationale  string
	Matched    bool
}

// MatchedOffer is the actionable record procurement reviews. Status is
// only ever changed by a human decision after ingestion.
type MatchedOffer struct {
	ID              string
	SupplierID      string
	ProductID       *string
	OfferName       string
	OfferSKU        *string
	Price           float64
	Currency        string
	Quantity        *int
	Status          OfferStatus
	SourceBatchID   string
	MatchConfidence float64
	MatchRationale  string
}

// AuditMatch is the per-row audit record. Descriptive fields are fixed
// at creation; only the review fields (Status, ApprovalType,
// ApprovedAt, ReviewedBy) may change afterwards.
type AuditMatch struct {
	ID               string
	BatchID          string
	SupplierName     string
	OfferProductName string
	OfferSKU         *string
	OfferPrice       float64
	OfferCurrency    string
	MatchedProductID *string
	ConfidenceScore  float64
	Status           MatchStatus
	Rationale        string
	ApprovalType     *ApprovalType
	ApprovedAt       *time.Time
	ReviewedBy       *string
}

// AnalyzedMatch is the point-in-time copy of an audit match stored in
// the batch snapshot.
type AnalyzedMatch struct {
	SupplierName       string  `json:"supplierName"`
	ProductName        string  `json:"productName"`
	SKU                string  `json:"sku"`
	Price              string  `json:"price"`
	Currency           string  `json:"currency"`
	MatchedProductID   *string `json:"matchedProductId"`
	MatchedProductName *string `json:"matchedProductName"`
	Confidence         string  `json:"confidence"`
	Status             string  `json:"status"`
	Rationale          string  `json:"reasoning"`
	WasAutoCreated     bool    `json:"wasAutoCreated"`
	ApprovalType       *string `json:"approvalType"`
}

// BatchSnapshot is the permanent record of a batch's analysis. It is
// written exactly once and never updated, regardless of later review
// decisions.
type BatchSnapshot struct {
	BatchID           string
	SkippedRows       []SkippedRow
	AnalyzedMatches   []AnalyzedMatch
	TotalRows         int
	ValidCount        int
	SkippedCount      int
	MatchedCount      int
	NewlyCreatedCount int
}

type BatchSummary struct {
	BatchID           string
	TotalRows         int
	ValidCount        int
	SkippedCount      int
	MatchedCount      int
	NewlyCreatedCount int
}
