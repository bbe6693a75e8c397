package pipeline

import (
	"time"

	"offerhub/internal"
	"offerhub/internal/config"
)

// Classification is the pipeline's verdict for one resolved row. The
// offer itself always starts pending: accepting or rejecting an offer
// is a human act, while MatchStatus records the matcher's own
// confidence tier.
type Classification struct {
	OfferStatus  internal.OfferStatus
	MatchStatus  internal.MatchStatus
	ApprovalType *internal.ApprovalType
	ApprovedAt   *time.Time
}

// Classify maps (resolved product, confidence, auto-created) to the
// review states. Pure; now is injected so auto-approval timestamps are
// testable.
func Classify(cfg config.Config, productID *string, confidence float64, wasAutoCreated bool, now time.Time) Classification {
	cls := Classification{
		OfferStatus: internal.OfferPending,
		MatchStatus: internal.MatchUnmatched,
	}

	if productID == nil {
		return cls
	}

	if wasAutoCreated {
		cls.MatchStatus = internal.MatchPending
		return cls
	}

	auto := internal.ApprovalAuto
	switch {
	case confidence >= cfg.ApproveThreshold:
		cls.MatchStatus = internal.MatchApproved
		cls.ApprovalType = &auto
		cls.ApprovedAt = &now
	case confidence >= cfg.MatchThreshold:
		cls.MatchStatus = internal.MatchPending
	default:
		cls.MatchStatus = internal.MatchRejected
		cls.ApprovalType = &auto
		cls.ApprovedAt = &now
	}
	return cls
}
