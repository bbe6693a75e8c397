package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"offerhub/internal"
	"offerhub/internal/config"
	"offerhub/internal/matcher"
	"offerhub/internal/util"
)

// MatchStrategy picks the best catalog candidate for one offer. A
// strategy never fails the row: a degraded outcome is still an
// outcome.
type MatchStrategy interface {
	Match(ctx context.Context, offer internal.NormalizedOffer, catalog []internal.ProductRecord) internal.MatchOutcome
}

// NewStrategy selects the configured implementation. The semantic
// strategy carries the deterministic one as its safety net.
func NewStrategy(cfg config.Config) MatchStrategy {
	fallback := FallbackStrategy{Threshold: cfg.MatchThreshold}
	switch strings.ToLower(strings.TrimSpace(cfg.MatchStrategy)) {
	case "fallback":
		return fallback
	default:
		return &SemanticStrategy{
			client:    matcher.NewClient(cfg),
			fallback:  fallback,
			timeout:   time.Duration(cfg.MatcherTimeoutMs) * time.Millisecond,
			threshold: cfg.MatchThreshold,
		}
	}
}

// SemanticStrategy delegates to the external matching service and
// validates its answer against the catalog it was shown.
type SemanticStrategy struct {
	client    *matcher.Client
	fallback  FallbackStrategy
	timeout   time.Duration
	threshold float64
}

func (s *SemanticStrategy) Match(ctx context.Context, offer internal.NormalizedOffer, catalog []internal.ProductRecord) internal.MatchOutcome {
	if len(catalog) == 0 {
		return internal.MatchOutcome{Confidence: 0, Rationale: "No products in catalog to match against"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Match(ctx, toOfferFields(offer), toCatalogSummary(catalog))
	if err != nil {
		fmt.Printf("semantic match failed, using fallback: %v\n", err)
		return s.fallback.Match(ctx, offer, catalog)
	}

	known := make(map[string]struct{}, len(catalog))
	for _, p := range catalog {
		known[p.ID] = struct{}{}
	}

	productID := resp.ProductID
	if productID != nil {
		if _, ok := known[*productID]; !ok {
			// The service invented an identifier. Recover a candidate
			// deterministically when it was at least confident.
			fmt.Printf("matcher returned unknown product id %s\n", *productID)
			if resp.Confidence >= s.threshold {
				productID = s.fallback.Match(ctx, offer, catalog).ProductID
			} else {
				productID = nil
			}
		}
	}

	return internal.MatchOutcome{
		ProductID:  productID,
		Confidence: resp.Confidence,
		Rationale:  resp.Reasoning,
		Matched:    productID != nil && resp.Confidence >= s.threshold,
	}
}

// FallbackStrategy is the deterministic lexical matcher. Exact
// case-insensitive name equality scores 0.8, containment either way
// 0.5, otherwise shared-word overlap scaled to 0.4; SKU equality adds
// 0.2 and containment 0.1. First-seen candidate wins ties.
type FallbackStrategy struct {
	Threshold float64
}

func (f FallbackStrategy) Match(_ context.Context, offer internal.NormalizedOffer, catalog []internal.ProductRecord) internal.MatchOutcome {
	if strings.TrimSpace(offer.ProductName) == "" || len(catalog) == 0 {
		return internal.MatchOutcome{Confidence: 0, Rationale: "Insufficient data for matching"}
	}

	var best *internal.ProductRecord
	bestScore := 0.0
	for i := range catalog {
		score := scoreCandidate(offer, catalog[i])
		if score > bestScore {
			bestScore = score
			best = &catalog[i]
		}
	}

	outcome := internal.MatchOutcome{
		Confidence: bestScore,
		Matched:    bestScore >= f.Threshold,
	}
	if best != nil {
		id := best.ID
		outcome.ProductID = &id
	}
	if outcome.Matched {
		outcome.Rationale = fmt.Sprintf("Fallback match: found similar product (score: %.2f)", bestScore)
	} else {
		outcome.Rationale = fmt.Sprintf("Fallback match: no good match found (score: %.2f)", bestScore)
	}
	return outcome
}

func scoreCandidate(offer internal.NormalizedOffer, product internal.ProductRecord) float64 {
	score := 0.0

	offerName := util.NormalizeName(offer.ProductName)
	productName := util.NormalizeName(product.Name)
	switch {
	case offerName == productName:
		score += 0.8
	case strings.Contains(offerName, productName) || strings.Contains(productName, offerName):
		score += 0.5
	default:
		offerWords := strings.Fields(offerName)
		productWords := strings.Fields(productName)
		if len(offerWords) > 0 && len(productWords) > 0 {
			productSet := make(map[string]struct{}, len(productWords))
			for _, w := range productWords {
				productSet[w] = struct{}{}
			}
			shared := 0
			for _, w := range offerWords {
				if _, ok := productSet[w]; ok {
					shared++
				}
			}
			score += float64(shared) / float64(max(len(offerWords), len(productWords))) * 0.4
		}
	}

	if offer.SKU != nil && product.SKU != "" {
		offerSKU := strings.ToLower(*offer.SKU)
		productSKU := strings.ToLower(product.SKU)
		switch {
		case offerSKU == productSKU:
			score += 0.2
		case strings.Contains(offerSKU, productSKU) || strings.Contains(productSKU, offerSKU):
			score += 0.1
		}
	}

	return score
}

func toOfferFields(offer internal.NormalizedOffer) matcher.OfferFields {
	return matcher.OfferFields{
		ProductName: offer.ProductName,
		SKU:         offer.SKU,
		Description: offer.Description,
	}
}

func toCatalogSummary(catalog []internal.ProductRecord) []matcher.CatalogProduct {
	out := make([]matcher.CatalogProduct, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, matcher.CatalogProduct{
			ID:       p.ID,
			Name:     p.Name,
			SKU:      p.SKU,
			Category: p.Category,
			Specs:    p.Specs,
		})
	}
	return out
}
