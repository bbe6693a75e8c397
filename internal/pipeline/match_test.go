package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"offerhub/internal"
)

func testCatalog() []internal.ProductRecord {
	return []internal.ProductRecord{
		{ID: "prod-1", Name: "Wireless Mouse", SKU: "WM-2024-001"},
		{ID: "prod-2", Name: "USB-C Hub", SKU: "HUB-2024-002"},
	}
}

func TestFallbackExactNameCaseInsensitive(t *testing.T) {
	f := FallbackStrategy{Threshold: 0.5}
	offer := internal.NormalizedOffer{ProductName: "wireless mouse"}
	out := f.Match(context.Background(), offer, testCatalog())
	if out.ProductID == nil || *out.ProductID != "prod-1" {
		t.Fatalf("productID=%v", out.ProductID)
	}
	if out.Confidence < 0.8 {
		t.Fatalf("confidence=%v", out.Confidence)
	}
	if !out.Matched {
		t.Fatal("expected matched")
	}
}

func TestFallbackContainment(t *testing.T) {
	f := FallbackStrategy{Threshold: 0.5}
	offer := internal.NormalizedOffer{ProductName: "Premium Wireless Mouse Bundle"}
	out := f.Match(context.Background(), offer, testCatalog())
	if out.ProductID == nil || *out.ProductID != "prod-1" {
		t.Fatalf("productID=%v", out.ProductID)
	}
	if out.Confidence != 0.5 {
		t.Fatalf("confidence=%v", out.Confidence)
	}
}

func TestFallbackWordOverlap(t *testing.T) {
	f := FallbackStrategy{Threshold: 0.5}
	offer := internal.NormalizedOffer{ProductName: "Mouse Gaming Wired"}
	out := f.Match(context.Background(), offer, testCatalog())
	// one shared word of max(3,2) words -> 1/3 * 0.4
	want := 1.0 / 3.0 * 0.4
	if out.Confidence < want-1e-9 || out.Confidence > want+1e-9 {
		t.Fatalf("confidence=%v want %v", out.Confidence, want)
	}
	if out.Matched {
		t.Fatal("should not be matched below threshold")
	}
	if out.ProductID == nil {
		t.Fatal("best candidate id is still reported below threshold")
	}
}

func TestFallbackSKUBonus(t *testing.T) {
	f := FallbackStrategy{Threshold: 0.5}
	sku := "WM-2024-001"
	offer := internal.NormalizedOffer{ProductName: "Mouse Gaming Wired", SKU: &sku}
	out := f.Match(context.Background(), offer, testCatalog())
	want := 1.0/3.0*0.4 + 0.2
	if out.Confidence < want-1e-9 || out.Confidence > want+1e-9 {
		t.Fatalf("confidence=%v want %v", out.Confidence, want)
	}
}

func TestFallbackFirstSeenWinsTies(t *testing.T) {
	catalog := []internal.ProductRecord{
		{ID: "a", Name: "Desk Lamp"},
		{ID: "b", Name: "Desk Lamp"},
	}
	f := FallbackStrategy{Threshold: 0.5}
	out := f.Match(context.Background(), internal.NormalizedOffer{ProductName: "Desk Lamp"}, catalog)
	if out.ProductID == nil || *out.ProductID != "a" {
		t.Fatalf("productID=%v", out.ProductID)
	}
}

func TestFallbackInsufficientData(t *testing.T) {
	f := FallbackStrategy{Threshold: 0.5}
	out := f.Match(context.Background(), internal.NormalizedOffer{ProductName: "Anything"}, nil)
	if out.ProductID != nil || out.Confidence != 0 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func semanticStrategyFor(t *testing.T, handler http.HandlerFunc) *SemanticStrategy {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := testConfig(t)
	cfg.MatcherBaseURL = server.URL
	cfg.MatcherRateLimitRPS = 1000
	cfg.MatchStrategy = "semantic"
	strategy, ok := NewStrategy(cfg).(*SemanticStrategy)
	if !ok {
		t.Fatal("expected semantic strategy")
	}
	return strategy
}

func TestSemanticHappyPath(t *testing.T) {
	strategy := semanticStrategyFor(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Offer   map[string]any   `json:"offer"`
			Catalog []map[string]any `json:"catalog"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if len(req.Catalog) != 2 {
			t.Errorf("catalog len=%d", len(req.Catalog))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"productId":  "prod-1",
			"confidence": 0.9,
			"reasoning":  "Names are near-identical",
		})
	})

	out := strategy.Match(context.Background(), internal.NormalizedOffer{ProductName: "Wireless Mouse"}, testCatalog())
	if out.ProductID == nil || *out.ProductID != "prod-1" {
		t.Fatalf("productID=%v", out.ProductID)
	}
	if out.Confidence != 0.9 || !out.Matched {
		t.Fatalf("outcome=%+v", out)
	}
}

func TestSemanticDiscardsUnknownIDHighConfidence(t *testing.T) {
	strategy := semanticStrategyFor(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"productId":  "made-up-id",
			"confidence": 0.8,
			"reasoning":  "hallucinated",
		})
	})

	out := strategy.Match(context.Background(), internal.NormalizedOffer{ProductName: "wireless mouse"}, testCatalog())
	// invalid id with confidence >= threshold: recover the candidate
	// from the deterministic matcher, keep the service's confidence
	if out.ProductID == nil || *out.ProductID != "prod-1" {
		t.Fatalf("productID=%v", out.ProductID)
	}
	if out.Confidence != 0.8 {
		t.Fatalf("confidence=%v", out.Confidence)
	}
}

func TestSemanticDiscardsUnknownIDLowConfidence(t *testing.T) {
	strategy := semanticStrategyFor(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"productId":  "made-up-id",
			"confidence": 0.3,
			"reasoning":  "guess",
		})
	})

	out := strategy.Match(context.Background(), internal.NormalizedOffer{ProductName: "Standing Desk"}, testCatalog())
	if out.ProductID != nil {
		t.Fatalf("productID should be nil, got %v", *out.ProductID)
	}
	if out.Matched {
		t.Fatal("should not be matched")
	}
}

func TestSemanticFailureFallsBack(t *testing.T) {
	strategy := semanticStrategyFor(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	out := strategy.Match(context.Background(), internal.NormalizedOffer{ProductName: "Wireless Mouse"}, testCatalog())
	if out.ProductID == nil || *out.ProductID != "prod-1" {
		t.Fatalf("fallback should have matched, got %+v", out)
	}
	if out.Confidence < 0.8 {
		t.Fatalf("confidence=%v", out.Confidence)
	}
}

func TestSemanticEmptyCatalog(t *testing.T) {
	strategy := semanticStrategyFor(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("service should not be called with an empty catalog")
	})
	out := strategy.Match(context.Background(), internal.NormalizedOffer{ProductName: "Anything"}, nil)
	if out.ProductID != nil || out.Matched {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestStrategySelection(t *testing.T) {
	cfg := testConfig(t)
	cfg.MatchStrategy = "fallback"
	if _, ok := NewStrategy(cfg).(FallbackStrategy); !ok {
		t.Fatal("expected fallback strategy")
	}
	cfg.MatchStrategy = "semantic"
	if _, ok := NewStrategy(cfg).(*SemanticStrategy); !ok {
		t.Fatal("expected semantic strategy")
	}
}
