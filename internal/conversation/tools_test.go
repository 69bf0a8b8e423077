package conversation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"scimoveis_backend/internal/assistant"
	"scimoveis_backend/internal/properties"
	"scimoveis_backend/internal/session"
)

type fakeCatalog struct {
	results    []properties.Property
	lastFilter properties.SearchFilter
}

func (f *fakeCatalog) Search(_ context.Context, _ uuid.UUID, filter properties.SearchFilter) ([]properties.Property, error) {
	f.lastFilter = filter
	return f.results, nil
}

func searchParamsFixture() assistant.SearchParams {
	return assistant.SearchParams{City: "Itajaí", Purpose: "Venda"}
}

func TestSearchPropertiesCapsListings(t *testing.T) {
	catalog := &fakeCatalog{}
	for i := 1; i <= 5; i++ {
		catalog.results = append(catalog.results, properties.Property{
			Code:  fmt.Sprintf("AP%03d", i),
			Title: fmt.Sprintf("Apartamento %d", i),
			City:  "Itajaí",
		})
	}
	bridge := NewToolBridge(catalog, nil)

	out, err := bridge.SearchProperties(context.Background(), &session.Session{}, searchParamsFixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := strings.Count(out, "Opção "); got != maxPresentedListings {
		t.Fatalf("expected %d listings presented, got %d:\n%s", maxPresentedListings, got, out)
	}
	if strings.Contains(out, "AP004") || strings.Contains(out, "AP005") {
		t.Fatalf("listings beyond the cap leaked into the reply:\n%s", out)
	}
}

func TestSearchPropertiesForwardsPriceRange(t *testing.T) {
	catalog := &fakeCatalog{}
	bridge := NewToolBridge(catalog, nil)

	params := searchParamsFixture()
	params.MinPrice = 300000
	params.MaxPrice = 900000

	if _, err := bridge.SearchProperties(context.Background(), &session.Session{}, params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if catalog.lastFilter.MinPrice != 300000 || catalog.lastFilter.MaxPrice != 900000 {
		t.Fatalf("price range not forwarded: %+v", catalog.lastFilter)
	}
	if catalog.lastFilter.Limit != maxPresentedListings {
		t.Fatalf("Limit = %d, want %d", catalog.lastFilter.Limit, maxPresentedListings)
	}
}

func TestSearchPropertiesNoResults(t *testing.T) {
	bridge := NewToolBridge(&fakeCatalog{}, nil)

	out, err := bridge.SearchProperties(context.Background(), &session.Session{}, searchParamsFixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Nenhum imóvel encontrado") {
		t.Fatalf("expected no-results guidance, got %q", out)
	}
}
