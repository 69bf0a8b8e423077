package assistant

import "testing"

func TestParseSearchParams(t *testing.T) {
	params := parseSearchParams(map[string]any{
		"city":     "Itajaí",
		"type":     "apartamento",
		"purpose":  "morar",
		"bedrooms": float64(2),
		"minPrice": float64(300000),
		"maxPrice": float64(900000),
	})

	if params.City != "Itajaí" || params.PropertyType != "apartamento" || params.Purpose != "morar" {
		t.Fatalf("string params not parsed: %+v", params)
	}
	if params.Bedrooms != 2 {
		t.Fatalf("Bedrooms = %d, want 2", params.Bedrooms)
	}
	if params.MinPrice != 300000 {
		t.Fatalf("MinPrice = %v, want 300000", params.MinPrice)
	}
	if params.MaxPrice != 900000 {
		t.Fatalf("MaxPrice = %v, want 900000", params.MaxPrice)
	}
}

func TestParseSearchParamsDefaults(t *testing.T) {
	params := parseSearchParams(map[string]any{})
	if params != (SearchParams{}) {
		t.Fatalf("expected zero params, got %+v", params)
	}
}
