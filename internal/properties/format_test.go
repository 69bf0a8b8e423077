package properties

import (
	"strings"
	"testing"
)

func TestFormatPriceBRL(t *testing.T) {
	tests := []struct {
		price float64
		want  string
	}{
		{890000, "R$ 890.000,00"},
		{1250000.5, "R$ 1.250.000,50"},
		{950, "R$ 950,00"},
		{0, "R$ 0,00"},
		{2500.99, "R$ 2.500,99"},
	}

	for _, tc := range tests {
		if got := FormatPriceBRL(tc.price); got != tc.want {
			t.Fatalf("FormatPriceBRL(%v) = %q, want %q", tc.price, got, tc.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	p := Property{
		Code:         "AP001",
		Title:        "Apartamento Vista Mar",
		City:         "Itajaí",
		Neighborhood: "Centro",
		Bedrooms:     3,
		Bathrooms:    2,
		AreaM2:       120,
		Price:        890000,
		Description:  "Vista para o mar e varanda gourmet.",
	}

	card := Describe(p)
	for _, want := range []string{
		"*Apartamento Vista Mar*",
		"Código: AP001",
		"📍 Itajaí - Centro",
		"3 quartos",
		"2 banheiros",
		"120m²",
		"R$ 890.000,00",
		"Vista para o mar",
	} {
		if !strings.Contains(card, want) {
			t.Fatalf("card missing %q:\n%s", want, card)
		}
	}
}

func TestDescribeWithoutNeighborhood(t *testing.T) {
	card := Describe(Property{Code: "CA002", Title: "Casa", City: "Balneário Camboriú"})
	if strings.Contains(card, " - ") {
		t.Fatalf("expected no neighborhood separator:\n%s", card)
	}
	if !strings.Contains(card, "📍 Balneário Camboriú") {
		t.Fatalf("city line missing:\n%s", card)
	}
}
