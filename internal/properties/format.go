package properties

import (
	"fmt"
	"strings"
)

// FormatPriceBRL renders a price as Brazilian currency, e.g.
// "R$ 890.000,00".
func FormatPriceBRL(price float64) string {
	cents := int64(price*100 + 0.5)
	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return fmt.Sprintf("R$ %s,%02d", b.String(), frac)
}

// Describe renders one listing in the card format the assistant presents.
// The "Código:" line is what downstream conversation analysis keys on.
func Describe(p Property) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", p.Title)
	fmt.Fprintf(&b, "Código: %s\n", p.Code)
	fmt.Fprintf(&b, "📍 %s", p.City)
	if p.Neighborhood != "" {
		fmt.Fprintf(&b, " - %s", p.Neighborhood)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "🛏 %d quartos | 🚿 %d banheiros | 📐 %.0fm²\n", p.Bedrooms, p.Bathrooms, p.AreaM2)
	fmt.Fprintf(&b, "💰 %s\n", FormatPriceBRL(p.Price))
	if p.Description != "" {
		b.WriteString(p.Description)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
