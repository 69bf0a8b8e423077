package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"scimoveis_backend/internal/assistant"
	"scimoveis_backend/internal/properties"
	"scimoveis_backend/internal/session"
)

// maxPresentedListings caps how many listings one search hands the model.
const maxPresentedListings = 3

// Catalog searches the listing inventory.
type Catalog interface {
	Search(ctx context.Context, tenantID uuid.UUID, filter properties.SearchFilter) ([]properties.Property, error)
}

// VisitBooker books property visits.
type VisitBooker interface {
	Schedule(ctx context.Context, sess *session.Session, params assistant.VisitParams) (string, error)
}

// ToolBridge executes assistant tool calls against the catalog and the
// visit booking service.
type ToolBridge struct {
	catalog Catalog
	visits  VisitBooker
}

// NewToolBridge wires the tool executor.
func NewToolBridge(catalog Catalog, visits VisitBooker) *ToolBridge {
	return &ToolBridge{catalog: catalog, visits: visits}
}

// SearchProperties runs a catalog search and renders the matches as listing
// cards for the model to present.
func (b *ToolBridge) SearchProperties(ctx context.Context, sess *session.Session, params assistant.SearchParams) (string, error) {
	filter := properties.SearchFilter{
		City:         params.City,
		PropertyType: strings.ToLower(params.PropertyType),
		Purpose:      strings.ToLower(params.Purpose),
		Bedrooms:     params.Bedrooms,
		MinPrice:     params.MinPrice,
		MaxPrice:     params.MaxPrice,
		Limit:        maxPresentedListings,
	}

	results, err := b.catalog.Search(ctx, sess.TenantID, filter)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "Nenhum imóvel encontrado com esses critérios. Sugira ao cliente ajustar cidade, tipo ou faixa de preço.", nil
	}
	if len(results) > maxPresentedListings {
		results = results[:maxPresentedListings]
	}

	var sb strings.Builder
	for i, prop := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Opção %d:\n%s", i+1, properties.Describe(prop))
	}
	return sb.String(), nil
}

// ScheduleVisit books a visit through the visits service.
func (b *ToolBridge) ScheduleVisit(ctx context.Context, sess *session.Session, params assistant.VisitParams) (string, error) {
	return b.visits.Schedule(ctx, sess, params)
}

var _ assistant.ToolHandler = (*ToolBridge)(nil)
