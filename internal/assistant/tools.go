package assistant

import (
	"context"
	"fmt"

	"scimoveis_backend/internal/session"
)

// ToolName identifies one of the closed set of tools the model may call.
type ToolName string

const (
	ToolSearchProperties ToolName = "searchProperties"
	ToolScheduleVisit    ToolName = "scheduleVisit"
)

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID   string
	Name ToolName
	Args map[string]any
}

// ToolResult is the structured outcome handed back to the model. Failed
// calls carry Error so the model can ask the contact for what is missing
// instead of the run aborting.
type ToolResult struct {
	ID      string
	Name    ToolName
	Payload string
	Error   string
}

// SearchParams are the catalog search arguments the model may provide.
type SearchParams struct {
	City         string
	PropertyType string
	Purpose      string
	Bedrooms     int
	MinPrice     float64
	MaxPrice     float64
}

// VisitParams are the booking arguments for a property visit.
type VisitParams struct {
	PropertyCode string
	Date         string // AAAA-MM-DD
	Time         string // HH:MM
	CustomerName string
	IsPhoneCall  bool
}

// ToolHandler executes tool calls against the real domain services.
type ToolHandler interface {
	SearchProperties(ctx context.Context, sess *session.Session, params SearchParams) (string, error)
	ScheduleVisit(ctx context.Context, sess *session.Session, params VisitParams) (string, error)
}

func parseSearchParams(args map[string]any) SearchParams {
	return SearchParams{
		City:         stringArg(args, "city"),
		PropertyType: stringArg(args, "type"),
		Purpose:      stringArg(args, "purpose"),
		Bedrooms:     intArg(args, "bedrooms"),
		MinPrice:     floatArg(args, "minPrice"),
		MaxPrice:     floatArg(args, "maxPrice"),
	}
}

func parseVisitParams(args map[string]any) (VisitParams, error) {
	params := VisitParams{
		PropertyCode: stringArg(args, "propertyId"),
		Date:         stringArg(args, "date"),
		Time:         stringArg(args, "time"),
		CustomerName: stringArg(args, "customerName"),
		IsPhoneCall:  boolArg(args, "isPhoneCall"),
	}
	if params.PropertyCode == "" || params.Date == "" || params.Time == "" || params.CustomerName == "" {
		return params, fmt.Errorf("propertyId, date, time and customerName are required")
	}
	return params, nil
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func floatArg(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func boolArg(args map[string]any, key string) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return false
}
