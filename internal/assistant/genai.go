package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scimoveis_backend/platform/config"

	"google.golang.org/genai"
)

// GeminiProvider generates replies through the Gemini API with the tool
// declarations attached.
type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiProvider creates the provider from configuration.
func NewGeminiProvider(ctx context.Context, cfg config.AssistantConfig) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetAssistantAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiProvider{
		client:  client,
		model:   cfg.GetAssistantModel(),
		timeout: cfg.GetAssistantTimeout(),
	}, nil
}

var toolDeclarations = []*genai.Tool{
	{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        string(ToolSearchProperties),
				Description: "Busca por imóveis no banco de dados com base nos critérios do cliente.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"city":     {Type: genai.TypeString, Description: "A cidade do imóvel, ex: 'Florianópolis'"},
						"type":     {Type: genai.TypeString, Description: "O tipo de imóvel: 'casa' ou 'apartamento'"},
						"purpose":  {Type: genai.TypeString, Description: "Finalidade: 'morar' ou 'investir'"},
						"bedrooms": {Type: genai.TypeNumber, Description: "O número mínimo de quartos"},
						"minPrice": {Type: genai.TypeNumber, Description: "Preço mínimo"},
						"maxPrice": {Type: genai.TypeNumber, Description: "Preço máximo"},
					},
				},
			},
			{
				Name:        string(ToolScheduleVisit),
				Description: "Agenda uma visita para um imóvel específico em uma data e hora.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"propertyId":   {Type: genai.TypeString, Description: "O código do imóvel, ex: 'AP001'"},
						"date":         {Type: genai.TypeString, Description: "A data desejada, formato AAAA-MM-DD"},
						"time":         {Type: genai.TypeString, Description: "O horário desejado, formato HH:MM"},
						"customerName": {Type: genai.TypeString, Description: "O nome do cliente para o agendamento"},
						"isPhoneCall":  {Type: genai.TypeBoolean, Description: "Se é uma ligação ao invés de visita presencial"},
					},
					Required: []string{"propertyId", "date", "time", "customerName"},
				},
			},
		},
	},
}

// Generate sends the conversation to Gemini and decodes text plus any
// function calls from the reply.
func (p *GeminiProvider) Generate(ctx context.Context, system string, msgs []Message) (*Reply, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	temperature := float32(0.8)
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Tools:             toolDeclarations,
		Temperature:       &temperature,
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, convertMessages(msgs), genCfg)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty model response")
	}

	reply := &Reply{}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			reply.Calls = append(reply.Calls, ToolCall{
				ID:   part.FunctionCall.ID,
				Name: ToolName(part.FunctionCall.Name),
				Args: part.FunctionCall.Args,
			})
			continue
		}
		if part.Text != "" {
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(part.Text)
		}
	}
	reply.Text = strings.TrimSpace(text.String())
	return reply, nil
}

func convertMessages(msgs []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		content := &genai.Content{Role: genai.RoleUser}
		if msg.Role == RoleModel {
			content.Role = genai.RoleModel
		}

		switch {
		case len(msg.Calls) > 0:
			for _, call := range msg.Calls {
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   call.ID,
						Name: string(call.Name),
						Args: call.Args,
					},
				})
			}
		case len(msg.Results) > 0:
			for _, result := range msg.Results {
				response := map[string]any{"result": result.Payload}
				if result.Error != "" {
					response = map[string]any{"error": result.Error}
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						ID:       result.ID,
						Name:     string(result.Name),
						Response: response,
					},
				})
			}
		default:
			content.Parts = append(content.Parts, genai.NewPartFromText(msg.Text))
		}

		contents = append(contents, content)
	}
	return contents
}
