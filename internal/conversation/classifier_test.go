package conversation

import (
	"reflect"
	"testing"

	"scimoveis_backend/internal/session"
)

func TestClassifySignals(t *testing.T) {
	cases := []struct {
		name      string
		reply     string
		signal    Signal
		stage     string
		wantCodes []string
	}{
		{
			name:   "purpose question",
			reply:  "Que ótimo! Você está buscando um imóvel para morar ou investir?",
			signal: SignalQualifyingPurpose,
			stage:  session.StageQualifyingPurpose,
		},
		{
			name:   "type question",
			reply:  "Entendi! Você prefere casa ou apartamento?",
			signal: SignalQualifyingType,
			stage:  session.StageQualifyingType,
		},
		{
			name:   "city question",
			reply:  "Perfeito! Em qual cidade você quer morar?",
			signal: SignalQualifyingCity,
			stage:  session.StageQualifyingCity,
		},
		{
			name:   "bedrooms question",
			reply:  "E quantos quartos você precisa?",
			signal: SignalQualifyingBedrooms,
			stage:  session.StageQualifyingBedrooms,
		},
		{
			name:   "visit confirmed",
			reply:  "Perfeito, Maria! Sua visita está agendada para o dia 12/05 às 14:00. 🎉",
			signal: SignalScheduled,
			stage:  session.StageScheduled,
		},
		{
			name:   "pushing for a visit",
			reply:  "Vamos agendar uma visita para você conhecer?",
			signal: SignalScheduling,
			stage:  session.StageScheduling,
		},
		{
			name:      "listing presentation",
			reply:     "Olha só!\nCódigo: AP001\nApartamento em Itapema\n\nCódigo: CA002\nCasa em Itapema",
			signal:    SignalPresented,
			stage:     session.StagePresenting,
			wantCodes: []string{"AP001", "CA002"},
		},
		{
			name:   "plain reply",
			reply:  "Oi! Sou o Léo, consultor da SC Imóveis. Como posso ajudar?",
			signal: SignalNone,
			stage:  "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := Classify(tc.reply)
			if outcome.Signal != tc.signal {
				t.Fatalf("expected signal %d, got %d", tc.signal, outcome.Signal)
			}
			if outcome.Signal.SessionStage() != tc.stage {
				t.Fatalf("expected stage %q, got %q", tc.stage, outcome.Signal.SessionStage())
			}
			if tc.wantCodes != nil && !reflect.DeepEqual(outcome.PropertyCodes, tc.wantCodes) {
				t.Fatalf("expected codes %v, got %v", tc.wantCodes, outcome.PropertyCodes)
			}
		})
	}
}

// The scheduled trigger wins over presented codes in the same reply, but the
// codes are still extracted for the follow-up tracker.
func TestClassifyScheduledWithCodesKeepsCodes(t *testing.T) {
	outcome := Classify("Código: AP001 agendada para amanhã às 10:00")
	if outcome.Signal != SignalScheduled {
		t.Fatalf("expected scheduled signal, got %d", outcome.Signal)
	}
	if len(outcome.PropertyCodes) != 1 || outcome.PropertyCodes[0] != "AP001" {
		t.Fatalf("expected code AP001, got %v", outcome.PropertyCodes)
	}
}

func TestExtractPropertyCodesDeduplicates(t *testing.T) {
	outcome := Classify("Código: AP001 e de novo Código: AP001 e Código: CA003")
	if !reflect.DeepEqual(outcome.PropertyCodes, []string{"AP001", "CA003"}) {
		t.Fatalf("expected deduplicated codes, got %v", outcome.PropertyCodes)
	}
}

func TestSplitBlocks(t *testing.T) {
	reply := "Encontrei estas opções:\n[PROPERTY_BLOCK]\nCódigo: AP001\nApartamento\n[PROPERTY_BLOCK]\nCódigo: CA002\nCasa"
	blocks := SplitBlocks(reply)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d: %v", len(blocks), blocks)
	}
	if blocks[0] != "Encontrei estas opções:" {
		t.Fatalf("unexpected first block %q", blocks[0])
	}
}

func TestSplitBlocksWithoutMarkers(t *testing.T) {
	blocks := SplitBlocks("resposta simples")
	if len(blocks) != 1 || blocks[0] != "resposta simples" {
		t.Fatalf("expected single block, got %v", blocks)
	}
}

func TestStripMarkers(t *testing.T) {
	got := StripMarkers("[PROPERTY_BLOCK]\nCódigo: AP001\n[PROPERTY_BLOCK]")
	if got != "Código: AP001" {
		t.Fatalf("expected markers stripped, got %q", got)
	}
}
