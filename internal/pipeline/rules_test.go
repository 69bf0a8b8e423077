package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"scimoveis_backend/internal/crm/domain"
	"scimoveis_backend/internal/crm/repository"
)

var ruleNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func automationDeal(stageOrder, probability, score int, createdAgo time.Duration, lastTouchAgo *time.Duration, conversations int) repository.AutomationDeal {
	deal := repository.AutomationDeal{
		Stage:             domain.PipelineStage{Order: stageOrder},
		ContactScore:      score,
		ConversationCount: conversations,
	}
	deal.Probability = probability
	deal.CreatedAt = ruleNow.Add(-createdAgo)
	if lastTouchAgo != nil {
		touch := ruleNow.Add(-*lastTouchAgo)
		deal.LastInteractionAt = &touch
	}
	return deal
}

func ago(d time.Duration) *time.Duration { return &d }

func TestHotLeadEligible(t *testing.T) {
	thresholds := DefaultThresholds()

	tests := []struct {
		name string
		deal repository.AutomationDeal
		want bool
	}{
		{
			name: "qualified stage with engaged lead",
			deal: automationDeal(domain.StageOrderQualified, 70, 85, 10*24*time.Hour, ago(2*time.Hour), 3),
			want: true,
		},
		{
			name: "wrong stage",
			deal: automationDeal(domain.StageOrderNewLeads, 70, 85, 10*24*time.Hour, ago(2*time.Hour), 3),
			want: false,
		},
		{
			name: "probability below threshold",
			deal: automationDeal(domain.StageOrderQualified, 69, 85, 10*24*time.Hour, ago(2*time.Hour), 3),
			want: false,
		},
		{
			name: "score below threshold",
			deal: automationDeal(domain.StageOrderQualified, 70, 79, 10*24*time.Hour, ago(2*time.Hour), 3),
			want: false,
		},
		{
			name: "touch too long ago",
			deal: automationDeal(domain.StageOrderQualified, 70, 85, 10*24*time.Hour, ago(49*time.Hour), 3),
			want: false,
		},
		{
			name: "never touched",
			deal: automationDeal(domain.StageOrderQualified, 70, 85, 10*24*time.Hour, nil, 3),
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := hotLeadEligible(tc.deal, ruleNow, thresholds); got != tc.want {
				t.Fatalf("hotLeadEligible = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCadenceEligible(t *testing.T) {
	thresholds := DefaultThresholds()

	tests := []struct {
		name string
		deal repository.AutomationDeal
		want bool
	}{
		{
			name: "stale first-stage deal never touched",
			deal: automationDeal(domain.StageOrderNewLeads, 25, 10, 80*time.Hour, nil, 0),
			want: true,
		},
		{
			name: "stale first-stage deal with old touch",
			deal: automationDeal(domain.StageOrderNewLeads, 25, 10, 80*time.Hour, ago(75*time.Hour), 1),
			want: true,
		},
		{
			name: "deal too young",
			deal: automationDeal(domain.StageOrderNewLeads, 25, 10, 48*time.Hour, nil, 0),
			want: false,
		},
		{
			name: "recent touch",
			deal: automationDeal(domain.StageOrderNewLeads, 25, 10, 80*time.Hour, ago(time.Hour), 1),
			want: false,
		},
		{
			name: "not first stage",
			deal: automationDeal(domain.StageOrderQualified, 25, 10, 80*time.Hour, nil, 0),
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := cadenceEligible(tc.deal, ruleNow, thresholds); got != tc.want {
				t.Fatalf("cadenceEligible = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestQualifyEligible(t *testing.T) {
	thresholds := DefaultThresholds()

	tests := []struct {
		name string
		deal repository.AutomationDeal
		want bool
	}{
		{
			name: "high score with conversation",
			deal: automationDeal(domain.StageOrderNewLeads, 25, 70, time.Hour, ago(time.Minute), 1),
			want: true,
		},
		{
			name: "score too low",
			deal: automationDeal(domain.StageOrderNewLeads, 25, 69, time.Hour, ago(time.Minute), 1),
			want: false,
		},
		{
			name: "no conversations yet",
			deal: automationDeal(domain.StageOrderNewLeads, 25, 90, time.Hour, nil, 0),
			want: false,
		},
		{
			name: "already past first stage",
			deal: automationDeal(domain.StageOrderQualified, 25, 90, time.Hour, ago(time.Minute), 1),
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := qualifyEligible(tc.deal, thresholds); got != tc.want {
				t.Fatalf("qualifyEligible = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLostEligible(t *testing.T) {
	thresholds := DefaultThresholds()

	tests := []struct {
		name string
		deal repository.AutomationDeal
		want bool
	}{
		{
			name: "month-old deal never touched",
			deal: automationDeal(domain.StageOrderNewLeads, 25, 10, 31*24*time.Hour, nil, 0),
			want: true,
		},
		{
			name: "month-old deal with stale touch",
			deal: automationDeal(domain.StageOrderNegotiation, 60, 50, 60*24*time.Hour, ago(31*24*time.Hour), 2),
			want: true,
		},
		{
			name: "deal too young",
			deal: automationDeal(domain.StageOrderNewLeads, 25, 10, 20*24*time.Hour, nil, 0),
			want: false,
		},
		{
			name: "touched inside the window",
			deal: automationDeal(domain.StageOrderNewLeads, 25, 10, 60*24*time.Hour, ago(10*24*time.Hour), 1),
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := lostEligible(tc.deal, ruleNow, thresholds); got != tc.want {
				t.Fatalf("lostEligible = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestProbabilityClamps(t *testing.T) {
	if got := dropProbability(25, 10, 10); got != 15 {
		t.Fatalf("dropProbability(25) = %d, want 15", got)
	}
	if got := dropProbability(15, 10, 10); got != 10 {
		t.Fatalf("dropProbability(15) = %d, want floor 10", got)
	}
	if got := boostProbability(25, 25, 75); got != 50 {
		t.Fatalf("boostProbability(25) = %d, want 50", got)
	}
	if got := boostProbability(60, 25, 75); got != 75 {
		t.Fatalf("boostProbability(60) = %d, want ceiling 75", got)
	}
	if got := boostProbability(90, 25, 75); got != 90 {
		t.Fatalf("boostProbability(90) = %d, want unchanged 90", got)
	}
}

func TestLoadThresholds(t *testing.T) {
	t.Run("empty path keeps defaults", func(t *testing.T) {
		got, err := LoadThresholds("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != DefaultThresholds() {
			t.Fatalf("expected defaults, got %+v", got)
		}
	})

	t.Run("missing file keeps defaults", func(t *testing.T) {
		got, err := LoadThresholds(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != DefaultThresholds() {
			t.Fatalf("expected defaults, got %+v", got)
		}
	})

	t.Run("file overrides selected knobs", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		content := "hot_lead_score: 90\ncadence_idle: 96h\nqualify_probability_ceiling: 80\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write rules file: %v", err)
		}

		got, err := LoadThresholds(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.HotLeadScore != 90 {
			t.Fatalf("HotLeadScore = %d, want 90", got.HotLeadScore)
		}
		if got.CadenceIdle != 96*time.Hour {
			t.Fatalf("CadenceIdle = %v, want 96h", got.CadenceIdle)
		}
		if got.QualifyProbabilityCeiling != 80 {
			t.Fatalf("QualifyProbabilityCeiling = %d, want 80", got.QualifyProbabilityCeiling)
		}
		// Untouched knobs keep their defaults.
		if got.AbandonedAfter != 30*24*time.Hour {
			t.Fatalf("AbandonedAfter = %v, want 720h", got.AbandonedAfter)
		}
	})

	t.Run("malformed file returns an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		if err := os.WriteFile(path, []byte("hot_lead_score: [not a number"), 0o644); err != nil {
			t.Fatalf("write rules file: %v", err)
		}
		if _, err := LoadThresholds(path); err == nil {
			t.Fatalf("expected parse error")
		}
	})
}
