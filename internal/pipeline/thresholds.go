package pipeline

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Thresholds are the tunable knobs of the automation rules. Operators can
// override them with a YAML file; absent values keep their defaults.
type Thresholds struct {
	HotLeadScore          int
	HotLeadProbability    int
	HotLeadRecentContact  time.Duration
	HotLeadSetProbability int

	CadenceIdle             time.Duration
	CadenceProbabilityDrop  int
	CadenceProbabilityFloor int
	CadenceStageName        string

	QualifyScore              int
	QualifyProbabilityBoost   int
	QualifyProbabilityCeiling int

	AbandonedAfter time.Duration
}

// DefaultThresholds returns the rule parameters described in the product
// playbook.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HotLeadScore:          80,
		HotLeadProbability:    70,
		HotLeadRecentContact:  48 * time.Hour,
		HotLeadSetProbability: 85,

		CadenceIdle:             72 * time.Hour,
		CadenceProbabilityDrop:  10,
		CadenceProbabilityFloor: 10,
		CadenceStageName:        "Cadência de Contato",

		QualifyScore:              70,
		QualifyProbabilityBoost:   25,
		QualifyProbabilityCeiling: 75,

		AbandonedAfter: 30 * 24 * time.Hour,
	}
}

// UnmarshalYAML applies overrides on top of whatever the receiver already
// holds. Durations use time.ParseDuration notation ("48h", "30m").
func (t *Thresholds) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		HotLeadScore          *int    `yaml:"hot_lead_score"`
		HotLeadProbability    *int    `yaml:"hot_lead_probability"`
		HotLeadRecentContact  *string `yaml:"hot_lead_recent_contact"`
		HotLeadSetProbability *int    `yaml:"hot_lead_set_probability"`

		CadenceIdle             *string `yaml:"cadence_idle"`
		CadenceProbabilityDrop  *int    `yaml:"cadence_probability_drop"`
		CadenceProbabilityFloor *int    `yaml:"cadence_probability_floor"`
		CadenceStageName        *string `yaml:"cadence_stage_name"`

		QualifyScore              *int `yaml:"qualify_score"`
		QualifyProbabilityBoost   *int `yaml:"qualify_probability_boost"`
		QualifyProbabilityCeiling *int `yaml:"qualify_probability_ceiling"`

		AbandonedAfter *string `yaml:"abandoned_after"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setDuration := func(dst *time.Duration, src *string) error {
		if src == nil {
			return nil
		}
		d, err := time.ParseDuration(*src)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}

	setInt(&t.HotLeadScore, raw.HotLeadScore)
	setInt(&t.HotLeadProbability, raw.HotLeadProbability)
	setInt(&t.HotLeadSetProbability, raw.HotLeadSetProbability)
	setInt(&t.CadenceProbabilityDrop, raw.CadenceProbabilityDrop)
	setInt(&t.CadenceProbabilityFloor, raw.CadenceProbabilityFloor)
	setInt(&t.QualifyScore, raw.QualifyScore)
	setInt(&t.QualifyProbabilityBoost, raw.QualifyProbabilityBoost)
	setInt(&t.QualifyProbabilityCeiling, raw.QualifyProbabilityCeiling)
	if raw.CadenceStageName != nil {
		t.CadenceStageName = *raw.CadenceStageName
	}

	if err := setDuration(&t.HotLeadRecentContact, raw.HotLeadRecentContact); err != nil {
		return fmt.Errorf("hot_lead_recent_contact: %w", err)
	}
	if err := setDuration(&t.CadenceIdle, raw.CadenceIdle); err != nil {
		return fmt.Errorf("cadence_idle: %w", err)
	}
	if err := setDuration(&t.AbandonedAfter, raw.AbandonedAfter); err != nil {
		return fmt.Errorf("abandoned_after: %w", err)
	}
	return nil
}

// LoadThresholds reads overrides from a YAML file. An empty path or a
// missing file yields the defaults.
func LoadThresholds(path string) (Thresholds, error) {
	thresholds := DefaultThresholds()
	if path == "" {
		return thresholds, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return thresholds, nil
		}
		return thresholds, fmt.Errorf("failed to read automation rules file: %w", err)
	}

	if err := yaml.Unmarshal(data, &thresholds); err != nil {
		return thresholds, fmt.Errorf("failed to parse automation rules file: %w", err)
	}
	return thresholds, nil
}
