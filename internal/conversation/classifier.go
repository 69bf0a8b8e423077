package conversation

import (
	"regexp"
	"strings"

	"scimoveis_backend/internal/session"
)

// Signal is what an assistant reply tells us about where the conversation
// stands.
type Signal int

const (
	SignalNone Signal = iota
	SignalQualifyingPurpose
	SignalQualifyingType
	SignalQualifyingCity
	SignalQualifyingBedrooms
	SignalScheduled
	SignalScheduling
	SignalPresented
)

// propertyCodeRegex matches listing codes in reply text, e.g. "Código: AP001".
var propertyCodeRegex = regexp.MustCompile(`Código:\s*([A-Z]{2,3}\d{3})`)

// Outcome is the analysis of one assistant reply.
type Outcome struct {
	Signal        Signal
	PropertyCodes []string
}

// classifierRule maps a trigger phrase in the reply to a signal. Rules are
// evaluated in order; the first hit wins.
type classifierRule struct {
	trigger string
	signal  Signal
}

var classifierRules = []classifierRule{
	{"para morar ou investir", SignalQualifyingPurpose},
	{"casa ou apartamento", SignalQualifyingType},
	{"Em qual cidade", SignalQualifyingCity},
	{"quantos quartos", SignalQualifyingBedrooms},
	{"agendada para", SignalScheduled},
	{"Vamos agendar", SignalScheduling},
}

// Classify derives the conversation signal and presented listing codes from
// an assistant reply. Listing codes are extracted regardless of which rule
// fires, since a reply can both present properties and push for scheduling.
func Classify(replyText string) Outcome {
	outcome := Outcome{PropertyCodes: extractPropertyCodes(replyText)}

	for _, rule := range classifierRules {
		if strings.Contains(replyText, rule.trigger) {
			outcome.Signal = rule.signal
			return outcome
		}
	}

	if len(outcome.PropertyCodes) > 0 {
		outcome.Signal = SignalPresented
	}
	return outcome
}

func extractPropertyCodes(text string) []string {
	matches := propertyCodeRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	codes := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, match := range matches {
		code := match[1]
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

// SessionStage translates a signal into the session stage tag, or "" when
// the stage should not change.
func (s Signal) SessionStage() string {
	switch s {
	case SignalQualifyingPurpose:
		return session.StageQualifyingPurpose
	case SignalQualifyingType:
		return session.StageQualifyingType
	case SignalQualifyingCity:
		return session.StageQualifyingCity
	case SignalQualifyingBedrooms:
		return session.StageQualifyingBedrooms
	case SignalScheduled:
		return session.StageScheduled
	case SignalScheduling:
		return session.StageScheduling
	case SignalPresented:
		return session.StagePresenting
	}
	return ""
}
