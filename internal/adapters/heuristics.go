package adapters

import (
	"context"
	"fmt"

	"sentinel/internal/rules"
	"sentinel/pkg/models"
)

const heuristicsSource = "Heuristic Rules"

// HeuristicsAdapter evaluates the loaded rule set against URL-derived
// fields. Blocklist entries and URL heuristics live in Sigma rule files;
// each match becomes one card.
type HeuristicsAdapter struct {
	engine rules.Engine
}

// NewHeuristicsAdapter creates the rule adapter.
func NewHeuristicsAdapter(engine rules.Engine) *HeuristicsAdapter {
	if engine == nil {
		engine = &rules.NoopEngine{}
	}
	return &HeuristicsAdapter{engine: engine}
}

// Name returns the registry key.
func (a *HeuristicsAdapter) Name() string { return "heuristics" }

// Run evaluates the rule set and emits one card per matched rule.
func (a *HeuristicsAdapter) Run(ctx context.Context, subject Subject) []models.EvidenceCard {
	if subject.Domain == "" {
		return []models.EvidenceCard{SkippedCard("Heuristic check skipped", "subject is not a URL", heuristicsSource)}
	}

	var path, query string
	if subject.URL != nil {
		path = subject.URL.Path
		query = subject.URL.RawQuery
	}
	matches := a.engine.Apply(rules.SubjectFields(subject.Raw, subject.Domain, path, query))

	if len(matches) == 0 {
		card := models.NewCard(models.KindAlert, models.SeveritySafe,
			"No heuristic rules matched",
			fmt.Sprintf("%s did not match any blocklist or URL heuristic rules.", subject.Domain),
			heuristicsSource, 0.6)
		return []models.EvidenceCard{card}
	}

	cards := make([]models.EvidenceCard, 0, len(matches))
	for _, m := range matches {
		detail := m.Detail
		if detail == "" {
			detail = fmt.Sprintf("Rule %s matched %s.", m.Name, subject.Domain)
		}
		card := models.NewCard(models.KindAlert, severityForLevel(m.Level),
			fmt.Sprintf("Heuristic rule matched: %s", m.Name), detail, heuristicsSource, 0.85)
		card.Metadata = map[string]interface{}{
			"ruleId": m.ID,
			"level":  m.Level,
			"tags":   m.Tags,
		}
		cards = append(cards, card)
	}
	return cards
}

func severityForLevel(level string) string {
	switch level {
	case "critical":
		return models.SeverityCritical
	case "high":
		return models.SeverityCritical
	case "medium":
		return models.SeverityWarning
	case "low":
		return models.SeverityInfo
	default:
		return models.SeverityWarning
	}
}
