// Package urgency computes a bounded urgency score for email text and maps
// it onto a priority tier. Scoring is pure table lookup: no I/O, fully
// deterministic for a given input.
package urgency

import (
	"strings"

	"github.com/weapplyse/weapply-pm/core/domain"
)

// Scorer analyzes raw subject+body text for urgency signals.
type Scorer struct{}

// NewScorer creates a scorer. It carries no state; the weight tables in
// tables.go are the single source of truth.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Analyze scores the message and suggests a priority tier. The returned
// score is clamped to [0, 100]; reasons and keywords are truncated in
// discovery order.
func (s *Scorer) Analyze(content, subject string) domain.UrgencyAnalysis {
	haystack := strings.ToLower(subject + " " + content)
	original := subject + "\n" + content

	raw := 0
	var reasons []string
	var keywords []string
	positiveMatches := 0

	// Lexical and business-impact keyword tables share one generic loop.
	for _, table := range [][]keywordEntry{lexicalKeywords, impactKeywords} {
		for _, entry := range table {
			if !strings.Contains(haystack, entry.keyword) {
				continue
			}
			raw += entry.weight
			keywords = append(keywords, entry.keyword)
			if entry.weight > 0 {
				positiveMatches++
			}
			if entry.reason != "" {
				reasons = append(reasons, entry.reason)
			}
		}
	}

	// Panic patterns run against the original-case text; repetition is
	// capped at three occurrences per pattern.
	for _, p := range panicPatterns {
		count := len(p.re.FindAllString(original, -1))
		if count == 0 {
			continue
		}
		if count > 3 {
			count = 3
		}
		raw += p.weight * count
		reasons = append(reasons, p.reason)
	}

	for _, p := range timePatterns {
		if p.re.MatchString(haystack) {
			raw += p.weight
			reasons = append(reasons, p.reason)
		}
	}

	if positiveMatches >= compoundThreshold {
		raw += compoundBonus
		reasons = append(reasons, "multiple urgency signals combined")
	}

	score := raw
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	priority := priorityForScore(score, raw)

	if priority == domain.PriorityUrgent && !mentionsUrgency(reasons) {
		reasons = append([]string{"high urgency language detected"}, reasons...)
	}

	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}

	return domain.UrgencyAnalysis{
		Score:             score,
		SuggestedPriority: priority,
		Reasons:           reasons,
		Keywords:          keywords,
	}
}

// priorityForScore maps the clamped score onto a tier. A raw score pushed
// negative by de-escalation phrases lands on Low; a flat zero with no
// signal at all stays Normal.
func priorityForScore(score, raw int) domain.Priority {
	switch {
	case score >= urgentThreshold:
		return domain.PriorityUrgent
	case score >= highThreshold:
		return domain.PriorityHigh
	case score >= normalThreshold:
		return domain.PriorityNormal
	case raw < 0:
		return domain.PriorityLow
	default:
		return domain.PriorityNormal
	}
}

func mentionsUrgency(reasons []string) bool {
	for _, r := range reasons {
		if strings.Contains(strings.ToLower(r), "urgen") {
			return true
		}
	}
	return false
}
