package gemini

import (
	"regexp"
	"strings"

	"agrismart/internal/models"
)

var (
	emphasisRe = regexp.MustCompile(`\*\*`)
	headingRe  = regexp.MustCompile(`#+`)
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]`)
)

const maxResponseTokens = 200

// CleanResponse strips markup, drops near-duplicate lines, and caps the result
// at 200 whitespace-delimited tokens. Cleaning is idempotent.
func CleanResponse(text string) string {
	if text == "" {
		return ""
	}

	clean := headingRe.ReplaceAllString(emphasisRe.ReplaceAllString(text, ""), "")
	clean = strings.TrimSpace(clean)

	seen := make(map[string]bool)
	uniqueLines := make([]string, 0)
	for _, line := range strings.Split(clean, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" {
			continue
		}
		// Near-identical lines compare equal after dropping everything but
		// lowercase alphanumerics. First occurrence wins.
		key := nonAlnumRe.ReplaceAllString(strings.ToLower(line), "")
		if seen[key] {
			continue
		}
		seen[key] = true
		uniqueLines = append(uniqueLines, line)
	}

	clean = strings.Join(uniqueLines, "\n")

	tokens := strings.Fields(clean)
	if len(tokens) > maxResponseTokens {
		clean = strings.Join(tokens[:maxResponseTokens], " ")
	}

	return strings.TrimSpace(clean)
}

var (
	immediateTerms = []string{"immediately", "urgent", "asap"}
	organicTerms   = []string{"organic", "compost", "neem", "biological"}
	chemicalTerms  = []string{"chemical", "spray", "pesticide", "fungicide"}
)

// CategorizeTreatments buckets each non-empty line of advisory text by keyword.
// First matching rule wins; lines matching nothing default to preventive, so
// every line lands in exactly one bucket.
func CategorizeTreatments(recommendations string) models.SuggestedActions {
	var actions models.SuggestedActions
	if recommendations == "" {
		return actions
	}

	for _, line := range strings.Split(recommendations, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		switch {
		case containsAny(lower, immediateTerms):
			actions.Immediate = append(actions.Immediate, line)
		case strings.Contains(lower, "prevent"):
			actions.Preventive = append(actions.Preventive, line)
		case containsAny(lower, organicTerms):
			actions.Organic = append(actions.Organic, line)
		case containsAny(lower, chemicalTerms):
			actions.Chemical = append(actions.Chemical, line)
		default:
			actions.Preventive = append(actions.Preventive, line)
		}
	}

	return actions
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
