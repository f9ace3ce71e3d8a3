// Package quality scores generated prompts with a fixed text heuristic.
package quality

import (
	"math"
	"regexp"
	"strings"

	"promptiq/m/v2/app/lib"
	"promptiq/m/v2/app/models"
)

const (
	high   = 2.5
	medium = 1.5
	low    = 0.5

	maxTotal       = 10
	maxSuggestions = 3

	detailedWordCount = 400
	mediumWordCount   = 300
)

var (
	// matched against asciiLower(text): only ASCII letters fold, as in a non-unicode /i regexp
	examplesRegex = regexp.MustCompile(`example|e\.g\.|for instance|such as`)
	whitespaceRegex = regexp.MustCompile(`[` + lib.WhitespaceChars + `]+`)

	roleMarkers       = []string{"role:", "act as", "you are"}
	taskMarkers       = []string{"task:", "objective:", "goal:"}
	constraintMarkers = []string{"constraint", "limitation", "requirement"}
	formatMarkers     = []string{"format:", "output:", "structure:"}
)

// Score is pure and deterministic.
func Score(text string) models.QualityBreakdown {
	lower := toLower(text)
	var suggestions []string

	structure, s := scoreStructure(text)
	suggestions = append(suggestions, s...)
	clarity, s := scoreClarity(lower)
	suggestions = append(suggestions, s...)
	examples, s := scoreExamples(text)
	suggestions = append(suggestions, s...)
	specificity, s := scoreSpecificity(text, lower)
	suggestions = append(suggestions, s...)

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	if suggestions == nil {
		suggestions = []string{}
	}

	return models.QualityBreakdown{
		Structure:   round1(structure),
		Clarity:     round1(clarity),
		Examples:    round1(examples),
		Specificity: round1(specificity),
		Total:       math.Min(round1(structure+clarity+examples+specificity), maxTotal),
		Suggestions: suggestions,
	}
}

func scoreStructure(text string) (float64, []string) {
	switch {
	case strings.Contains(text, "##") || strings.Contains(text, "**"):
		return high, nil
	case strings.Contains(text, "#") || strings.Contains(text, "*"):
		return medium, []string{"Add more clear section headers for better structure"}
	default:
		return low, []string{"Use markdown headers to organize sections"}
	}
}

func scoreClarity(lower string) (float64, []string) {
	hasRole := containsAny(lower, roleMarkers)
	hasTask := containsAny(lower, taskMarkers)
	switch {
	case hasRole && hasTask:
		return high, nil
	case hasRole || hasTask:
		var suggestions []string
		if !hasRole {
			suggestions = append(suggestions, "Define a clear role for the AI")
		}
		if !hasTask {
			suggestions = append(suggestions, "State the objective more explicitly")
		}
		return medium, suggestions
	default:
		return low, []string{"Add role definition and clear objectives"}
	}
}

func scoreExamples(text string) (float64, []string) {
	count := len(examplesRegex.FindAllStringIndex(asciiLower(text), -1))
	switch {
	case count >= 2:
		return high, nil
	case count == 1:
		return medium, []string{"Add more concrete examples"}
	default:
		return low, []string{"Include relevant examples to illustrate expectations"}
	}
}

func scoreSpecificity(text, lower string) (float64, []string) {
	words := wordCount(text)
	hasConstraints := containsAny(lower, constraintMarkers)
	hasFormat := containsAny(lower, formatMarkers)
	switch {
	case words >= detailedWordCount && hasConstraints && hasFormat:
		return high, nil
	case words >= mediumWordCount || hasConstraints || hasFormat:
		var suggestions []string
		if words < detailedWordCount {
			suggestions = append(suggestions, "Add more detail and specificity")
		}
		if !hasConstraints {
			suggestions = append(suggestions, "Define constraints and limitations")
		}
		if !hasFormat {
			suggestions = append(suggestions, "Specify the desired output format")
		}
		return medium, suggestions
	default:
		return low, []string{"Significantly expand with more details, constraints, and format specifications"}
	}
}

// wordCount counts the pieces left after splitting on whitespace runs, keeping the
// empty leading and trailing pieces, so "" counts as 1 and " a " as 3.
func wordCount(text string) int {
	return len(whitespaceRegex.FindAllStringIndex(text, -1)) + 1
}

// toLower lowers like String.prototype.toLowerCase, which maps U+0130 to "i\u0307"
// where unicode.ToLower gives a bare "i".
func toLower(text string) string {
	return strings.ToLower(strings.ReplaceAll(text, "\u0130", "i\u0307"))
}

func asciiLower(text string) string {
	b := []byte(text)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func containsAny(s string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// round1 rounds half away from zero at one decimal.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
