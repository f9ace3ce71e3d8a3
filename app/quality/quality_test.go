package quality

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func detailedPrompt() string {
	var b strings.Builder
	b.WriteString("## Role: Senior podcast producer\n\n")
	b.WriteString("**Task:** Plan the launch of a new podcast.\n\n")
	b.WriteString("For instance, outline the first three episodes. For instance, list guest ideas.\n\n")
	b.WriteString("Format: a numbered plan with owners and dates.\n\n")
	b.WriteString("Constraint: keep the budget under ten thousand.\n\n")
	for b.Len() < 4000 {
		b.WriteString("Describe each launch step with measurable outcomes and clear ownership. ")
	}
	return b.String()
}

func TestScore_Legendary(t *testing.T) {
	text := detailedPrompt()
	assert.GreaterOrEqual(t, wordCount(text), 500)

	score := Score(text)
	assert.Equal(t, 2.5, score.Structure)
	assert.Equal(t, 2.5, score.Clarity)
	assert.Equal(t, 2.5, score.Examples)
	assert.Equal(t, 2.5, score.Specificity)
	assert.Equal(t, 10.0, score.Total)
	assert.Empty(t, score.Suggestions)
	assert.NotNil(t, score.Suggestions)
}

func TestScore_Empty(t *testing.T) {
	score := Score("")
	assert.Equal(t, 0.5, score.Structure)
	assert.Equal(t, 0.5, score.Clarity)
	assert.Equal(t, 0.5, score.Examples)
	assert.Equal(t, 0.5, score.Specificity)
	assert.Equal(t, 2.0, score.Total)
	assert.Equal(t, []string{
		"Use markdown headers to organize sections",
		"Add role definition and clear objectives",
		"Include relevant examples to illustrate expectations",
	}, score.Suggestions)
}

func TestScore_Structure(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		score      float64
		suggestion string
	}{
		{"two heading markers", "## Context\n## Task", 2.5, ""},
		{"bold", "**Role** writer", 2.5, ""},
		{"single hash", "# Title", 1.5, "Add more clear section headers for better structure"},
		{"bullet", "* item", 1.5, "Add more clear section headers for better structure"},
		{"plain", "just words", 0.5, "Use markdown headers to organize sections"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := Score(tt.text)
			assert.Equal(t, tt.score, score.Structure)
			if tt.suggestion == "" {
				assert.NotContains(t, score.Suggestions, "Add more clear section headers for better structure")
				assert.NotContains(t, score.Suggestions, "Use markdown headers to organize sections")
			} else {
				assert.Equal(t, tt.suggestion, score.Suggestions[0])
			}
		})
	}
}

func TestScore_Clarity(t *testing.T) {
	score := Score("## You are an editor. Goal: tighten prose.")
	assert.Equal(t, 2.5, score.Clarity)

	score = Score("## ACT AS a critic")
	assert.Equal(t, 1.5, score.Clarity)
	assert.Contains(t, score.Suggestions, "State the objective more explicitly")
	assert.NotContains(t, score.Suggestions, "Define a clear role for the AI")

	score = Score("## Objective: ship")
	assert.Equal(t, 1.5, score.Clarity)
	assert.Contains(t, score.Suggestions, "Define a clear role for the AI")
}

func TestScore_Examples(t *testing.T) {
	tests := []struct {
		text  string
		score float64
	}{
		{"nothing here", 0.5},
		{"an Example", 1.5},
		{"e.g. this, such as that", 2.5},
		{"examples and more examples", 2.5},
		{"eg without dots", 0.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.score, Score(tt.text).Examples, tt.text)
	}

	score := Score("## Role: x Task: y")
	assert.Equal(t, 0.5, score.Examples)
	assert.Contains(t, score.Suggestions, "Include relevant examples to illustrate expectations")
}

func TestScore_Specificity(t *testing.T) {
	long := strings.Repeat("word ", 320)

	score := Score("## Role: x Task: y e.g. e.g. " + long)
	assert.Equal(t, 1.5, score.Specificity)
	assert.Equal(t, []string{
		"Add more detail and specificity",
		"Define constraints and limitations",
		"Specify the desired output format",
	}, score.Suggestions)

	score = Score("## Role: x Task: y e.g. e.g. Requirement: be brief. Output: list")
	assert.Equal(t, 1.5, score.Specificity)
	assert.Equal(t, []string{"Add more detail and specificity"}, score.Suggestions)

	score = Score("## Role: x Task: y e.g. e.g. short")
	assert.Equal(t, 0.5, score.Specificity)
	assert.Equal(t, []string{"Significantly expand with more details, constraints, and format specifications"}, score.Suggestions)
}

func TestScore_SuggestionsCappedInOrder(t *testing.T) {
	score := Score("# heading only")
	assert.Len(t, score.Suggestions, 3)
	assert.Equal(t, "Add more clear section headers for better structure", score.Suggestions[0])
	assert.Equal(t, "Add role definition and clear objectives", score.Suggestions[1])
	assert.Equal(t, "Include relevant examples to illustrate expectations", score.Suggestions[2])
}

func TestScore_TotalIsRoundedSum(t *testing.T) {
	texts := []string{
		"",
		"# a",
		"## Role: x",
		"You are a tester. Task: test. For example, e.g. Format: table. Constraint: none.",
		detailedPrompt(),
		strings.Repeat("such as ", 500),
	}
	for _, text := range texts {
		score := Score(text)
		sum := score.Structure + score.Clarity + score.Examples + score.Specificity
		assert.Equal(t, math.Min(math.Round(sum*10)/10, 10), score.Total)
		assert.LessOrEqual(t, score.Total, 10.0)
		assert.LessOrEqual(t, len(score.Suggestions), 3)
		for _, sub := range []float64{score.Structure, score.Clarity, score.Examples, score.Specificity} {
			assert.Contains(t, []float64{0.5, 1.5, 2.5}, sub)
		}
	}
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 1, wordCount(""))
	assert.Equal(t, 1, wordCount("one"))
	assert.Equal(t, 2, wordCount("one two"))
	assert.Equal(t, 3, wordCount(" one "))
	assert.Equal(t, 2, wordCount("one\n\t two"))
	assert.Equal(t, 2, wordCount("a\u00a0b"))
	assert.Equal(t, 2, wordCount("a\vb"))
	assert.Equal(t, 2, wordCount("a\u3000b"))
	assert.Equal(t, 2, wordCount("a\u2009\ufeffb"))
	assert.Equal(t, 1, wordCount("a\u0085b"))
	assert.Equal(t, 1, wordCount("a\u200bb"))
}

func TestScore_NonBreakingSpacesCountAsWords(t *testing.T) {
	text := "## Role: editor Task: review Constraint: none Format: list for instance for instance" +
		strings.Repeat("\u00a0word", 460)
	score := Score(text)
	assert.Equal(t, 2.5, score.Specificity)
	assert.Equal(t, 10.0, score.Total)
	assert.Empty(t, score.Suggestions)
}

func TestScore_ExamplesFoldOnlyASCII(t *testing.T) {
	assert.Equal(t, 0.5, Score("\u017fuch as").Examples)
	assert.Equal(t, 1.5, Score("SUCH AS").Examples)
	assert.Equal(t, 2.5, Score("For Instance, E.G.").Examples)
}

func TestScore_DottedCapitalIDoesNotFoldToI(t *testing.T) {
	assert.Equal(t, 0.5, Score("L\u0130MITATION FORMAT").Specificity)
	assert.Equal(t, 1.5, Score("LIMITATION").Specificity)
}
