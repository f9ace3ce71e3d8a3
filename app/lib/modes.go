package lib

type Framework string

const (
	ChainOfThought Framework = "chain-of-thought"
	RICE           Framework = "rice"
	CreativeBrief  Framework = "creative-brief"
	STAR           Framework = "star"
	Socratic       Framework = "socratic"
	Custom         Framework = "custom"
)

type FrameworkInfo struct {
	ID          Framework `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	adjustment  string
}

const BaseSystemPrompt = `You are PromptIQ's Legendary Prompt Architect, an expert AI that transforms simple user ideas into detailed, professional, immediately actionable prompts.

CRITICAL RULES:
- NO greetings, introductions, or pleasantries
- NO questions to the user or Socratic dialogue
- NO hypothetical scenarios or assumptions
- START IMMEDIATELY with the transformed prompt
- Output ONLY the final prompt, nothing else

YOUR TASK:
Take the user's input and DIRECTLY generate a comprehensive, detailed, legendary prompt that can be used immediately in AI tools (ChatGPT, Claude, Midjourney, etc).

OUTPUT STRUCTURE:
- Role: Define who the AI should act as
- Context: Provide background and constraints
- Task: Clearly state objectives with specifics
- Format: Specify exact output structure
- Examples: Include relevant examples when applicable
- Success Criteria: Define what good output looks like

LENGTH: 400-700 words
FORMAT: Professional markdown with clear sections
TONE: Authoritative, specific, actionable

Transform the user's input NOW. Output only the prompt.`

var Frameworks = map[Framework]FrameworkInfo{
	ChainOfThought: {
		ID:          ChainOfThought,
		Name:        "Chain of Thought",
		Description: "Step-by-step reasoning structure for complex problems",
		adjustment:  "\n\nFRAMEWORK ADJUSTMENT: Structure the prompt to include step-by-step reasoning. Add sections for \"Thinking Process\" and \"Step-by-Step Approach\".",
	},
	RICE: {
		ID:          RICE,
		Name:        "RICE Framework",
		Description: "Reach, Impact, Confidence, Effort prioritization",
		adjustment:  "\n\nFRAMEWORK ADJUSTMENT: Focus on RICE framework - Reach, Impact, Confidence, Effort. Structure the prompt to evaluate these four dimensions.",
	},
	CreativeBrief: {
		ID:          CreativeBrief,
		Name:        "Creative Brief",
		Description: "Brand voice, target audience, key messages",
		adjustment:  "\n\nFRAMEWORK ADJUSTMENT: Include sections for Brand Voice, Target Audience, Key Messages, Tone & Style, and Creative Direction.",
	},
	STAR: {
		ID:          STAR,
		Name:        "STAR Method",
		Description: "Situation, Task, Action, Result structure",
		adjustment:  "\n\nFRAMEWORK ADJUSTMENT: Structure as STAR - Situation (context), Task (objective), Action (steps), Result (expected outcome).",
	},
	Socratic: {
		ID:          Socratic,
		Name:        "Socratic Questioning",
		Description: "Guided thinking through strategic questions",
		adjustment:  "\n\nFRAMEWORK ADJUSTMENT: Use Socratic questioning technique. Structure the prompt as a series of guiding questions that lead to deeper thinking.",
	},
	Custom: {
		ID:          Custom,
		Name:        "Custom",
		Description: "Define your own structure",
		adjustment:  "\n\nFRAMEWORK ADJUSTMENT: Use a flexible, adaptable structure based on the user's specific needs.",
	},
}

// FrameworkOrder is the order frameworks are offered in.
var FrameworkOrder = []Framework{ChainOfThought, RICE, CreativeBrief, STAR, Socratic, Custom}

func IsValidFramework(framework Framework) bool {
	_, ok := Frameworks[framework]
	return ok
}

// SystemInstruction composes the base instruction with the framework adjustment.
// Unknown frameworks get the base instruction only.
func SystemInstruction(framework Framework) string {
	return BaseSystemPrompt + Frameworks[framework].adjustment
}

func RefinementTurn(originalPrompt, refinementRequest string) string {
	return "Here is the current prompt:\n\n" + originalPrompt +
		"\n\nUser refinement request: " + refinementRequest +
		"\n\nGenerate an improved version of the prompt based on this feedback. Output only the refined prompt."
}
