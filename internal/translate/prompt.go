package translate

import (
	"fmt"

	"github.com/leonardotrapani/livecc/internal/language"
)

// BuildSystemPrompt generates the system prompt for caption translation
func BuildSystemPrompt(target string) string {
	prompt := fmt.Sprintf("You translate live captions into %s.\n\n", language.Name(target))
	prompt += "Rules:\n"
	prompt += "- Output ONLY the translation, nothing else\n"
	prompt += "- Keep names, numbers and technical terms as they are\n"
	prompt += "- The input is a fragment of ongoing speech and may start or end mid-sentence\n"
	prompt += "- If the input already is in the target language, return it unchanged\n"
	return prompt
}
