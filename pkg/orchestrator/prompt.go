package orchestrator

// EffectivePrompt assembles the final text sent to a provider. The
// template is a fixed contract callers may rely on for reproducibility:
// a context string wraps the task as "Context: <context>\n\nTask:
// <prompt>", and a system prompt is prepended verbatim followed by a
// blank line.
func EffectivePrompt(prompt, systemPrompt, contextText string) string {
	full := prompt
	if contextText != "" {
		full = "Context: " + contextText + "\n\nTask: " + full
	}
	if systemPrompt != "" {
		full = systemPrompt + "\n\n" + full
	}
	return full
}
