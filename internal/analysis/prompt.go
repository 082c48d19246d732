package analysis

import "strings"

// SystemPrompt is sent as the system message on every chat completion.
const SystemPrompt = `You are a log analysis assistant. Reply with a single JSON object with the fields
severity, category, summarizedIssue, likelyCause, recommendation, anomalyScore.`

const promptHeader = `Analyze the following log line and return a JSON object exactly with fields:
["severity","category","summarizedIssue","likelyCause","recommendation","anomalyScore"]
where severity is one of INFO/LOW/MEDIUM/HIGH/CRITICAL and anomalyScore is a number between 0.0 and 1.0.

Log:
`

// BuildPrompt wraps one raw log line in the analysis instructions.
func BuildPrompt(rawLine string) string {
	var b strings.Builder
	b.Grow(len(promptHeader) + len(rawLine) + 32)
	b.WriteString(promptHeader)
	b.WriteString(rawLine)
	b.WriteString("\n\nReturn JSON only.")
	return b.String()
}
