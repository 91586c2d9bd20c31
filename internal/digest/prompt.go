package digest

import "fmt"

const promptTemplate = `
You are an expert meeting analyzer. Please analyze the following meeting transcript and provide a structured summary in the following format:

## Meeting Overview
[Provide a brief, one-paragraph overview of the meeting]

## Key Decisions
[List the key decisions made during the meeting as bullet points]

## Action Items
[List the action items assigned and to whom as bullet points]

Please ensure the summary is clear, concise, and well-structured. If no decisions or action items are mentioned, state "None identified" for those sections.

Transcript:
%s
`

// BuildPrompt wraps transcript in the fixed analyst instructions.
func BuildPrompt(transcript string) string {
	return fmt.Sprintf(promptTemplate, transcript)
}
