package generation

import "fmt"

// ChatFallback is returned when the model answers with no text
const ChatFallback = "I'm having trouble connecting right now. Please try again."

func structurePrompt(topic string) string {
	return fmt.Sprintf(`You are an expert UX and Onboarding specialist.
Create a structured onboarding course for: %q.
The course should be engaging, concise, and professional.
Generate 4-6 steps. Mix video instructions, action items, downloads, embedded tools, and SOP readings.`, topic)
}

func enhancePrompt(text string) string {
	return fmt.Sprintf(`You are an expert UX writer creating content for onboarding slides.
Rewrite the following text to be extremely concise, punchy, and easy to scan.

STRICT RULES:
1. KEEP IT SHORT. No long paragraphs or essays. Max 50-60 words.
2. Use Markdown formatting tags to structure the text:
   - Use "## " for a short, catchy sub-headline (if applicable).
   - Use "- " for bullet points to break up instructions.
   - Use "**" to bold key terms or action verbs.
3. Tone: Professional, encouraging, and direct.

Text to rewrite: %q`, text)
}

func conciergeInstruction(platform, stepContext string) string {
	return fmt.Sprintf(`You are a helpful AI Concierge for the '%s' onboarding platform.
Your goal is to assist the user with their current onboarding step.
Be polite, concise, and encouraging.

Current User Context: %s`, platform, stepContext)
}

func sopPrompt(topic string) string {
	return fmt.Sprintf(`Write a detailed Standard Operating Procedure (SOP) document for: %q.

Format it with clear headers using Markdown:
- Title (H1)
- Purpose (H2)
- Scope (H2)
- Responsibilities (H2)
- Procedure (H2 with numbered lists)
- References (H2)

Keep it professional, clear, and actionable.`, topic)
}

// structureSchema constrains generated steps to the fields a draft understands
var structureSchema = map[string]any{
	"type": "ARRAY",
	"items": map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"title":       map[string]any{"type": "STRING", "description": "Short title of the step"},
			"description": map[string]any{"type": "STRING", "description": "Instructional text for the user"},
			"type": map[string]any{
				"type":        "STRING",
				"enum":        []string{"video", "action", "download", "embedded", "link", "image", "sop"},
				"description": "Type of the step",
			},
			"videoUrl":    map[string]any{"type": "STRING", "description": "A valid YouTube Video ID (not full URL) relevant to the topic. Use placeholder IDs like 'dQw4w9WgXcQ' if unknown."},
			"embedUrl":    map[string]any{"type": "STRING", "description": "Full URL for embedded content (e.g. Calendly link, Google Slides embed link). Only for 'embedded' type."},
			"actionLabel": map[string]any{"type": "STRING", "description": "Label for the action button or input (e.g., 'Upload Brief')"},
			"fileName":    map[string]any{"type": "STRING", "description": "Name of file to download if type is download"},
		},
		"required": []string{"title", "description", "type"},
	},
}
