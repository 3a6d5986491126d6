package llm

import (
	"fmt"
	"strings"

	"github.com/target/quiz-pipeline/internal/core"
)

const systemPrompt = "You are a quiz generator. " +
	"Write explanations that reference the content naturally and conversationally. " +
	"Match the language of MATERIAL for all texts (questions, options, explanations, and labels). " +
	"Output ONLY valid JSON (no markdown, no extra text)."

const responseSchema = `{
  "questions": [
    {
      "type": "single" | "multiple" | "boolean",
      "question": "<text>",
      "options": [
        {
          "option": "<text>",
          "isCorrect": true|false,
          "explanation": "<brief explanation referencing MATERIAL if possible>"
        }
      ]
    }
  ]
}`

// buildPrompt renders the system and user prompts for one batch request.
// Already-persisted question texts are inlined so later batches steer away
// from ground the earlier ones covered.
func buildPrompt(req core.GenerateBatchRequest) (system, user string) {
	var b strings.Builder

	fmt.Fprintf(&b, "TASK: Create EXACTLY %d UNIQUE questions from MATERIAL (Batch %d).\n",
		req.QuestionCount, req.BatchNumber)
	b.WriteString("Include these types:\n")
	b.WriteString("- single: 4 options, exactly 1 correct.\n")
	b.WriteString("- multiple: 4 options, 2-3 correct.\n")
	b.WriteString("- boolean: 2 options (localized; e.g., Indonesian: \"Benar\",\"Salah\"; English: \"True\",\"False\").\n")
	b.WriteString("\nJSON schema (strict):\n")
	b.WriteString(responseSchema)
	b.WriteString("\n\nMATERIAL:\n")
	b.WriteString(req.Document)

	if len(req.AvoidTexts) > 0 {
		b.WriteString("\n\nIMPORTANT - AVOID THESE QUESTIONS (already generated):\n")
		for i, text := range req.AvoidTexts {
			fmt.Fprintf(&b, "%d. %s\n", i+1, text)
		}
		b.WriteString("\nYou MUST create COMPLETELY DIFFERENT questions that cover other aspects of the material.")
	}

	b.WriteString("\n\nRULES:\n")
	fmt.Fprintf(&b, "- Produce EXACTLY %d questions, no more, no less.\n", req.QuestionCount)
	b.WriteString("- Use the same language as MATERIAL.\n")
	b.WriteString("- Explanations must reference relevant facts or phrases from MATERIAL when possible.\n")
	b.WriteString("- Explanations should clarify why the answer is correct or incorrect using the material context.\n")
	b.WriteString("- No placeholders; ensure all content aligns with MATERIAL.\n")
	b.WriteString("- Create diverse questions covering DIFFERENT aspects and details of the material.\n")
	b.WriteString("- If this is a later batch, focus on topics NOT covered in previous batches.")

	return systemPrompt, b.String()
}
