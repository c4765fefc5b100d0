package llm

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

var answerTemplate = template.Must(template.ParseFS(promptTemplates, "templates/answer_prompt.txt"))

type PromptData struct {
	Context  string
	Question string
}

// RenderPrompt fills the answering prompt with the retrieved context and the question.
func RenderPrompt(contextText, question string) (string, error) {
	var buf bytes.Buffer
	if err := answerTemplate.Execute(&buf, PromptData{Context: contextText, Question: question}); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}
