package rag

import (
	"bytes"
	"fmt"
	"text/template"
)

// DefaultPromptTemplate is the prompt used when none is configured.
const DefaultPromptTemplate = `
You are a fortune teller. These Human will ask you a question about their life. 
Use the following piece of context to answer the question. 
If you don't know the answer, just say you don't know. 
Keep the answer within 2 sentences and concise.

Context: {{.Context}}
Question: {{.Question}}
Answer: 
`

// Prompt renders the generator input from retrieved context and the user's question.
type Prompt struct {
	tmpl *template.Template
}

type promptData struct {
	Context  string
	Question string
}

// NewPrompt parses text as a text/template with fields .Context and .Question.
// Empty text selects DefaultPromptTemplate.
func NewPrompt(text string) (*Prompt, error) {
	if text == "" {
		text = DefaultPromptTemplate
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	p := &Prompt{tmpl: tmpl}
	// Catch references to unknown fields at construction.
	if _, err := p.Render("", ""); err != nil {
		return nil, err
	}
	return p, nil
}

// Render fills the template.
func (p *Prompt) Render(context, question string) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, promptData{Context: context, Question: question}); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}
