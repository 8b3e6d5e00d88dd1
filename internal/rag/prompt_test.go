package rag

import (
	"strings"
	"testing"
)

func TestPrompt_Default(t *testing.T) {
	p, err := NewPrompt("")
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Render("The fox won 3 awards.", "How many awards did the fox win?")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "You are a fortune teller.") {
		t.Error("default template should be used")
	}
	if !strings.Contains(out, "Context: The fox won 3 awards.\n") {
		t.Errorf("context missing:\n%s", out)
	}
	if !strings.Contains(out, "Question: How many awards did the fox win?\n") {
		t.Errorf("question missing:\n%s", out)
	}
}

func TestPrompt_CustomAndNoEscaping(t *testing.T) {
	p, err := NewPrompt("Q={{.Question}} C={{.Context}}")
	if err != nil {
		t.Fatal(err)
	}
	out, _ := p.Render("<b>&</b>", "why?")
	if out != "Q=why? C=<b>&</b>" {
		t.Errorf("Render=%q", out)
	}
}

func TestPrompt_Invalid(t *testing.T) {
	for _, text := range []string{"{{.Context", "{{.Missing}}"} {
		if _, err := NewPrompt(text); err == nil {
			t.Errorf("NewPrompt(%q) should fail", text)
		}
	}
}
