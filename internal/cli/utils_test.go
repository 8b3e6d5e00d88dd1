package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kiku/internal/models"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"text", OutputText, false},
		{"json", OutputJSON, false},
		{"yaml", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOutputFormat(%q) err = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteReply(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReply(&buf, "c1", "Ask again later.", OutputText); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "kiku> Ask again later.\n" {
		t.Errorf("text: got %q", buf.String())
	}

	buf.Reset()
	if err := WriteReply(&buf, "c1", "Ask again later.", OutputJSON); err != nil {
		t.Fatal(err)
	}
	var out map[string]string
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out["chat_id"] != "c1" || out["response"] != "Ask again later." {
		t.Errorf("json: got %v", out)
	}
}

func TestWriteHistory(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	entries := []*models.HistoryEntry{
		{User: "first?", Bot: "one", CreatedAt: ts},
		{User: "second?", Bot: "two", CreatedAt: ts.Add(time.Minute)},
	}
	var buf bytes.Buffer
	if err := WriteHistory(&buf, "c1", entries, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Chat c1 (2 exchanges)", "#1  2024-05-01 10:30:00", "you:  first?", "kiku: two"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
	if strings.Index(out, "first?") > strings.Index(out, "second?") {
		t.Errorf("entries out of order:\n%s", out)
	}

	buf.Reset()
	if err := WriteHistory(&buf, "c1", nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		ChatID  string                 `json:"chat_id"`
		History []*models.HistoryEntry `json:"history"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.ChatID != "c1" || len(decoded.History) != 0 {
		t.Errorf("json: got %+v", decoded)
	}
}

func TestWriteAsset(t *testing.T) {
	asset := &models.Asset{ID: "a1", Filename: "notes.txt", Text: strings.Repeat("x", 300)}
	var buf bytes.Buffer
	if err := WriteAsset(&buf, asset, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "ID:       a1") || !strings.Contains(out, "notes.txt") {
		t.Errorf("missing header:\n%s", out)
	}
	if !strings.Contains(out, strings.Repeat("x", 200)+"...") || strings.Contains(out, strings.Repeat("x", 201)) {
		t.Errorf("text not truncated to 200:\n%s", out)
	}
	if strings.Contains(out, "Created:") {
		t.Errorf("zero time printed:\n%s", out)
	}
}

func TestWriteStatus(t *testing.T) {
	status := map[string]interface{}{
		"assets":   float64(2),
		"sessions": float64(1),
		"config": map[string]interface{}{
			"retrieval_index": "keyword",
		},
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, status, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"assets:", "sessions:", "# config", "retrieval_index:", "keyword"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
	if strings.Index(out, "# config") < strings.Index(out, "sessions:") {
		t.Errorf("sections must follow scalar fields:\n%s", out)
	}

	buf.Reset()
	if err := WriteStatus(&buf, status, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !json.Valid(buf.Bytes()) {
		t.Errorf("invalid JSON:\n%s", buf.String())
	}
}

func TestJoinArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"single word", []string{"hello"}, "hello"},
		{"multiple words", []string{"what", "is", "this?"}, "what is this?"},
		{"quoted phrase", []string{"what is this?"}, "what is this?"},
		{"empty", []string{}, ""},
		{"blank", []string{"  ", " "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinArgs(tt.args); got != tt.want {
				t.Errorf("JoinArgs(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
