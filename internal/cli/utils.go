// Package cli provides output formatting and an HTTP client for the kiku command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteReply writes one bot response.
func WriteReply(w io.Writer, chatID, response string, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, map[string]string{"chat_id": chatID, "response": response})
	}
	_, err := fmt.Fprintf(w, "kiku> %s\n", response)
	return err
}

// WriteHistory writes the exchanges of a chat in order.
func WriteHistory(w io.Writer, chatID string, entries []*models.HistoryEntry, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, map[string]interface{}{"chat_id": chatID, "history": entries})
	}
	fmt.Fprintf(w, "Chat %s (%d exchanges)\n", chatID, len(entries))
	for i, e := range entries {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "#%d  %s\n", i+1, e.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "you:  %s\n", e.User)
		fmt.Fprintf(w, "kiku: %s\n", e.Bot)
	}
	return nil
}

// WriteAsset writes a stored document with a preview of its text.
func WriteAsset(w io.Writer, asset *models.Asset, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, asset)
	}
	fmt.Fprintf(w, "ID:       %s\n", asset.ID)
	fmt.Fprintf(w, "Filename: %s\n", asset.Filename)
	if !asset.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created:  %s\n", asset.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "\n%s\n", utils.Truncate(asset.Text, 200))
	return nil
}

// WriteStatus writes the /api/status payload. Nested maps are printed as sections.
func WriteStatus(w io.Writer, status map[string]interface{}, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, status)
	}
	var sections []string
	for _, k := range sortedKeys(status) {
		if _, ok := status[k].(map[string]interface{}); ok {
			sections = append(sections, k)
			continue
		}
		fmt.Fprintf(w, "%-20s %v\n", k+":", status[k])
	}
	for _, name := range sections {
		section := status[name].(map[string]interface{})
		fmt.Fprintf(w, "\n# %s\n", name)
		for _, k := range sortedKeys(section) {
			fmt.Fprintf(w, "%-20s %v\n", k+":", section[k])
		}
	}
	return nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// JoinArgs joins positional args with spaces so multi-word messages work with or without quotes.
func JoinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
