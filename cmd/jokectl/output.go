package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

func parseFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	case "":
		return formatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q, use text, json or yaml", s)
	}
}

// render writes v as JSON or YAML. Text output is handled by the caller;
// render falls back to JSON for it.
func render(w io.Writer, format outputFormat, v interface{}) error {
	if format == formatYAML {
		return writeYAML(w, v)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML goes through JSON so field names follow the json tags, and
// through yaml.Node so key order survives.
func writeYAML(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		n.Style &^= yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func writeCampaignText(w io.Writer, result *domain.CampaignResult) {
	fmt.Fprintf(w, "Headline: %s\n", result.Headline)
	if result.ThemesDegraded {
		fmt.Fprintf(w, "Themes:   %s (headline used, theme expansion failed)\n", result.Themes)
	} else {
		fmt.Fprintf(w, "Themes:   %s\n", result.Themes)
	}
	if result.ID != "" {
		fmt.Fprintf(w, "Campaign: %s\n", result.ID)
	}
	fmt.Fprintf(w, "Generated %d of %d\n", result.TotalGenerated, result.TotalAttempted)
	if result.Message != "" {
		fmt.Fprintln(w, result.Message)
	}
	if result.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", result.Error)
	}

	for i, joke := range result.Jokes {
		fmt.Fprintf(w, "\n%d. [%s] %s\n", i+1, joke.Engine, joke.Joke)
		fmt.Fprintf(w, "   reference #%d (similarity %.3f): %s\n", joke.OriginalID, joke.Similarity, preview(joke.ReferenceJoke, 120))
		if joke.SelectedStrategy != "" {
			fmt.Fprintf(w, "   strategy: %s\n", joke.SelectedStrategy)
		}
	}
	for _, f := range result.Failures {
		fmt.Fprintf(w, "\nskipped #%d (rank %d, %s): %s\n", f.OriginalID, f.Rank, f.Kind, f.Error)
	}
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
