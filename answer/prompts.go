package answer

import (
	"fmt"
	"strings"

	"github.com/poiesic/dossier/core"
)

const (
	noContextText = "No relevant passages were found."
	maxFacts      = 20
)

func buildSystemPrompt(expertRole, domain string) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSuffix(strings.TrimSpace(expertRole), "."))
	sb.WriteString(".\n")
	fmt.Fprintf(&sb, "Answer the question using only %s provided in the context below.\n", domain)
	sb.WriteString("Cite details from the passages where they help. ")
	sb.WriteString("If the context does not contain the answer, say that you do not know.")
	return sb.String()
}

// buildPrompt lays out retrieved passages, then graph facts, then the question.
// The question is always the last line.
func buildPrompt(question string, results []*core.SearchResult, entities []*core.Entity, graph *core.Graph) string {
	var sb strings.Builder

	sb.WriteString("Context:\n")
	if len(results) == 0 {
		sb.WriteString(noContextText)
		sb.WriteString("\n")
	}
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, strings.TrimSpace(r.Chunk.Contents))
	}

	if facts := graphFacts(entities, graph); len(facts) > 0 {
		sb.WriteString("\nKnown facts:\n")
		for _, f := range facts {
			sb.WriteString("- ")
			sb.WriteString(f)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}

func graphFacts(entities []*core.Entity, graph *core.Graph) []string {
	var facts []string
	seen := make(map[core.ID]bool)

	for _, e := range entities {
		if e.Description != "" {
			facts = append(facts, fmt.Sprintf("%s (%s): %s", e.Name, e.Type, e.Description))
		}
		for _, r := range graph.RelationshipsOf(e.Id) {
			if seen[r.Id] {
				continue
			}
			seen[r.Id] = true
			source, target := graph.Entity(r.SourceId), graph.Entity(r.TargetId)
			if source == nil || target == nil {
				continue
			}
			fact := fmt.Sprintf("%s %s %s", source.Name, strings.ReplaceAll(r.Type, "_", " "), target.Name)
			if r.Description != "" {
				fact += ": " + r.Description
			}
			facts = append(facts, fact)
		}
		if len(facts) >= maxFacts {
			return facts[:maxFacts]
		}
	}
	return facts
}
