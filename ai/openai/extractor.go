// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/dossier/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// maxParseAttempts bounds how often a malformed model response is regenerated.
const maxParseAttempts = 3

// ErrMalformedResponse is returned when the model never produced parseable JSON.
var ErrMalformedResponse = errors.New("malformed extraction response")

// GraphExtractor implements ai.GraphExtractor using OpenAI-compatible chat APIs.
type GraphExtractor struct {
	client        llms.Model
	minImportance int
	logger        *slog.Logger
}

// entity and relationship match the structure the prompt asks the model for.
type entity struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Importance  int    `json:"importance"`
}

type relationship struct {
	Source      string   `json:"source"`
	Target      string   `json:"target"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Weight      *float64 `json:"weight"`
}

type extraction struct {
	Entities      []entity       `json:"entities"`
	Relationships []relationship `json:"relationships"`
}

// newGraphExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newGraphExtractor(config *ai.Config) (*GraphExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ExtractorHost),
		openai.WithToken(token(config)),
		openai.WithModel(config.ExtractorModel),
	)
	if err != nil {
		return nil, err
	}

	return newGraphExtractorWithModel(client, config.MinImportance), nil
}

func newGraphExtractorWithModel(client llms.Model, minImportance int) *GraphExtractor {
	return &GraphExtractor{
		client:        client,
		minImportance: minImportance,
		logger:        slog.Default().With("component", "openai-extractor"),
	}
}

// NewGraphExtractor creates a new graph extractor using the provided configuration.
//
// Returns ai.GraphExtractor interface to enforce abstraction.
func NewGraphExtractor(config *ai.Config) (ai.GraphExtractor, error) {
	return newGraphExtractor(config)
}

// ExtractGraph extracts entities and relationships from a passage using an LLM.
// Entities below the importance threshold are dropped, along with any
// relationship that refers to a dropped or unknown entity.
func (e *GraphExtractor) ExtractGraph(ctx context.Context, text string) (*ai.ExtractedGraph, error) {
	text = scrubString(text)
	if text == "" {
		return &ai.ExtractedGraph{}, nil
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildExtractionPrompt())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(text)},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result extraction
	var lastErr error
	for attempt := 0; attempt < maxParseAttempts; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return &ai.ExtractedGraph{}, nil
		}

		responseText := repairJSON(stripCodeFences(response.Choices[0].Content))

		result = extraction{}
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extractor response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extractor response after retries", "err", lastErr)
		return nil, errors.Join(ErrMalformedResponse, lastErr)
	}

	graph := e.filter(result)
	e.logger.Debug("extracted graph",
		"entities", len(result.Entities),
		"kept_entities", len(graph.Entities),
		"relationships", len(result.Relationships),
		"kept_relationships", len(graph.Relationships))
	return graph, nil
}

func (e *GraphExtractor) filter(result extraction) *ai.ExtractedGraph {
	graph := &ai.ExtractedGraph{
		Entities:      make([]ai.ExtractedEntity, 0, len(result.Entities)),
		Relationships: make([]ai.ExtractedRelationship, 0, len(result.Relationships)),
	}

	kept := make(map[string]bool, len(result.Entities))
	for _, ent := range result.Entities {
		name := strings.TrimSpace(ent.Name)
		if name == "" || ent.Importance < e.minImportance {
			continue
		}
		entityType := normalizeType(ent.Type)
		if !ai.IsEntityType(entityType) {
			entityType = "concept"
		}
		graph.Entities = append(graph.Entities, ai.ExtractedEntity{
			Name:        name,
			Type:        entityType,
			Description: strings.TrimSpace(ent.Description),
			Importance:  ent.Importance,
		})
		kept[strings.ToLower(name)] = true
	}

	for _, rel := range result.Relationships {
		source := strings.TrimSpace(rel.Source)
		target := strings.TrimSpace(rel.Target)
		if !kept[strings.ToLower(source)] || !kept[strings.ToLower(target)] {
			continue
		}
		relType := normalizeType(rel.Type)
		if relType == "" {
			continue
		}
		weight := 1.0
		if rel.Weight != nil {
			weight = min(max(*rel.Weight, 0), 1)
		}
		graph.Relationships = append(graph.Relationships, ai.ExtractedRelationship{
			Source:      source,
			Target:      target,
			Type:        relType,
			Description: strings.TrimSpace(rel.Description),
			Weight:      weight,
		})
	}

	return graph
}

// normalizeType lowercases a type label and joins words with underscores.
func normalizeType(t string) string {
	return strings.Join(strings.Fields(strings.ToLower(t)), "_")
}
