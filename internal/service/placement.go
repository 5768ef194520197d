// Package service holds the ad-placement pipeline: the analysis orchestrator,
// the placement synthesizer, and the ad-matching agent.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/amber-aim/ad-placement-go/internal/apperr"
	"github.com/amber-aim/ad-placement-go/internal/models"
	"github.com/amber-aim/ad-placement-go/pkg/logger"
)

// StructuredCompleter produces one schema-constrained completion.
type StructuredCompleter interface {
	CompleteStructured(ctx context.Context, system, user, schemaName string, schema json.RawMessage) (string, error)
}

// ObjectStore reads and writes JSON documents in the results bucket. A read
// of an absent key returns (false, nil); only transport failures are errors.
type ObjectStore interface {
	ReadJSON(ctx context.Context, key string, out any) (bool, error)
	WriteJSON(ctx context.Context, key string, doc any) error
}

// PromptResult pairs a prompt name with the analysis text it produced.
type PromptResult struct {
	Name string
	Text string
}

// Result object keys, relative to the bucket root.
func placementKey(videoID string) string { return "results/placement_" + videoID + ".json" }
func analysisKey(videoID string) string  { return "results/analysis_" + videoID + ".json" }
func adsSearchKey(videoID string) string { return "results/ads_search_" + videoID + ".json" }

// placementSchema is the strict JSON schema the model's structured output
// must satisfy. It mirrors models.PlacementResult.
const placementSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": [
    "summary", "tags", "themes", "artistic_style", "general_color_tone",
    "obstacles", "emotional_parts", "segment_labels", "tone_classification",
    "characters", "natural_breakpoints", "narrative_structure", "placements"
  ],
  "properties": {
    "summary": {"type": "string"},
    "tags": {"type": "array", "items": {"type": "string"}},
    "themes": {"type": "array", "items": {"type": "string"}},
    "artistic_style": {"type": "string"},
    "general_color_tone": {"type": "string"},
    "obstacles": {"type": "array", "items": {"type": "string"}},
    "emotional_parts": {"type": "array", "items": {"type": "string"}},
    "segment_labels": {"type": "array", "items": {"type": "string"}},
    "tone_classification": {"type": "array", "items": {"type": "string"}},
    "characters": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["name", "arc"],
        "properties": {
          "name": {"type": "string"},
          "arc": {"type": "string"}
        }
      }
    },
    "natural_breakpoints": {"type": "array", "items": {"type": "string"}},
    "narrative_structure": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["timestamp", "narration", "situation_description", "themes",
                     "narrative_trope", "act", "emotional_arc", "hero_journey_stage"],
        "properties": {
          "timestamp": {"type": "integer"},
          "narration": {"type": "string"},
          "situation_description": {"type": "string"},
          "themes": {"type": "array", "items": {"type": "string"}},
          "narrative_trope": {
            "type": ["string", "null"],
            "enum": ["narrative_hook", "setup", "inciting_incident", "rising_action",
                     "midpoint", "climax", "resolution", "denouement", "flashback",
                     "flashforward", null]
          },
          "act": {
            "type": ["string", "null"],
            "enum": ["act_1_setup", "act_2_confrontation", "act_3_resolution", null]
          },
          "emotional_arc": {
            "type": ["string", "null"],
            "enum": ["positive", "negative", "neutral", "turning_point", null]
          },
          "hero_journey_stage": {
            "type": ["string", "null"],
            "enum": ["ordinary_world", "call_to_adventure", "refusal", "meeting_mentor",
                     "crossing_threshold", "tests_allies_enemies", "approach", "ordeal",
                     "reward", "road_back", "resurrection", "return_with_elixir", null]
          }
        }
      }
    },
    "placements": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["timestamp", "reason", "situation_description", "themes", "ad_keywords"],
        "properties": {
          "timestamp": {"type": "integer"},
          "reason": {"type": "string"},
          "situation_description": {"type": "string"},
          "themes": {"type": "array", "items": {"type": "string"}},
          "ad_keywords": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

// Synthesizer condenses raw per-prompt video analyses into one structured
// placement result and persists it.
type Synthesizer struct {
	completer  StructuredCompleter
	store      ObjectStore
	promptsDir string
}

// NewSynthesizer creates a Synthesizer reading its prompt templates from
// promptsDir.
func NewSynthesizer(completer StructuredCompleter, store ObjectStore, promptsDir string) *Synthesizer {
	return &Synthesizer{
		completer:  completer,
		store:      store,
		promptsDir: promptsDir,
	}
}

// Synthesize turns the ordered analysis texts for one video into a
// PlacementResult, writes it to results/placement_{video_id}.json, and
// returns it.
func (s *Synthesizer) Synthesize(ctx context.Context, videoID string, analyses []PromptResult) (*models.PlacementResult, error) {
	userTemplate, err := loadPrompt(s.promptsDir, "openai", "prompt.txt")
	if err != nil {
		return nil, err
	}
	systemTemplate, err := loadPrompt(s.promptsDir, "agents", "placements_agent.txt")
	if err != nil {
		return nil, err
	}

	parts := make([]string, 0, len(analyses))
	for _, analysis := range analyses {
		parts = append(parts, analysis.Text)
	}
	user := strings.ReplaceAll(userTemplate, "{context}", strings.Join(parts, "\n\n"))
	system := strings.ReplaceAll(systemTemplate, "{schema_str}", placementSchema)

	logger.Log.Info("Synthesizing placement result",
		zap.String("video_id", videoID),
		zap.Int("analysis_count", len(analyses)),
	)

	content, err := s.completer.CompleteStructured(ctx, system, user, "placement_result", json.RawMessage(placementSchema))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeAgentAnalysis, "placement synthesis failed", err)
	}

	var result models.PlacementResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, apperr.Wrap(apperr.CodeAgentAnalysis, "placement synthesis returned malformed JSON", err)
	}

	if err := s.store.WriteJSON(ctx, placementKey(videoID), &result); err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "failed to persist placement result", err)
	}

	logger.Log.Info("Placement result persisted",
		zap.String("video_id", videoID),
		zap.Int("placement_count", len(result.Placements)),
	)

	return &result, nil
}

func loadPrompt(dir string, parts ...string) (string, error) {
	path := filepath.Join(append([]string{dir}, parts...)...)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperr.Wrap(apperr.CodePromptNotFound, fmt.Sprintf("prompt template not found: %s", path), err)
		}
		return "", apperr.Wrap(apperr.CodeAgentAnalysis, fmt.Sprintf("failed to read prompt template: %s", path), err)
	}
	return string(data), nil
}
