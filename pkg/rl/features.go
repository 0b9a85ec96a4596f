// Copyright 2025 Kadir Pekel
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

package rl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agentctl/agentctl/pkg/model"
)

// QuestionTypes and Domains are the closed vocabularies the meta-selector's
// RLState one-hot encodes, matching EXTRACT_QUERY_FEATS_PROMPT's category
// lists so that a model-returned label always has a slot in Vectorize's
// output.
var QuestionTypes = []string{
	"fact", "opinion", "definition", "explanation",
	"procedure", "comparison", "hypothetical", "evaluation",
}

var Domains = []string{
	"science", "technology", "mathematics", "history", "literature",
	"geography", "politics", "economics", "sports", "entertainment",
	"health", "education", "philosophy", "art", "environment",
	"law", "music", "culture", "business", "travel",
}

// numScalarFeatures counts RLState's scalar fields: complexity,
// ambiguity, query_length, specificity, formality, urgency.
const numScalarFeatures = 6

// FeatureCount is the dimensionality Vectorize produces: one slot per
// question_type value, one per domain value, one for has_entities, and
// the six scalar fields, matching §3's "dimensionality is derived from
// the category vocabularies at agent construction time."
const FeatureCount = len(QuestionTypes) + len(Domains) + 1 + numScalarFeatures

// RLState is the feature vector extracted from a user query: two
// closed-vocabulary categorical fields, one boolean, and six scalars in
// [0,1] (query_length is in words, not normalized).
type RLState struct {
	QuestionType string
	Domain       string
	HasEntities  bool
	Complexity   float64
	Ambiguity    float64
	QueryLength  int
	Specificity  float64
	Formality    float64
	Urgency      float64
}

// DefaultRLState is the safe fallback substituted when extraction fails
// or the model's response can't be parsed against the schema: the first
// (lowest-specificity) vocabulary entries, no entities, and every scalar
// at zero except query_length, which is always cheap to compute directly.
func DefaultRLState(query string) RLState {
	return RLState{
		QuestionType: QuestionTypes[0],
		Domain:       Domains[0],
		QueryLength:  len(strings.Fields(query)),
	}
}

// Vectorize one-hot encodes QuestionType and Domain against the closed
// vocabularies, then appends HasEntities and the six scalars, producing
// a FeatureCount-length vector regardless of which vocabulary entries
// matched.
func Vectorize(s RLState) []float64 {
	vec := make([]float64, 0, FeatureCount)
	for _, qt := range QuestionTypes {
		vec = append(vec, boolFeature(qt == s.QuestionType))
	}
	for _, d := range Domains {
		vec = append(vec, boolFeature(d == s.Domain))
	}
	vec = append(vec, boolFeature(s.HasEntities))
	vec = append(vec, s.Complexity, s.Ambiguity, float64(s.QueryLength), s.Specificity, s.Formality, s.Urgency)
	return vec
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// FeatureExtractor turns a raw query into an RLState.
type FeatureExtractor interface {
	Extract(ctx context.Context, query string) RLState
}

// ModelFeatureExtractor prompts a model to classify a query against
// RLState's schema, mirroring RlMetaRag._extract_query_features's
// EXTRACT_QUERY_FEATS_PROMPT call: the response is a JSON array in field
// order, coerced into RLState, falling back to DefaultRLState on any
// call or parse failure rather than failing the surrounding selection.
type ModelFeatureExtractor struct {
	Client model.Client
	Model  string
}

// NewModelFeatureExtractor returns a FeatureExtractor backed by client,
// using modelName for every extraction call.
func NewModelFeatureExtractor(client model.Client, modelName string) *ModelFeatureExtractor {
	return &ModelFeatureExtractor{Client: client, Model: modelName}
}

const extractFeaturesPromptTemplate = `Given the following query, extract these nine features and return them as a single JSON array in this exact order: [question_type, domain, has_entities, complexity, ambiguity, query_length, specificity, formality, urgency].

Query: %q

Guidelines:
- question_type: exactly one of %v
- domain: exactly one of %v
- has_entities: true if the query names specific people, places, products, or other proper nouns, else false
- complexity, ambiguity, specificity, formality, urgency: a float between 0 and 1
- query_length: the number of words in the query, as an integer

Return only the JSON array, nothing else.`

// Extract implements FeatureExtractor.
func (e *ModelFeatureExtractor) Extract(ctx context.Context, query string) RLState {
	prompt := fmt.Sprintf(extractFeaturesPromptTemplate, query, QuestionTypes, Domains)

	raw, err := e.Client.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}}, model.ChatOptions{
		Model:          e.Model,
		ResponseFormat: model.ResponseFormatJSON,
	})
	if err != nil {
		slog.Warn("rl: feature extraction call failed, substituting default state", "error", err)
		return DefaultRLState(query)
	}

	state, err := parseRLState(raw, query)
	if err != nil {
		slog.Warn("rl: feature extraction response failed schema validation, substituting default state", "error", err, "response", raw)
		return DefaultRLState(query)
	}
	return state
}

// parseRLState coerces the model's JSON-array response into an RLState,
// matching RLState's field order and types exactly; any shape mismatch
// is an error so the caller can fall back to DefaultRLState.
func parseRLState(raw, query string) (RLState, error) {
	var fields []any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return RLState{}, fmt.Errorf("rl: decoding feature array: %w", err)
	}
	if len(fields) != 9 {
		return RLState{}, fmt.Errorf("rl: expected 9 features, got %d", len(fields))
	}

	questionType, ok := fields[0].(string)
	if !ok {
		return RLState{}, fmt.Errorf("rl: question_type is not a string")
	}
	domain, ok := fields[1].(string)
	if !ok {
		return RLState{}, fmt.Errorf("rl: domain is not a string")
	}
	hasEntities, ok := fields[2].(bool)
	if !ok {
		return RLState{}, fmt.Errorf("rl: has_entities is not a bool")
	}
	complexity, ok := fields[3].(float64)
	if !ok {
		return RLState{}, fmt.Errorf("rl: complexity is not a number")
	}
	ambiguity, ok := fields[4].(float64)
	if !ok {
		return RLState{}, fmt.Errorf("rl: ambiguity is not a number")
	}
	queryLength, ok := fields[5].(float64)
	if !ok {
		return RLState{}, fmt.Errorf("rl: query_length is not a number")
	}
	specificity, ok := fields[6].(float64)
	if !ok {
		return RLState{}, fmt.Errorf("rl: specificity is not a number")
	}
	formality, ok := fields[7].(float64)
	if !ok {
		return RLState{}, fmt.Errorf("rl: formality is not a number")
	}
	urgency, ok := fields[8].(float64)
	if !ok {
		return RLState{}, fmt.Errorf("rl: urgency is not a number")
	}

	return RLState{
		QuestionType: questionType,
		Domain:       domain,
		HasEntities:  hasEntities,
		Complexity:   complexity,
		Ambiguity:    ambiguity,
		QueryLength:  int(queryLength),
		Specificity:  specificity,
		Formality:    formality,
		Urgency:      urgency,
	}, nil
}
