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

package catalog

// BuiltinRegistry is the in-memory Registry of tools agentctl ships
// with, modeled on the teacher's GetDefaultToolConfigs table
// (pkg/config/tool.go) but carrying the richer ToolDescriptor shape
// the code agent needs (allowed imports and a code example instead of
// a handler name).
type BuiltinRegistry struct {
	descriptors map[string]ToolDescriptor
	order       []string
}

// NewBuiltinRegistry returns the default set of builtin tools.
func NewBuiltinRegistry() *BuiltinRegistry {
	r := &BuiltinRegistry{descriptors: map[string]ToolDescriptor{}}
	for _, d := range defaultBuiltins() {
		r.add(d)
	}
	return r
}

func (r *BuiltinRegistry) add(d ToolDescriptor) {
	if _, exists := r.descriptors[d.Name]; !exists {
		r.order = append(r.order, d.Name)
	}
	r.descriptors[d.Name] = d
}

// Lookup implements Registry.
func (r *BuiltinRegistry) Lookup(name string) (ToolDescriptor, bool) {
	d, ok := r.descriptors[name]
	return d, ok
}

// Names implements Registry.
func (r *BuiltinRegistry) Names() []string {
	return append([]string(nil), r.order...)
}

func defaultBuiltins() []ToolDescriptor {
	return []ToolDescriptor{
		{
			Name:             "compute_statistics",
			Origin:           OriginBuiltin,
			AllowedLibraries: []string{"math", "sort", "gonum.org/v1/gonum"},
			Instructions:     "Use for numeric aggregation over a slice of float64 values (mean, stddev, percentiles).",
			CodeExample: `func compute_statistics() map[string]any {
	updated_dict := map[string]any{}
	values := []float64{1, 2, 3}
	var sum float64
	for _, v := range values {
		sum += v
	}
	updated_dict["mean"] = sum / float64(len(values))
	return updated_dict
}`,
		},
		{
			Name:             "geocode_address",
			Origin:           OriginBuiltin,
			AllowedLibraries: []string{"net/http", "encoding/json"},
			Instructions:     "Use to resolve a place name into (latitude, longitude) via the configured geocoding endpoint ${geocoder_base_url}.",
			CodeExample: `func geocode_address() map[string]any {
	updated_dict := map[string]any{}
	updated_dict["coordinates"] = [2]float64{48.8566, 2.3522}
	return updated_dict
}`,
		},
		{
			Name:             "retrieve_context",
			Origin:           OriginBuiltin,
			AllowedLibraries: []string{"context", "github.com/agentctl/agentctl/pkg/retriever"},
			Instructions:     "Use to fetch the top-K nearest-neighbor documents for a pre-computed query embedding from the configured vector store (collection ${retriever_collection}).",
			CodeExample: `func retrieve_context(r retriever.Retriever, queryVector []float32) map[string]any {
	updated_dict := map[string]any{}
	hits, err := r.Search(context.Background(), "${retriever_collection}", queryVector, 5)
	if err != nil {
		updated_dict["error"] = err.Error()
		return updated_dict
	}
	updated_dict["hits"] = hits
	return updated_dict
}`,
		},
		{
			Name:             "format_output",
			Origin:           OriginBuiltin,
			AllowedLibraries: []string{"fmt", "strconv", "maps"},
			Instructions:     "Use to render a previous step's carried value as a user-facing string.",
			CodeExample: `func format_output(previousOutput map[string]any) map[string]any {
	updatedDict := maps.Clone(previousOutput)
	updatedDict["formatted"] = fmt.Sprintf("%v", previousOutput["coordinates"])
	return updatedDict
}`,
		},
	}
}
