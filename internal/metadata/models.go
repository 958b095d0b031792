package metadata

import "sort"

// Provider identifies a backend family.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// Model describes a chat model's context window and list pricing.
type Model struct {
	ID               string
	Label            string
	Provider         Provider
	ContextTokens    int
	InputPerMillion  float64
	OutputPerMillion float64
}

// DefaultModelID is used when a model is not in the catalogue.
const DefaultModelID = "gpt-4o-mini"

// DefaultGeminiModelID is the default model of the Gemini backend.
const DefaultGeminiModelID = "gemini-3-flash-preview"

const (
	DefaultInputPerMillion  = 2.50
	DefaultOutputPerMillion = 10.00
)

var Models = []Model{
	{ID: "gpt-3.5-turbo", Label: "GPT-3.5 Turbo", Provider: ProviderOpenAI, ContextTokens: 4096, InputPerMillion: 0.50, OutputPerMillion: 1.50},
	{ID: "gpt-4", Label: "GPT-4", Provider: ProviderOpenAI, ContextTokens: 8192, InputPerMillion: 30.00, OutputPerMillion: 60.00},
	{ID: "gpt-4-turbo", Label: "GPT-4 Turbo", Provider: ProviderOpenAI, ContextTokens: 128000, InputPerMillion: 10.00, OutputPerMillion: 30.00},
	{ID: "gpt-4o-mini", Label: "GPT-4o mini", Provider: ProviderOpenAI, ContextTokens: 16000, InputPerMillion: 0.15, OutputPerMillion: 0.60},
	{ID: "gpt-5.2", Label: "GPT-5.2", Provider: ProviderOpenAI, ContextTokens: 400000, InputPerMillion: 1.75, OutputPerMillion: 14.00},
	{ID: "gemini-3-flash-preview", Label: "Gemini 3 Flash (preview)", Provider: ProviderGemini, ContextTokens: 1048576, InputPerMillion: 0.50, OutputPerMillion: 3.00},
	{ID: "gemini-3-pro-preview", Label: "Gemini 3 Pro (preview)", Provider: ProviderGemini, ContextTokens: 1048576, InputPerMillion: 2.00, OutputPerMillion: 12.00},
}

// Lookup returns the catalogue entry for id.
func Lookup(id string) (Model, bool) {
	for _, m := range Models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// ModelCapacity returns the total context size of a model. Unknown models
// fall back to the DefaultModelID capacity and report false.
func ModelCapacity(id string) (int, bool) {
	if m, ok := Lookup(id); ok {
		return m.ContextTokens, true
	}
	m, _ := Lookup(DefaultModelID)
	return m.ContextTokens, false
}

// Pricing returns per-million token prices, falling back to defaults.
func Pricing(id string) (in, out float64, known bool) {
	if m, ok := Lookup(id); ok {
		return m.InputPerMillion, m.OutputPerMillion, true
	}
	return DefaultInputPerMillion, DefaultOutputPerMillion, false
}

// ModelsFor returns catalogue entries of one provider sorted by ID.
func ModelsFor(p Provider) []Model {
	var out []Model
	for _, m := range Models {
		if m.Provider == p {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DefaultModelFor returns the model used when none is configured.
func DefaultModelFor(p Provider) string {
	if p == ProviderGemini {
		return DefaultGeminiModelID
	}
	return DefaultModelID
}
