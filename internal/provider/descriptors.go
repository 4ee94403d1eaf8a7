// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package provider

import (
	"maps"
	"slices"
	"time"
)

// Built-in provider IDs.
const (
	IDOllama      = "ollama"
	IDGroq        = "groq"
	IDTogether    = "together"
	IDHuggingFace = "huggingface"
	IDDeepSeek    = "deepseek"
	IDOpenRouter  = "openrouter"
	IDPerplexity  = "perplexity"
	IDOpenAI      = "openai"
	IDAnthropic   = "anthropic"
	IDGoogle      = "google"
)

var builtinDescriptors = []Descriptor{
	{
		ID:                 IDOllama,
		DisplayName:        "Ollama Local",
		EndpointURL:        "http://localhost:11434",
		BasePriority:       1,
		Kind:               KindLocal,
		Model:              "llama3.1",
		Timeout:            30 * time.Second,
		HealthPath:         "/api/tags",
		SpecializationTags: []string{"general", "teaching", "privacy"},
		TriggerTags:        []string{"privacy_concern", "offline_usage", "unlimited_requests"},
		StrengthTags:       []string{"offline", "unlimited", "privacy", "stable"},
		WeaknessTags:       []string{"setup_required", "resource_intensive"},
		CrewModels: map[string]string{
			"teaching":   "phi3",
			"research":   "llama3.1",
			"creative":   "mistral",
			"assessment": "gemma2",
		},
	},
	{
		ID:                 IDGroq,
		DisplayName:        "Groq",
		EndpointURL:        "https://api.groq.com/openai/v1",
		BasePriority:       2,
		Kind:               KindHosted,
		Model:              "llama-3.1-8b-instant",
		Timeout:            15 * time.Second,
		SpecializationTags: []string{"speed", "general", "quick_responses"},
		TriggerTags:        []string{"speed_priority", "quick_answer", "real_time_chat"},
		StrengthTags:       []string{"very_fast", "good_quality", "reliable_api"},
		WeaknessTags:       []string{"rate_limited", "api_key_required"},
		CrewModels: map[string]string{
			"teaching":   "llama-3.1-8b-instant",
			"research":   "llama-3.3-70b-versatile",
			"creative":   "llama-3.3-70b-versatile",
			"assessment": "gemma2-9b-it",
		},
	},
	{
		ID:                 IDTogether,
		DisplayName:        "Together AI",
		EndpointURL:        "https://api.together.xyz/v1",
		BasePriority:       3,
		Kind:               KindHosted,
		Model:              "meta-llama/Llama-3-8b-chat-hf",
		Timeout:            20 * time.Second,
		SpecializationTags: []string{"variety", "model_choice", "specialized_models"},
		TriggerTags:        []string{"model_variety", "specialized_task", "fallback_option"},
		StrengthTags:       []string{"model_diversity", "good_performance", "specialized_options"},
		WeaknessTags:       []string{"api_key_required", "usage_limits"},
		CrewModels: map[string]string{
			"research":   "meta-llama/Llama-3-70b-chat-hf",
			"creative":   "mistralai/Mixtral-8x7B-Instruct-v0.1",
			"assessment": "NousResearch/Nous-Hermes-2-Mixtral-8x7B-DPO",
		},
	},
	{
		ID:                 IDHuggingFace,
		DisplayName:        "Hugging Face",
		EndpointURL:        "https://router.huggingface.co/v1",
		BasePriority:       4,
		Kind:               KindHosted,
		Model:              "meta-llama/Llama-3.1-8B-Instruct",
		Timeout:            30 * time.Second,
		SpecializationTags: []string{"research", "experimental", "open_models"},
		TriggerTags:        []string{"research_task", "experimental_model", "latest_tech"},
		StrengthTags:       []string{"cutting_edge", "research_models", "open_source"},
		WeaknessTags:       []string{"inconsistent_availability", "experimental"},
	},
	{
		ID:                 IDDeepSeek,
		DisplayName:        "DeepSeek",
		EndpointURL:        "https://api.deepseek.com/v1",
		BasePriority:       5,
		Kind:               KindHosted,
		Model:              "deepseek-chat",
		Timeout:            30 * time.Second,
		SpecializationTags: []string{"coding", "mathematics", "technical"},
		TriggerTags:        []string{"code_question", "math_problem", "technical_explanation"},
		StrengthTags:       []string{"code_quality", "math_accuracy", "technical_depth"},
		WeaknessTags:       []string{"limited_availability", "specific_use_case"},
		CrewModels: map[string]string{
			"creative": "deepseek-coder",
		},
	},
	{
		ID:                 IDOpenRouter,
		DisplayName:        "OpenRouter",
		EndpointURL:        "https://openrouter.ai/api/v1",
		BasePriority:       6,
		Kind:               KindHosted,
		Model:              "meta-llama/llama-3.1-8b-instruct:free",
		Timeout:            30 * time.Second,
		SpecializationTags: []string{"variety", "general", "model_choice"},
		TriggerTags:        []string{"model_variety", "fallback_option"},
		StrengthTags:       []string{"model_diversity", "good_quality"},
		WeaknessTags:       []string{"api_key_required", "variable_latency"},
	},
	{
		ID:                 IDPerplexity,
		DisplayName:        "Perplexity AI",
		EndpointURL:        "https://api.perplexity.ai",
		BasePriority:       7,
		Kind:               KindHosted,
		Model:              "sonar",
		Timeout:            30 * time.Second,
		SpecializationTags: []string{"research", "academic", "current_events"},
		TriggerTags:        []string{"research_task", "real_time_data"},
		StrengthTags:       []string{"accuracy", "reliable", "web_search"},
		WeaknessTags:       []string{"api_key_required", "usage_limits"},
		CrewModels: map[string]string{
			"research": "sonar-pro",
		},
	},
	{
		ID:                 IDOpenAI,
		DisplayName:        "OpenAI",
		EndpointURL:        "https://api.openai.com/v1",
		BasePriority:       8,
		Kind:               KindHosted,
		Model:              "gpt-4.1-mini",
		Timeout:            30 * time.Second,
		SpecializationTags: []string{"general", "coding", "technical"},
		TriggerTags:        []string{"code_question", "technical_explanation"},
		StrengthTags:       []string{"code_quality", "accuracy", "structured"},
		WeaknessTags:       []string{"api_key_required", "paid"},
	},
	{
		ID:                 IDAnthropic,
		DisplayName:        "Anthropic",
		EndpointURL:        "https://api.anthropic.com",
		BasePriority:       9,
		Kind:               KindHosted,
		Model:              "claude-haiku-4-5",
		Timeout:            30 * time.Second,
		SpecializationTags: []string{"teaching", "educational", "explanation"},
		TriggerTags:        []string{"technical_explanation"},
		StrengthTags:       []string{"clarity", "structured", "depth"},
		WeaknessTags:       []string{"api_key_required", "paid"},
	},
	{
		ID:                 IDGoogle,
		DisplayName:        "Google Gemini",
		EndpointURL:        "https://generativelanguage.googleapis.com",
		BasePriority:       10,
		Kind:               KindHosted,
		Model:              "gemini-2.5-flash",
		Timeout:            30 * time.Second,
		SpecializationTags: []string{"general", "research", "educational"},
		TriggerTags:        []string{"quick_answer", "research_task"},
		StrengthTags:       []string{"examples", "depth", "responsive"},
		WeaknessTags:       []string{"api_key_required"},
	},
}

// Builtins returns a deep copy of the built-in descriptor table in priority
// order.
func Builtins() []Descriptor {
	out := make([]Descriptor, 0, len(builtinDescriptors))
	for _, d := range builtinDescriptors {
		out = append(out, d.clone())
	}
	return out
}

// Builtin returns the built-in descriptor for id.
func Builtin(id string) (Descriptor, bool) {
	for _, d := range builtinDescriptors {
		if d.ID == id {
			return d.clone(), true
		}
	}
	return Descriptor{}, false
}

func (d Descriptor) clone() Descriptor {
	d.SpecializationTags = slices.Clone(d.SpecializationTags)
	d.TriggerTags = slices.Clone(d.TriggerTags)
	d.StrengthTags = slices.Clone(d.StrengthTags)
	d.WeaknessTags = slices.Clone(d.WeaknessTags)
	d.CrewModels = maps.Clone(d.CrewModels)
	return d
}
