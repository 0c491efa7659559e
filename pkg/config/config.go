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

// Package config provides configuration loading and management for the
// clause-review engine.
//
// The engine is config-first: LLM providers, embedders, and the review
// graph's execution mode are defined in YAML and the runtime builds the
// corresponding clients automatically.
//
// Example config:
//
//	version: "1"
//	name: clause-review
//
//	llms:
//	  default:
//	    type: anthropic
//	    model: claude-sonnet-4-20250514
//	    api_key: ${ANTHROPIC_API_KEY}
//
//	embedders:
//	  default:
//	    type: ollama
//	    model: nomic-embed-text
//
//	review:
//	  execution_mode: gen3
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure.
type Config struct {
	// Version of the config schema (e.g., "1").
	Version string `yaml:"version,omitempty"`

	// Name of this configuration (for logging/display).
	Name string `yaml:"name,omitempty"`

	// Description of this configuration.
	Description string `yaml:"description,omitempty"`

	// Databases defines SQL connections available to the ratelimit
	// package's SQL backend.
	Databases map[string]*DatabaseConfig `yaml:"databases,omitempty"`

	// LLMs defines available LLM providers.
	LLMs map[string]*LLMProviderConfig `yaml:"llms,omitempty"`

	// Embedders defines available embedding providers, consumed by
	// fidic_search_er/load_review_criteria.
	Embedders map[string]*EmbedderProviderConfig `yaml:"embedders,omitempty"`

	// Logger configures logging behavior.
	Logger *LoggerConfig `yaml:"logger,omitempty"`

	// RateLimiting configures rate limiting on outbound LLM/embedding calls.
	RateLimiting *RateLimitConfig `yaml:"rate_limiting,omitempty"`

	// Review configures the contract-review graph's execution mode and
	// ReAct agent loop.
	Review *ReviewConfig `yaml:"review,omitempty"`
}

// SetDefaults applies default values to the config.
func (c *Config) SetDefaults() {
	if c.Databases == nil {
		c.Databases = make(map[string]*DatabaseConfig)
	}
	if c.LLMs == nil {
		c.LLMs = make(map[string]*LLMProviderConfig)
	}
	if c.Embedders == nil {
		c.Embedders = make(map[string]*EmbedderProviderConfig)
	}

	for name, db := range c.Databases {
		if db == nil {
			db = &DatabaseConfig{}
			c.Databases[name] = db
		}
		db.SetDefaults()
	}

	for name, llm := range c.LLMs {
		if llm == nil {
			llm = &LLMProviderConfig{}
			c.LLMs[name] = llm
		}
		llm.SetDefaults()
	}

	for name, embedder := range c.Embedders {
		if embedder == nil {
			embedder = &EmbedderProviderConfig{}
			c.Embedders[name] = embedder
		}
		embedder.SetDefaults()
	}

	if c.RateLimiting != nil {
		c.RateLimiting.SetDefaults()
	}

	if c.Review == nil {
		c.Review = &ReviewConfig{}
	}
	c.Review.SetDefaults()
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	for name, db := range c.Databases {
		if db == nil {
			continue
		}
		if err := db.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("database %q: %v", name, err))
		}
	}

	for name, llm := range c.LLMs {
		if llm == nil {
			continue
		}
		if err := llm.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("llm %q: %v", name, err))
		}
	}

	for name, embedder := range c.Embedders {
		if embedder == nil {
			continue
		}
		if err := embedder.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("embedder %q: %v", name, err))
		}
	}

	if c.Logger != nil {
		if err := c.Logger.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("logger: %v", err))
		}
	}

	if c.RateLimiting != nil {
		if err := c.RateLimiting.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("rate_limiting: %v", err))
		}
	}

	if c.Review != nil {
		if err := c.Review.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("review: %v", err))
		}
	}

	if err := c.validateReferences(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// validateReferences checks that all cross-section references are valid.
func (c *Config) validateReferences() error {
	var errs []string

	if c.RateLimiting != nil && c.RateLimiting.Backend == "sql" && c.RateLimiting.SQLDatabase != "" {
		if _, ok := c.Databases[c.RateLimiting.SQLDatabase]; !ok {
			errs = append(errs, fmt.Sprintf("rate_limiting references undefined database %q", c.RateLimiting.SQLDatabase))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("reference errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// GetLLM returns the LLM provider config by name.
func (c *Config) GetLLM(name string) (*LLMProviderConfig, bool) {
	llm, ok := c.LLMs[name]
	return llm, ok
}

// GetEmbedder returns the embedder provider config by name.
func (c *Config) GetEmbedder(name string) (*EmbedderProviderConfig, bool) {
	embedder, ok := c.Embedders[name]
	return embedder, ok
}

// GetDatabase returns the database config by name.
func (c *Config) GetDatabase(name string) (*DatabaseConfig, bool) {
	db, ok := c.Databases[name]
	return db, ok
}
