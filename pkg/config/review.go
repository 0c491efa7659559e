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

package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/clausereview/engine/pkg/domain"
)

// ReviewConfig configures the review graph's execution mode and the
// ReAct agent loop it drives in gen3 mode.
type ReviewConfig struct {
	// ExecutionMode selects graph topology: "legacy" (deterministic skill
	// loop) or "gen3" (ReAct/orchestrator). Default "gen3".
	ExecutionMode domain.ExecutionMode `yaml:"execution_mode,omitempty" json:"execution_mode,omitempty" jsonschema:"enum=legacy,enum=gen3,default=gen3"`

	// ReactMaxIterations hard-caps a single clause's ReAct loop.
	ReactMaxIterations int `yaml:"react_max_iterations,omitempty" json:"react_max_iterations,omitempty" jsonschema:"minimum=1,default=5"`

	// ReactTemperature is the LLM sampling temperature used in ReAct calls.
	ReactTemperature float64 `yaml:"react_temperature,omitempty" json:"react_temperature,omitempty" jsonschema:"minimum=0,maximum=2,default=0.1"`

	// ReactClauseTimeoutSeconds bounds one clause's ReAct loop; on expiry
	// the deterministic fallback path runs.
	ReactClauseTimeoutSeconds int `yaml:"react_clause_timeout,omitempty" json:"react_clause_timeout,omitempty" jsonschema:"minimum=1,default=30"`

	// UseReactAgent is a deprecated alias: true infers gen3 for back-compat.
	UseReactAgent *bool `yaml:"use_react_agent,omitempty" json:"use_react_agent,omitempty"`

	// UseOrchestrator is a deprecated alias: true infers gen3 for back-compat.
	UseOrchestrator *bool `yaml:"use_orchestrator,omitempty" json:"use_orchestrator,omitempty"`
}

const (
	defaultReactMaxIterations       = 5
	defaultReactTemperature         = 0.1
	defaultReactClauseTimeoutSecond = 30

	envExecutionMode = "EXECUTION_MODE"
)

// SetDefaults applies default values and resolves the execution-mode
// precedence rule: an explicit execution_mode (config or EXECUTION_MODE
// env var) always wins. The deprecated use_react_agent/use_orchestrator
// booleans are consulted only when execution_mode was left at its
// zero value and the environment did not override it; either true
// infers gen3, and the fallback is logged as deprecated.
func (c *ReviewConfig) SetDefaults() {
	configWasEmpty := c.ExecutionMode == ""

	if envMode := os.Getenv(envExecutionMode); envMode != "" {
		c.ExecutionMode = domain.ExecutionMode(envMode)
	} else if configWasEmpty {
		if boolPtrTrue(c.UseReactAgent) || boolPtrTrue(c.UseOrchestrator) {
			slog.Warn("config: use_react_agent/use_orchestrator are deprecated, use execution_mode: gen3 instead")
			c.ExecutionMode = domain.ExecutionModeGen3
		}
	}

	if c.ExecutionMode == "" {
		c.ExecutionMode = domain.ExecutionModeGen3
	}

	if c.ReactMaxIterations == 0 {
		c.ReactMaxIterations = defaultReactMaxIterations
	}
	if c.ReactTemperature == 0 {
		c.ReactTemperature = defaultReactTemperature
	}
	if c.ReactClauseTimeoutSeconds == 0 {
		c.ReactClauseTimeoutSeconds = defaultReactClauseTimeoutSecond
	}
}

// Validate checks the ReviewConfig for errors.
func (c *ReviewConfig) Validate() error {
	if !c.ExecutionMode.IsValid() {
		return fmt.Errorf("invalid execution_mode %q (valid: legacy, gen3)", c.ExecutionMode)
	}
	if c.ReactMaxIterations < 1 {
		return fmt.Errorf("react_max_iterations must be >= 1, got %d", c.ReactMaxIterations)
	}
	if c.ReactTemperature < 0 || c.ReactTemperature > 2 {
		return fmt.Errorf("react_temperature must be between 0 and 2, got %f", c.ReactTemperature)
	}
	if c.ReactClauseTimeoutSeconds < 1 {
		return fmt.Errorf("react_clause_timeout must be >= 1, got %d", c.ReactClauseTimeoutSeconds)
	}
	return nil
}

func boolPtrTrue(b *bool) bool {
	return b != nil && *b
}
