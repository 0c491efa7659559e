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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clausereview/engine/pkg/domain"
)

func boolPtr(b bool) *bool { return &b }

func TestReviewConfigSetDefaults_ExplicitModeWins(t *testing.T) {
	c := &ReviewConfig{ExecutionMode: domain.ExecutionModeLegacy, UseReactAgent: boolPtr(true)}
	c.SetDefaults()
	assert.Equal(t, domain.ExecutionModeLegacy, c.ExecutionMode, "explicit execution_mode must win over deprecated booleans")
}

func TestReviewConfigSetDefaults_EnvOverride(t *testing.T) {
	t.Setenv(envExecutionMode, "legacy")
	c := &ReviewConfig{ExecutionMode: domain.ExecutionModeGen3}
	c.SetDefaults()
	assert.Equal(t, domain.ExecutionModeLegacy, c.ExecutionMode, "EXECUTION_MODE env var must override config value")
}

func TestReviewConfigSetDefaults_DeprecatedBooleanFallback(t *testing.T) {
	c := &ReviewConfig{UseOrchestrator: boolPtr(true)}
	c.SetDefaults()
	assert.Equal(t, domain.ExecutionModeGen3, c.ExecutionMode)
}

func TestReviewConfigSetDefaults_DeprecatedBooleanIgnoredWhenEnvSet(t *testing.T) {
	t.Setenv(envExecutionMode, "legacy")
	c := &ReviewConfig{UseReactAgent: boolPtr(true)}
	c.SetDefaults()
	assert.Equal(t, domain.ExecutionModeLegacy, c.ExecutionMode, "env override wins even when a deprecated boolean also requests gen3")
}

func TestReviewConfigSetDefaults_DefaultsToGen3(t *testing.T) {
	c := &ReviewConfig{}
	c.SetDefaults()
	assert.Equal(t, domain.ExecutionModeGen3, c.ExecutionMode)
	assert.Equal(t, defaultReactMaxIterations, c.ReactMaxIterations)
	assert.Equal(t, defaultReactTemperature, c.ReactTemperature)
	assert.Equal(t, defaultReactClauseTimeoutSecond, c.ReactClauseTimeoutSeconds)
}

func TestReviewConfigValidate(t *testing.T) {
	c := &ReviewConfig{ExecutionMode: domain.ExecutionModeGen3, ReactMaxIterations: 5, ReactTemperature: 0.1, ReactClauseTimeoutSeconds: 30}
	require.NoError(t, c.Validate())

	bad := &ReviewConfig{ExecutionMode: "bogus", ReactMaxIterations: 1, ReactTemperature: 0.1, ReactClauseTimeoutSeconds: 1}
	assert.Error(t, bad.Validate())

	bad2 := &ReviewConfig{ExecutionMode: domain.ExecutionModeGen3, ReactMaxIterations: 0, ReactTemperature: 0.1, ReactClauseTimeoutSeconds: 1}
	assert.Error(t, bad2.Validate())

	bad3 := &ReviewConfig{ExecutionMode: domain.ExecutionModeGen3, ReactMaxIterations: 1, ReactTemperature: 3, ReactClauseTimeoutSeconds: 1}
	assert.Error(t, bad3.Validate())
}
