// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package checkpoint provides review-graph state capture and recovery.
//
// # Architecture
//
// State captures the full ReviewGraphState at a point in time, keyed by
// the review's task ID (its "thread_id"). This enables:
//   - Human-in-the-loop approval: pause the graph at a clause's
//     human_approval node and resume later with the recorded decision
//   - Fault tolerance: resume after a crash from the last saved node
//   - Long-running reviews: survive process restarts mid-document
//
// The checkpoint system is built on top of session.Service: checkpoints
// are stored in session state (under a per-task key) and can be recovered
// on startup.
//
// # Recovery Flow
//
//	┌────────────────────────────────────────────────────────────────┐
//	│   CHECKPOINT CREATION                                           │
//	│   clause_analyze → clause_generate_diffs → human_approval       │
//	│                                                ↓                │
//	│                         CHECKPOINT: Phase=PhaseToolApproval      │
//	│                                    ReviewState={CurrentClauseID} │
//	├────────────────────────────────────────────────────────────────┤
//	│   RESUME                                                        │
//	│   1. Load checkpoint → ReviewState, Phase                       │
//	│   2. Apply recorded UserDecision to ReviewState                 │
//	│   3. Re-enter the graph at the node the phase names             │
//	└────────────────────────────────────────────────────────────────┘
package checkpoint

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/clausereview/engine/pkg/domain"
)

// Phase represents the review-graph node active when the checkpoint was
// created.
type Phase string

const (
	// PhaseInitialized - review just started, no clauses processed yet.
	PhaseInitialized Phase = "initialized"

	// PhasePreLLM - before a ReAct/orchestrator LLM call.
	PhasePreLLM Phase = "pre_llm"

	// PhasePostLLM - after an LLM response was received.
	PhasePostLLM Phase = "post_llm"

	// PhaseToolExecution - during a skill/tool call.
	PhaseToolExecution Phase = "tool_execution"

	// PhasePostTool - after a skill/tool call completed.
	PhasePostTool Phase = "post_tool"

	// PhaseIterationEnd - end of a ReAct loop iteration.
	PhaseIterationEnd Phase = "iteration_end"

	// PhaseToolApproval - the graph is parked at human_approval, waiting
	// on a user decision for the current clause's diffs.
	PhaseToolApproval Phase = "tool_approval"

	// PhaseError - checkpoint created due to an unrecoverable error.
	PhaseError Phase = "error"
)

// Type represents why the checkpoint was created.
type Type string

const (
	// TypeEvent - event-driven (approval required, error, etc.).
	TypeEvent Type = "event"

	// TypeInterval - interval-based (every N clauses/iterations).
	TypeInterval Type = "interval"

	// TypeManual - manual pause requested.
	TypeManual Type = "manual"

	// TypeError - error recovery checkpoint.
	TypeError Type = "error"
)

// State represents the full review-graph execution state at a checkpoint.
type State struct {
	// Core identifiers; TaskID doubles as the graph's thread_id.
	TaskID    string `json:"task_id"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	AppName   string `json:"app_name"`

	// ReviewState is the full ReviewGraphState snapshot at checkpoint time.
	ReviewState *domain.ReviewGraphState `json:"review_state,omitempty"`

	InvocationID   string `json:"invocation_id"`
	LastEventIndex int    `json:"last_event_index"`

	// PendingToolCall captures an in-flight clause-level diff approval.
	PendingToolCall *PendingToolCall `json:"pending_tool_call,omitempty"`

	Phase          Phase     `json:"phase"`
	CheckpointType Type      `json:"checkpoint_type"`
	CheckpointTime time.Time `json:"checkpoint_time"`

	Error string `json:"error,omitempty"`
}

// PendingToolCall represents a diff batch (or skill call) awaiting
// approval or execution.
type PendingToolCall struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	Arguments        map[string]any `json:"arguments,omitempty"`
	RequiresApproval bool           `json:"requires_approval"`
}

// Serialize converts the State to JSON bytes.
func (s *State) Serialize() ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("cannot serialize nil state")
	}
	return json.Marshal(s)
}

// Deserialize reconstructs a State from JSON bytes.
func Deserialize(data []byte) (*State, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot deserialize empty data")
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint state: %w", err)
	}

	return &state, nil
}

// NewState creates a new checkpoint State with required identifiers.
func NewState(taskID, sessionID, userID, appName string) *State {
	return &State{
		TaskID:         taskID,
		SessionID:      sessionID,
		UserID:         userID,
		AppName:        appName,
		Phase:          PhaseInitialized,
		CheckpointType: TypeEvent,
		CheckpointTime: time.Now(),
	}
}

// WithPhase sets the checkpoint phase.
func (s *State) WithPhase(phase Phase) *State {
	s.Phase = phase
	s.CheckpointTime = time.Now()
	return s
}

// WithType sets the checkpoint type.
func (s *State) WithType(t Type) *State {
	s.CheckpointType = t
	return s
}

// WithReviewState attaches the current ReviewGraphState snapshot.
func (s *State) WithReviewState(rs *domain.ReviewGraphState) *State {
	s.ReviewState = rs
	return s
}

// WithPendingToolCall sets a pending tool call.
func (s *State) WithPendingToolCall(tc *PendingToolCall) *State {
	s.PendingToolCall = tc
	return s
}

// WithError sets the error message.
func (s *State) WithError(err error) *State {
	if err != nil {
		s.Error = err.Error()
		s.Phase = PhaseError
		s.CheckpointType = TypeError
	}
	return s
}

// WithLastEventIndex sets the index of the last processed event.
func (s *State) WithLastEventIndex(idx int) *State {
	s.LastEventIndex = idx
	return s
}

// IsExpired checks if the checkpoint has expired based on the timeout.
func (s *State) IsExpired(timeout time.Duration) bool {
	if s.CheckpointTime.IsZero() {
		return false
	}
	if timeout <= 0 {
		return false
	}
	return time.Since(s.CheckpointTime) > timeout
}

// IsRecoverable returns true if the checkpoint can be recovered.
func (s *State) IsRecoverable() bool {
	if s.Phase == "" {
		return false
	}
	return true
}

// NeedsUserInput returns true if the graph is parked waiting on an
// approval decision for the current clause.
func (s *State) NeedsUserInput() bool {
	return s.Phase == PhaseToolApproval && s.PendingToolCall != nil && s.PendingToolCall.RequiresApproval
}
