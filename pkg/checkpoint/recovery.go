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

package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RecoveryManager handles checkpoint recovery on startup and during runtime.
//
// On startup it scans for pending checkpoints and:
//  1. Validates checkpoint states (not expired, recoverable)
//  2. For checkpoints mid-clause: auto-resumes if configured
//  3. For checkpoints parked at human_approval: waits for the user's
//     decision unless HITL auto-resume is enabled
//  4. For expired checkpoints: clears them
type RecoveryManager struct {
	config  *Config
	storage *Storage

	resumeCallback ResumeCallback

	mu sync.RWMutex
}

// ResumeCallback re-enters the review graph from a checkpoint.
type ResumeCallback func(ctx context.Context, state *State) error

// NewRecoveryManager creates a new RecoveryManager.
func NewRecoveryManager(cfg *Config, storage *Storage) *RecoveryManager {
	return &RecoveryManager{
		config:  cfg,
		storage: storage,
	}
}

// SetResumeCallback sets the callback for resuming reviews.
func (m *RecoveryManager) SetResumeCallback(cb ResumeCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumeCallback = cb
}

// RecoverPendingTasks recovers reviews with checkpoints on startup.
func (m *RecoveryManager) RecoverPendingTasks(ctx context.Context, appName string) error {
	if !m.config.ShouldAutoResume() {
		slog.Debug("Checkpoint recovery disabled", "app_name", appName)
		return nil
	}

	states, err := m.storage.ListAllPending(ctx, appName)
	if err != nil {
		return fmt.Errorf("failed to list pending checkpoints: %w", err)
	}

	if len(states) == 0 {
		slog.Debug("No pending checkpoints to recover", "app_name", appName)
		return nil
	}

	slog.Info("Found pending checkpoints, starting recovery",
		"app_name", appName,
		"count", len(states))

	recoveredCount := 0
	failedCount := 0

	for _, state := range states {
		if err := m.recoverCheckpoint(ctx, state); err != nil {
			slog.Error("Failed to recover checkpoint",
				"task_id", state.TaskID,
				"session_id", state.SessionID,
				"error", err)
			failedCount++
			continue
		}
		recoveredCount++
	}

	slog.Info("Checkpoint recovery completed",
		"app_name", appName,
		"recovered", recoveredCount,
		"failed", failedCount)

	return nil
}

func (m *RecoveryManager) recoverCheckpoint(ctx context.Context, state *State) error {
	if !state.IsRecoverable() {
		return fmt.Errorf("checkpoint not recoverable (phase=%s)", state.Phase)
	}

	timeout := m.config.GetRecoveryTimeout()
	if state.IsExpired(timeout) {
		slog.Warn("Checkpoint expired",
			"task_id", state.TaskID,
			"checkpoint_time", state.CheckpointTime,
			"timeout", timeout)
		if err := m.storage.Clear(ctx, state.AppName, state.UserID, state.SessionID, state.TaskID); err != nil {
			slog.Warn("Failed to clear expired checkpoint", "error", err)
		}
		return fmt.Errorf("checkpoint expired")
	}

	if state.NeedsUserInput() && !m.config.ShouldAutoResumeHITL() {
		slog.Info("Checkpoint awaiting user approval (auto-resume HITL disabled)",
			"task_id", state.TaskID,
			"session_id", state.SessionID)
		return nil
	}

	m.mu.RLock()
	callback := m.resumeCallback
	m.mu.RUnlock()

	if callback == nil {
		slog.Warn("No resume callback configured, checkpoint will be recovered on next access",
			"task_id", state.TaskID)
		return nil
	}

	slog.Info("Resuming review from checkpoint",
		"task_id", state.TaskID,
		"session_id", state.SessionID,
		"phase", state.Phase,
		"checkpoint_type", state.CheckpointType)

	go func() {
		if err := callback(ctx, state); err != nil {
			slog.Error("Failed to resume review from checkpoint",
				"task_id", state.TaskID,
				"error", err)
		}
	}()

	return nil
}

// ResumeTask manually resumes a review from checkpoint. A non-empty
// userInput is stored as the review state's UserFeedback before the
// resume callback runs; no approve/reject decision is recorded here.
func (m *RecoveryManager) ResumeTask(ctx context.Context, appName, userID, sessionID, taskID string, userInput string) error {
	state, err := m.storage.Load(ctx, appName, userID, sessionID, taskID)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if !state.IsRecoverable() {
		return fmt.Errorf("checkpoint not recoverable")
	}

	if state.IsExpired(m.config.GetRecoveryTimeout()) {
		_ = m.storage.Clear(ctx, appName, userID, sessionID, taskID)
		return fmt.Errorf("checkpoint expired")
	}

	m.mu.RLock()
	callback := m.resumeCallback
	m.mu.RUnlock()

	if callback == nil {
		return fmt.Errorf("no resume callback configured")
	}

	if userInput != "" && state.ReviewState != nil {
		state.ReviewState.UserFeedback = userInput
	}

	return callback(ctx, state)
}

// GetPendingCheckpoints returns all pending checkpoints for a user.
func (m *RecoveryManager) GetPendingCheckpoints(ctx context.Context, appName, userID string) ([]*State, error) {
	return m.storage.ListPending(ctx, appName, userID)
}

// GetCheckpoint returns a specific checkpoint.
func (m *RecoveryManager) GetCheckpoint(ctx context.Context, appName, userID, sessionID, taskID string) (*State, error) {
	return m.storage.Load(ctx, appName, userID, sessionID, taskID)
}

// CancelCheckpoint removes a checkpoint without resuming.
func (m *RecoveryManager) CancelCheckpoint(ctx context.Context, appName, userID, sessionID, taskID string) error {
	return m.storage.Clear(ctx, appName, userID, sessionID, taskID)
}

// CheckpointStats contains statistics about pending checkpoints.
type CheckpointStats struct {
	Total         int
	Working       int
	InputRequired int
	Expired       int
	OldestAge     time.Duration
	AverageAge    time.Duration
}

// GetStats returns statistics about pending checkpoints.
func (m *RecoveryManager) GetStats(ctx context.Context, appName string) (*CheckpointStats, error) {
	states, err := m.storage.ListAllPending(ctx, appName)
	if err != nil {
		return nil, err
	}

	stats := &CheckpointStats{
		Total: len(states),
	}

	if len(states) == 0 {
		return stats, nil
	}

	var totalAge time.Duration
	timeout := m.config.GetRecoveryTimeout()

	for _, state := range states {
		age := time.Since(state.CheckpointTime)
		totalAge += age

		if age > stats.OldestAge {
			stats.OldestAge = age
		}

		if state.IsExpired(timeout) {
			stats.Expired++
		} else if state.NeedsUserInput() {
			stats.InputRequired++
		} else {
			stats.Working++
		}
	}

	stats.AverageAge = totalAge / time.Duration(len(states))

	return stats, nil
}
