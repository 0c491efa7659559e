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

// Package utils provides small shared utilities: data-directory setup
// and token counting.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDataDir ensures the .clausereview directory exists at the given base path.
// If basePath is empty or ".", it creates ./.clausereview in the current directory.
// Otherwise, it creates {basePath}/.clausereview.
//
// This is used by various facilities that need to store data in .clausereview:
// - Tasks database: ./.clausereview/tasks.db
// - Document store index state: {sourcePath}/.clausereview/index_state_*.json
// - Checkpoints: {sourcePath}/.clausereview/checkpoints/
// - Vector stores: {sourcePath}/.clausereview/vectors/
//
// Returns the full path to the .clausereview directory and any error.
func EnsureDataDir(basePath string) (string, error) {
	var dataDir string
	if basePath == "" || basePath == "." {
		// Root-level .clausereview directory (for tasks.db, etc.)
		dataDir = ".clausereview"
	} else {
		// Source-specific .clausereview directory (for document stores, checkpoints)
		dataDir = filepath.Join(basePath, ".clausereview")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create .clausereview directory at '%s': %w", dataDir, err)
	}

	return dataDir, nil
}
