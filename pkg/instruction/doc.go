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

// Package instruction provides instruction templating for review-engine components.
//
// This package implements adk-go compatible instruction templating, allowing
// agent instructions to contain dynamic placeholders that are resolved at runtime.
//
// # Placeholder Syntax
//
// Placeholders use curly braces and support several forms:
//
//	{variable}           - State variable
//	{app:variable}       - App-prefixed state key
//	{user:variable}      - User-prefixed state key
//	{temp:variable}      - Temp-prefixed state key
//	{variable?}          - Optional (empty string if not found, no error)
//
// Each name, prefix included, is looked up as-is through the StateReader.
// Any other form, such as {artifact.filename}, is not a valid name and is
// left in the output as written.
//
// # Usage
//
// Basic usage with InjectState:
//
//	template := "Hello {user_name}, you are working on {app:project_name}."
//	resolved, err := instruction.InjectState(state, template)
//	if err != nil {
//	    return err
//	}
//	// resolved: "Hello Alice, you are working on MyProject."
//
// Using the Template type with a MapState:
//
//	tmpl := instruction.New("Task: {task}\nNotes: {notes?}")
//	resolved, err := tmpl.Render(instruction.MapState{"task": "review"})
//
// # Callers
//
// The ReAct loop's directive prompt and the orchestrator's plan-adjustment
// prompt are rendered through this package with a MapState.
//
// # Error Handling
//
// Required placeholders (without ?) return an error if not found.
// Optional placeholders (with ?) return an empty string if not found.
// Invalid placeholder names (not valid identifiers) are left as-is.
package instruction
