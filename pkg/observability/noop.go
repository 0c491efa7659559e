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

package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopManager returns a Manager with no tracer or metrics configured. All
// *Manager, *Tracer and *Metrics methods are nil-receiver safe, so callers
// can use this interchangeably with a fully configured Manager.
func NoopManager() *Manager {
	return &Manager{}
}

var noopTracer = noop.NewTracerProvider().Tracer("noop")

// noopSpan returns a span that records nothing, used by Tracer's methods
// when the Tracer itself is nil.
func noopSpan() trace.Span {
	_, span := noopTracer.Start(context.Background(), "noop")
	return span
}
