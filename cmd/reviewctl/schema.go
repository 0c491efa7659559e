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

package main

import (
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/clausereview/engine/pkg/config"
)

// SchemaCmd generates a JSON Schema for the engine's configuration file,
// the same reflector shape the skills package uses for tool parameters.
type SchemaCmd struct {
	Compact bool `short:"c" help:"Compact JSON output (no indentation)."`
}

// Run executes the schema generation command.
func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Title = "Clause-Review Engine Configuration"
	schema.Description = "Configuration schema for the clause-review engine."
	schema.Version = "http://json-schema.org/draft-07/schema#"

	var (
		out []byte
		err error
	)
	if c.Compact {
		out, err = schema.MarshalJSON()
	} else {
		out, err = jsonPretty(schema)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
