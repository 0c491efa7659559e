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

import "fmt"

// DatabaseConfig holds configuration for a SQL database connection
// backing the ratelimit package's SQL store. Document-format loaders,
// task persistence, and auth live outside this module, so only SQLite
// is supported here -- the one SQL driver this module
// actually imports (github.com/mattn/go-sqlite3).
type DatabaseConfig struct {
	// Driver is always "sqlite" or "sqlite3"; kept as a field (rather
	// than assumed) so config files stay self-documenting.
	Driver string `yaml:"driver"`

	// Database is the SQLite file path.
	Database string `yaml:"database"`

	// MaxConns is validated and defaulted (25), but DBPool opens every
	// SQLite pool with a single open connection regardless of it.
	MaxConns int `yaml:"max_conns,omitempty"`

	// MaxIdle is validated and defaulted (5), but DBPool keeps a single
	// idle connection regardless of it.
	MaxIdle int `yaml:"max_idle,omitempty"`
}

// SetDefaults applies default values to the database config.
func (c *DatabaseConfig) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.MaxConns == 0 {
		c.MaxConns = 25
	}
	if c.MaxIdle == 0 {
		c.MaxIdle = 5
	}
}

// Validate checks the database configuration.
func (c *DatabaseConfig) Validate() error {
	if c.Driver != "sqlite" && c.Driver != "sqlite3" {
		return fmt.Errorf("invalid driver %q (only sqlite is supported)", c.Driver)
	}
	if c.Database == "" {
		return fmt.Errorf("database (file path) is required")
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("max_conns must be non-negative")
	}
	if c.MaxIdle < 0 {
		return fmt.Errorf("max_idle must be non-negative")
	}
	return nil
}

// DSN returns the data source name for sql.Open -- the SQLite file path.
func (c *DatabaseConfig) DSN() string {
	return c.Database
}

// DriverName returns the normalized driver name for sql.Open().
func (c *DatabaseConfig) DriverName() string {
	return "sqlite3"
}

// Dialect returns the normalized SQL dialect name for query building.
func (c *DatabaseConfig) Dialect() string {
	return "sqlite"
}
