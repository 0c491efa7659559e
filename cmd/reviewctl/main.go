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

// Command reviewctl is the CLI for the clause-review engine.
//
// Usage:
//
//	reviewctl review contract.txt --domain fidic
//	reviewctl review --config review.yaml contract.txt --baseline prior.txt
//	reviewctl validate review.yaml
//	reviewctl schema
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/clausereview/engine/pkg/config"
	"github.com/clausereview/engine/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Review   ReviewCmd   `cmd:"" help:"Run the clause-review graph over a document."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`
	Schema   SchemaCmd   `cmd:"" help:"Generate JSON Schema for the configuration file."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println("reviewctl (clause-review engine) dev")
	return nil
}

// loadConfig loads cfg from path if given, or returns a zero-config
// default otherwise, so the CLI works with no config file at all.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := &config.Config{}
		cfg.SetDefaults()
		return cfg, nil
	}
	return config.LoadConfig(config.LoaderOptions{Type: config.ConfigTypeFile, Path: path})
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("reviewctl"),
		kong.Description("Clause-review engine CLI"),
		kong.UsageOnError(),
	)

	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(1)
	}

	out := os.Stderr
	if cli.LogFile != "" {
		f, cleanup, err := logger.OpenLogFile(cli.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		out = f
	}
	logger.Init(level, out, cli.LogFormat)

	if err := ctx.Run(&cli); err != nil {
		ctx.FatalIfErrorf(err)
	}
}
