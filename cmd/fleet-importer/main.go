/*
Copyright 2026 Gravitational, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gravitational/trace"

	"github.com/gravitational/fleet-importer/pkg/config"
	"github.com/gravitational/fleet-importer/pkg/importer"
	"github.com/gravitational/fleet-importer/pkg/logging"
	"github.com/gravitational/fleet-importer/pkg/outputs"
)

const EnvVarPrefix = "FLEET_IMPORTER_"

const (
	importCommand = "import"
	checkCommand  = "check"
)

type cli struct {
	Command         string
	InputPath       string
	PreferencesPath string
	OutputFormat    string
	OutputFile      string
	LogLevel        string
	Timeout         time.Duration
}

func parseCLI(args []string) (*cli, error) {
	c := &cli{}
	app := kingpin.New("fleet-importer", "Uploads a software installer to Fleet and optionally proposes it to a GitOps repository.")

	app.Flag("input", "YAML or JSON file with processor arguments, - for stdin.").
		Short('i').
		Envar(EnvVarPrefix + "INPUT").
		StringVar(&c.InputPath)

	app.Flag("preferences", "Preference file consulted after environment variables.").
		Envar(EnvVarPrefix + "PREFERENCES").
		Default(config.DefaultPreferencesPath()).
		StringVar(&c.PreferencesPath)

	app.Flag("output-format", "Format of the reported output values.").
		Short('f').
		Envar(EnvVarPrefix+"OUTPUT_FORMAT").
		Default(outputs.DefaultWriter.Name()).
		EnumVar(&c.OutputFormat, outputs.Names()...)

	app.Flag("output-file", "File to append output values to instead of stdout. Defaults to $GITHUB_OUTPUT for gha-env.").
		Short('o').
		Envar(EnvVarPrefix + "OUTPUT_FILE").
		StringVar(&c.OutputFile)

	app.Flag("log-level", "Log level: debug, info, warn or error.").
		Envar(EnvVarPrefix + "LOG_LEVEL").
		Default("info").
		StringVar(&c.LogLevel)

	app.Flag("timeout", "Overall time limit for the run.").
		Envar(EnvVarPrefix + "TIMEOUT").
		Default("30m").
		DurationVar(&c.Timeout)

	app.Command(importCommand, "Upload the installer and run the GitOps sync when enabled.").Default()
	app.Command(checkCommand, "Check the Fleet version and whether the version is already uploaded.")

	cmd, err := app.Parse(args)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	c.Command = cmd

	if c.OutputFile == "" && c.OutputFormat == outputs.NewGHAEnvWriter().Name() {
		c.OutputFile = os.Getenv("GITHUB_OUTPUT")
	}
	return c, nil
}

func run(ctx context.Context, c *cli, env config.Source, stdout, stderr io.Writer) error {
	logger, err := logging.New(stderr, c.LogLevel)
	if err != nil {
		return trace.Wrap(err)
	}
	ctx = logging.ToCtx(ctx, logger)

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	writer, err := outputs.Lookup(c.OutputFormat)
	if err != nil {
		return trace.Wrap(err)
	}

	cfg, origins, err := config.Load(env, config.NewPreferencesSource(c.PreferencesPath), config.NewRecipeSource(c.InputPath))
	if err != nil {
		return trace.Wrap(err, "failed to load processor arguments")
	}
	logConfig(ctx, cfg, origins)

	imp, err := importer.FromConfig(ctx, cfg, logger)
	if err != nil {
		return trace.Wrap(err)
	}

	var values map[string]string
	switch c.Command {
	case checkCommand:
		res, err := imp.Check(ctx)
		if err != nil {
			return trace.Wrap(err)
		}
		values = res.Outputs()
	default:
		res, err := imp.Run(ctx)
		if err != nil {
			return trace.Wrap(err)
		}
		values = res.Outputs()
	}

	return trace.Wrap(outputs.Emit(writer, values, c.OutputFile, stdout))
}

// logConfig records where the settings that matter came from. Secrets are
// never logged.
func logConfig(ctx context.Context, cfg *config.Config, origins map[string]string) {
	logger := logging.FromCtx(ctx)
	logger.DebugContext(ctx, "Loaded processor arguments",
		"software_title", cfg.SoftwareTitle,
		"version", cfg.Version,
		"platform", cfg.Platform,
		"team_id", cfg.TeamID,
		"fleet_api_base", cfg.FleetAPIBase,
		"fleet_api_base_source", origins["FLEET_API_BASE"],
		"fleet_api_token_source", origins["FLEET_API_TOKEN"],
		"gitops_mode", cfg.GitOps.Enabled,
		"s3_mirror", cfg.Mirror.Enabled(),
	)
}

func main() {
	c, err := parseCLI(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, c, config.NewEnvSource(), os.Stdout, os.Stderr); err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("fleet-importer failed", "error", err)
		cancel()
		os.Exit(1)
	}
}
