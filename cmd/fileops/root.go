// Copyright 2025 walteh LLC
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
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/fileops/cmd/fileops/commands"
	"github.com/walteh/fileops/cmd/fileops/opts"
	"github.com/walteh/fileops/pkg/config"
	"github.com/walteh/fileops/pkg/log"
	"github.com/walteh/fileops/pkg/remote/api"
	"github.com/walteh/fileops/pkg/state"
	"github.com/walteh/fileops/pkg/status"
	"github.com/walteh/fileops/pkg/workflow"
	"gitlab.com/tozd/go/errors"
)

const (
	defaultConfigFile   = "fileops.yaml"
	skipSetupAnnotation = "fileops.skip-setup"
)

type rootFlags struct {
	configFile string
	debug      bool
	server     string
	token      string
}

func newRootCmd(ro *opts.RootOpts) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "fileops",
		Short: "Safely rename, move and delete library files through the file operations API",
		Long: `fileops drives the file operations backend: every operation is created,
validated for risk and impact, confirmed, executed with a backup, and can be
rolled back afterwards.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetupAnnotation] == "true" {
				return nil
			}
			ctx, err := setup(cmd.Context(), cmd, flags, ro)
			if err != nil {
				return err
			}
			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if ro.LogFile != nil {
				return ro.LogFile.Close()
			}
			return nil
		},
	}

	addRootFlags(cmd, flags)

	cmd.AddCommand(
		commands.NewCreateCmd(ro),
		commands.NewValidateCmd(ro),
		commands.NewExecuteCmd(ro),
		commands.NewRollbackCmd(ro),
		commands.NewGetCmd(ro),
		commands.NewListCmd(ro),
		commands.NewCleanupCmd(ro),
		commands.NewRunCmd(ro),
		commands.NewWatchCmd(ro),
		newVersionCmd(),
	)

	return cmd
}

func addRootFlags(cmd *cobra.Command, flags *rootFlags) {
	cmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", defaultConfigFile, "config file path (.yaml, .json or .hcl)")
	cmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.server, "server", "", "backend base url, overrides server.base_url (env FILEOPS_SERVER)")
	cmd.PersistentFlags().StringVar(&flags.token, "token", "", "bearer token, overrides server.token (env FILEOPS_TOKEN)")
}

// loadConfig reads the config file when there is one and applies flag and
// environment overrides before validating
func loadConfig(ctx context.Context, cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	cfg := &config.Config{}

	explicit := cmd.Flags().Changed("config")
	if _, err := os.Stat(flags.configFile); err == nil || explicit {
		read, err := config.Read(ctx, flags.configFile)
		if err != nil {
			return nil, errors.Errorf("loading config: %w", err)
		}
		cfg = read
	}

	if server := firstNonEmpty(flags.server, os.Getenv("FILEOPS_SERVER")); server != "" {
		cfg.Server.BaseURL = server
	}
	if token := firstNonEmpty(flags.token, os.Getenv("FILEOPS_TOKEN")); token != "" {
		cfg.Server.Token = token
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// setupLogging builds the process logger from config, with --debug winning
// over log.level
func setupLogging(cfg *config.Config, debug bool) (zerolog.Logger, io.Closer) {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		level = parsed
	}
	if debug {
		level = zerolog.DebugLevel
	}

	if cfg.Log.File == "" {
		return log.Setup(level, nil), nil
	}
	file := log.NewFileWriter(log.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	return log.Setup(level, file), file
}

func setup(ctx context.Context, cmd *cobra.Command, flags *rootFlags, ro *opts.RootOpts) (context.Context, error) {
	bootLevel := zerolog.WarnLevel
	if flags.debug {
		bootLevel = zerolog.DebugLevel
	}
	ctx = log.Setup(bootLevel, nil).WithContext(ctx)

	cfg, err := loadConfig(ctx, cmd, flags)
	if err != nil {
		return nil, err
	}

	zl, closer := setupLogging(cfg, flags.debug)
	ctx = zl.WithContext(ctx)

	client, err := api.New(cfg.Server.BaseURL,
		api.WithToken(cfg.Server.Token),
		api.WithUserAgent("fileops/"+GetVersionInfo().Version),
	)
	if err != nil {
		return nil, errors.Errorf("creating client: %w", err)
	}

	out := cmd.OutOrStdout()
	store := state.New()

	ro.Config = cfg
	ro.Client = client
	ro.Store = store
	ro.Out = out
	ro.LogFile = closer
	ro.Logger = log.New(out, zl)
	ro.Printer = status.NewPrinter(out)
	if ro.Confirm != nil {
		ro.Printer.WithConfirm(ro.Confirm)
	}
	ro.Refresher = state.NewRefresher(store, client, ro.ListFilter(), cfg.Refresh.Every())

	ctrl, err := workflow.New(client, store, workflow.Options{
		Timeout:        cfg.Server.Timeout(),
		ProtectedPaths: cfg.ProtectedPaths,
		ListFilter:     ro.ListFilter(),
		Refresher:      ro.Refresher,
		OnChange:       ro.Notify,
	})
	if err != nil {
		return nil, errors.Errorf("creating controller: %w", err)
	}
	ro.Controller = ctrl

	zl.Debug().Str("config", cfg.String()).Msg("fileops ready")

	return log.NewContext(ctx, ro.Logger), nil
}
