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

package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/fileops/cmd/fileops/opts"
	"github.com/walteh/fileops/pkg/model"
	"gitlab.com/tozd/go/errors"
)

// formArgs turns "<kind> <source> [target]" into an operation form
func formArgs(args []string) (kind model.Kind, source, target string, err error) {
	kind, err = model.ParseKind(args[0])
	if err != nil {
		return "", "", "", err
	}
	source = args[1]
	if len(args) > 2 {
		target = args[2]
	}
	return kind, source, target, nil
}

func addFormFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-backup", false, "do not create a backup before executing")
	cmd.Flags().Bool("no-consistency", false, "skip the library consistency check")
}

func applyFormFlags(cmd *cobra.Command, backup, consistency *bool) error {
	noBackup, err := cmd.Flags().GetBool("no-backup")
	if err != nil {
		return errors.Errorf("reading --no-backup: %w", err)
	}
	noConsistency, err := cmd.Flags().GetBool("no-consistency")
	if err != nil {
		return errors.Errorf("reading --no-consistency: %w", err)
	}
	if noBackup {
		*backup = false
	}
	if noConsistency {
		*consistency = false
	}
	return nil
}

func NewCreateCmd(ro *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <rename|move|delete> <source> [target]",
		Short: "Create a pending file operation without running it",
		Long: `Create registers an operation with the backend and prints its id.
It will:
1. Check the paths and the protected path globs
2. Create the operation in the pending state
3. Leave validation and execution to later commands`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			kind, source, target, err := formArgs(args)
			if err != nil {
				return err
			}
			form := ro.Form(kind, source, target)
			if err := applyFormFlags(cmd, &form.CreateBackup, &form.ValidateConsistency); err != nil {
				return err
			}

			op, err := ro.Controller.Create(ctx, form)
			if err != nil {
				return errors.Errorf("creating operation: %w", err)
			}

			ro.Logger.LogOperation(ctx, *op)
			ro.Logger.Successf("created operation %s", op.ID)
			return nil
		},
	}

	addFormFlags(cmd)
	return cmd
}
