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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/walteh/fileops/cmd/fileops/opts"
	"github.com/walteh/fileops/pkg/status"
	"gitlab.com/tozd/go/errors"
)

func NewValidateCmd(ro *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <id>",
		Short: "Ask the backend for the risk and impact of an operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cctx, cancel := ro.CallContext(ctx)
			defer cancel()

			res, err := ro.Client.ValidateOperation(cctx, args[0])
			if err != nil {
				return errors.Errorf("validating operation: %w", err)
			}
			ro.Store.PutValidation(args[0], *res)

			fmt.Fprintln(ro.Out, status.NewDefaultFormatter().FormatValidation(*res))
			if !res.IsValid {
				return errors.Errorf("operation %s failed validation", args[0])
			}
			return nil
		},
	}

	return cmd
}
