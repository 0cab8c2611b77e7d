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
	"github.com/walteh/fileops/pkg/log"
	"github.com/walteh/fileops/pkg/model"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

const maxParallelGets = 4

func NewGetCmd(ro *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id> [id...]",
		Short: "Show one or more operations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ops := make([]*model.Operation, len(args))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(maxParallelGets)
			for i, id := range args {
				g.Go(func() error {
					cctx, cancel := ro.CallContext(gctx)
					defer cancel()
					op, err := ro.Client.GetOperation(cctx, id)
					if err != nil {
						return errors.Errorf("getting operation %s: %w", id, err)
					}
					ops[i] = op
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			ro.Logger.StartBatch(ctx, log.Batch{Title: "operations", Total: len(ops)})
			for _, op := range ops {
				ro.Store.Put(ctx, *op)
				ro.Logger.LogOperation(ctx, *op)
			}
			ro.Logger.EndBatch(ctx)
			return nil
		},
	}

	return cmd
}
