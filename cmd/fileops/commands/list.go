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
	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"github.com/walteh/fileops/cmd/fileops/opts"
	"github.com/walteh/fileops/pkg/log"
	"github.com/walteh/fileops/pkg/model"
	"gitlab.com/tozd/go/errors"
)

type listFlags struct {
	status string
	kind   string
	limit  int
	offset int
	path   string
}

func (f *listFlags) filter() (model.ListFilter, error) {
	filter := model.ListFilter{Limit: f.limit, Offset: f.offset}
	if f.status != "" {
		s, err := model.ParseStatus(f.status)
		if err != nil {
			return filter, err
		}
		filter.Status = s
	}
	if f.kind != "" {
		k, err := model.ParseKind(f.kind)
		if err != nil {
			return filter, err
		}
		filter.Kind = k
	}
	if f.limit < 0 || f.offset < 0 {
		return filter, errors.Errorf("limit and offset must not be negative")
	}
	return filter, nil
}

// matchPath reports whether the source or target of op matches pattern
func matchPath(pattern string, op model.Operation) bool {
	if pattern == "" {
		return true
	}
	for _, p := range []string{op.SourcePath, op.TargetPath} {
		if p == "" {
			continue
		}
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

func NewListCmd(ro *opts.RootOpts) *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List operations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			filter, err := flags.filter()
			if err != nil {
				return err
			}
			if filter.Limit == 0 {
				filter.Limit = ro.Config.Refresh.PageSize
			}
			if flags.path != "" && !doublestar.ValidatePattern(flags.path) {
				return errors.Errorf("invalid --path pattern %q", flags.path)
			}

			cctx, cancel := ro.CallContext(ctx)
			defer cancel()
			res, err := ro.Client.ListOperations(cctx, filter)
			if err != nil {
				return errors.Errorf("listing operations: %w", err)
			}
			ro.Store.ReplaceAll(ctx, res.Operations, res.Total)

			ro.Logger.StartBatch(ctx, log.Batch{Title: "operations", Total: res.Total})
			for _, op := range ro.Store.List() {
				if matchPath(flags.path, op) {
					ro.Logger.LogOperation(ctx, op)
				}
			}
			ro.Logger.EndBatch(ctx)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.status, "status", "", "only operations in this status")
	cmd.Flags().StringVar(&flags.kind, "kind", "", "only operations of this kind (rename, move, delete)")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "page size (default refresh.page_size)")
	cmd.Flags().IntVar(&flags.offset, "offset", 0, "page offset")
	cmd.Flags().StringVar(&flags.path, "path", "", "only operations whose source or target matches this glob (e.g. /library/**/*.cbz)")
	return cmd
}
