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

package state

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/fileops/pkg/model"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "list"

// Lister is the slice of the backend client the refresher needs
type Lister interface {
	ListOperations(ctx context.Context, filter model.ListFilter) (*model.ListResult, error)
}

// 🔄 Refresher re-lists operations into a Store. Periodic refreshes skip
// themselves while a create, validate or execute call is in flight, and
// concurrent refreshes share one backend call.
type Refresher struct {
	store    *Store
	lister   Lister
	filter   model.ListFilter
	interval time.Duration
	group    singleflight.Group

	// OnRefresh, when set, is called after every applied refresh
	OnRefresh func(ctx context.Context, ops []model.Operation, total int)
}

// NewRefresher creates a refresher listing with filter every interval
func NewRefresher(store *Store, lister Lister, filter model.ListFilter, interval time.Duration) *Refresher {
	return &Refresher{
		store:    store,
		lister:   lister,
		filter:   filter,
		interval: interval,
	}
}

// Refresh lists operations unless the store is busy. It reports whether the
// store was refreshed.
func (r *Refresher) Refresh(ctx context.Context) (bool, error) {
	if r.store.Busy() {
		zerolog.Ctx(ctx).Debug().Msg("skipping refresh while a call is in flight")
		return false, nil
	}
	if err := r.refresh(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ForceRefresh lists operations even if other calls are in flight. It never
// joins a list call that started before it.
func (r *Refresher) ForceRefresh(ctx context.Context) error {
	r.group.Forget(refreshKey)
	return r.refresh(ctx)
}

func (r *Refresher) refresh(ctx context.Context) error {
	_, err, _ := r.group.Do(refreshKey, func() (interface{}, error) {
		res, err := r.lister.ListOperations(ctx, r.filter)
		if err != nil {
			return nil, err
		}
		r.store.ReplaceAll(ctx, res.Operations, res.Total)
		if r.OnRefresh != nil {
			r.OnRefresh(ctx, r.store.List(), res.Total)
		}
		return nil, nil
	})
	if err != nil {
		return errors.Errorf("refreshing operations: %w", err)
	}
	return nil
}

// Run refreshes every interval until ctx is done. Failed refreshes are logged
// and retried on the next tick.
func (r *Refresher) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return errors.Errorf("refresh interval must be positive, got %s", r.interval)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Refresh(ctx); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("background refresh failed")
			}
		}
	}
}
