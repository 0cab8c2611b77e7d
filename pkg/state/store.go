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
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/walteh/fileops/pkg/model"
)

// 🗃️ Store holds every operation the client knows about, the active operation
// and the last validation result per operation. It is written only with
// backend responses: records are replaced whole, never merged.
type Store struct {
	mu sync.RWMutex

	ops         map[string]model.Operation
	validations map[string]model.ValidationResult

	// visible is the ordered collection shown to users, newest first
	visible []string
	total   int

	activeID string

	inFlight atomic.Int64
}

// New creates an empty store
func New() *Store {
	return &Store{
		ops:         make(map[string]model.Operation),
		validations: make(map[string]model.ValidationResult),
	}
}

// Put inserts op or replaces the record with the same id. A record whose
// status would move backwards along the lifecycle is not applied, so stale
// responses cannot undo a newer one. Put reports whether op was applied.
func (s *Store) Put(ctx context.Context, op model.Operation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putLocked(ctx, op)
}

func (s *Store) putLocked(ctx context.Context, op model.Operation) bool {
	prev, seen := s.ops[op.ID]
	if seen && !prev.Status.CanTransitionTo(op.Status) {
		zerolog.Ctx(ctx).Warn().
			Str("operation", op.ID).
			Str("stored_status", string(prev.Status)).
			Str("incoming_status", string(op.Status)).
			Msg("ignoring stale operation record")
		return false
	}

	s.ops[op.ID] = cloneOperation(op)
	if !seen {
		s.visible = append([]string{op.ID}, s.visible...)
		s.total++
	}

	zerolog.Ctx(ctx).Debug().Str("operation", op.ID).Str("status", string(op.Status)).Msg("stored operation")
	return true
}

// PutActive stores op and makes it the active operation
func (s *Store) PutActive(ctx context.Context, op model.Operation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeID = op.ID
	return s.putLocked(ctx, op)
}

// ReplaceAll replaces the visible collection with a freshly listed page.
// Records not in the page are dropped, except the active operation.
func (s *Store) ReplaceAll(ctx context.Context, ops []model.Operation, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]model.Operation, len(ops)+1)
	visible := make([]string, 0, len(ops))
	for _, op := range ops {
		if prev, ok := s.ops[op.ID]; ok && !prev.Status.CanTransitionTo(op.Status) {
			next[op.ID] = prev
		} else {
			next[op.ID] = cloneOperation(op)
		}
		if _, dup := indexOf(visible, op.ID); !dup {
			visible = append(visible, op.ID)
		}
	}

	if active, ok := s.ops[s.activeID]; ok {
		if _, listed := next[s.activeID]; !listed {
			next[s.activeID] = active
		}
	}

	for id := range s.validations {
		if _, ok := next[id]; !ok {
			delete(s.validations, id)
		}
	}

	s.ops = next
	s.visible = visible
	s.total = total

	zerolog.Ctx(ctx).Debug().Int("listed", len(ops)).Int("total", total).Msg("replaced operation list")
}

// Get returns the stored record for id
func (s *Store) Get(id string) (model.Operation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.ops[id]
	if !ok {
		return model.Operation{}, false
	}
	return cloneOperation(op), true
}

// List returns the visible collection in display order
func (s *Store) List() []model.Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Operation, 0, len(s.visible))
	for _, id := range s.visible {
		if op, ok := s.ops[id]; ok {
			out = append(out, cloneOperation(op))
		}
	}
	return out
}

// Total is the backend's total count from the last list, adjusted for
// operations created since
func (s *Store) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// SetActive points the active operation at id
func (s *Store) SetActive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = id
}

// Active returns the active operation, if any
func (s *Store) Active() (model.Operation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.ops[s.activeID]
	if !ok {
		return model.Operation{}, false
	}
	return cloneOperation(op), true
}

// PutValidation records res as the latest validation for id, superseding any
// earlier result
func (s *Store) PutValidation(id string, res model.ValidationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validations[id] = res
}

// Validation returns the latest validation result for id
func (s *Store) Validation(id string) (model.ValidationResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.validations[id]
	return res, ok
}

// Track marks a create, validate or execute call as in flight. The returned
// func ends the call and must be called exactly once.
func (s *Store) Track() func() {
	s.inFlight.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { s.inFlight.Add(-1) })
	}
}

// Busy reports whether any tracked call is in flight
func (s *Store) Busy() bool {
	return s.inFlight.Load() > 0
}

func cloneOperation(op model.Operation) model.Operation {
	if op.AffectedSeriesIDs != nil {
		op.AffectedSeriesIDs = append([]string(nil), op.AffectedSeriesIDs...)
	}
	if op.AffectedChapterIDs != nil {
		op.AffectedChapterIDs = append([]string(nil), op.AffectedChapterIDs...)
	}
	return op
}

func indexOf(ids []string, id string) (int, bool) {
	for i, v := range ids {
		if v == id {
			return i, true
		}
	}
	return -1, false
}
