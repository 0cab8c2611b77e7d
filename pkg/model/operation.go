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

package model

import (
	"encoding/json"
	"path"
	"time"

	"gitlab.com/tozd/go/errors"
)

// 🏷️ Kind is the filesystem mutation an operation performs
type Kind string

const (
	KindRename Kind = "rename"
	KindDelete Kind = "delete"
	KindMove   Kind = "move"
)

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	switch k {
	case KindRename, KindDelete, KindMove:
		return true
	}
	return false
}

// NeedsTarget reports whether operations of this kind carry a target path
func (k Kind) NeedsTarget() bool {
	return k != KindDelete
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Errorf("decoding kind: %w", err)
	}
	if !Kind(s).Valid() {
		return errors.Errorf("unknown operation kind %q", s)
	}
	*k = Kind(s)
	return nil
}

// ParseKind parses a user supplied kind
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", errors.Errorf("unknown operation kind %q (want rename, move or delete)", s)
	}
	return k, nil
}

// 📊 Status is the backend lifecycle status of an operation
type Status string

const (
	StatusPending    Status = "pending"
	StatusValidated  Status = "validated"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRolledBack Status = "rolled_back"
)

// rank orders statuses along the forward lifecycle
var rank = map[Status]int{
	StatusPending:    0,
	StatusValidated:  1,
	StatusInProgress: 2,
	StatusCompleted:  3,
	StatusFailed:     3,
	StatusRolledBack: 4,
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	_, ok := rank[s]
	return ok
}

// Terminal reports whether no further forward transition is possible
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRolledBack
}

// CanTransitionTo reports whether moving from s to next respects the
// lifecycle. Re-applying the same status is always allowed. Completed may only
// move to rolled back, and nothing leaves failed or rolled back.
func (s Status) CanTransitionTo(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	switch s {
	case StatusRolledBack, StatusFailed:
		return false
	case StatusCompleted:
		return next == StatusRolledBack
	}
	if next == StatusRolledBack {
		return false
	}
	return rank[next] > rank[s]
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.Errorf("decoding status: %w", err)
	}
	if !Status(str).Valid() {
		return errors.Errorf("unknown operation status %q", str)
	}
	*s = Status(str)
	return nil
}

// ParseStatus parses a user supplied status filter
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", errors.Errorf("unknown operation status %q", s)
	}
	return st, nil
}

// 📦 Operation is one requested filesystem mutation tracked by the backend
type Operation struct {
	ID                 string     `json:"id"`
	Kind               Kind       `json:"operation_type"`
	SourcePath         string     `json:"source_path"`
	TargetPath         string     `json:"target_path,omitempty"`
	BackupPath         string     `json:"backup_path,omitempty"`
	Status             Status     `json:"status"`
	AffectedSeriesIDs  []string   `json:"affected_series_ids,omitempty"`
	AffectedChapterIDs []string   `json:"affected_chapter_ids,omitempty"`
	ErrorMessage       string     `json:"error_message,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// Validate checks the record invariants
func (o *Operation) Validate() error {
	if o.ID == "" {
		return errors.New("operation id is empty")
	}
	if !o.Kind.Valid() {
		return errors.Errorf("operation %s: unknown kind %q", o.ID, o.Kind)
	}
	if !o.Status.Valid() {
		return errors.Errorf("operation %s: unknown status %q", o.ID, o.Status)
	}
	if o.SourcePath == "" {
		return errors.Errorf("operation %s: source path is empty", o.ID)
	}
	if o.Kind.NeedsTarget() && o.TargetPath == "" {
		return errors.Errorf("operation %s: %s requires a target path", o.ID, o.Kind)
	}
	if !o.Kind.NeedsTarget() && o.TargetPath != "" {
		return errors.Errorf("operation %s: delete must not carry a target path", o.ID)
	}
	if o.BackupPath != "" && o.Status != StatusCompleted && o.Status != StatusRolledBack {
		return errors.Errorf("operation %s: backup path present in status %s", o.ID, o.Status)
	}
	if o.ErrorMessage != "" && o.Status != StatusFailed {
		return errors.Errorf("operation %s: error message present in status %s", o.ID, o.Status)
	}
	return nil
}

// CanRollback reports whether a rollback may be offered for this operation
func (o *Operation) CanRollback() bool {
	return o.Status == StatusCompleted && o.BackupPath != ""
}

// 🛠️ CreateRequest is the body of a create call
type CreateRequest struct {
	Kind                Kind   `json:"operation_type"`
	SourcePath          string `json:"source_path"`
	TargetPath          string `json:"target_path,omitempty"`
	CreateBackup        bool   `json:"create_backup"`
	ValidateConsistency bool   `json:"validate_consistency"`
}

// Validate checks the create request before it is sent
func (r *CreateRequest) Validate() error {
	if !r.Kind.Valid() {
		return errors.Errorf("unknown operation kind %q", r.Kind)
	}
	if r.SourcePath == "" {
		return errors.New("source path is required")
	}
	if !path.IsAbs(r.SourcePath) {
		return errors.Errorf("source path %q must be absolute", r.SourcePath)
	}
	if r.Kind.NeedsTarget() {
		if r.TargetPath == "" {
			return errors.Errorf("target path is required for %s", r.Kind)
		}
		if !path.IsAbs(r.TargetPath) {
			return errors.Errorf("target path %q must be absolute", r.TargetPath)
		}
	} else if r.TargetPath != "" {
		return errors.New("target path must be empty for delete")
	}
	return nil
}

// ▶️ ExecuteRequest is the body of an execute call
type ExecuteRequest struct {
	Confirmed           bool   `json:"confirmed"`
	ConfirmationMessage string `json:"confirmation_message"`
}

// 🔎 ListFilter narrows a list call; zero values mean no filter
type ListFilter struct {
	Status Status
	Kind   Kind
	Limit  int
	Offset int
}

// ListResult is one page of operations
type ListResult struct {
	Operations []Operation `json:"operations"`
	Total      int         `json:"total"`
}

// CleanupResult reports how many old operations the backend removed
type CleanupResult struct {
	CleanedCount int `json:"cleaned_count"`
}
