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

package status

import (
	"fmt"
	"strings"

	"github.com/walteh/fileops/pkg/model"
	"github.com/walteh/fileops/pkg/workflow"
	"gitlab.com/tozd/go/errors"
)

// 🎨 Formatter turns views into short human messages
type Formatter interface {
	// FormatOperation formats an operation status message
	FormatOperation(op model.Operation) string
	// FormatValidation formats a validation summary
	FormatValidation(res model.ValidationResult) string
	// FormatError formats an error message
	FormatError(err error) string
}

// DefaultFormatter provides a default implementation of Formatter
type DefaultFormatter struct{}

// NewDefaultFormatter creates a new DefaultFormatter
func NewDefaultFormatter() *DefaultFormatter {
	return &DefaultFormatter{}
}

func describe(op model.Operation) string {
	if op.TargetPath != "" {
		return fmt.Sprintf("%s %s → %s", op.Kind, op.SourcePath, op.TargetPath)
	}
	return fmt.Sprintf("%s %s", op.Kind, op.SourcePath)
}

// FormatOperation formats an operation status message with emojis
func (f *DefaultFormatter) FormatOperation(op model.Operation) string {
	switch op.Status {
	case model.StatusCompleted:
		if op.BackupPath != "" {
			return fmt.Sprintf("✅ Completed %s (backup %s)", describe(op), op.BackupPath)
		}
		return fmt.Sprintf("✅ Completed %s", describe(op))
	case model.StatusFailed:
		if op.ErrorMessage != "" {
			return fmt.Sprintf("❌ Failed %s: %s", describe(op), op.ErrorMessage)
		}
		return fmt.Sprintf("❌ Failed %s", describe(op))
	case model.StatusRolledBack:
		return fmt.Sprintf("↩️  Rolled back %s", describe(op))
	case model.StatusInProgress:
		return fmt.Sprintf("⏳ Running %s", describe(op))
	case model.StatusValidated:
		return fmt.Sprintf("🔍 Validated %s", describe(op))
	default:
		return fmt.Sprintf("📝 Pending %s", describe(op))
	}
}

// FormatValidation formats a validation summary with risk and counts
func (f *DefaultFormatter) FormatValidation(res model.ValidationResult) string {
	var b strings.Builder
	risk := res.RiskLevel
	if risk == "" {
		risk = model.RiskLow
	}
	if res.IsValid {
		fmt.Fprintf(&b, "🔍 Valid, %s risk", risk)
	} else {
		fmt.Fprintf(&b, "🚫 Invalid, %s risk", risk)
	}
	fmt.Fprintf(&b, ", %d series, %d chapters affected", res.AffectedSeriesCount, res.AffectedChapterCount)
	if res.EstimatedDurationSeconds != nil {
		fmt.Fprintf(&b, ", ~%.0fs", *res.EstimatedDurationSeconds)
	}
	if res.EstimatedDiskUsageMB != nil {
		fmt.Fprintf(&b, ", ~%.1f MB", *res.EstimatedDiskUsageMB)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "\n⚠️  %s", w)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(&b, "\n❌ %s", e)
	}
	for _, c := range res.Conflicts {
		fmt.Fprintf(&b, "\n⚔️  %s %s: %s", c.Type, c.Path, c.Message)
	}
	return b.String()
}

// FormatError formats an error message with emoji
func (f *DefaultFormatter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	var werr *workflow.Error
	if errors.As(err, &werr) {
		switch {
		case werr.Kind == workflow.KindRejected:
			return fmt.Sprintf("🚫 %s (retry available)", werr.Message)
		case werr.Kind.Retryable():
			return fmt.Sprintf("🔌 %s (retry available)", werr.Message)
		}
		return fmt.Sprintf("❌ %s", werr.Message)
	}
	return fmt.Sprintf("❌ Error: %v", err)
}
