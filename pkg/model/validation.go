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

	"gitlab.com/tozd/go/errors"
)

// ⚠️ RiskLevel is the backend's assessment of how dangerous an operation is
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Valid reports whether r is a known risk level
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Errorf("decoding risk level: %w", err)
	}
	if !RiskLevel(s).Valid() {
		return errors.Errorf("unknown risk level %q", s)
	}
	*r = RiskLevel(s)
	return nil
}

// Conflict is a structured validation conflict
type Conflict struct {
	Type    string `json:"type"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// 🔍 ValidationResult is the backend risk and impact assessment for one
// operation. A new result always supersedes the previous one.
type ValidationResult struct {
	IsValid                  bool       `json:"is_valid"`
	Warnings                 []string   `json:"warnings"`
	Errors                   []string   `json:"errors"`
	Conflicts                []Conflict `json:"conflicts"`
	AffectedSeriesCount      int        `json:"affected_series_count"`
	AffectedChapterCount     int        `json:"affected_chapter_count"`
	RiskLevel                RiskLevel  `json:"risk_level"`
	RequiresConfirmation     bool       `json:"requires_confirmation"`
	EstimatedDurationSeconds *float64   `json:"estimated_duration,omitempty"`
	EstimatedDiskUsageMB     *float64   `json:"estimated_disk_usage_mb,omitempty"`
}

// Validate checks that the result is well formed
func (v *ValidationResult) Validate() error {
	if v.AffectedSeriesCount < 0 || v.AffectedChapterCount < 0 {
		return errors.New("affected counts must not be negative")
	}
	if v.RiskLevel == "" {
		v.RiskLevel = RiskLow
	}
	return nil
}
