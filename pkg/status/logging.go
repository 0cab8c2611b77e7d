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

	"github.com/fatih/color"
	"github.com/walteh/fileops/pkg/workflow"
)

// 🎨 Display configuration
const (
	stepIndent = 4  // spaces to indent step lines
	labelWidth = 20 // width for the step label
	idWidth    = 12 // width for the operation id
)

// 🎯 FormatStep formats a one line summary of a view for display
func FormatStep(v View) string {
	var prefix string
	switch {
	case v.Loading:
		prefix = color.BlueString("⟳")
	case v.Error != nil:
		prefix = color.RedString("✗")
	case v.Step == workflow.StepCompleted:
		prefix = color.GreenString("✓")
	case v.Step == workflow.StepConfirming:
		prefix = riskColor(v.Risk)("?")
	default:
		prefix = color.HiBlackString("-")
	}

	id := "-"
	if v.Operation != nil {
		id = v.Operation.ID
	}

	parts := []string{
		strings.Repeat(" ", stepIndent) + prefix,
		fmt.Sprintf("%-*s", labelWidth, v.StepLabel),
		fmt.Sprintf("%-*s", idWidth, id),
	}
	if v.Validation != nil {
		parts = append(parts, riskColor(v.Risk)(string(v.Validation.RiskLevel)))
	}
	return strings.TrimRight(strings.Join(parts, " "), " ")
}

func riskColor(style RiskStyle) func(format string, a ...interface{}) string {
	switch style {
	case RiskDanger:
		return color.RedString
	case RiskWarning:
		return color.YellowString
	default:
		return color.CyanString
	}
}
