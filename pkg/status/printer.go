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
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/walteh/fileops/pkg/workflow"
	"gitlab.com/tozd/go/errors"
)

// ConfirmFunc asks the user a yes or no question
type ConfirmFunc func(prompt string) (bool, error)

// 🖨️ Printer draws views on a terminal with pterm
type Printer struct {
	out       io.Writer
	formatter Formatter
	confirm   ConfirmFunc
}

// NewPrinter creates a printer that asks for confirmation interactively
func NewPrinter(out io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	return &Printer{
		out:       out,
		formatter: NewDefaultFormatter(),
		confirm:   interactiveConfirm,
	}
}

// WithConfirm replaces the confirmation prompt, e.g. to auto-approve
func (p *Printer) WithConfirm(fn ConfirmFunc) *Printer {
	p.confirm = fn
	return p
}

func interactiveConfirm(prompt string) (bool, error) {
	return pterm.DefaultInteractiveConfirm.
		WithDefaultText(prompt).
		WithDefaultValue(false).
		Show()
}

func (p *Printer) prefixed(base pterm.PrefixPrinter, text string) *pterm.PrefixPrinter {
	return base.WithPrefix(pterm.Prefix{Text: text, Style: base.Prefix.Style}).WithWriter(p.out)
}

// Show prints the parts of a view that changed the user's picture
func (p *Printer) Show(v View) {
	switch {
	case v.Error != nil:
		if v.Error.Kind.Retryable() {
			p.prefixed(pterm.Warning, "🔌").Println(p.formatter.FormatError(v.Error))
		} else {
			p.prefixed(pterm.Error, "❌").Println(p.formatter.FormatError(v.Error))
		}
		for _, d := range v.Error.Details {
			p.prefixed(pterm.Error, "  ").Println(d)
		}
	case v.Loading:
		p.prefixed(pterm.Info, "⏳").Println(v.StepLabel + "...")
	case v.Step == workflow.StepConfirming && v.Validation != nil:
		base := pterm.Info
		switch v.Risk {
		case RiskDanger:
			base = pterm.Error
		case RiskWarning:
			base = pterm.Warning
		}
		p.prefixed(base, "🔍").Println(p.formatter.FormatValidation(*v.Validation))
	case v.Operation != nil:
		p.prefixed(pterm.Success, "📦").Println(p.formatter.FormatOperation(*v.Operation))
	default:
		p.prefixed(pterm.Info, "📝").Println(v.StepLabel)
	}
}

// Ask asks a yes or no question
func (p *Printer) Ask(prompt string) (bool, error) {
	ok, err := p.confirm(prompt)
	if err != nil {
		return false, errors.Errorf("asking for confirmation: %w", err)
	}
	return ok, nil
}

// Confirm asks whether the validated operation should run. High risk
// operations name the risk in the prompt.
func (p *Printer) Confirm(v View) (bool, error) {
	if !v.Actions.Execute || v.Operation == nil {
		return false, errors.Errorf("nothing to confirm at step %s", v.Step)
	}
	prompt := fmt.Sprintf("Execute %s of %s?", v.Operation.Kind, v.Operation.SourcePath)
	if v.NeedsConfirmation() {
		prompt = fmt.Sprintf("This is a %s risk operation. %s", v.Validation.RiskLevel, prompt)
	}
	return p.Ask(prompt)
}
