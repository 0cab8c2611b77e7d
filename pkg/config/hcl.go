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

package config

import (
	"context"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(filename)), ".hcl")
}

type hclConfig struct {
	Server struct {
		BaseURL        string `hcl:"base_url"`
		Token          string `hcl:"token,optional"`
		RequestTimeout string `hcl:"request_timeout,optional"`
	} `hcl:"server,block"`
	Defaults *struct {
		CreateBackup        *bool `hcl:"create_backup,optional"`
		ValidateConsistency *bool `hcl:"validate_consistency,optional"`
	} `hcl:"defaults,block"`
	Refresh *struct {
		Interval string `hcl:"interval,optional"`
		PageSize int    `hcl:"page_size,optional"`
	} `hcl:"refresh,block"`
	Log *struct {
		Level      string `hcl:"level,optional"`
		File       string `hcl:"file,optional"`
		MaxSizeMB  int    `hcl:"max_size_mb,optional"`
		MaxBackups int    `hcl:"max_backups,optional"`
		MaxAgeDays int    `hcl:"max_age_days,optional"`
	} `hcl:"log,block"`
	ProtectedPaths []string `hcl:"protected_paths,optional"`
}

// 📝 Parse parses the config from HCL. The process environment is
// available as the env object, e.g. token = env.FILEOPS_TOKEN.
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envObject(os.Environ()),
		},
	}

	var raw hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &raw)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	cfg := &Config{
		Server: ServerConfig{
			BaseURL:        raw.Server.BaseURL,
			Token:          raw.Server.Token,
			RequestTimeout: raw.Server.RequestTimeout,
		},
		ProtectedPaths: raw.ProtectedPaths,
	}
	if raw.Defaults != nil {
		cfg.Defaults = DefaultsConfig{
			CreateBackup:        raw.Defaults.CreateBackup,
			ValidateConsistency: raw.Defaults.ValidateConsistency,
		}
	}
	if raw.Refresh != nil {
		cfg.Refresh = RefreshConfig{
			Interval: raw.Refresh.Interval,
			PageSize: raw.Refresh.PageSize,
		}
	}
	if raw.Log != nil {
		cfg.Log = LogConfig{
			Level:      raw.Log.Level,
			File:       raw.Log.File,
			MaxSizeMB:  raw.Log.MaxSizeMB,
			MaxBackups: raw.Log.MaxBackups,
			MaxAgeDays: raw.Log.MaxAgeDays,
		}
	}

	return cfg, nil
}

// envObject turns KEY=VALUE pairs into a cty object
func envObject(environ []string) cty.Value {
	vals := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vals[k] = cty.StringVal(v)
	}
	return cty.ObjectVal(vals)
}
