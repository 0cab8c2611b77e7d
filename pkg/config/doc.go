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

/*
Package config loads the fileops client configuration.

🎯 Purpose:
- Tells the client where the backend is and how long to wait for it
- Seeds the operation form defaults (backup, consistency check)
- Lists the protected path globs no operation may touch
- Controls logging and the background list refresh

🔄 Flow:
1. Load picks a Parser by file extension (.yaml, .yml, .json, .hcl)
2. The parser decodes the file, rejecting unknown keys
3. Validate normalizes paths, parses durations and fills defaults

🤝 Interfaces:
- Parser: one per format, registered from init

🔍 Example (HCL):

	server {
	  base_url        = "http://localhost:8000/api"
	  token           = env.FILEOPS_TOKEN
	  request_timeout = "30s"
	}

	defaults {
	  create_backup = true
	}

	protected_paths = ["/library/system/**"]

🔍 Example (YAML):

	server:
	  base_url: http://localhost:8000/api
	refresh:
	  interval: 1m
	  page_size: 100
	log:
	  level: debug
	  file: /var/log/fileops.log
*/
package config
