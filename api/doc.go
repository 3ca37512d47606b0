// Copyright 2025 Poiesic Systems
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

// Package api serves permit searches over HTTP.
//
// Routes:
//
//	GET /api/search               search permits (see openapi.json for parameters)
//	GET /api/search/openapi.json  OpenAPI 3 document
//	GET /api/search/docs          interactive API documentation
//	GET /health                   store reachability and permit count
//	GET /metrics                  Prometheus metrics
//
// Failed store queries answer 500 with {"error":"Database query failed"};
// malformed parameters answer 400 with an error message.
package api
