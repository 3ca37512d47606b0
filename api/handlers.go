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

package api

import (
	_ "embed"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/permitsearch/search"
)

//go:embed openapi.json
var openAPIDocument []byte

const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Food Truck Search API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({ url: "/api/search/openapi.json", dom_id: "#swagger-ui" });
  </script>
</body>
</html>
`

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Permits int    `json:"permits"`
}

// handleSearch serves GET /api/search.
func (s *Server) handleSearch(c *gin.Context) {
	criteria, err := s.parseCriteria(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	results, err := s.searcher.SearchWithMonitor(c.Request.Context(), criteria, s.metrics.monitor())
	if err != nil {
		if errors.Is(err, search.ErrQueryFailed) {
			s.logger.Error("search failed", "err", err, "requestID", c.GetString(requestIDHeader))
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "Database query failed"})
			return
		}
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, results)
}

// handleOpenAPI serves the OpenAPI document.
func (s *Server) handleOpenAPI(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", openAPIDocument)
}

// handleDocs serves an interactive page for the OpenAPI document.
func (s *Server) handleDocs(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(docsPage))
}

// handleHealth reports whether the store can be read.
func (s *Server) handleHealth(c *gin.Context) {
	if s.counter == nil {
		c.JSON(http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	n, err := s.counter.CountPermits(c.Request.Context())
	if err != nil {
		s.logger.Warn("health check failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, healthResponse{Status: "ok", Permits: n})
}
