// Package api wires the run-tracking endpoints onto the router.
package api

import (
	"ast-pipeline/internal/api/handler"
	"ast-pipeline/internal/store"
	"ast-pipeline/pkg/router"

	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "ast-pipeline/docs" // swagger spec registration
)

// NewRouter builds the API router backed by the given run store.
func NewRouter(s *store.Store, log *zap.Logger) *router.Router {
	h := &handler.RunHandler{Store: s, Log: log}

	r := router.New(log)
	r.POST("/api/v1/runs", h.CreateRun)
	r.GET("/api/v1/runs", h.ListRuns)
	// More specific routes first: registration order breaks wildcard ties.
	r.GET("/api/v1/runs/*/errors", h.GetRunErrors)
	r.GET("/api/v1/runs/*/artifacts", h.GetRunArtifacts)
	r.GET("/api/v1/runs/*", h.GetRun)
	r.GET("/swagger/*", router.HandlerFunc(httpSwagger.WrapHandler))
	return r
}
