/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/clientele"
	"github.com/tomoncle/clientele/clients"
	"github.com/tomoncle/clientele/database"
	"github.com/tomoncle/clientele/utils"
)

// Config wires the router to its collaborators. Health defaults to the
// global database health check and Gatherer to the default registry.
type Config struct {
	Clients  clientele.Service[clients.Client, clients.ClientCriteria]
	Health   func(ctx context.Context) *database.HealthStatus
	Gatherer prometheus.Gatherer
}

// Handlers serves the client HTTP endpoints.
type Handlers struct {
	clients clientele.Service[clients.Client, clients.ClientCriteria]
	health  func(ctx context.Context) *database.HealthStatus
	log     *logrus.Logger
}

// NewRouter builds the HTTP routes:
//
//	POST   /clients              add a client
//	GET    /clients              search by query criteria, ?page=N
//	GET    /clients/{id}         fetch one client
//	PUT    /clients/{id}         replace a client
//	DELETE /clients/{id}         deactivate, or remove with ?permanent=true
//	GET    /healthz              database health
//	GET    /metrics              prometheus metrics
//
// PUT and DELETE on an identifier with no row succeed with zero rows
// affected and answer 200, as the underlying statements do.
func NewRouter(cfg Config) http.Handler {
	h := &Handlers{
		clients: cfg.Clients,
		health:  cfg.Health,
		log:     utils.NewLogger("API"),
	}
	if h.health == nil {
		h.health = database.GetHealthStatus
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Route("/clients", func(r chi.Router) {
		r.Post("/", h.AddClient)
		r.Get("/", h.SearchClients)
		r.Get("/{id}", h.GetClient)
		r.Put("/{id}", h.UpdateClient)
		r.Delete("/{id}", h.DeleteClient)
	})
	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

func (h *Handlers) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).Round(time.Microsecond).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}
