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
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/clientele/clients"
	"github.com/tomoncle/clientele/types"
)

// AddClient inserts the posted client as active with a store-assigned id,
// after the service's validation hook accepts it.
func (h *Handlers) AddClient(w http.ResponseWriter, r *http.Request) {
	var in clients.NewClient
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if err := h.clients.Add(r.Context(), in.Client()); err != nil {
		h.fail(w, "add", err)
		return
	}
	writeSuccess(w, http.StatusCreated)
}

// SearchClients returns one page of clients matching the query parameters.
func (h *Handlers) SearchClients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria, err := parseCriteria(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page := 1
	if raw := q.Get("page"); raw != "" {
		if page, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "page must be an integer")
			return
		}
	}

	result, err := h.clients.Search(r.Context(), criteria, page)
	if err != nil {
		h.fail(w, "search_by", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetClient returns the client with the path identifier.
func (h *Handlers) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	client, err := h.clients.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "search_by_id", err)
		return
	}
	if client == nil {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	writeJSON(w, http.StatusOK, client)
}

type updateClientRequest struct {
	clients.NewClient
	Active *bool `json:"active"`
}

// UpdateClient replaces every column of the client with the path identifier.
// An omitted "active" keeps the client active.
func (h *Handlers) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in updateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	client := in.NewClient.Client()
	client.ClientID = &id
	if in.Active != nil {
		client.Active = *in.Active
	}
	if err := h.clients.Update(r.Context(), client); err != nil {
		h.fail(w, "update", err)
		return
	}
	writeSuccess(w, http.StatusOK)
}

// DeleteClient deactivates the client, or removes its row when
// ?permanent=true.
func (h *Handlers) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	permanent, _ := strconv.ParseBool(r.URL.Query().Get("permanent"))

	client := &clients.Client{ClientID: &id}
	var err error
	if permanent {
		err = h.clients.Remove(r.Context(), client)
	} else {
		err = h.clients.Deactivate(r.Context(), client)
	}
	if err != nil {
		h.fail(w, "delete", err)
		return
	}
	writeSuccess(w, http.StatusOK)
}

// Healthz reports database health, 503 when unhealthy.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	status := h.health(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (h *Handlers) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	entry := h.log.WithFields(logrus.Fields{"op": op, "status": status}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}
	writeError(w, status, err.Error())
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return 0, false
	}
	return id, true
}

func parseCriteria(q url.Values) (clients.ClientCriteria, error) {
	var c clients.ClientCriteria
	if raw := q.Get(clients.ColumnID); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c, fmt.Errorf("invalid %s: %q", clients.ColumnID, raw)
		}
		c.ClientID = &id
	}
	if raw := q.Get(clients.ColumnActive); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return c, fmt.Errorf("invalid %s: %q", clients.ColumnActive, raw)
		}
		c.Active = &active
	}
	if q.Has(clients.ColumnUsername) {
		username := q.Get(clients.ColumnUsername)
		c.Username = &username
	}
	if q.Has(clients.ColumnPassword) {
		pwd := q.Get(clients.ColumnPassword)
		c.Password = &pwd
	}
	if raw := q.Get(clients.ColumnBirthDate); raw != "" {
		d, err := types.ParseDate(raw)
		if err != nil {
			return c, fmt.Errorf("invalid %s: %q", clients.ColumnBirthDate, raw)
		}
		c.BirthDate = &d
	}
	return c, nil
}
