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
	"errors"
	"net/http"

	"github.com/tomoncle/clientele/database"
	"github.com/tomoncle/clientele/repository"
	"github.com/tomoncle/clientele/types"
)

type errorBody struct {
	Error string `json:"error"`
}

type successBody struct {
	Success bool `json:"success"`
}

// statusFor maps repository errors to HTTP status codes.
func statusFor(err error) int {
	var (
		connErr    *repository.ConnectionError
		missingErr *repository.MissingIdentifierError
		validErr   *repository.ValidationError
		storeErr   *repository.StorageError
	)
	switch {
	case errors.As(err, &connErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &missingErr), errors.As(err, &validErr), errors.Is(err, types.ErrInvalidPage):
		return http.StatusBadRequest
	case errors.As(err, &storeErr):
		if database.IsDuplicateKey(storeErr.Err) {
			return http.StatusConflict
		}
		if is, kind := database.IsSqlError(storeErr.Err); is && kind == database.NotNullViolationErr {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeSuccess(w http.ResponseWriter, status int) {
	writeJSON(w, status, successBody{Success: true})
}
