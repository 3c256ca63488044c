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

package clients

import (
	"github.com/tomoncle/clientele/repository"
)

// PageSize is the number of clients per search page.
const PageSize = 15

// Repository is the full capability set for clients.
type Repository = repository.Repository[Client, ClientCriteria]

// DefaultOptions binds the generic repository to the clients table.
func DefaultOptions() repository.Options {
	return repository.Options{
		PageSize:     PageSize,
		OrderBy:      ColumnUsername,
		IDColumn:     ColumnID,
		ActiveColumn: ColumnActive,
	}
}

// NewRepository returns the client repository. A nil checker accepts every
// client on insert.
func NewRepository(provider repository.ConnectionProvider, checker repository.Checker[Client]) Repository {
	return NewRepositoryWithOptions(provider, DefaultOptions(), checker)
}

// NewRepositoryWithOptions is NewRepository with explicit paging options.
func NewRepositoryWithOptions(provider repository.ConnectionProvider, opts repository.Options, checker repository.Checker[Client]) Repository {
	return repository.NewRepository[Client, *Client, ClientCriteria](provider, opts, checker)
}
