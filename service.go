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

package clientele

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/clientele/clients"
	"github.com/tomoncle/clientele/database"
	"github.com/tomoncle/clientele/repository"
	"github.com/tomoncle/clientele/types"
	"github.com/tomoncle/clientele/utils"
)

// Service is the entity-facing facade over a repository; every outcome is logged.
type Service[T any, C types.Criteria] interface {
	// Add inserts a new entity after it passes the validation hook.
	Add(ctx context.Context, item *T) error

	// Update overwrites every column of the row matching the entity's identifier.
	Update(ctx context.Context, item *T) error

	// Deactivate clears the active flag of the row; the row stays.
	Deactivate(ctx context.Context, item *T) error

	// Remove deletes the row.
	Remove(ctx context.Context, item *T) error

	// Get returns the entity with the given identifier, or nil if none.
	Get(ctx context.Context, id int64) (*T, error)

	// Search returns one page of entities matching criteria, serialized.
	Search(ctx context.Context, criteria C, page int) (*types.SearchResult[C], error)
}

type baseServiceImpl[T any, C types.Criteria] struct {
	newRepo func() repository.Repository[T, C]
	repo    repository.Repository[T, C]
	once    sync.Once
	log     *logrus.Entry
}

// NewService returns a Service backed by the generic repository bound to
// the global database. The repository is built on first use, so the service
// may be created before database.InitDB.
func NewService[T any, P repository.Entity[T], C types.Criteria](name string, opts repository.Options, checker repository.Checker[T]) Service[T, C] {
	return &baseServiceImpl[T, C]{
		newRepo: func() repository.Repository[T, C] {
			return repository.NewRepository[T, P, C](repository.ProviderFunc(database.Acquire), opts, checker)
		},
		log: utils.NewLogger("SERVICE").WithField("entity", name),
	}
}

// NewServiceWithRepository wraps an existing repository.
func NewServiceWithRepository[T any, C types.Criteria](name string, repo repository.Repository[T, C]) Service[T, C] {
	return &baseServiceImpl[T, C]{
		newRepo: func() repository.Repository[T, C] { return repo },
		log:     utils.NewLogger("SERVICE").WithField("entity", name),
	}
}

// NewClientService returns the client service over the global database.
func NewClientService(checker repository.Checker[clients.Client]) Service[clients.Client, clients.ClientCriteria] {
	return NewService[clients.Client, *clients.Client, clients.ClientCriteria]("client", clients.DefaultOptions(), checker)
}

func (s *baseServiceImpl[T, C]) baseRepo() repository.Repository[T, C] {
	s.once.Do(func() { s.repo = s.newRepo() })
	return s.repo
}

func (s *baseServiceImpl[T, C]) logResult(op string, err error) error {
	if err != nil {
		s.log.WithField("op", op).WithError(err).Warn("operation failed")
		return err
	}
	s.log.WithField("op", op).Debug("operation succeeded")
	return nil
}

func (s *baseServiceImpl[T, C]) Add(ctx context.Context, item *T) error {
	return s.logResult("add", s.baseRepo().Add(ctx, item))
}

func (s *baseServiceImpl[T, C]) Update(ctx context.Context, item *T) error {
	return s.logResult("update", s.baseRepo().Update(ctx, item))
}

func (s *baseServiceImpl[T, C]) Deactivate(ctx context.Context, item *T) error {
	return s.logResult("logically_delete", s.baseRepo().LogicallyDelete(ctx, item))
}

func (s *baseServiceImpl[T, C]) Remove(ctx context.Context, item *T) error {
	return s.logResult("permanently_delete", s.baseRepo().PermanentlyDelete(ctx, item))
}

func (s *baseServiceImpl[T, C]) Get(ctx context.Context, id int64) (*T, error) {
	item, err := s.baseRepo().SearchByID(ctx, id)
	return item, s.logResult("search_by_id", err)
}

func (s *baseServiceImpl[T, C]) Search(ctx context.Context, criteria C, page int) (*types.SearchResult[C], error) {
	result, err := s.baseRepo().SearchBy(ctx, criteria, page)
	return result, s.logResult("search_by", err)
}
