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

package types

import (
	"errors"
	"math"
)

// DefaultPageSize is the number of rows per page when none is configured.
const DefaultPageSize = 15

// ErrInvalidPage is returned for page numbers below 1.
var ErrInvalidPage = errors.New("page number must be at least 1")

// PageRequest describes a 1-based page, its size, the filters to apply,
// and the ordering columns.
type PageRequest struct {
	page     int
	pageSize int
	filters  []Filter
	orders   []string // "username ASC", "client_id ASC"
}

// NewPageRequest constructs a PageRequest. No clamping is applied; call
// Validate before using it against a store.
func NewPageRequest(page int, pageSize int, filters []Filter, orders []string) *PageRequest {
	return &PageRequest{page, pageSize, filters, orders}
}

func (p *PageRequest) Validate() error {
	if p.page < 1 {
		return ErrInvalidPage
	}
	return nil
}

func (p *PageRequest) GetPage() int { return p.page }

func (p *PageRequest) GetPageSize() int { return p.pageSize }

// GetOffset returns the row offset of the page. It saturates at math.MaxInt
// instead of wrapping for page numbers too large to address.
func (p *PageRequest) GetOffset() int {
	if p.page < 1 || p.pageSize <= 0 {
		return 0
	}
	if p.page-1 > math.MaxInt/p.pageSize {
		return math.MaxInt
	}
	return (p.page - 1) * p.pageSize
}

// Beyond reports whether the page starts past the last of total rows.
func (p *PageRequest) Beyond(total int) bool {
	return p.page > p.TotalPages(total)
}

func (p *PageRequest) GetFilters() []Filter { return p.filters }

func (p *PageRequest) GetOrders() []string { return p.orders }

// TotalPages returns the page count for total matching rows.
func (p *PageRequest) TotalPages(total int) int {
	return CalculateTotalPages(total, p.pageSize)
}

// CalculateTotalPages rounds total/pageSize up. A non-positive page size
// yields zero pages.
func CalculateTotalPages(total int, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// SearchResult is one page of a filtered search together with the criteria
// that produced it. Result holds the rows as a JSON array.
type SearchResult[C any] struct {
	TotalPages int     `json:"total_pages"`
	Page       int     `json:"page"`
	Criteria   C       `json:"criteria"`
	Result     Payload `json:"result"`
}

// NewSearchResult builds a SearchResult without validating its arguments.
func NewSearchResult[C any](page int, totalPages int, criteria C, result Payload) *SearchResult[C] {
	return &SearchResult[C]{
		TotalPages: totalPages,
		Page:       page,
		Criteria:   criteria,
		Result:     result,
	}
}
