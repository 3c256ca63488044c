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

// Identifiable is implemented by entities that can be targeted by row.
// Identifier returns nil until the store has assigned one.
type Identifiable[ID any] interface {
	Identifier() *ID
}

// SoftDeletable is implemented by entities carrying an active flag that can
// be cleared instead of removing the row.
type SoftDeletable interface {
	IsActive() bool
	SetActive(active bool)
}

// Filter is a single optional equality predicate on a column.
type Filter struct {
	Column string
	Value  interface{}
	Set    bool
}

// Eq returns a filter on column that is only applied when v is non-nil.
func Eq[V any](column string, v *V) Filter {
	if v == nil {
		return Filter{Column: column}
	}
	return Filter{Column: column, Value: *v, Set: true}
}

// Criteria is implemented by per-entity search objects. Every field is
// optional; Filters lists them all, set or not.
type Criteria interface {
	Filters() []Filter
}

// ActiveFilters returns the subset of filters that carry a value.
func ActiveFilters(c Criteria) []Filter {
	all := c.Filters()
	active := make([]Filter, 0, len(all))
	for _, f := range all {
		if f.Set {
			active = append(active, f)
		}
	}
	return active
}
