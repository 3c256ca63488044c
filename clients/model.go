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
	"github.com/tomoncle/clientele/database"
	"github.com/tomoncle/clientele/types"
	"github.com/uptrace/bun"
)

// Column names of the clients table.
const (
	ColumnID        = "client_id"
	ColumnActive    = "active"
	ColumnUsername  = "username"
	ColumnPassword  = "pwd"
	ColumnBirthDate = "birth_date"
)

// Client is a persisted client record.
type Client struct {
	bun.BaseModel `bun:"table:clients,alias:c"`

	ClientID  *int64     `bun:"client_id,pk,autoincrement" json:"client_id"`
	Active    bool       `bun:"active,notnull" json:"active"`
	Username  string     `bun:"username,notnull,unique" json:"username"`
	Password  string     `bun:"pwd,notnull" json:"pwd"`
	BirthDate types.Date `bun:"birth_date,type:date,notnull" json:"birth_date"`
}

func (c *Client) Identifier() *int64 { return c.ClientID }

func (c *Client) IsActive() bool { return c.Active }

func (c *Client) SetActive(active bool) { c.Active = active }

// NewClient is the shape accepted by creation flows; the identifier and
// active flag are not caller-controlled.
type NewClient struct {
	Username  string     `json:"username"`
	Password  string     `json:"pwd"`
	BirthDate types.Date `json:"birth_date"`
}

// Client builds the record to insert: no identifier, active.
func (n NewClient) Client() *Client {
	return &Client{
		Active:    true,
		Username:  n.Username,
		Password:  n.Password,
		BirthDate: n.BirthDate,
	}
}

// ClientCriteria filters clients by equality on any subset of columns.
type ClientCriteria struct {
	ClientID  *int64      `json:"client_id,omitempty"`
	Active    *bool       `json:"active,omitempty"`
	Username  *string     `json:"username,omitempty"`
	Password  *string     `json:"pwd,omitempty"`
	BirthDate *types.Date `json:"birth_date,omitempty"`
}

func (c ClientCriteria) Filters() []types.Filter {
	return []types.Filter{
		types.Eq(ColumnID, c.ClientID),
		types.Eq(ColumnActive, c.Active),
		types.Eq(ColumnUsername, c.Username),
		types.Eq(ColumnPassword, c.Password),
		types.Eq(ColumnBirthDate, c.BirthDate),
	}
}

func init() {
	database.RegisteredModel(database.NewModelAdapter((*Client)(nil), 10))
}
