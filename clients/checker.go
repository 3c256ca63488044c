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
	"context"
	"errors"

	"github.com/tomoncle/clientele/repository"
)

var (
	ErrUsernameRequired  = errors.New("username is required")
	ErrBirthDateRequired = errors.New("birth_date is required")
)

// RequiredFields rejects clients without a username or a birth date.
type RequiredFields struct{}

var _ repository.Checker[Client] = RequiredFields{}

func (RequiredFields) ItemIsValid(_ context.Context, c *Client) error {
	if c.Username == "" {
		return ErrUsernameRequired
	}
	if c.BirthDate.IsZero() {
		return ErrBirthDateRequired
	}
	return nil
}
