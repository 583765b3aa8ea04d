// Copyright 2026 readnext Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	config := GetDefaultConfig()
	assert.NoError(t, config.Validate())

	config = GetDefaultConfig()
	config.Train.Model = "svd"
	err := config.Validate()
	assert.True(t, errors.Is(err, errors.NotValid))

	config = GetDefaultConfig()
	config.Train.NFactors = 0
	assert.Error(t, config.Validate())

	config = GetDefaultConfig()
	config.Query.N = -1
	assert.Error(t, config.Validate())

	config = GetDefaultConfig()
	config.Data.EventStore = ""
	assert.Error(t, config.Validate())
}
