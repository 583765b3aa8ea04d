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
	"github.com/readnext-io/readnext/model/cf"
	"github.com/readnext-io/readnext/storage/events"
)

// Settings bundles the configuration with the runtime state shared by the
// commands.
type Settings struct {
	Config *Config

	// event store
	EventStore *events.Store

	// trained model
	Model cf.MatrixFactorization
}

func NewSettings() *Settings {
	return &Settings{
		Config: GetDefaultConfig(),
	}
}
