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
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readnext-io/readnext/model"
)

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig("config.toml.template")
	require.NoError(t, err)

	// [data]
	assert.Equal(t, "readnext.db", config.Data.EventStore)
	assert.Equal(t, ",", config.Data.CSVSep)
	assert.False(t, config.Data.CSVHeader)
	// [train]
	assert.Equal(t, "als", config.Train.Model)
	assert.Equal(t, "readnext.model", config.Train.ModelPath)
	assert.Equal(t, 0.05, config.Train.Lr)
	assert.Equal(t, 0.1, config.Train.Reg)
	assert.Equal(t, 20, config.Train.NEpochs)
	assert.Equal(t, 20, config.Train.NFactors)
	assert.Equal(t, 0, config.Train.RandomState)
	assert.Equal(t, 0.1, config.Train.InitStdDev)
	assert.Equal(t, 40.0, config.Train.Alpha)
	assert.Equal(t, 1, config.Train.Jobs)
	assert.Equal(t, 10, config.Train.Verbose)
	assert.Equal(t, 100, config.Train.Candidates)
	assert.Equal(t, 10, config.Train.TopK)
	assert.Equal(t, 10, config.Train.SearchTrials)
	// [query]
	assert.Equal(t, 10, config.Query.N)
}

func TestSetDefault(t *testing.T) {
	setDefault()
	viper.SetConfigType("toml")
	err := viper.ReadConfig(strings.NewReader(""))
	assert.NoError(t, err)
	var config Config
	err = viper.Unmarshal(&config)
	assert.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), &config)
}

type environmentVariable struct {
	key   string
	value string
}

func TestBindEnv(t *testing.T) {
	variables := []environmentVariable{
		{"READNEXT_EVENT_STORE", "<event_store>"},
		{"READNEXT_MODEL", "bpr"},
		{"READNEXT_MODEL_PATH", "<model_path>"},
		{"READNEXT_TRAIN_JOBS", "4"},
	}
	for _, variable := range variables {
		t.Setenv(variable.key, variable.value)
	}

	config, err := LoadConfig("config.toml.template")
	require.NoError(t, err)
	assert.Equal(t, "<event_store>", config.Data.EventStore)
	assert.Equal(t, "bpr", config.Train.Model)
	assert.Equal(t, "<model_path>", config.Train.ModelPath)
	assert.Equal(t, 4, config.Train.Jobs)

	// check default values are kept
	assert.Equal(t, 10, config.Query.N)
}

func TestGetParams(t *testing.T) {
	config := GetDefaultConfig()
	params := config.Train.GetParams()
	assert.Equal(t, 20, params.GetInt(model.NFactors, 0))
	assert.Equal(t, 20, params.GetInt(model.NEpochs, 0))
	assert.Equal(t, float32(0.1), params.GetFloat32(model.Reg, 0))
	assert.Equal(t, float32(40), params.GetFloat32(model.Alpha, 0))
	assert.Equal(t, int64(0), params.GetInt64(model.RandomState, -1))
}

func TestGetFitConfig(t *testing.T) {
	config := GetDefaultConfig()
	fitConfig := config.Train.GetFitConfig()
	assert.Equal(t, 1, fitConfig.Jobs)
	assert.Equal(t, 10, fitConfig.Verbose)
	assert.Equal(t, 100, fitConfig.Candidates)
	assert.Equal(t, 10, fitConfig.TopK)
}
