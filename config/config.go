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

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/readnext-io/readnext/model"
	"github.com/readnext-io/readnext/model/cf"
)

// Config is the configuration for the engine.
type Config struct {
	Data  DataConfig  `mapstructure:"data"`
	Train TrainConfig `mapstructure:"train"`
	Query QueryConfig `mapstructure:"query"`
}

// DataConfig describes where reading events come from.
type DataConfig struct {
	// path of the SQLite event store
	EventStore string `mapstructure:"event_store" validate:"required"`
	// CSV separator used by the import command
	CSVSep string `mapstructure:"csv_sep" validate:"required"`
	// whether imported CSV files carry a header line
	CSVHeader bool `mapstructure:"csv_header"`
}

// TrainConfig describes the model and its hyper-parameters.
type TrainConfig struct {
	Model     string `mapstructure:"model" validate:"oneof=als bpr"`
	ModelPath string `mapstructure:"model_path" validate:"required"`
	// hyper-parameters
	Lr          float64 `mapstructure:"lr" validate:"gt=0"`
	Reg         float64 `mapstructure:"reg" validate:"gte=0"`
	NEpochs     int     `mapstructure:"n_epochs" validate:"gt=0"`
	NFactors    int     `mapstructure:"n_factors" validate:"gt=0"`
	RandomState int     `mapstructure:"random_state" validate:"gte=0"`
	InitMean    float64 `mapstructure:"init_mean"`
	InitStdDev  float64 `mapstructure:"init_std" validate:"gt=0"`
	Alpha       float64 `mapstructure:"alpha" validate:"gt=0"`
	// fit config
	Jobs       int `mapstructure:"jobs" validate:"gt=0"`
	Verbose    int `mapstructure:"verbose" validate:"gt=0"`
	Candidates int `mapstructure:"n_candidates" validate:"gt=0"`
	TopK       int `mapstructure:"top_k" validate:"gt=0"`
	// hyper-parameter search
	SearchTrials int `mapstructure:"search_trials" validate:"gt=0"`
}

// QueryConfig describes the query surface.
type QueryConfig struct {
	// default number of returned items
	N int `mapstructure:"n" validate:"gt=0"`
}

// GetParams assembles hyper-parameters for the configured model.
func (c *TrainConfig) GetParams() model.Params {
	return model.Params{
		model.Lr:          c.Lr,
		model.Reg:         c.Reg,
		model.NEpochs:     c.NEpochs,
		model.NFactors:    c.NFactors,
		model.RandomState: int64(c.RandomState),
		model.InitMean:    c.InitMean,
		model.InitStdDev:  c.InitStdDev,
		model.Alpha:       c.Alpha,
	}
}

// GetFitConfig assembles the fit configuration.
func (c *TrainConfig) GetFitConfig() *cf.FitConfig {
	return &cf.FitConfig{
		Jobs:       c.Jobs,
		Verbose:    c.Verbose,
		Candidates: c.Candidates,
		TopK:       c.TopK,
	}
}

func setDefault() {
	// [data]
	viper.SetDefault("data.event_store", "readnext.db")
	viper.SetDefault("data.csv_sep", ",")
	viper.SetDefault("data.csv_header", false)
	// [train]
	viper.SetDefault("train.model", "als")
	viper.SetDefault("train.model_path", "readnext.model")
	viper.SetDefault("train.lr", 0.05)
	viper.SetDefault("train.reg", 0.1)
	viper.SetDefault("train.n_epochs", 20)
	viper.SetDefault("train.n_factors", 20)
	viper.SetDefault("train.random_state", 0)
	viper.SetDefault("train.init_mean", 0)
	viper.SetDefault("train.init_std", 0.1)
	viper.SetDefault("train.alpha", 40)
	viper.SetDefault("train.jobs", 1)
	viper.SetDefault("train.verbose", 10)
	viper.SetDefault("train.n_candidates", 100)
	viper.SetDefault("train.top_k", 10)
	viper.SetDefault("train.search_trials", 10)
	// [query]
	viper.SetDefault("query.n", 10)
}

type configBinding struct {
	key string
	env string
}

func bindEnv() {
	bindings := []configBinding{
		{"data.event_store", "READNEXT_EVENT_STORE"},
		{"train.model", "READNEXT_MODEL"},
		{"train.model_path", "READNEXT_MODEL_PATH"},
		{"train.jobs", "READNEXT_TRAIN_JOBS"},
	}
	for _, binding := range bindings {
		lo.Must0(viper.BindEnv(binding.key, binding.env))
	}
}

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() *Config {
	setDefault()
	viper.SetConfigType("toml")
	lo.Must0(viper.ReadConfig(strings.NewReader("")))
	var conf Config
	lo.Must0(viper.Unmarshal(&conf))
	return &conf
}

// LoadConfig loads and validates the configuration from a TOML file.
// Environment variables prefixed with READNEXT_ override file values.
func LoadConfig(path string) (*Config, error) {
	setDefault()
	bindEnv()
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Trace(err)
	}
	var conf Config
	if err := viper.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}
