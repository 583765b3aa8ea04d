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

package main

import (
	"fmt"
	"os"

	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/readnext-io/readnext/base/log"
	"github.com/readnext-io/readnext/cmd/version"
	"github.com/readnext-io/readnext/config"
	"github.com/readnext-io/readnext/model/cf"
	"github.com/readnext-io/readnext/storage/events"
)

var rootCommand = &cobra.Command{
	Use:   "readnext",
	Short: "Article recommendation engine based on implicit reading events.",
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Check the version of readnext",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.BuildInfo())
	},
}

func init() {
	rootCommand.PersistentFlags().String("config", "config.toml", "configuration file path")
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.AddCommand(importCommand)
	rootCommand.AddCommand(trainCommand)
	rootCommand.AddCommand(similarCommand)
	rootCommand.AddCommand(recommendCommand)
	rootCommand.AddCommand(testCommand)
	rootCommand.AddCommand(versionCommand)
}

// loadSettings sets up the logger, loads the configuration and opens the
// event store.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	debug, _ := cmd.Root().PersistentFlags().GetBool("debug")
	log.SetLogger(cmd.Root().PersistentFlags(), debug)
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	log.Logger().Info("load config", zap.String("config", configPath))
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	store, err := events.Open(conf.Data.EventStore)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = store.Init(); err != nil {
		_ = store.Close()
		return nil, errors.Trace(err)
	}
	return &config.Settings{Config: conf, EventStore: store}, nil
}

// loadModel reads the trained model from the configured path.
func loadModel(conf *config.Config) (cf.MatrixFactorization, error) {
	file, err := os.Open(conf.Train.ModelPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	m, err := cf.UnmarshalModel(file)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return m, nil
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
