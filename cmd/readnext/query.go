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
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/readnext-io/readnext/base/log"
	"github.com/readnext-io/readnext/dataset"
	"github.com/readnext-io/readnext/model/cf"
)

var similarCommand = &cobra.Command{
	Use:   "similar ITEM_ID",
	Short: "Find items similar to an item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings, err := loadSettings(cmd)
		if err != nil {
			log.Logger().Fatal("failed to load settings", zap.Error(err))
		}
		defer settings.EventStore.Close()
		m, err := loadModel(settings.Config)
		if err != nil {
			log.Logger().Fatal("failed to load model", zap.Error(err))
		}
		n := queryCount(cmd, settings.Config.Query.N)
		itemIndex := m.GetItemIndex().Id(args[0])
		if itemIndex == dataset.NotId {
			log.Logger().Fatal("unknown item", zap.String("item", args[0]))
		}
		results, err := cf.SimilarItems(m, itemIndex, n)
		if err != nil {
			log.Logger().Fatal("failed to find similar items", zap.Error(err))
		}
		printResults(results)
	},
}

var recommendCommand = &cobra.Command{
	Use:   "recommend USER_ID",
	Short: "Recommend items for a user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings, err := loadSettings(cmd)
		if err != nil {
			log.Logger().Fatal("failed to load settings", zap.Error(err))
		}
		defer settings.EventStore.Close()
		m, err := loadModel(settings.Config)
		if err != nil {
			log.Logger().Fatal("failed to load model", zap.Error(err))
		}
		trainSet, err := settings.EventStore.Dataset(cmd.Context())
		if err != nil {
			log.Logger().Fatal("failed to load dataset", zap.Error(err))
		}
		n := queryCount(cmd, settings.Config.Query.N)
		userIndex := m.GetUserIndex().Id(args[0])
		if userIndex == dataset.NotId {
			log.Logger().Fatal("unknown user", zap.String("user", args[0]))
		}
		results, err := cf.RecommendItems(m, trainSet, userIndex, n)
		if err != nil {
			log.Logger().Fatal("failed to recommend items", zap.Error(err))
		}
		printResults(results)
	},
}

func init() {
	similarCommand.PersistentFlags().IntP("n", "n", 0, "number of returned items")
	recommendCommand.PersistentFlags().IntP("n", "n", 0, "number of returned items")
}

func queryCount(cmd *cobra.Command, fallback int) int {
	if cmd.PersistentFlags().Changed("n") {
		n, _ := cmd.PersistentFlags().GetInt("n")
		return n
	}
	return fallback
}

func printResults(results []cf.Result) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("RANK", "ITEM", "SCORE")
	for i, result := range results {
		if err := table.Append([]string{
			strconv.Itoa(i + 1),
			result.Id,
			fmt.Sprintf("%f", result.Score),
		}); err != nil {
			log.Logger().Fatal("failed to render results", zap.Error(err))
		}
	}
	if err := table.Render(); err != nil {
		log.Logger().Fatal("failed to render results", zap.Error(err))
	}
}
