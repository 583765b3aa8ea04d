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

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/readnext-io/readnext/base/log"
	"github.com/readnext-io/readnext/model/cf"
)

var testCommand = &cobra.Command{
	Use:   "test",
	Short: "Evaluate the trained model on a leave-one-out split",
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
		data, err := settings.EventStore.Dataset(cmd.Context())
		if err != nil {
			log.Logger().Fatal("failed to load dataset", zap.Error(err))
		}
		conf := settings.Config.Train
		trainSet, testSet := data.SplitLeaveOneOut(int64(conf.RandomState))
		scores := cf.Evaluate(m, testSet, trainSet,
			conf.TopK, conf.Candidates, conf.Jobs,
			cf.NDCG, cf.Precision, cf.Recall)

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("METRIC", "VALUE")
		names := []string{
			fmt.Sprintf("NDCG@%d", conf.TopK),
			fmt.Sprintf("Precision@%d", conf.TopK),
			fmt.Sprintf("Recall@%d", conf.TopK),
		}
		for i, name := range names {
			if err := table.Append([]string{name, fmt.Sprintf("%f", scores[i])}); err != nil {
				log.Logger().Fatal("failed to render scores", zap.Error(err))
			}
		}
		if err := table.Render(); err != nil {
			log.Logger().Fatal("failed to render scores", zap.Error(err))
		}
	},
}
