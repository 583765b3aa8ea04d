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
	"os"

	"github.com/c-bata/goptuna"
	"github.com/c-bata/goptuna/tpe"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/readnext-io/readnext/base/log"
	"github.com/readnext-io/readnext/config"
	"github.com/readnext-io/readnext/dataset"
	"github.com/readnext-io/readnext/model"
	"github.com/readnext-io/readnext/model/cf"
)

var trainCommand = &cobra.Command{
	Use:   "train",
	Short: "Train a model on the stored reading events",
	Run: func(cmd *cobra.Command, args []string) {
		settings, err := loadSettings(cmd)
		if err != nil {
			log.Logger().Fatal("failed to load settings", zap.Error(err))
		}
		defer settings.EventStore.Close()
		search, _ := cmd.PersistentFlags().GetBool("search")
		if err = train(cmd, settings, search); err != nil {
			log.Logger().Fatal("failed to train model", zap.Error(err))
		}
	},
}

func init() {
	trainCommand.PersistentFlags().Bool("search", false, "search hyper-parameters before training")
}

func train(cmd *cobra.Command, settings *config.Settings, search bool) error {
	conf := settings.Config
	data, err := settings.EventStore.Dataset(cmd.Context())
	if err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("dataset loaded",
		zap.Int("users", data.CountUsers()),
		zap.Int("items", data.CountItems()),
		zap.Int("feedback", data.CountFeedback()))
	trainSet, testSet := data.SplitLeaveOneOut(int64(conf.Train.RandomState))

	params := conf.Train.GetParams()
	if search {
		result, err := searchParams(conf, trainSet, testSet)
		if err != nil {
			return errors.Trace(err)
		}
		log.Logger().Info("search finished",
			zap.String("model", result.Type),
			zap.Any("params", result.Params),
			zap.Float32("NDCG", result.Score.NDCG))
		conf.Train.Model = result.Type
		params = params.Overwrite(result.Params)
	}
	m, err := createModel(conf.Train.Model, params)
	if err != nil {
		return errors.Trace(err)
	}
	score, err := m.Fit(cmd.Context(), trainSet, testSet, conf.Train.GetFitConfig())
	if err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("training finished",
		zap.Float32("NDCG", score.NDCG),
		zap.Float32("Precision", score.Precision),
		zap.Float32("Recall", score.Recall))
	return saveModel(m, conf.Train.ModelPath)
}

func createModel(name string, params model.Params) (cf.MatrixFactorization, error) {
	switch name {
	case "als":
		return cf.NewALS(params), nil
	case "bpr":
		return cf.NewBPR(params), nil
	default:
		return nil, errors.NotValidf("model %q", name)
	}
}

func searchParams(conf *config.Config, trainSet, testSet *dataset.Dataset) (cf.SearchResult, error) {
	search := cf.NewModelSearch(map[string]cf.ModelCreator{
		"als": func() cf.MatrixFactorization { return cf.NewALS(nil) },
		"bpr": func() cf.MatrixFactorization { return cf.NewBPR(nil) },
	}, trainSet, testSet, conf.Train.GetFitConfig())
	study, err := goptuna.CreateStudy("readnext",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMaximize),
		goptuna.StudyOptionSampler(tpe.NewSampler()))
	if err != nil {
		return cf.SearchResult{}, errors.Trace(err)
	}
	if err = study.Optimize(search.Objective, conf.Train.SearchTrials); err != nil {
		return cf.SearchResult{}, errors.Trace(err)
	}
	return search.Result(), nil
}

func saveModel(m cf.MatrixFactorization, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	defer file.Close()
	if err = cf.MarshalModel(file, m); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("model saved", zap.String("path", path))
	return nil
}
