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

package cf

import (
	"testing"

	"github.com/c-bata/goptuna"
	"github.com/c-bata/goptuna/tpe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readnext-io/readnext/model"
)

func TestModelSearch(t *testing.T) {
	trainSet := newReadingSet(t)
	trainSplit, testSplit := trainSet.SplitLeaveOneOut(0)
	search := NewModelSearch(map[string]ModelCreator{
		"als": func() MatrixFactorization { return NewALS(model.Params{model.NEpochs: 2}) },
		"bpr": func() MatrixFactorization { return NewBPR(model.Params{model.NEpochs: 2}) },
	}, trainSplit, testSplit, NewFitConfig())
	study, err := goptuna.CreateStudy("readnext",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMaximize),
		goptuna.StudyOptionSampler(tpe.NewSampler()))
	require.NoError(t, err)
	err = study.Optimize(search.Objective, 4)
	require.NoError(t, err)

	result := search.Result()
	assert.Contains(t, []string{"als", "bpr"}, result.Type)
	assert.NotEmpty(t, result.Params)
	assert.GreaterOrEqual(t, result.Score.NDCG, float32(0))
}

func TestModelSearch_NoModels(t *testing.T) {
	trainSet := newReadingSet(t)
	search := NewModelSearch(nil, trainSet, emptySetLike(t, trainSet), NewFitConfig())
	study, err := goptuna.CreateStudy("readnext-empty",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMaximize))
	require.NoError(t, err)
	err = study.Optimize(search.Objective, 1)
	assert.Error(t, err)
}
