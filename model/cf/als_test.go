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
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readnext-io/readnext/dataset"
	"github.com/readnext-io/readnext/model"
)

// newReadingSet builds the scenario of four readers and three articles:
// user 0 read articles 0 and 1, user 1 read article 1, user 2 read article 2
// and user 3 read article 0.
func newReadingSet(t *testing.T) *dataset.Dataset {
	trainSet, err := dataset.NewDataset([]dataset.Feedback{
		{UserIndex: 0, ItemIndex: 0, Value: 1},
		{UserIndex: 0, ItemIndex: 1, Value: 1},
		{UserIndex: 1, ItemIndex: 1, Value: 1},
		{UserIndex: 2, ItemIndex: 2, Value: 1},
		{UserIndex: 3, ItemIndex: 0, Value: 1},
	}, 4, 3)
	require.NoError(t, err)
	return trainSet
}

func emptySetLike(t *testing.T, d *dataset.Dataset) *dataset.Dataset {
	valSet, err := dataset.NewDatasetWithIndex(nil, d.GetUserDict(), d.GetItemDict())
	require.NoError(t, err)
	return valSet
}

func newScenarioParams() model.Params {
	return model.Params{
		model.NFactors: 2,
		model.Reg:      0.1,
		model.NEpochs:  10,
		model.Alpha:    40,
	}
}

func TestALS_Shapes(t *testing.T) {
	trainSet := newReadingSet(t)
	m := NewALS(newScenarioParams())
	_, err := m.Fit(context.Background(), trainSet, emptySetLike(t, trainSet), NewFitConfig().SetVerbose(5))
	assert.NoError(t, err)
	assert.Len(t, m.UserFactor, 4)
	assert.Len(t, m.ItemFactor, 3)
	for _, row := range m.UserFactor {
		assert.Len(t, row, 2)
	}
	for _, row := range m.ItemFactor {
		assert.Len(t, row, 2)
	}
}

func TestALS_ObjectiveDescent(t *testing.T) {
	trainSet := newReadingSet(t)
	last := math.Inf(1)
	for epochs := 1; epochs <= 5; epochs++ {
		m := NewALS(newScenarioParams().Overwrite(model.Params{model.NEpochs: epochs}))
		_, err := m.Fit(context.Background(), trainSet, emptySetLike(t, trainSet), NewFitConfig().SetVerbose(10))
		assert.NoError(t, err)
		objective := m.Objective(trainSet)
		assert.False(t, math.IsNaN(objective))
		assert.LessOrEqual(t, objective, last*(1+1e-4))
		last = objective
	}
}

func TestALS_RecommendScenario(t *testing.T) {
	trainSet := newReadingSet(t)
	m := NewALS(newScenarioParams())
	_, err := m.Fit(context.Background(), trainSet, emptySetLike(t, trainSet), NewFitConfig())
	assert.NoError(t, err)
	// article 2 is the only one user 0 has not read
	results, err := RecommendItems(m, trainSet, 0, 1)
	assert.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int32(2), results[0].Index)
}

func TestALS_Deterministic(t *testing.T) {
	trainSet := newReadingSet(t)
	params := newScenarioParams().Overwrite(model.Params{model.RandomState: int64(42)})
	m1 := NewALS(params)
	_, err := m1.Fit(context.Background(), trainSet, emptySetLike(t, trainSet), NewFitConfig().SetJobs(4))
	assert.NoError(t, err)
	m2 := NewALS(params)
	_, err = m2.Fit(context.Background(), trainSet, emptySetLike(t, trainSet), NewFitConfig().SetJobs(4))
	assert.NoError(t, err)
	assert.Equal(t, m1.UserFactor, m2.UserFactor)
	assert.Equal(t, m1.ItemFactor, m2.ItemFactor)

	r1, err := RecommendItems(m1, trainSet, 1, 2)
	assert.NoError(t, err)
	r2, err := RecommendItems(m2, trainSet, 1, 2)
	assert.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestALS_ColdItem(t *testing.T) {
	// article 3 is never read by anyone
	trainSet, err := dataset.NewDataset([]dataset.Feedback{
		{UserIndex: 0, ItemIndex: 0, Value: 1},
		{UserIndex: 0, ItemIndex: 1, Value: 1},
		{UserIndex: 1, ItemIndex: 2, Value: 1},
	}, 2, 4)
	require.NoError(t, err)
	m := NewALS(newScenarioParams())
	_, err = m.Fit(context.Background(), trainSet, emptySetLike(t, trainSet), NewFitConfig())
	assert.NoError(t, err)
	assert.False(t, m.IsItemPredictable(3))
	for _, v := range m.GetItemFactor(3) {
		assert.False(t, math.IsNaN(float64(v)))
	}
	results, err := SimilarItems(m, 3, 2)
	assert.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, int32(3), results[0].Index)
	assert.Equal(t, float32(1), results[0].Score)
}

func TestALS_SingularSystem(t *testing.T) {
	// user 1 has no feedback and the rank of the item Gram matrix is below the
	// factor count, so without regularization its system cannot be factorized
	trainSet, err := dataset.NewDataset([]dataset.Feedback{
		{UserIndex: 0, ItemIndex: 0, Value: 1},
	}, 2, 1)
	require.NoError(t, err)
	m := NewALS(model.Params{
		model.NFactors: 4,
		model.Reg:      0.0,
		model.NEpochs:  1,
		model.Alpha:    40,
	})
	_, err = m.Fit(context.Background(), trainSet, emptySetLike(t, trainSet), NewFitConfig())
	assert.ErrorIs(t, err, ErrSingularSystem)

	// the regularization term guards the same system
	m = NewALS(model.Params{
		model.NFactors: 4,
		model.Reg:      0.1,
		model.NEpochs:  1,
		model.Alpha:    40,
	})
	_, err = m.Fit(context.Background(), trainSet, emptySetLike(t, trainSet), NewFitConfig())
	assert.NoError(t, err)
}

func TestALS_Marshal(t *testing.T) {
	trainSet := newReadingSet(t)
	m := NewALS(newScenarioParams())
	_, err := m.Fit(context.Background(), trainSet, emptySetLike(t, trainSet), NewFitConfig())
	assert.NoError(t, err)

	buf := bytes.NewBuffer(nil)
	assert.NoError(t, MarshalModel(buf, m))
	tmp, err := UnmarshalModel(buf)
	assert.NoError(t, err)
	assert.Equal(t, m.Params, tmp.GetParams())
	assert.Equal(t, m.Predict("0", "2"), tmp.Predict("0", "2"))
	assert.True(t, tmp.IsUserPredictable(0))
	assert.False(t, tmp.IsUserPredictable(math.MaxInt32))

	m.Clear()
	assert.True(t, m.Invalid())
}

func TestALS_EmptyDataset(t *testing.T) {
	// an empty event store yields a dataset with no users and no items, which
	// must fail the fit instead of crashing it
	emptySet, err := dataset.NewDataset(nil, 0, 0)
	require.NoError(t, err)
	m := NewALS(newScenarioParams())
	assert.NotPanics(t, func() {
		_, err = m.Fit(context.Background(), emptySet, emptySet, NewFitConfig())
	})
	assert.ErrorIs(t, err, ErrEmptyDataset)
	assert.Zero(t, m.Objective(emptySet))

	// users without items is the same degenerate shape
	usersOnly, err := dataset.NewDataset(nil, 2, 0)
	require.NoError(t, err)
	_, err = NewALS(newScenarioParams()).Fit(context.Background(), usersOnly, usersOnly, NewFitConfig())
	assert.ErrorIs(t, err, ErrEmptyDataset)
}
