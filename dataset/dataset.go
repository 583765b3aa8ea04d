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

// Package dataset builds interaction matrices for collaborative filtering.
package dataset

import (
	"math"
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"

	"github.com/readnext-io/readnext/base"
)

// ErrInvalidRecord is returned when an interaction record carries a negative
// index, an index beyond the declared bounds, a negative value or NaN.
var ErrInvalidRecord = errors.NotValidf("interaction record")

// Feedback is a single interaction between a user and an item. The value is
// the strength of the implicit signal, for example a play count.
type Feedback struct {
	UserIndex int32
	ItemIndex int32
	Value     float64
}

// Dataset stores an interaction matrix twice, once row major by users and once
// row major by items. Duplicated records are merged by summing their values.
type Dataset struct {
	userFeedback []*base.SparseVector
	itemFeedback []*base.SparseVector
	negatives    [][]int32
	userDict     *FreqDict
	itemDict     *FreqDict
	numFeedback  int
}

// NewDataset builds a dataset from index based feedback. User indices must lie
// in [0, userCount) and item indices in [0, itemCount). All records are
// validated before any view is built.
func NewDataset(feedback []Feedback, userCount, itemCount int) (*Dataset, error) {
	userDict, itemDict := NewFreqDict(), NewFreqDict()
	for i := 0; i < userCount; i++ {
		userDict.NotCount(strconv.Itoa(i))
	}
	for i := 0; i < itemCount; i++ {
		itemDict.NotCount(strconv.Itoa(i))
	}
	return newDataset(feedback, userDict, itemDict)
}

// NewDatasetWithIndex builds a dataset from feedback whose indices were
// assigned by the given dictionaries.
func NewDatasetWithIndex(feedback []Feedback, userDict, itemDict *FreqDict) (*Dataset, error) {
	return newDataset(feedback, userDict, itemDict)
}

func newDataset(feedback []Feedback, userDict, itemDict *FreqDict) (*Dataset, error) {
	userCount, itemCount := userDict.Count(), itemDict.Count()
	for position, f := range feedback {
		if f.UserIndex < 0 || f.UserIndex >= userCount {
			return nil, errors.Annotatef(ErrInvalidRecord, "user index %v at position %v", f.UserIndex, position)
		}
		if f.ItemIndex < 0 || f.ItemIndex >= itemCount {
			return nil, errors.Annotatef(ErrInvalidRecord, "item index %v at position %v", f.ItemIndex, position)
		}
		if math.IsNaN(f.Value) || f.Value < 0 {
			return nil, errors.Annotatef(ErrInvalidRecord, "value %v at position %v", f.Value, position)
		}
	}
	d := &Dataset{
		userFeedback: base.NewDenseSparseMatrix(int(userCount)),
		itemFeedback: base.NewDenseSparseMatrix(int(itemCount)),
		userDict:     userDict,
		itemDict:     itemDict,
	}
	for _, f := range feedback {
		d.userFeedback[f.UserIndex].Add(f.ItemIndex, f.Value)
		d.itemFeedback[f.ItemIndex].Add(f.UserIndex, f.Value)
	}
	for _, vec := range d.userFeedback {
		vec.Compact()
		d.numFeedback += vec.Len()
	}
	for _, vec := range d.itemFeedback {
		vec.Compact()
	}
	return d, nil
}

func (d *Dataset) CountUsers() int {
	return len(d.userFeedback)
}

func (d *Dataset) CountItems() int {
	return len(d.itemFeedback)
}

// CountFeedback returns the number of stored cells after merging duplicates.
func (d *Dataset) CountFeedback() int {
	return d.numFeedback
}

func (d *Dataset) GetUserFeedback() []*base.SparseVector {
	return d.userFeedback
}

func (d *Dataset) GetItemFeedback() []*base.SparseVector {
	return d.itemFeedback
}

func (d *Dataset) GetUserDict() *FreqDict {
	return d.userDict
}

func (d *Dataset) GetItemDict() *FreqDict {
	return d.itemDict
}

// Scale multiplies every stored value by alpha and returns the result as a new
// dataset. The sparsity pattern and the dictionaries are shared with the
// receiver.
func (d *Dataset) Scale(alpha float64) *Dataset {
	return &Dataset{
		userFeedback: scaleVectors(d.userFeedback, alpha),
		itemFeedback: scaleVectors(d.itemFeedback, alpha),
		userDict:     d.userDict,
		itemDict:     d.itemDict,
		numFeedback:  d.numFeedback,
	}
}

func scaleVectors(vectors []*base.SparseVector, alpha float64) []*base.SparseVector {
	scaled := make([]*base.SparseVector, len(vectors))
	for i, vec := range vectors {
		values := make([]float64, len(vec.Values))
		for j, value := range vec.Values {
			values[j] = value * alpha
		}
		scaled[i] = &base.SparseVector{Indices: vec.Indices, Values: values, Sorted: vec.Sorted}
	}
	return scaled
}

// NegativeSample samples negative items for every user. Items interacted by
// the user in this dataset or in excludeSet are not sampled. Samples are
// cached after the first call.
func (d *Dataset) NegativeSample(excludeSet *Dataset, numCandidates int) [][]int32 {
	if len(d.negatives) == 0 {
		rng := base.NewRandomGenerator(0)
		d.negatives = make([][]int32, d.CountUsers())
		for userIndex := 0; userIndex < d.CountUsers(); userIndex++ {
			s1 := mapset.NewSet(d.userFeedback[userIndex].Indices...)
			s2 := mapset.NewSet(excludeSet.GetUserFeedback()[userIndex].Indices...)
			d.negatives[userIndex] = rng.SampleInt32(0, int32(d.CountItems()), numCandidates, s1, s2)
		}
	}
	return d.negatives
}
