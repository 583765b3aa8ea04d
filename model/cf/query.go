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
	"github.com/chewxy/math32"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"

	"github.com/readnext-io/readnext/base"
	"github.com/readnext-io/readnext/base/heap"
	"github.com/readnext-io/readnext/dataset"
	"github.com/readnext-io/readnext/floats"
)

// ErrUserNotExist is returned when a query refers to a user index outside the
// trained factor matrix.
var ErrUserNotExist = errors.NotFoundf("user")

// ErrItemNotExist is returned when a query refers to an item index outside the
// trained factor matrix.
var ErrItemNotExist = errors.NotFoundf("item")

// Result is a scored item. Id is resolved through the model's item dictionary.
type Result struct {
	Index int32
	Id    string
	Score float32
}

// SimilarItems returns the n items whose factor vectors have the highest
// cosine similarity with the query item. The query item itself ranks first
// with score 1, ties are broken by ascending item index. Runs in
// O(items x factors).
func SimilarItems(m MatrixFactorization, itemIndex int32, n int) ([]Result, error) {
	itemCount := m.GetItemIndex().Count()
	if itemIndex < 0 || itemIndex >= itemCount {
		return nil, errors.Annotatef(ErrItemNotExist, "index %v", itemIndex)
	}
	queryFactor := m.GetItemFactor(itemIndex)
	queryNorm := math32.Sqrt(floats.Dot(queryFactor, queryFactor))
	filter := heap.NewTopKFilter[int32, float32](base.Min(n, int(itemCount)))
	for candidate := int32(0); candidate < itemCount; candidate++ {
		if candidate == itemIndex {
			filter.Push(candidate, 1)
			continue
		}
		var score float32
		candidateFactor := m.GetItemFactor(candidate)
		norm := queryNorm * math32.Sqrt(floats.Dot(candidateFactor, candidateFactor))
		if norm > 0 {
			score = floats.Dot(queryFactor, candidateFactor) / norm
		}
		filter.Push(candidate, score)
	}
	return collect(m, filter), nil
}

// RecommendItems scores every item the user has not interacted with by the dot
// product of the user and item factors, and returns the n highest scoring
// items. Items stored with a non-zero value in the user's row of trainSet are
// excluded, ties are broken by ascending item index. Runs in
// O(items x factors).
func RecommendItems(m MatrixFactorization, trainSet *dataset.Dataset, userIndex int32, n int) ([]Result, error) {
	if userIndex < 0 || userIndex >= m.GetUserIndex().Count() {
		return nil, errors.Annotatef(ErrUserNotExist, "index %v", userIndex)
	}
	consumed := mapset.NewSet[int32]()
	trainSet.GetUserFeedback()[userIndex].ForEach(func(_ int, itemIndex int32, value float64) {
		if value != 0 {
			consumed.Add(itemIndex)
		}
	})
	userFactor := m.GetUserFactor(userIndex)
	filter := heap.NewTopKFilter[int32, float32](base.Min(n, int(m.GetItemIndex().Count())))
	for candidate := int32(0); candidate < m.GetItemIndex().Count(); candidate++ {
		if consumed.Contains(candidate) {
			continue
		}
		filter.Push(candidate, floats.Dot(userFactor, m.GetItemFactor(candidate)))
	}
	return collect(m, filter), nil
}

func collect(m MatrixFactorization, filter *heap.TopKFilter[int32, float32]) []Result {
	indices, scores := filter.PopAll()
	results := make([]Result, len(indices))
	for i, index := range indices {
		id, _ := m.GetItemIndex().String(index)
		results[i] = Result{Index: index, Id: id, Score: scores[i]}
	}
	return results
}
