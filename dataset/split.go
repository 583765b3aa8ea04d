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

package dataset

import (
	"github.com/samber/lo"

	"github.com/readnext-io/readnext/base"
)

// SplitLeaveOneOut splits the dataset into a training set and a test set. One
// interaction of every user with at least two interactions is moved to the
// test set. Both splits share the dictionaries of the receiver.
func (d *Dataset) SplitLeaveOneOut(seed int64) (*Dataset, *Dataset) {
	rng := base.NewRandomGenerator(seed)
	trainFeedback := make([]Feedback, 0, d.numFeedback)
	testFeedback := make([]Feedback, 0, d.CountUsers())
	for userIndex, vec := range d.userFeedback {
		testPosition := -1
		if vec.Len() > 1 {
			testPosition = rng.Intn(vec.Len())
		}
		vec.ForEach(func(i int, itemIndex int32, value float64) {
			f := Feedback{UserIndex: int32(userIndex), ItemIndex: itemIndex, Value: value}
			if i == testPosition {
				testFeedback = append(testFeedback, f)
			} else {
				trainFeedback = append(trainFeedback, f)
			}
		})
	}
	trainSet := lo.Must(NewDatasetWithIndex(trainFeedback, d.userDict, d.itemDict))
	testSet := lo.Must(NewDatasetWithIndex(testFeedback, d.userDict, d.itemDict))
	return trainSet, testSet
}
