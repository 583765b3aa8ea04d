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

package base

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSparseVector(t *testing.T) {
	vec := NewSparseVector()
	vec.Add(2, 1)
	vec.Add(1, 0)
	vec.Add(8, 0)
	vec.Add(4, 0)
	assert.Equal(t, 4, vec.Len())
	vec.SortIndex()
	assert.True(t, sort.IsSorted(vec))
	assert.Equal(t, []int32{1, 2, 4, 8}, vec.Indices)
	count := 0
	vec.ForEach(func(i int, index int32, value float64) {
		count++
	})
	assert.Equal(t, 4, count)
}

func TestSparseVector_Compact(t *testing.T) {
	vec := NewSparseVector()
	vec.Add(3, 1)
	vec.Add(1, 2)
	vec.Add(3, 0.5)
	vec.Add(1, 1)
	vec.Add(2, 4)
	vec.Compact()
	assert.Equal(t, []int32{1, 2, 3}, vec.Indices)
	assert.Equal(t, []float64{3, 4, 1.5}, vec.Values)
	assert.True(t, vec.Sorted)
}

func TestNewDenseSparseMatrix(t *testing.T) {
	mat := NewDenseSparseMatrix(3)
	assert.Equal(t, 3, len(mat))
	for _, vec := range mat {
		assert.Zero(t, vec.Len())
	}
}
