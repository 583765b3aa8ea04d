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

	"github.com/readnext-io/readnext/base/heap"
	"github.com/readnext-io/readnext/base/parallel"
	"github.com/readnext-io/readnext/dataset"
)

/* Evaluate Item Ranking */

// Metric is used by evaluators in personalized ranking tasks.
type Metric func(targetSet mapset.Set[int32], rankList []int32) float32

// Evaluate evaluates a model in top-n tasks. For every user with feedback in
// testSet, the test items are ranked against sampled negative candidates and
// each scorer is averaged over users.
func Evaluate(estimator MatrixFactorization, testSet, trainSet *dataset.Dataset, topK, numCandidates, nJobs int, scorers ...Metric) []float32 {
	partSum := make([][]float32, nJobs)
	partCount := make([]float32, nJobs)
	for i := 0; i < nJobs; i++ {
		partSum[i] = make([]float32, len(scorers))
	}
	negatives := testSet.NegativeSample(trainSet, numCandidates)
	_ = parallel.Parallel(testSet.CountUsers(), nJobs, func(workerId, userIndex int) error {
		// Find top-n items in test set
		targetSet := mapset.NewSet(testSet.GetUserFeedback()[userIndex].Indices...)
		if targetSet.Cardinality() > 0 {
			// Sample negative samples
			negativeSample := negatives[userIndex]
			candidates := make([]int32, 0, targetSet.Cardinality()+len(negativeSample))
			candidates = append(candidates, testSet.GetUserFeedback()[userIndex].Indices...)
			candidates = append(candidates, negativeSample...)
			// Find top-n items in predictions
			rankList, _ := Rank(estimator, int32(userIndex), candidates, topK)
			partCount[workerId]++
			for i, metric := range scorers {
				partSum[workerId][i] += metric(targetSet, rankList)
			}
		}
		return nil
	})
	sum := make([]float32, len(scorers))
	count := float32(0)
	for i := 0; i < nJobs; i++ {
		count += partCount[i]
		for j := range partSum[i] {
			sum[j] += partSum[i][j]
		}
	}
	if count == 0 {
		return sum
	}
	for i := range sum {
		sum[i] /= count
	}
	return sum
}

// NDCG means Normalized Discounted Cumulative Gain.
func NDCG(targetSet mapset.Set[int32], rankList []int32) float32 {
	// IDCG = \sum^{|REL|}_{i=1} \frac {1} {\log_2(i+1)}
	idcg := float32(0)
	for i := 0; i < targetSet.Cardinality() && i < len(rankList); i++ {
		idcg += 1.0 / math32.Log2(float32(i)+2.0)
	}
	// DCG = \sum^{N}_{i=1} \frac {2^{rel_i}-1} {\log_2(i+1)}
	dcg := float32(0)
	for i, itemIndex := range rankList {
		if targetSet.Contains(itemIndex) {
			dcg += 1.0 / math32.Log2(float32(i)+2.0)
		}
	}
	return dcg / idcg
}

// Precision is the fraction of relevant items among the recommended items.
//
//	\frac{|relevant documents| \cap |retrieved documents|} {|{retrieved documents}|}
func Precision(targetSet mapset.Set[int32], rankList []int32) float32 {
	hit := float32(0)
	for _, itemIndex := range rankList {
		if targetSet.Contains(itemIndex) {
			hit++
		}
	}
	return hit / float32(len(rankList))
}

// Recall is the fraction of relevant items that have been recommended over the
// total amount of relevant items.
//
//	\frac{|relevant documents| \cap |retrieved documents|} {|{relevant documents}|}
func Recall(targetSet mapset.Set[int32], rankList []int32) float32 {
	hit := 0
	for _, itemIndex := range rankList {
		if targetSet.Contains(itemIndex) {
			hit++
		}
	}
	return float32(hit) / float32(targetSet.Cardinality())
}

// Rank gets the top-n list for a user against the given candidates.
func Rank(model MatrixFactorization, userIndex int32, candidates []int32, topN int) ([]int32, []float32) {
	itemsHeap := heap.NewTopKFilter[int32, float32](topN)
	for _, itemIndex := range candidates {
		itemsHeap.Push(itemIndex, model.internalPredict(userIndex, itemIndex))
	}
	return itemsHeap.PopAll()
}
