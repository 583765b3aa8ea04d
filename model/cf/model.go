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

// Package cf implements collaborative filtering models over implicit
// feedback, and ranking queries over their trained factors.
package cf

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/c-bata/goptuna"
	"github.com/chewxy/math32"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/readnext-io/readnext/base"
	"github.com/readnext-io/readnext/base/encoding"
	"github.com/readnext-io/readnext/base/log"
	"github.com/readnext-io/readnext/base/parallel"
	"github.com/readnext-io/readnext/base/progress"
	"github.com/readnext-io/readnext/dataset"
	"github.com/readnext-io/readnext/floats"
	"github.com/readnext-io/readnext/model"
)

// ErrEmptyDataset is returned when Fit receives a dataset without users or
// items. The builder accepts the degenerate shape, the solvers cannot.
var ErrEmptyDataset = errors.New("dataset has no users or items")

type Score struct {
	NDCG      float32
	Precision float32
	Recall    float32
}

type FitConfig struct {
	Jobs       int
	Verbose    int
	Candidates int
	TopK       int
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		Jobs:       1,
		Verbose:    10,
		Candidates: 100,
		TopK:       10,
	}
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

func (config *FitConfig) SetJobs(jobs int) *FitConfig {
	config.Jobs = jobs
	return config
}

func (config *FitConfig) LoadDefaultIfNil() *FitConfig {
	if config == nil {
		return NewFitConfig()
	}
	return config
}

type Model interface {
	model.Model
	// Fit a model with a train set and parameters.
	Fit(ctx context.Context, trainSet, validateSet *dataset.Dataset, config *FitConfig) (Score, error)
	// SuggestParams draws hyper-parameters for one search trial.
	SuggestParams(trial goptuna.Trial) model.Params
	// GetItemIndex returns item index.
	GetItemIndex() *dataset.FreqDict
	// Marshal model into byte stream.
	Marshal(w io.Writer) error
	// Unmarshal model from byte stream.
	Unmarshal(r io.Reader) error
	// GetUserFactor returns latent factor of a user.
	GetUserFactor(userIndex int32) []float32
	// GetItemFactor returns latent factor of an item.
	GetItemFactor(itemIndex int32) []float32
}

type MatrixFactorization interface {
	Model
	// Predict the preference of a user (userId) for an item (itemId).
	Predict(userId, itemId string) float32
	// internalPredict predicts preference given a user index and an item index.
	internalPredict(userIndex, itemIndex int32) float32
	// GetUserIndex returns user index.
	GetUserIndex() *dataset.FreqDict
	// IsUserPredictable returns false if a user has no feedback and its factor vector was never trained.
	IsUserPredictable(userIndex int32) bool
	// IsItemPredictable returns false if an item has no feedback and its factor vector was never trained.
	IsItemPredictable(itemIndex int32) bool
}

type BaseMatrixFactorization struct {
	model.BaseModel
	UserIndex       *dataset.FreqDict
	ItemIndex       *dataset.FreqDict
	UserPredictable *bitset.BitSet
	ItemPredictable *bitset.BitSet
	// Model parameters
	UserFactor [][]float32 // p_u
	ItemFactor [][]float32 // q_i
}

func (baseModel *BaseMatrixFactorization) Init(trainSet *dataset.Dataset) {
	baseModel.UserIndex = trainSet.GetUserDict()
	baseModel.ItemIndex = trainSet.GetItemDict()
	// set user trained flags
	baseModel.UserPredictable = bitset.New(uint(baseModel.UserIndex.Count()))
	for userIndex := int32(0); userIndex < baseModel.UserIndex.Count(); userIndex++ {
		if trainSet.GetUserFeedback()[userIndex].Len() > 0 {
			baseModel.UserPredictable.Set(uint(userIndex))
		}
	}
	// set item trained flags
	baseModel.ItemPredictable = bitset.New(uint(baseModel.ItemIndex.Count()))
	for itemIndex := int32(0); itemIndex < baseModel.ItemIndex.Count(); itemIndex++ {
		if trainSet.GetItemFeedback()[itemIndex].Len() > 0 {
			baseModel.ItemPredictable.Set(uint(itemIndex))
		}
	}
}

func (baseModel *BaseMatrixFactorization) GetUserIndex() *dataset.FreqDict {
	return baseModel.UserIndex
}

func (baseModel *BaseMatrixFactorization) GetItemIndex() *dataset.FreqDict {
	return baseModel.ItemIndex
}

// IsUserPredictable returns false if a user has no feedback and its factor vector was never trained.
func (baseModel *BaseMatrixFactorization) IsUserPredictable(userIndex int32) bool {
	if userIndex < 0 || userIndex >= baseModel.UserIndex.Count() {
		return false
	}
	return baseModel.UserPredictable.Test(uint(userIndex))
}

// IsItemPredictable returns false if an item has no feedback and its factor vector was never trained.
func (baseModel *BaseMatrixFactorization) IsItemPredictable(itemIndex int32) bool {
	if itemIndex < 0 || itemIndex >= baseModel.ItemIndex.Count() {
		return false
	}
	return baseModel.ItemPredictable.Test(uint(itemIndex))
}

// GetUserFactor returns the latent factor of a user.
func (baseModel *BaseMatrixFactorization) GetUserFactor(userIndex int32) []float32 {
	return baseModel.UserFactor[userIndex]
}

// GetItemFactor returns the latent factor of an item.
func (baseModel *BaseMatrixFactorization) GetItemFactor(itemIndex int32) []float32 {
	return baseModel.ItemFactor[itemIndex]
}

func (baseModel *BaseMatrixFactorization) Predict(userId, itemId string) float32 {
	userIndex := baseModel.UserIndex.Id(userId)
	itemIndex := baseModel.ItemIndex.Id(itemId)
	if userIndex == dataset.NotId {
		log.Logger().Warn("unknown user", zap.String("user_id", userId))
	}
	if itemIndex == dataset.NotId {
		log.Logger().Warn("unknown item", zap.String("item_id", itemId))
	}
	return baseModel.internalPredict(userIndex, itemIndex)
}

func (baseModel *BaseMatrixFactorization) internalPredict(userIndex, itemIndex int32) float32 {
	ret := float32(0.0)
	if userIndex != dataset.NotId && itemIndex != dataset.NotId {
		ret = floats.Dot(baseModel.UserFactor[userIndex], baseModel.ItemFactor[itemIndex])
	} else {
		log.Logger().Warn("unknown user or item")
	}
	return ret
}

// Marshal model into byte stream.
func (baseModel *BaseMatrixFactorization) Marshal(w io.Writer) error {
	// write params
	if err := encoding.WriteGob(w, baseModel.Params); err != nil {
		return errors.Trace(err)
	}
	// write dictionaries
	if err := baseModel.UserIndex.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	if err := baseModel.ItemIndex.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	// write trained flags
	if _, err := baseModel.UserPredictable.WriteTo(w); err != nil {
		return errors.Trace(err)
	}
	if _, err := baseModel.ItemPredictable.WriteTo(w); err != nil {
		return errors.Trace(err)
	}
	// write factors
	if err := binary.Write(w, binary.LittleEndian, int32(factorSize(baseModel.UserFactor))); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, baseModel.UserFactor); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, baseModel.ItemFactor); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal model from byte stream.
func (baseModel *BaseMatrixFactorization) Unmarshal(r io.Reader) error {
	// read params
	if err := encoding.ReadGob(r, &baseModel.Params); err != nil {
		return errors.Trace(err)
	}
	// read dictionaries
	baseModel.UserIndex = dataset.NewFreqDict()
	if err := baseModel.UserIndex.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	baseModel.ItemIndex = dataset.NewFreqDict()
	if err := baseModel.ItemIndex.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	// read trained flags
	baseModel.UserPredictable = new(bitset.BitSet)
	if _, err := baseModel.UserPredictable.ReadFrom(r); err != nil {
		return errors.Trace(err)
	}
	baseModel.ItemPredictable = new(bitset.BitSet)
	if _, err := baseModel.ItemPredictable.ReadFrom(r); err != nil {
		return errors.Trace(err)
	}
	// read factors
	var nFactors int32
	if err := binary.Read(r, binary.LittleEndian, &nFactors); err != nil {
		return errors.Trace(err)
	}
	baseModel.UserFactor = base.NewMatrix32(int(baseModel.UserIndex.Count()), int(nFactors))
	if err := encoding.ReadMatrix(r, baseModel.UserFactor); err != nil {
		return errors.Trace(err)
	}
	baseModel.ItemFactor = base.NewMatrix32(int(baseModel.ItemIndex.Count()), int(nFactors))
	if err := encoding.ReadMatrix(r, baseModel.ItemFactor); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (baseModel *BaseMatrixFactorization) Clear() {
	baseModel.UserIndex = nil
	baseModel.ItemIndex = nil
	baseModel.UserFactor = nil
	baseModel.ItemFactor = nil
}

func (baseModel *BaseMatrixFactorization) Invalid() bool {
	return baseModel == nil ||
		baseModel.UserIndex == nil ||
		baseModel.ItemIndex == nil ||
		baseModel.UserFactor == nil ||
		baseModel.ItemFactor == nil
}

func factorSize(factors [][]float32) int {
	if len(factors) == 0 {
		return 0
	}
	return len(factors[0])
}

func GetModelName(m Model) string {
	switch m.(type) {
	case *BPR:
		return "bpr"
	case *ALS:
		return "als"
	default:
		return reflect.TypeOf(m).String()
	}
}

func MarshalModel(w io.Writer, m Model) error {
	if err := encoding.WriteString(w, GetModelName(m)); err != nil {
		return errors.Trace(err)
	}
	if err := m.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func UnmarshalModel(r io.Reader) (MatrixFactorization, error) {
	name, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	switch name {
	case "bpr":
		var bpr BPR
		if err := bpr.Unmarshal(r); err != nil {
			return nil, errors.Trace(err)
		}
		return &bpr, nil
	case "als":
		var als ALS
		if err := als.Unmarshal(r); err != nil {
			return nil, errors.Trace(err)
		}
		return &als, nil
	}
	return nil, fmt.Errorf("unknown model %v", name)
}

// BPR means Bayesian Personal Ranking, is a pairwise learning algorithm for matrix factorization
// model with implicit feedback. The pairwise ranking between item i and j for user u is estimated
// by:
//
//	p(i >_u j) = \sigma( p_u^T (q_i - q_j) )
//
// Hyper-parameters:
//
//	 Reg 		- The regularization parameter of the cost function that is
//				  optimized. Default is 0.01.
//	 Lr 		- The learning rate of SGD. Default is 0.05.
//	 nFactors	- The number of latent factors. Default is 16.
//	 NEpochs	- The number of iteration of the SGD procedure. Default is 100.
//	 InitMean	- The mean of initial random latent factors. Default is 0.
//	 InitStdDev	- The standard deviation of initial random latent factors. Default is 0.001.
type BPR struct {
	BaseMatrixFactorization
	// Hyper parameters
	nFactors   int
	nEpochs    int
	lr         float32
	reg        float32
	initMean   float32
	initStdDev float32
}

// NewBPR creates a BPR model.
func NewBPR(params model.Params) *BPR {
	bpr := new(BPR)
	bpr.SetParams(params)
	return bpr
}

// SetParams sets hyper-parameters of the BPR model.
func (bpr *BPR) SetParams(params model.Params) {
	bpr.BaseMatrixFactorization.SetParams(params)
	// Setup hyper-parameters
	bpr.nFactors = bpr.Params.GetInt(model.NFactors, 16)
	bpr.nEpochs = bpr.Params.GetInt(model.NEpochs, 100)
	bpr.lr = bpr.Params.GetFloat32(model.Lr, 0.05)
	bpr.reg = bpr.Params.GetFloat32(model.Reg, 0.01)
	bpr.initMean = bpr.Params.GetFloat32(model.InitMean, 0)
	bpr.initStdDev = bpr.Params.GetFloat32(model.InitStdDev, 0.001)
}

func (bpr *BPR) SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.NFactors:   lo.Must(trial.SuggestStepInt(string(model.NFactors), 8, 64, 8)),
		model.Lr:         lo.Must(trial.SuggestLogFloat(string(model.Lr), 0.001, 0.1)),
		model.Reg:        lo.Must(trial.SuggestLogFloat(string(model.Reg), 0.001, 0.1)),
		model.InitMean:   0,
		model.InitStdDev: lo.Must(trial.SuggestLogFloat(string(model.InitStdDev), 0.001, 0.1)),
	}
}

// Fit the BPR model. Its task complexity is O(bpr.nEpochs).
func (bpr *BPR) Fit(ctx context.Context, trainSet, valSet *dataset.Dataset, config *FitConfig) (Score, error) {
	config = config.LoadDefaultIfNil()
	if trainSet.CountUsers() == 0 || trainSet.CountItems() == 0 {
		return Score{}, errors.Annotatef(ErrEmptyDataset,
			"fit bpr on %v users and %v items", trainSet.CountUsers(), trainSet.CountItems())
	}
	log.Logger().Info("fit bpr",
		zap.Int("train_set_size", trainSet.CountFeedback()),
		zap.Int("test_set_size", valSet.CountFeedback()),
		zap.Any("params", bpr.GetParams()),
		zap.Any("config", config))
	bpr.Init(trainSet)
	// Create buffers
	temp := base.NewMatrix32(config.Jobs, bpr.nFactors)
	userFactor := base.NewMatrix32(config.Jobs, bpr.nFactors)
	positiveItemFactor := base.NewMatrix32(config.Jobs, bpr.nFactors)
	negativeItemFactor := base.NewMatrix32(config.Jobs, bpr.nFactors)
	rng := make([]base.RandomGenerator, config.Jobs)
	for i := 0; i < config.Jobs; i++ {
		rng[i] = base.NewRandomGenerator(bpr.GetRandomGenerator().Int63())
	}
	// Convert array to hashmap
	userFeedback := make([]mapset.Set[int32], trainSet.CountUsers())
	for u := range userFeedback {
		userFeedback[u] = mapset.NewSet(trainSet.GetUserFeedback()[u].Indices...)
	}
	evalStart := time.Now()
	scores := Evaluate(bpr, valSet, trainSet, config.TopK, config.Candidates, config.Jobs, NDCG, Precision, Recall)
	evalTime := time.Since(evalStart)
	log.Logger().Debug(fmt.Sprintf("fit bpr %v/%v", 0, bpr.nEpochs),
		zap.String("eval_time", evalTime.String()),
		zap.Float32(fmt.Sprintf("NDCG@%v", config.TopK), scores[0]),
		zap.Float32(fmt.Sprintf("Precision@%v", config.TopK), scores[1]),
		zap.Float32(fmt.Sprintf("Recall@%v", config.TopK), scores[2]))
	// Training
	_, span := progress.Start(ctx, "BPR.Fit", bpr.nEpochs)
	for epoch := 1; epoch <= bpr.nEpochs; epoch++ {
		fitStart := time.Now()
		// Training epoch
		cost := make([]float32, config.Jobs)
		_ = parallel.BatchParallel(trainSet.CountFeedback(), config.Jobs, 128, func(workerId, beginJobId, endJobId int) error {
			for i := beginJobId; i < endJobId; i++ {
				// Select a user
				var userIndex int32
				var ratingCount int
				for {
					userIndex = rng[workerId].Int31n(int32(trainSet.CountUsers()))
					ratingCount = trainSet.GetUserFeedback()[userIndex].Len()
					if ratingCount > 0 {
						break
					}
				}
				posIndex := trainSet.GetUserFeedback()[userIndex].Indices[rng[workerId].Intn(ratingCount)]
				// Select a negative sample
				negIndex := int32(-1)
				for {
					sampled := rng[workerId].Int31n(int32(trainSet.CountItems()))
					if !userFeedback[userIndex].Contains(sampled) {
						negIndex = sampled
						break
					}
				}
				diff := bpr.internalPredict(userIndex, posIndex) - bpr.internalPredict(userIndex, negIndex)
				cost[workerId] += math32.Log1p(math32.Exp(-diff))
				grad := math32.Exp(-diff) / (1.0 + math32.Exp(-diff))
				// Pairwise update
				copy(userFactor[workerId], bpr.UserFactor[userIndex])
				copy(positiveItemFactor[workerId], bpr.ItemFactor[posIndex])
				copy(negativeItemFactor[workerId], bpr.ItemFactor[negIndex])
				// Update positive item latent factor: +w_u
				floats.MulConstTo(userFactor[workerId], grad, temp[workerId])
				floats.MulConstAdd(positiveItemFactor[workerId], -bpr.reg, temp[workerId])
				floats.MulConstAdd(temp[workerId], bpr.lr, bpr.ItemFactor[posIndex])
				// Update negative item latent factor: -w_u
				floats.MulConstTo(userFactor[workerId], -grad, temp[workerId])
				floats.MulConstAdd(negativeItemFactor[workerId], -bpr.reg, temp[workerId])
				floats.MulConstAdd(temp[workerId], bpr.lr, bpr.ItemFactor[negIndex])
				// Update user latent factor: h_i-h_j
				floats.SubTo(positiveItemFactor[workerId], negativeItemFactor[workerId], temp[workerId])
				floats.MulConst(temp[workerId], grad)
				floats.MulConstAdd(userFactor[workerId], -bpr.reg, temp[workerId])
				floats.MulConstAdd(temp[workerId], bpr.lr, bpr.UserFactor[userIndex])
			}
			return nil
		})
		fitTime := time.Since(fitStart)
		// Cross validation
		if epoch%config.Verbose == 0 || epoch == bpr.nEpochs {
			evalStart = time.Now()
			scores = Evaluate(bpr, valSet, trainSet, config.TopK, config.Candidates, config.Jobs, NDCG, Precision, Recall)
			evalTime = time.Since(evalStart)
			log.Logger().Debug(fmt.Sprintf("fit bpr %v/%v", epoch, bpr.nEpochs),
				zap.String("fit_time", fitTime.String()),
				zap.String("eval_time", evalTime.String()),
				zap.Float32(fmt.Sprintf("NDCG@%v", config.TopK), scores[0]),
				zap.Float32(fmt.Sprintf("Precision@%v", config.TopK), scores[1]),
				zap.Float32(fmt.Sprintf("Recall@%v", config.TopK), scores[2]))
		}
		span.Add(1)
	}
	span.End()
	log.Logger().Info("fit bpr complete",
		zap.Float32(fmt.Sprintf("NDCG@%v", config.TopK), scores[0]),
		zap.Float32(fmt.Sprintf("Precision@%v", config.TopK), scores[1]),
		zap.Float32(fmt.Sprintf("Recall@%v", config.TopK), scores[2]))
	return Score{
		NDCG:      scores[0],
		Precision: scores[1],
		Recall:    scores[2],
	}, nil
}

func (bpr *BPR) Init(trainSet *dataset.Dataset) {
	// Initialize parameters
	newUserFactor := bpr.GetRandomGenerator().NormalMatrix(trainSet.CountUsers(), bpr.nFactors, bpr.initMean, bpr.initStdDev)
	newItemFactor := bpr.GetRandomGenerator().NormalMatrix(trainSet.CountItems(), bpr.nFactors, bpr.initMean, bpr.initStdDev)
	// Initialize base
	bpr.UserFactor = newUserFactor
	bpr.ItemFactor = newItemFactor
	bpr.BaseMatrixFactorization.Init(trainSet)
}

// Marshal model into byte stream.
func (bpr *BPR) Marshal(w io.Writer) error {
	if err := bpr.BaseMatrixFactorization.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal model from byte stream.
func (bpr *BPR) Unmarshal(r io.Reader) error {
	if err := bpr.BaseMatrixFactorization.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	bpr.SetParams(bpr.Params)
	return nil
}
