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
	"context"
	"fmt"
	"io"
	"time"

	"github.com/c-bata/goptuna"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/readnext-io/readnext/base"
	"github.com/readnext-io/readnext/base/log"
	"github.com/readnext-io/readnext/base/parallel"
	"github.com/readnext-io/readnext/base/progress"
	"github.com/readnext-io/readnext/dataset"
	"github.com/readnext-io/readnext/model"
)

// ErrSingularSystem is returned when a per-row linear system cannot be
// factorized. With a positive regularization the system is symmetric positive
// definite, so this only happens when Reg is zero.
var ErrSingularSystem = errors.New("singular linear system in factor update")

// ALS is the weighted regularized matrix factorization for implicit feedback.
// Every observed cell carries a preference of 1 with confidence 1+Alpha*value,
// every unobserved cell a preference of 0 with confidence exactly 1. User and
// item factors are solved alternately in closed form, each row through its own
// f x f system:
//
//	(Y^T Y + \sum_{i \in R(u)} (c_ui-1) y_i y_i^T + \lambda I) x_u = \sum_{i \in R(u)} c_ui y_i
//
// The uniform confidence-1 background contributes the shared Y^T Y term, so a
// dense confidence matrix is never materialized.
//
// Hyper-parameters:
//
//	NFactors   - The number of latent factors. Default is 20.
//	NEpochs    - The number of training epochs. Default is 20.
//	Reg        - The strength of regularization. Default is 0.1.
//	Alpha      - The confidence scaling for observed cells. Default is 40.
//	InitMean   - The mean of initial latent factors. Default is 0.
//	InitStdDev - The standard deviation of initial latent factors. Default is 0.1.
type ALS struct {
	BaseMatrixFactorization
	// Hyper parameters
	nFactors   int
	nEpochs    int
	reg        float32
	alpha      float32
	initMean   float32
	initStdDev float32
}

// NewALS creates an ALS model.
func NewALS(params model.Params) *ALS {
	als := new(ALS)
	als.SetParams(params)
	return als
}

// SetParams sets hyper-parameters for the ALS model.
func (als *ALS) SetParams(params model.Params) {
	als.BaseMatrixFactorization.SetParams(params)
	als.nFactors = als.Params.GetInt(model.NFactors, 20)
	als.nEpochs = als.Params.GetInt(model.NEpochs, 20)
	als.reg = als.Params.GetFloat32(model.Reg, 0.1)
	als.alpha = als.Params.GetFloat32(model.Alpha, 40)
	als.initMean = als.Params.GetFloat32(model.InitMean, 0)
	als.initStdDev = als.Params.GetFloat32(model.InitStdDev, 0.1)
}

func (als *ALS) SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.NFactors:   lo.Must(trial.SuggestStepInt(string(model.NFactors), 8, 64, 8)),
		model.Reg:        lo.Must(trial.SuggestLogFloat(string(model.Reg), 0.001, 1)),
		model.Alpha:      lo.Must(trial.SuggestLogFloat(string(model.Alpha), 1, 100)),
		model.InitMean:   0,
		model.InitStdDev: lo.Must(trial.SuggestLogFloat(string(model.InitStdDev), 0.001, 0.1)),
	}
}

func (als *ALS) Init(trainSet *dataset.Dataset) {
	als.UserFactor = als.GetRandomGenerator().NormalMatrix(trainSet.CountUsers(), als.nFactors, als.initMean, als.initStdDev)
	als.ItemFactor = als.GetRandomGenerator().NormalMatrix(trainSet.CountItems(), als.nFactors, als.initMean, als.initStdDev)
	als.BaseMatrixFactorization.Init(trainSet)
}

// Fit the ALS model. The epoch count is fixed, there is no convergence check.
// Each epoch runs the user half-step and the item half-step; parallel row
// updates within a half-step only read the factors held fixed by that
// half-step, and the join of the worker pool is the barrier between them.
func (als *ALS) Fit(ctx context.Context, trainSet, valSet *dataset.Dataset, config *FitConfig) (Score, error) {
	config = config.LoadDefaultIfNil()
	if trainSet.CountUsers() == 0 || trainSet.CountItems() == 0 {
		return Score{}, errors.Annotatef(ErrEmptyDataset,
			"fit als on %v users and %v items", trainSet.CountUsers(), trainSet.CountItems())
	}
	log.Logger().Info("fit als",
		zap.Int("train_set_size", trainSet.CountFeedback()),
		zap.Int("test_set_size", valSet.CountFeedback()),
		zap.Any("params", als.GetParams()),
		zap.Any("config", config))
	als.Init(trainSet)
	confidence := trainSet.Scale(float64(als.alpha))
	// Per-worker temporaries for the f x f systems
	a := make([]*mat.SymDense, config.Jobs)
	b := make([]*mat.VecDense, config.Jobs)
	x := make([]*mat.VecDense, config.Jobs)
	t := make([]*mat.VecDense, config.Jobs)
	for i := 0; i < config.Jobs; i++ {
		a[i] = mat.NewSymDense(als.nFactors, nil)
		b[i] = mat.NewVecDense(als.nFactors, nil)
		x[i] = mat.NewVecDense(als.nFactors, nil)
		t[i] = mat.NewVecDense(als.nFactors, nil)
	}
	userFactor := mat.NewDense(trainSet.CountUsers(), als.nFactors, nil)
	itemFactor := mat.NewDense(trainSet.CountItems(), als.nFactors, nil)
	background := mat.NewSymDense(als.nFactors, nil)
	// evaluate initial model
	evalStart := time.Now()
	scores := Evaluate(als, valSet, trainSet, config.TopK, config.Candidates, config.Jobs, NDCG, Precision, Recall)
	evalTime := time.Since(evalStart)
	log.Logger().Debug(fmt.Sprintf("fit als %v/%v", 0, als.nEpochs),
		zap.String("eval_time", evalTime.String()),
		zap.Float32(fmt.Sprintf("NDCG@%v", config.TopK), scores[0]),
		zap.Float32(fmt.Sprintf("Precision@%v", config.TopK), scores[1]),
		zap.Float32(fmt.Sprintf("Recall@%v", config.TopK), scores[2]))

	_, span := progress.Start(ctx, "ALS.Fit", als.nEpochs)
	for ep := 1; ep <= als.nEpochs; ep++ {
		fitStart := time.Now()
		// Recompute all user factors:
		// (Y^T Y + Y^T (C^u - I) Y + \lambda I) x_u = Y^T C^u p(u)
		copyFactor(itemFactor, als.ItemFactor)
		background.SymOuterK(1, itemFactor.T())
		err := parallel.Parallel(trainSet.CountUsers(), config.Jobs, func(workerId, userIndex int) error {
			if err := als.solveRow(confidence.GetUserFeedback()[userIndex], itemFactor, background,
				a[workerId], b[workerId], x[workerId], t[workerId]); err != nil {
				return errors.Trace(err)
			}
			writeRow(als.UserFactor[userIndex], x[workerId])
			return nil
		})
		if err != nil {
			span.Fail(err)
			return Score{}, errors.Trace(err)
		}
		// Recompute all item factors:
		// (X^T X + X^T (C^i - I) X + \lambda I) y_i = X^T C^i p(i)
		copyFactor(userFactor, als.UserFactor)
		background.SymOuterK(1, userFactor.T())
		err = parallel.Parallel(trainSet.CountItems(), config.Jobs, func(workerId, itemIndex int) error {
			if err := als.solveRow(confidence.GetItemFeedback()[itemIndex], userFactor, background,
				a[workerId], b[workerId], x[workerId], t[workerId]); err != nil {
				return errors.Trace(err)
			}
			writeRow(als.ItemFactor[itemIndex], x[workerId])
			return nil
		})
		if err != nil {
			span.Fail(err)
			return Score{}, errors.Trace(err)
		}
		fitTime := time.Since(fitStart)
		// Cross validation
		if ep%config.Verbose == 0 || ep == als.nEpochs {
			evalStart = time.Now()
			scores = Evaluate(als, valSet, trainSet, config.TopK, config.Candidates, config.Jobs, NDCG, Precision, Recall)
			evalTime = time.Since(evalStart)
			log.Logger().Debug(fmt.Sprintf("fit als %v/%v", ep, als.nEpochs),
				zap.String("fit_time", fitTime.String()),
				zap.String("eval_time", evalTime.String()),
				zap.Float64("objective", als.Objective(trainSet)),
				zap.Float32(fmt.Sprintf("NDCG@%v", config.TopK), scores[0]),
				zap.Float32(fmt.Sprintf("Precision@%v", config.TopK), scores[1]),
				zap.Float32(fmt.Sprintf("Recall@%v", config.TopK), scores[2]))
		}
		span.Add(1)
	}
	span.End()

	log.Logger().Info("fit als complete",
		zap.Float32(fmt.Sprintf("NDCG@%v", config.TopK), scores[0]),
		zap.Float32(fmt.Sprintf("Precision@%v", config.TopK), scores[1]),
		zap.Float32(fmt.Sprintf("Recall@%v", config.TopK), scores[2]))
	return Score{
		NDCG:      scores[0],
		Precision: scores[1],
		Recall:    scores[2],
	}, nil
}

// solveRow solves one row's f x f system. feedback holds the row's scaled
// confidence corrections c-1, fixed holds the factors of the opposite side,
// background holds their precomputed Gram matrix.
func (als *ALS) solveRow(feedback *base.SparseVector, fixed *mat.Dense, background *mat.SymDense,
	a *mat.SymDense, b, x, t *mat.VecDense) error {
	a.CopySym(background)
	for k := 0; k < als.nFactors; k++ {
		a.SetSym(k, k, a.At(k, k)+float64(als.reg))
	}
	b.Zero()
	feedback.ForEach(func(_ int, index int32, correction float64) {
		row := fixed.RowView(int(index))
		a.SymRankOne(a, correction, row)
		t.ScaleVec(1+correction, row)
		b.AddVec(b, t)
	})
	var chol mat.Cholesky
	if !chol.Factorize(a) {
		return errors.Trace(ErrSingularSystem)
	}
	if err := chol.SolveVecTo(x, b); err != nil {
		return errors.Trace(ErrSingularSystem)
	}
	return nil
}

// Objective evaluates the weighted regularized reconstruction objective
//
//	\sum_{u,i} c_ui (p_ui - x_u y_i)^2 + \lambda (|X|_F^2 + |Y|_F^2)
//
// on the current factors against set, using the same background plus sparse
// correction decomposition as the solver.
func (als *ALS) Objective(set *dataset.Dataset) float64 {
	var objective float64
	if set.CountUsers() > 0 && set.CountItems() > 0 {
		confidence := set.Scale(float64(als.alpha))
		itemFactor := mat.NewDense(set.CountItems(), als.nFactors, nil)
		copyFactor(itemFactor, als.ItemFactor)
		background := mat.NewSymDense(als.nFactors, nil)
		background.SymOuterK(1, itemFactor.T())
		x := mat.NewVecDense(als.nFactors, nil)
		t := mat.NewVecDense(als.nFactors, nil)
		for userIndex := 0; userIndex < set.CountUsers(); userIndex++ {
			row := als.UserFactor[userIndex]
			for k := 0; k < als.nFactors; k++ {
				x.SetVec(k, float64(row[k]))
			}
			// background: \sum_i (x_u y_i)^2 over all items with c=1, p=0
			t.MulVec(background, x)
			objective += mat.Dot(x, t)
			// corrections at observed cells: c (1-pred)^2 replaces pred^2
			confidence.GetUserFeedback()[userIndex].ForEach(func(_ int, itemIndex int32, correction float64) {
				pred := mat.Dot(x, itemFactor.RowView(int(itemIndex)))
				objective += (1 + correction) * (1 - pred) * (1 - pred)
				objective -= pred * pred
			})
		}
	}
	for _, row := range als.UserFactor {
		for _, v := range row {
			objective += float64(als.reg) * float64(v) * float64(v)
		}
	}
	for _, row := range als.ItemFactor {
		for _, v := range row {
			objective += float64(als.reg) * float64(v) * float64(v)
		}
	}
	return objective
}

// Marshal model into byte stream.
func (als *ALS) Marshal(w io.Writer) error {
	if err := als.BaseMatrixFactorization.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal model from byte stream.
func (als *ALS) Unmarshal(r io.Reader) error {
	if err := als.BaseMatrixFactorization.Unmarshal(r); err != nil {
		return errors.Trace(err)
	}
	als.SetParams(als.Params)
	return nil
}

func copyFactor(dst *mat.Dense, src [][]float32) {
	for i, row := range src {
		for j, v := range row {
			dst.Set(i, j, float64(v))
		}
	}
}

func writeRow(dst []float32, src *mat.VecDense) {
	for k := range dst {
		dst[k] = float32(src.AtVec(k))
	}
}
