package services

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"car-valuation/models"
	"car-valuation/utils"
)

// TrainOptions controls a training run.
type TrainOptions struct {
	K              int
	TestFraction   float64
	Seed           int64
	CVFolds        int
	MaxConcurrency int
}

// DefaultTrainOptions mirrors the configuration defaults.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{K: 5, TestFraction: 0.2, Seed: 42, CVFolds: 5, MaxConcurrency: 4}
}

// Trainer fits the encoder and estimator on a clean corpus and scores them.
type Trainer struct {
	logger *utils.Logger
	opts   TrainOptions
	now    func() time.Time
}

func NewTrainer(logger *utils.Logger, opts TrainOptions) *Trainer {
	return &Trainer{logger: logger, opts: opts, now: time.Now}
}

// Train produces a complete, validated bundle. The bundle ID is left for the
// artifact store to assign.
//
// Vocabularies cover the whole corpus so every held-out record has a code.
// The scaler and the neighbor index only see the training split.
func (t *Trainer) Train(records []models.CleanRecord) (*models.ArtifactBundle, error) {
	if err := t.validate(len(records)); err != nil {
		return nil, err
	}

	train, test := t.split(records)
	t.logger.Info("[trainer] Split %d records into %d train / %d test (seed %d)",
		len(records), len(train), len(test), t.opts.Seed)

	brands, modelVocab := FitVocabularies(records)
	enc := NewEncoder(brands, modelVocab, nil)

	rawTrain := make([]models.FeatureVector, len(train))
	for i, r := range train {
		rawTrain[i], _ = enc.Encode(r.Vehicle)
	}
	scaler, err := FitScaler(rawTrain)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	enc.Scaler = scaler
	t.logger.Debug("[trainer] Vocabularies: %d brands, %d models", brands.Len(), modelVocab.Len())

	index := &models.NeighborIndex{
		Vectors: enc.TransformAll(train),
		Records: train,
	}
	est := NewEstimator()
	if err := est.Fit(index); err != nil {
		return nil, err
	}

	metrics := &models.Metrics{
		K:               t.opts.K,
		TrainingSamples: len(train),
		TestSamples:     len(test),
	}

	trainPred, err := predictAll(est, index.Vectors, t.opts.K)
	if err != nil {
		return nil, err
	}
	metrics.TrainMAE, metrics.TrainRMSE, metrics.TrainR2 = scoreRegression(prices(train), trainPred)

	testPred, err := predictAll(est, enc.TransformAll(test), t.opts.K)
	if err != nil {
		return nil, err
	}
	metrics.TestMAE, metrics.TestRMSE, metrics.TestR2 = scoreRegression(prices(test), testPred)

	metrics.CVMAE, metrics.CVStd, err = t.crossValidate(index)
	if err != nil {
		return nil, err
	}

	t.logger.Info("[trainer] Test MAE %.2f, RMSE %.2f, R2 %.4f", metrics.TestMAE, metrics.TestRMSE, metrics.TestR2)
	t.logger.Info("[trainer] %d-fold CV MAE %.2f (± %.2f)", t.opts.CVFolds, metrics.CVMAE, metrics.CVStd)

	params := scaler.Params()
	bundle := &models.ArtifactBundle{
		SchemaVersion: models.SchemaVersion,
		CreatedAt:     t.now().UTC(),
		Brands:        brands.Snapshot(),
		Models:        modelVocab.Snapshot(),
		Scaler:        &params,
		Index:         index,
		Metrics:       metrics,
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	return bundle, nil
}

func (t *Trainer) validate(n int) error {
	o := t.opts
	if o.K < 1 {
		return fmt.Errorf("k=%d: %w", o.K, models.ErrInvalidArgument)
	}
	if o.TestFraction <= 0 || o.TestFraction >= 1 {
		return fmt.Errorf("test fraction %v outside (0, 1): %w", o.TestFraction, models.ErrInvalidArgument)
	}
	if o.CVFolds < 2 {
		return fmt.Errorf("cv folds %d below 2: %w", o.CVFolds, models.ErrInvalidArgument)
	}

	nTest := testSize(n, o.TestFraction)
	nTrain := n - nTest
	if nTest < 1 || nTrain < 1 {
		return fmt.Errorf("corpus of %d records too small to split: %w", n, models.ErrInvalidArgument)
	}
	if nTrain < o.K {
		return fmt.Errorf("%d training records for k=%d: %w", nTrain, o.K, models.ErrInvalidArgument)
	}
	if nTrain < o.CVFolds {
		return fmt.Errorf("%d training records for %d folds: %w", nTrain, o.CVFolds, models.ErrInvalidArgument)
	}
	// The largest fold leaves the fewest records to search.
	if nTrain-int(math.Ceil(float64(nTrain)/float64(o.CVFolds))) < o.K {
		return fmt.Errorf("%d training records too few for %d folds at k=%d: %w",
			nTrain, o.CVFolds, o.K, models.ErrInvalidArgument)
	}
	return nil
}

func testSize(n int, fraction float64) int {
	return int(math.Ceil(fraction * float64(n)))
}

// split shuffles with the seeded source and holds out the first
// ceil(fraction·n) records of the permutation.
func (t *Trainer) split(records []models.CleanRecord) (train, test []models.CleanRecord) {
	rng := rand.New(rand.NewSource(t.opts.Seed))
	perm := rng.Perm(len(records))
	nTest := testSize(len(records), t.opts.TestFraction)

	test = make([]models.CleanRecord, 0, nTest)
	train = make([]models.CleanRecord, 0, len(records)-nTest)
	for i, p := range perm {
		if i < nTest {
			test = append(test, records[p])
		} else {
			train = append(train, records[p])
		}
	}
	return train, test
}

// crossValidate scores contiguous folds of the already-scaled training index
// and returns the mean fold MAE and its population standard deviation.
func (t *Trainer) crossValidate(index *models.NeighborIndex) (mean, std float64, err error) {
	n := index.Len()
	bounds := foldBounds(n, t.opts.CVFolds)
	maes := make([]float64, len(bounds))
	errs := make([]error, len(bounds))

	pool := utils.NewWorkerPool(t.opts.MaxConcurrency, 0)
	for f, b := range bounds {
		pool.Submit(func() {
			maes[f], errs[f] = scoreFold(index, b[0], b[1], t.opts.K)
		})
	}
	pool.Wait()

	for f, e := range errs {
		if e != nil {
			return 0, 0, fmt.Errorf("fold %d: %w", f+1, e)
		}
		t.logger.Debug("[trainer] Fold %d/%d MAE %.2f", f+1, len(bounds), maes[f])
	}
	mean, std = meanStd(maes)
	return mean, std, nil
}

// foldBounds splits [0, n) into folds contiguous ranges; the first n%folds
// ranges are one longer.
func foldBounds(n, folds int) [][2]int {
	bounds := make([][2]int, folds)
	start := 0
	for f := 0; f < folds; f++ {
		size := n / folds
		if f < n%folds {
			size++
		}
		bounds[f] = [2]int{start, start + size}
		start += size
	}
	return bounds
}

func scoreFold(index *models.NeighborIndex, lo, hi, k int) (float64, error) {
	fit := &models.NeighborIndex{
		Vectors: make([]models.FeatureVector, 0, index.Len()-(hi-lo)),
		Records: make([]models.CleanRecord, 0, index.Len()-(hi-lo)),
	}
	fit.Vectors = append(append(fit.Vectors, index.Vectors[:lo]...), index.Vectors[hi:]...)
	fit.Records = append(append(fit.Records, index.Records[:lo]...), index.Records[hi:]...)

	est := NewEstimator()
	if err := est.Fit(fit); err != nil {
		return 0, err
	}
	predicted, err := predictAll(est, index.Vectors[lo:hi], k)
	if err != nil {
		return 0, err
	}
	mae, _, _ := scoreRegression(prices(index.Records[lo:hi]), predicted)
	return mae, nil
}

func predictAll(est *Estimator, vectors []models.FeatureVector, k int) ([]float64, error) {
	out := make([]float64, len(vectors))
	for i, v := range vectors {
		e, err := est.Predict(v, k)
		if err != nil {
			return nil, err
		}
		out[i] = e.Price
	}
	return out, nil
}

func prices(records []models.CleanRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.SoldPrice
	}
	return out
}

// scoreRegression returns MAE, RMSE and R². With constant actual values R² is
// 1 for a perfect fit and 0 otherwise.
func scoreRegression(actual, predicted []float64) (mae, rmse, r2 float64) {
	if len(actual) == 0 {
		return 0, 0, 0
	}
	n := float64(len(actual))
	mean, _ := meanStd(actual)

	var absSum, sqSum, totSum float64
	for i, y := range actual {
		d := y - predicted[i]
		absSum += math.Abs(d)
		sqSum += d * d
		totSum += (y - mean) * (y - mean)
	}

	mae = absSum / n
	rmse = math.Sqrt(sqSum / n)
	switch {
	case totSum != 0:
		r2 = 1 - sqSum/totSum
	case sqSum == 0:
		r2 = 1
	}
	return mae, rmse, r2
}

// meanStd returns the mean and population standard deviation.
func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		std += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(std / float64(len(xs)))
}
