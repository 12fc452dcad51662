package services

import (
	"errors"
	"math"
	"testing"

	"car-valuation/models"
)

func syntheticCorpus(n int) []models.CleanRecord {
	brands := []string{"Toyota", "Honda", "Ford", "BMW"}
	modelNames := []string{"Camry", "Civic", "Focus", "X3", "Corolla"}
	out := make([]models.CleanRecord, n)
	for i := range out {
		year := 2000 + i
		out[i] = models.CleanRecord{
			Vehicle: models.Vehicle{
				Brand:          brands[i%len(brands)],
				Model:          modelNames[i%len(modelNames)],
				Year:           year,
				Mileage:        150000 - i*5000,
				ConditionScore: 1 + i%10,
			},
			SoldPrice: float64(3000 + i*1200),
		}
	}
	return out
}

func newTestTrainer(opts TrainOptions) *Trainer {
	tr := NewTrainer(newTestLogger(), opts)
	tr.now = fixedClock
	return tr
}

func TestTrainerSplit(t *testing.T) {
	corpus := syntheticCorpus(10)
	tr := newTestTrainer(DefaultTrainOptions())

	train, test := tr.split(corpus)
	if len(train) != 8 || len(test) != 2 {
		t.Fatalf("split sizes: got %d/%d, want 8/2", len(train), len(test))
	}

	seen := make(map[int]int)
	for _, r := range append(append([]models.CleanRecord{}, train...), test...) {
		seen[r.Year]++
	}
	if len(seen) != 10 {
		t.Errorf("split lost or duplicated records: %v", seen)
	}

	train2, test2 := newTestTrainer(DefaultTrainOptions()).split(corpus)
	for i := range test {
		if test[i].Year != test2[i].Year {
			t.Fatal("same seed produced a different split")
		}
	}
	for i := range train {
		if train[i].Year != train2[i].Year {
			t.Fatal("same seed produced a different split")
		}
	}
}

func TestTestSizeRoundsUp(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{10, 2},
		{11, 3},
		{4, 1},
		{100, 20},
	}
	for _, tt := range tests {
		if got := testSize(tt.n, 0.2); got != tt.want {
			t.Errorf("testSize(%d): got %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestFoldBounds(t *testing.T) {
	got := foldBounds(7, 3)
	want := [][2]int{{0, 3}, {3, 5}, {5, 7}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fold %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScoreRegression(t *testing.T) {
	mae, rmse, r2 := scoreRegression([]float64{1, 2, 3}, []float64{1, 2, 5})
	if math.Abs(mae-2.0/3) > 1e-12 {
		t.Errorf("mae: got %v", mae)
	}
	if math.Abs(rmse-math.Sqrt(4.0/3)) > 1e-12 {
		t.Errorf("rmse: got %v", rmse)
	}
	if math.Abs(r2-(1-4.0/2)) > 1e-12 {
		t.Errorf("r2: got %v, want -1", r2)
	}

	if _, _, r2 := scoreRegression([]float64{5, 5}, []float64{5, 5}); r2 != 1 {
		t.Errorf("constant perfect fit: r2 got %v, want 1", r2)
	}
	if _, _, r2 := scoreRegression([]float64{5, 5}, []float64{4, 6}); r2 != 0 {
		t.Errorf("constant imperfect fit: r2 got %v, want 0", r2)
	}
}

func TestMeanStdIsPopulation(t *testing.T) {
	mean, std := meanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 || std != 2 {
		t.Errorf("got mean %v std %v, want 5 and 2", mean, std)
	}
}

func TestTrain(t *testing.T) {
	corpus := syntheticCorpus(20)
	tr := newTestTrainer(DefaultTrainOptions())

	bundle, err := tr.Train(corpus)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if err := bundle.Validate(); err != nil {
		t.Fatalf("bundle invalid: %v", err)
	}
	if bundle.SchemaVersion != models.SchemaVersion {
		t.Errorf("schema version: got %d", bundle.SchemaVersion)
	}

	m := bundle.Metrics
	if m.K != 5 || m.TrainingSamples != 16 || m.TestSamples != 4 {
		t.Errorf("metrics header: %+v", m)
	}
	if bundle.Index.Len() != 16 {
		t.Errorf("index should hold the training split, got %d", bundle.Index.Len())
	}
	// Every training vector is unique, so it is its own exact match.
	if m.TrainMAE != 0 || m.TrainRMSE != 0 || m.TrainR2 != 1 {
		t.Errorf("train metrics: got MAE %v RMSE %v R2 %v", m.TrainMAE, m.TrainRMSE, m.TrainR2)
	}
	if m.TestMAE <= 0 || m.CVMAE <= 0 || m.CVStd < 0 {
		t.Errorf("held-out metrics look wrong: %+v", m)
	}

	if len(bundle.Brands.Labels) != 4 || len(bundle.Models.Labels) != 5 {
		t.Errorf("vocabularies should cover the whole corpus: %v %v", bundle.Brands.Labels, bundle.Models.Labels)
	}

	var yearSum float64
	for _, r := range bundle.Index.Records {
		yearSum += float64(r.Year)
	}
	if math.Abs(bundle.Scaler.Means[0]-yearSum/16) > 1e-9 {
		t.Errorf("scaler should be fitted on the training split only")
	}

	again, err := newTestTrainer(DefaultTrainOptions()).Train(corpus)
	if err != nil {
		t.Fatalf("retrain: %v", err)
	}
	if *again.Metrics != *m {
		t.Errorf("same seed gave different metrics: %+v vs %+v", again.Metrics, m)
	}
}

func TestTrainRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		mutate func(*TrainOptions)
	}{
		{"too small for k", 5, func(o *TrainOptions) {}},
		{"zero k", 20, func(o *TrainOptions) { o.K = 0 }},
		{"fraction of one", 20, func(o *TrainOptions) { o.TestFraction = 1 }},
		{"single fold", 20, func(o *TrainOptions) { o.CVFolds = 1 }},
		{"folds starve k", 8, func(o *TrainOptions) { o.CVFolds = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultTrainOptions()
			tt.mutate(&opts)
			_, err := newTestTrainer(opts).Train(syntheticCorpus(tt.n))
			if !errors.Is(err, models.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}
