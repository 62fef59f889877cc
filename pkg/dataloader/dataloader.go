package dataloader

import "math/rand"

// Batch is one mini-batch: batchSize rows of features and targets,
// each flattened row-major so it can be handed straight to
// NeuralMachine.WriteInput.
type Batch struct {
	Features, Targets   []float32
	FeatureDim, TargetDim int
	Size                 int
}

// Config parametrizes a DataLoader.
type Config struct {
	BatchSize int
	Shuffle   bool
	DropLast  bool
	Seed      int64
}

// DataLoader iterates a Dataset in shuffled, batched order, adapted
// from the teacher's pkg/dataloader.DataLoader with the same
// Fisher-Yates shuffle and drop-last convention.
type DataLoader struct {
	dataset Dataset
	cfg     Config
	rng     *rand.Rand

	indices []int
	pos     int
}

// New returns a DataLoader over dataset. Panics if cfg.BatchSize is
// non-positive or larger than the dataset.
func New(dataset Dataset, cfg Config) *DataLoader {
	if cfg.BatchSize <= 0 {
		panic("dataloader: batch size must be positive")
	}
	if cfg.BatchSize > dataset.Len() {
		panic("dataloader: batch size cannot exceed dataset size")
	}
	indices := make([]int, dataset.Len())
	for i := range indices {
		indices[i] = i
	}
	dl := &DataLoader{
		dataset: dataset,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		indices: indices,
	}
	if cfg.Shuffle {
		dl.shuffle()
	}
	return dl
}

func (dl *DataLoader) shuffle() {
	for i := len(dl.indices) - 1; i > 0; i-- {
		j := dl.rng.Intn(i + 1)
		dl.indices[i], dl.indices[j] = dl.indices[j], dl.indices[i]
	}
}

// Reset rewinds to the start of a new epoch, reshuffling if configured.
func (dl *DataLoader) Reset() {
	dl.pos = 0
	if dl.cfg.Shuffle {
		dl.shuffle()
	}
}

// HasNext reports whether Next has another batch to return.
func (dl *DataLoader) HasNext() bool {
	remaining := len(dl.indices) - dl.pos
	if dl.cfg.DropLast {
		return remaining >= dl.cfg.BatchSize
	}
	return remaining > 0
}

// Next returns the next batch. Panics if HasNext is false.
func (dl *DataLoader) Next() *Batch {
	if !dl.HasNext() {
		panic("dataloader: no more batches, call Reset for a new epoch")
	}
	remaining := len(dl.indices) - dl.pos
	size := dl.cfg.BatchSize
	if remaining < size {
		size = remaining
	}
	batchIndices := dl.indices[dl.pos : dl.pos+size]
	dl.pos += size

	sampleFeatures, sampleTargets := dl.dataset.Get(batchIndices[0])
	featureDim, targetDim := len(sampleFeatures), len(sampleTargets)

	batch := &Batch{
		Features:   make([]float32, 0, size*featureDim),
		Targets:    make([]float32, 0, size*targetDim),
		FeatureDim: featureDim,
		TargetDim:  targetDim,
		Size:       size,
	}
	for _, idx := range batchIndices {
		f, t := dl.dataset.Get(idx)
		batch.Features = append(batch.Features, f...)
		batch.Targets = append(batch.Targets, t...)
	}
	return batch
}

// Len returns the number of batches in one epoch.
func (dl *DataLoader) Len() int {
	total := dl.dataset.Len()
	if dl.cfg.DropLast {
		return total / dl.cfg.BatchSize
	}
	return (total + dl.cfg.BatchSize - 1) / dl.cfg.BatchSize
}
