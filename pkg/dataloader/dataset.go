// Package dataloader batches in-memory training examples for
// NeuralMachine.WriteInput, adapted from the teacher's pkg/dataloader
// but retargeted at flat float32 rows instead of the teacher's
// arbitrary-rank Shape/Strides tensor.
package dataloader

// Dataset is an indexed collection of (features, target) row pairs.
type Dataset interface {
	// Get returns the features and target row at index.
	Get(index int) (features, target []float32)
	// Len returns the number of examples.
	Len() int
}

// SimpleDataset is an in-memory Dataset backed by two flat row-major
// buffers.
type SimpleDataset struct {
	features, targets       []float32
	featureDim, targetDim    int
	numSamples               int
}

// NewSimpleDataset builds a SimpleDataset from flat row-major feature
// and target buffers; both must hold the same number of rows, and that
// row count becomes Len().
func NewSimpleDataset(features []float32, featureDim int, targets []float32, targetDim int) *SimpleDataset {
	if featureDim <= 0 || targetDim <= 0 {
		panic("dataloader: featureDim and targetDim must be positive")
	}
	if len(features)%featureDim != 0 || len(targets)%targetDim != 0 {
		panic("dataloader: buffer length must be a multiple of its row dimension")
	}
	numSamples := len(features) / featureDim
	if numSamples != len(targets)/targetDim {
		panic("dataloader: features and targets must have the same number of rows")
	}
	return &SimpleDataset{
		features:   features,
		targets:    targets,
		featureDim: featureDim,
		targetDim:  targetDim,
		numSamples: numSamples,
	}
}

// Get returns the index-th feature and target rows, each a fresh slice
// safe for the caller to retain.
func (ds *SimpleDataset) Get(index int) (features, target []float32) {
	if index < 0 || index >= ds.numSamples {
		panic("dataloader: index out of bounds")
	}
	f := make([]float32, ds.featureDim)
	copy(f, ds.features[index*ds.featureDim:(index+1)*ds.featureDim])
	tg := make([]float32, ds.targetDim)
	copy(tg, ds.targets[index*ds.targetDim:(index+1)*ds.targetDim])
	return f, tg
}

// Len returns the number of examples.
func (ds *SimpleDataset) Len() int { return ds.numSamples }
