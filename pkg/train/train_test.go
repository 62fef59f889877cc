package train

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tapegraph/neuralmachine/internal/machine"
	"github.com/tapegraph/neuralmachine/internal/operator"
	"github.com/tapegraph/neuralmachine/internal/tensor"
	"github.com/tapegraph/neuralmachine/pkg/config"
	"github.com/tapegraph/neuralmachine/pkg/dataloader"
)

func twoFeatureModel(ctx *operator.Context) (map[string]*operator.TensorWithGrad, *operator.TensorWithGrad, error) {
	x := operator.Leaf(tensor.New(2, 2))
	linear := operator.NewLinear(ctx, 2, 1)
	predicted, err := linear.Forward(x)
	if err != nil {
		return nil, nil, err
	}
	return map[string]*operator.TensorWithGrad{"x": x}, predicted, nil
}

func rssLoss(ctx *operator.Context, predicted *operator.TensorWithGrad) (*operator.TensorWithGrad, *operator.TensorWithGrad, error) {
	expected := operator.Leaf(tensor.New(predicted.Value.Rows, predicted.Value.Cols))
	loss, err := operator.NewResidualSumOfSquares(ctx).Forward(predicted, expected)
	return expected, loss, err
}

func TestSessionTrainRunsWithoutError(t *testing.T) {
	cfg := config.DefaultMachineConfig()
	m, err := machine.TryNew(cfg, twoFeatureModel, rssLoss)
	require.NoError(t, err)

	ds := dataloader.NewSimpleDataset(
		[]float32{1, 1, 2, 2, 3, 3, 4, 4}, 2,
		[]float32{2, 4, 6, 8}, 1,
	)
	loader := dataloader.New(ds, dataloader.Config{BatchSize: 2, Seed: 1})

	var epochsLogged int
	logger := &ProgressLogger{Every: 1}
	session := &Session{
		Machine:    m,
		Loader:     loader,
		InputName:  "x",
		TargetName: "expected",
		Callbacks:  NewCallbackList(logger, &countingCallback{count: &epochsLogged}),
		NumEpochs:  2,
	}
	require.NoError(t, session.Train())
	assert.Equal(t, 2, epochsLogged)
}

type countingCallback struct{ count *int }

func (c *countingCallback) OnTrainBegin(ctx *TrainingContext) error { return nil }
func (c *countingCallback) OnTrainEnd(ctx *TrainingContext) error   { return nil }
func (c *countingCallback) OnEpochBegin(ctx *TrainingContext) error { return nil }
func (c *countingCallback) OnBatchEnd(ctx *TrainingContext) error   { return nil }
func (c *countingCallback) OnEpochEnd(ctx *TrainingContext) error {
	*c.count++
	return nil
}

func TestEarlyStoppingStopsAfterPatienceExceeded(t *testing.T) {
	es := &EarlyStopping{Patience: 2, MinDelta: 0.01}
	require.NoError(t, es.OnTrainBegin(&TrainingContext{}))

	ctx := &TrainingContext{Loss: 1.0}
	require.NoError(t, es.OnEpochEnd(ctx))
	assert.False(t, ctx.StopTraining)

	ctx.Loss = 1.0
	require.NoError(t, es.OnEpochEnd(ctx))
	assert.False(t, ctx.StopTraining)

	ctx.Loss = 1.0
	require.NoError(t, es.OnEpochEnd(ctx))
	assert.True(t, ctx.StopTraining)
}
