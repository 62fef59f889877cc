package train

// EarlyStopping sets ctx.StopTraining once loss fails to improve by at
// least MinDelta for Patience consecutive epochs, grounded on the
// teacher's callback_earlystopping.go.
type EarlyStopping struct {
	Patience int
	MinDelta float64

	best      float64
	haveBest  bool
	badEpochs int
}

var _ Callback = (*EarlyStopping)(nil)

func (e *EarlyStopping) OnTrainBegin(ctx *TrainingContext) error {
	e.haveBest = false
	e.badEpochs = 0
	return nil
}

func (e *EarlyStopping) OnTrainEnd(ctx *TrainingContext) error { return nil }
func (e *EarlyStopping) OnEpochBegin(ctx *TrainingContext) error { return nil }
func (e *EarlyStopping) OnBatchEnd(ctx *TrainingContext) error  { return nil }

func (e *EarlyStopping) OnEpochEnd(ctx *TrainingContext) error {
	if !e.haveBest || ctx.Loss < e.best-e.MinDelta {
		e.best = ctx.Loss
		e.haveBest = true
		e.badEpochs = 0
		return nil
	}
	e.badEpochs++
	if e.badEpochs >= e.Patience {
		ctx.StopTraining = true
	}
	return nil
}
