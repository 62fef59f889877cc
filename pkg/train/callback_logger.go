package train

import "fmt"

// ProgressLogger prints one line per epoch with the last batch's loss,
// grounded on the teacher's callback_logger.go/callback_progress.go
// pair collapsed into a single callback.
type ProgressLogger struct {
	Every int // log every Nth epoch; 0 or 1 logs every epoch
}

var _ Callback = (*ProgressLogger)(nil)

func (p *ProgressLogger) OnTrainBegin(ctx *TrainingContext) error {
	fmt.Printf("training: %d epochs\n", ctx.NumEpochs)
	return nil
}

func (p *ProgressLogger) OnTrainEnd(ctx *TrainingContext) error {
	fmt.Println("training: done")
	return nil
}

func (p *ProgressLogger) OnEpochBegin(ctx *TrainingContext) error { return nil }

func (p *ProgressLogger) OnEpochEnd(ctx *TrainingContext) error {
	every := p.Every
	if every <= 0 {
		every = 1
	}
	if (ctx.Epoch+1)%every == 0 {
		fmt.Printf("epoch %d/%d: batches=%d loss=%.6f\n", ctx.Epoch+1, ctx.NumEpochs, ctx.Batch, ctx.Loss)
	}
	return nil
}

func (p *ProgressLogger) OnBatchEnd(ctx *TrainingContext) error { return nil }
