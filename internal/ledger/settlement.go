package ledger

import (
	"fmt"

	"go.uber.org/zap"
)

// settlement accumulates the external transfers of one purchase and executes
// them in order. When a step fails, every completed step is compensated in
// reverse order so no partial settlement survives.
type settlement struct {
	steps []settlementStep
}

type settlementStep struct {
	name   string
	apply  func() error
	revert func() error
}

func (s *settlement) add(name string, apply, revert func() error) {
	s.steps = append(s.steps, settlementStep{name, apply, revert})
}

func (s *settlement) execute() error {
	for i, step := range s.steps {
		if err := step.apply(); err != nil {
			zap.L().With(zap.Error(err), zap.String("step", step.name)).Warn("Settlement: Transfer failed, unwinding")
			s.unwind(i)
			return fmt.Errorf("%w: %s: %v", ErrTransferFailed, step.name, err)
		}
	}
	return nil
}

func (s *settlement) unwind(failed int) {
	for i := failed - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.revert == nil {
			continue
		}
		if err := step.revert(); err != nil {
			// The platform guarantees compensating transfers cannot be
			// denied; a failure here means escrow accounting is broken.
			zap.L().With(zap.Error(err), zap.String("step", step.name)).Error("Settlement: Failed to revert transfer")
		}
	}
}
