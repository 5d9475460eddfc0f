package service

import (
	"context"

	"go.uber.org/zap"
)

// CompensationStep is one undo action pushed after a forward step succeeds.
type CompensationStep struct {
	Label string
	Undo  func(ctx context.Context) error
}

// Compensation collects undo steps for the multi-store creation sequence.
// Steps are pushed in forward order and unwound strictly in reverse. Unwind
// is best-effort: a failing step is logged and the remaining steps still run.
// The error that triggered the unwind is what callers surface, never an
// unwind error.
type Compensation struct {
	steps []CompensationStep
}

// NewCompensation creates an empty compensation stack.
func NewCompensation() *Compensation {
	return &Compensation{}
}

// Add pushes an undo step.
func (c *Compensation) Add(label string, undo func(ctx context.Context) error) {
	c.steps = append(c.steps, CompensationStep{Label: label, Undo: undo})
}

// Len reports how many steps are pending.
func (c *Compensation) Len() int {
	return len(c.steps)
}

// Unwind runs every step in reverse order.
func (c *Compensation) Unwind(ctx context.Context, logger *zap.Logger) {
	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		if err := step.Undo(ctx); err != nil {
			logger.Error("compensation step failed",
				zap.String("step", step.Label),
				zap.Error(err))
			continue
		}
		logger.Info("compensation step applied", zap.String("step", step.Label))
	}
	c.steps = nil
}
