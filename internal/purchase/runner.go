package purchase

import (
	"context"

	"example.com/restock/internal/errs"
)

// Runner executes one purchase cycle for a worker: create order, assign
// addresses, submit payment. Only order and address exhaustion or context
// cancellation are returned as errors.
type Runner interface {
	RunCycle(ctx context.Context, w *Worker, c Cycle) (CycleResult, error)
}

// workerBinder is implemented by runners that keep the worker reachable by id
// for as long as Worker.Start runs.
type workerBinder interface {
	Bind(w *Worker) (release func())
}

// LocalRunner drives the cycle in-process with the worker's retry policies.
type LocalRunner struct{}

func (LocalRunner) RunCycle(ctx context.Context, w *Worker, c Cycle) (CycleResult, error) {
	policies := w.Policies()

	var orderID int64
	err := policies.Order.Do(ctx, func(ctx context.Context) error {
		id, err := w.CreateOrder(ctx, c)
		if err != nil {
			return err
		}
		orderID = id
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return CycleResult{}, ctx.Err()
		}
		return CycleResult{}, errs.Mark(errs.Wrap(err, "create order"), ErrOrderCreationFailed)
	}

	err = policies.Address.Do(ctx, func(ctx context.Context) error {
		return w.AssignAddresses(ctx, orderID)
	})
	if err != nil {
		if ctx.Err() != nil {
			return CycleResult{}, ctx.Err()
		}
		return CycleResult{}, errs.Mark(errs.Wrapf(err, "assign addresses to order %d", orderID), ErrAddressAssignmentFailed)
	}

	res := CycleResult{OrderID: orderID}
	if err := w.SubmitPayment(ctx, orderID); err != nil {
		if ctx.Err() != nil {
			return CycleResult{}, ctx.Err()
		}
		res.PaymentError = err.Error()
	}
	return res, nil
}
