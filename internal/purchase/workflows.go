package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	temporalworker "go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"example.com/restock/internal/errs"
	"example.com/restock/internal/storefront"
)

const (
	// DefaultTaskQueue is the base name of the checkout task queue. Activities
	// resolve workers through an in-process Registry, so every process must
	// poll a queue of its own; see InstanceTaskQueue.
	DefaultTaskQueue = "restock-checkout"

	cycleWorkflowName           = "restock.purchase.cycle"
	createOrderActivityName     = "restock.purchase.create_order"
	assignAddressesActivityName = "restock.purchase.assign_addresses"
	submitPaymentActivityName   = "restock.purchase.submit_payment"

	// Application error types returned by the workflow for fatal steps.
	OrderCreationFailedType     = "OrderCreationFailed"
	AddressAssignmentFailedType = "AddressAssignmentFailed"
	unknownWorkerType           = "UnknownWorker"

	stepTimeout = 30 * time.Second
	minInterval = time.Millisecond
)

// InstanceTaskQueue derives a task queue name unique to this process from base.
func InstanceTaskQueue(base string) string {
	if base == "" {
		base = DefaultTaskQueue
	}
	return base + "-" + uuid.NewString()
}

// CycleInput carries one cycle into the workflow.
type CycleInput struct {
	WorkerID        string             `json:"workerId"`
	ProductID       int64              `json:"productId"`
	Variant         storefront.Variant `json:"variant"`
	OrderAttempts   int32              `json:"orderAttempts"`
	AddressAttempts int32              `json:"addressAttempts"`
	Backoff         time.Duration      `json:"backoff"`
}

// OrderInput addresses a step that acts on an existing order.
type OrderInput struct {
	WorkerID string `json:"workerId"`
	OrderID  int64  `json:"orderId"`
}

// Registry lets activities find the worker, and therefore the session, a
// cycle belongs to.
type Registry struct {
	mu      sync.RWMutex
	workers map[string]*Worker
}

func NewRegistry() *Registry {
	return &Registry{workers: make(map[string]*Worker)}
}

func (r *Registry) Add(w *Worker) {
	r.mu.Lock()
	r.workers[w.ID()] = w
	r.mu.Unlock()
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.workers, id)
	r.mu.Unlock()
}

func (r *Registry) Lookup(id string) (*Worker, error) {
	r.mu.RLock()
	w, ok := r.workers[id]
	r.mu.RUnlock()
	if !ok {
		return nil, temporal.NewNonRetryableApplicationError(fmt.Sprintf("worker %s is not registered", id), unknownWorkerType, nil)
	}
	return w, nil
}

// CycleActivities are single attempts of each checkout step. Temporal owns the retries.
type CycleActivities struct {
	registry *Registry
	logger   *slog.Logger
}

func NewCycleActivities(registry *Registry, logger *slog.Logger) *CycleActivities {
	return &CycleActivities{registry: registry, logger: logger}
}

func (a *CycleActivities) CreateOrder(ctx context.Context, in CycleInput) (int64, error) {
	w, err := a.registry.Lookup(in.WorkerID)
	if err != nil {
		return 0, err
	}
	id, err := w.CreateOrder(ctx, Cycle{ProductID: in.ProductID, Variant: in.Variant})
	if err != nil {
		a.logger.Debug("activity create order failed", "worker_id", in.WorkerID, "attempt", activity.GetInfo(ctx).Attempt, "error", err)
		return 0, err
	}
	return id, nil
}

func (a *CycleActivities) AssignAddresses(ctx context.Context, in OrderInput) error {
	w, err := a.registry.Lookup(in.WorkerID)
	if err != nil {
		return err
	}
	if err := w.AssignAddresses(ctx, in.OrderID); err != nil {
		a.logger.Debug("activity assign addresses failed", "worker_id", in.WorkerID, "order_id", in.OrderID, "attempt", activity.GetInfo(ctx).Attempt, "error", err)
		return err
	}
	return nil
}

func (a *CycleActivities) SubmitPayment(ctx context.Context, in OrderInput) error {
	w, err := a.registry.Lookup(in.WorkerID)
	if err != nil {
		return err
	}
	return w.SubmitPayment(ctx, in.OrderID)
}

func stepOptions(ctx workflow.Context, attempts int32, backoff time.Duration) workflow.Context {
	if attempts < 1 {
		attempts = 1
	}
	if backoff < minInterval {
		backoff = minInterval
	}
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: stepTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        attempts,
			InitialInterval:        backoff,
			BackoffCoefficient:     1.0,
			MaximumInterval:        backoff,
			NonRetryableErrorTypes: []string{unknownWorkerType},
		},
	})
}

// PurchaseCycleWorkflow runs create order, assign addresses and submit
// payment in sequence. A failed payment ends the cycle normally with
// PaymentError set.
func PurchaseCycleWorkflow(ctx workflow.Context, in CycleInput) (CycleResult, error) {
	logger := workflow.GetLogger(ctx)
	if in.WorkerID == "" {
		return CycleResult{}, temporal.NewNonRetryableApplicationError("worker id required", unknownWorkerType, nil)
	}

	var orderID int64
	if err := workflow.ExecuteActivity(stepOptions(ctx, in.OrderAttempts, in.Backoff), createOrderActivityName, in).Get(ctx, &orderID); err != nil {
		logger.Error("create order exhausted", "worker_id", in.WorkerID, "error", err)
		return CycleResult{}, temporal.NewNonRetryableApplicationError("create order failed", OrderCreationFailedType, err)
	}

	order := OrderInput{WorkerID: in.WorkerID, OrderID: orderID}
	if err := workflow.ExecuteActivity(stepOptions(ctx, in.AddressAttempts, in.Backoff), assignAddressesActivityName, order).Get(ctx, nil); err != nil {
		logger.Error("assign addresses exhausted", "worker_id", in.WorkerID, "order_id", orderID, "error", err)
		return CycleResult{}, temporal.NewNonRetryableApplicationError("assign addresses failed", AddressAssignmentFailedType, err)
	}

	result := CycleResult{OrderID: orderID}
	if err := workflow.ExecuteActivity(stepOptions(ctx, 1, in.Backoff), submitPaymentActivityName, order).Get(ctx, nil); err != nil {
		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) {
			result.PaymentError = appErr.Error()
		} else {
			result.PaymentError = err.Error()
		}
	}
	return result, nil
}

// RegisterCycleWorker wires the Temporal worker that serves purchase cycles.
func RegisterCycleWorker(c client.Client, taskQueue string, registry *Registry, logger *slog.Logger) temporalworker.Worker {
	w := temporalworker.New(c, taskQueue, temporalworker.Options{})
	w.RegisterWorkflowWithOptions(PurchaseCycleWorkflow, workflow.RegisterOptions{Name: cycleWorkflowName})
	RegisterCycleActivities(w, NewCycleActivities(registry, logger.With("component", "purchase.activities")))
	return w
}

// ActivityRegistry is the subset of worker.Worker and the test environment used to register activities.
type ActivityRegistry interface {
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

func RegisterCycleActivities(r ActivityRegistry, a *CycleActivities) {
	r.RegisterActivityWithOptions(a.CreateOrder, activity.RegisterOptions{Name: createOrderActivityName})
	r.RegisterActivityWithOptions(a.AssignAddresses, activity.RegisterOptions{Name: assignAddressesActivityName})
	r.RegisterActivityWithOptions(a.SubmitPayment, activity.RegisterOptions{Name: submitPaymentActivityName})
}

// TemporalRunner executes every cycle as a PurchaseCycleWorkflow.
type TemporalRunner struct {
	client    client.Client
	taskQueue string
	registry  *Registry
	logger    *slog.Logger
}

func NewTemporalRunner(c client.Client, taskQueue string, registry *Registry, logger *slog.Logger) *TemporalRunner {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	return &TemporalRunner{client: c, taskQueue: taskQueue, registry: registry, logger: logger.With("component", "purchase.temporal")}
}

// Bind registers w for the activities until release is called.
func (r *TemporalRunner) Bind(w *Worker) (release func()) {
	r.registry.Add(w)
	return func() { r.registry.Remove(w.ID()) }
}

func (r *TemporalRunner) RunCycle(ctx context.Context, w *Worker, c Cycle) (CycleResult, error) {
	policies := w.Policies()
	in := CycleInput{
		WorkerID:        w.ID(),
		ProductID:       c.ProductID,
		Variant:         c.Variant,
		OrderAttempts:   int32(policies.Order.Attempts()),
		AddressAttempts: int32(policies.Address.Attempts()),
		Backoff:         policies.Order.Backoff,
	}
	options := client.StartWorkflowOptions{
		ID:                       fmt.Sprintf("purchase-%s-%s", w.ID(), uuid.NewString()),
		TaskQueue:                r.taskQueue,
		WorkflowIDReusePolicy:    enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionTimeout: 30 * time.Minute,
	}
	we, err := r.client.ExecuteWorkflow(ctx, options, cycleWorkflowName, in)
	if err != nil {
		if ctx.Err() != nil {
			return CycleResult{}, ctx.Err()
		}
		r.logger.Error("start workflow failed", "worker_id", w.ID(), "error", err)
		return CycleResult{}, errs.Wrap(err, "start purchase workflow")
	}
	var result CycleResult
	if err := we.Get(ctx, &result); err != nil {
		if ctx.Err() != nil {
			return CycleResult{}, ctx.Err()
		}
		r.logger.Error("wait workflow failed", "workflow_id", we.GetID(), "error", err)
		return CycleResult{}, cycleError(err)
	}
	return result, nil
}

// cycleError maps the workflow's typed failures back onto the worker sentinels.
func cycleError(err error) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		switch appErr.Type() {
		case OrderCreationFailedType:
			return errs.Mark(err, ErrOrderCreationFailed)
		case AddressAssignmentFailedType:
			return errs.Mark(err, ErrAddressAssignmentFailed)
		}
	}
	return err
}
