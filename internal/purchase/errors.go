package purchase

import "example.com/restock/internal/errs"

// Fatal worker outcomes. They are attached with errs.Mark, so match them
// with errs.Is; the underlying cause stays in the chain.
var (
	ErrSessionFailed           = errs.New("session could not be established")
	ErrSnapshotsClosed         = errs.New("snapshot channel closed")
	ErrMissingVariant          = errs.New("no variant available to purchase")
	ErrOrderCreationFailed     = errs.New("order creation failed")
	ErrAddressAssignmentFailed = errs.New("address assignment failed")
	// ErrPaymentSubmissionFailed is never fatal; it is what Stats counts as a failed payment.
	ErrPaymentSubmissionFailed = errs.New("payment submission failed")
)
