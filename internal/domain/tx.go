package domain

import "context"

// TxManager runs a function as one atomic unit of work. The opaque handle is
// what the repositories' *Tx methods accept; any error returned from fn rolls
// back every write made through it.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(tx interface{}) error) error
}
