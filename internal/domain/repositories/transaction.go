package repositories

import "context"

// TransactionManager runs fn inside one store transaction. Repositories called
// with the ctx passed to fn join that transaction.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
