package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// TransactionManager provides a thin abstraction to execute a function
// within a database transaction, passing the underlying handle via `tx`.
//
// Repositories accept a Tx so a caller can group reads and writes
// (e.g. re-check a job is still non-terminal before persisting a phase
// transition). Repositories MUST gracefully accept a nil Tx and fall back
// to the pool for the non-transactional path.
//
// The concrete type of `tx` is infra-defined (pgx.Tx for Postgres).
// Keep this interface small and stable.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}

type afterCommitHooks struct {
	fns []func()
}

type afterCommitKey struct{}

// BeginAfterCommit derives a context that collects after-commit hooks and
// returns the function the transaction manager calls once the transaction
// committed. Hooks registered during a rolled-back transaction never run.
func BeginAfterCommit(ctx context.Context) (context.Context, func()) {
	h := &afterCommitHooks{}
	return context.WithValue(ctx, afterCommitKey{}, h), func() {
		for _, fn := range h.fns {
			fn()
		}
	}
}

// AfterCommit defers fn until the surrounding transaction commits. Outside
// a transaction fn runs immediately. Cache invalidation uses this: evicting
// before commit would let a concurrent reader re-fill the cache with the
// pre-commit row.
func AfterCommit(ctx context.Context, fn func()) {
	if h, ok := ctx.Value(afterCommitKey{}).(*afterCommitHooks); ok {
		h.fns = append(h.fns, fn)
		return
	}
	fn()
}
