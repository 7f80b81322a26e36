package repository

import "context"

// Transactor runs fn in a single store transaction. Repositories called with
// the context handed to fn take part in it; fn returning an error rolls
// everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
