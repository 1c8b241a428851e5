package unitofwork

import "context"

// WithinTransaction runs fn inside the unit of work's transaction. When the
// caller already began one, fn joins it and the caller keeps ownership of
// commit and rollback.
func WithinTransaction(ctx context.Context, uow UnitOfWork, fn func() error) error {
	if uow.InTransaction() {
		return fn()
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := fn(); err != nil {
		return err
	}
	return uow.Commit()
}
