package iuow

import (
	"context"

	iorder "github.com/corray333/backend-labs/checkout/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/checkout/internal/dal/interfaces/ioutboxrepo"
)

// IUnitOfWork groups repository calls into one transaction. Repositories returned
// after Begin run inside the transaction.
type IUnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	OrderRepository() iorder.IOrderRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// Factory creates a fresh unit of work per operation.
type Factory func() IUnitOfWork
