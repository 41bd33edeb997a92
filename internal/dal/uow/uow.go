package uow

import (
	"context"
	"database/sql"
	"errors"

	iorder "github.com/corray333/backend-labs/checkout/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/checkout/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/checkout/internal/dal/interfaces/iuow"
	orderrepo "github.com/corray333/backend-labs/checkout/internal/dal/repositories/order/postgres"
	outboxrepo "github.com/corray333/backend-labs/checkout/internal/dal/repositories/outbox/postgres"
)

type unitOfWork struct {
	db         *sql.DB
	tx         *sql.Tx
	orderRepo  iorder.IOrderRepository
	outboxRepo ioutboxrepo.IOutboxRepository
}

func (u *unitOfWork) OrderRepository() iorder.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

// NewUnitOfWork returns a unit of work whose repositories use db until Begin is called.
func NewUnitOfWork(db *sql.DB) iuow.IUnitOfWork {
	return &unitOfWork{
		db:         db,
		orderRepo:  orderrepo.NewPostgresOrderRepository(db),
		outboxRepo: outboxrepo.NewOutboxRepository(db),
	}
}

// NewFactory returns a factory producing units of work on db.
func NewFactory(db *sql.DB) iuow.Factory {
	return func() iuow.IUnitOfWork {
		return NewUnitOfWork(db)
	}
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	u.tx = tx
	u.orderRepo = orderrepo.NewPostgresOrderRepository(tx)
	u.outboxRepo = outboxrepo.NewOutboxRepository(tx)

	return nil
}

func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit()
}

// Rollback is a no-op after Commit.
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
