package database

import (
	"context"
	"errors"
)

// ErrNoTransaction is returned when Commit or Rollback finds no transaction in the context.
var ErrNoTransaction = errors.New("no transaction in context")

type txKey struct{}

// txState is the transaction carried by a context. Only the unit of work
// that opened it may end it.
type txState struct {
	tx    Transaction
	owner *UnitOfWork
}

func stateFrom(ctx context.Context) (txState, bool) {
	state, ok := ctx.Value(txKey{}).(txState)
	return state, ok && state.tx != nil
}

// ExecutorFromContext returns the transaction in ctx, or conn when there is none.
func ExecutorFromContext(ctx context.Context, conn Connection) Executor {
	if state, ok := stateFrom(ctx); ok {
		return state.tx
	}
	return conn
}

// UnitOfWork opens one transaction on a connection and joins any that is
// already in the context, so a Save called inside a wider unit commits once.
type UnitOfWork struct {
	conn Connection
}

// NewUnitOfWork creates a unit of work on conn.
func NewUnitOfWork(conn Connection) *UnitOfWork {
	return &UnitOfWork{conn: conn}
}

// Begin returns a context carrying the transaction.
func (u *UnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if _, ok := stateFrom(ctx); ok {
		return ctx, nil
	}
	tx, err := u.conn.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return context.WithValue(ctx, txKey{}, txState{tx: tx, owner: u}), nil
}

// Commit commits the transaction if u opened it.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	return u.end(ctx, Transaction.Commit)
}

// Rollback rolls the transaction back if u opened it.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	return u.end(ctx, Transaction.Rollback)
}

func (u *UnitOfWork) end(ctx context.Context, fn func(Transaction, context.Context) error) error {
	state, ok := stateFrom(ctx)
	if !ok {
		return ErrNoTransaction
	}
	if state.owner != u {
		return nil
	}
	return fn(state.tx, ctx)
}
