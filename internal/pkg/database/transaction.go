package database

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TxFunc defines a transaction function
type TxFunc func(ctx context.Context) error

// transactionKey is the context key for storing the open transaction
type transactionKey struct{}

// ContextWithTransaction adds a transaction to the context
func ContextWithTransaction(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, transactionKey{}, tx)
}

// TransactionFromContext extracts a transaction from the context
func TransactionFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(transactionKey{}).(*gorm.DB)
	return tx, ok
}

// GetDBFromContext returns the open transaction if the context carries one,
// otherwise the base connection. Repositories route every query through this
// so a use case can span several repositories in a single transaction.
func (db *DB) GetDBFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := TransactionFromContext(ctx); ok {
		return tx
	}
	return db.DB.WithContext(ctx)
}

// InTx executes fn inside a database transaction, committing on nil and
// rolling back on error. If the context already carries an open transaction
// the function joins it instead of nesting: the whole call chain commits or
// fails as one unit.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TransactionFromContext(ctx); ok {
		return fn(ctx)
	}

	return db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(ContextWithTransaction(ctx, tx)); err != nil {
			db.logger.WithContext(ctx).Debug("transaction rolled back", zap.Error(err))
			return err
		}
		return nil
	})
}
