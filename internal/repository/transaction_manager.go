package repository

import (
	"context"
	"fmt"

	"quiz-pilot/internal/domain"
	"quiz-pilot/internal/logger"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type contextKey string

// TransactionContextKey holds the *sqlx.Tx of the current transaction.
const TransactionContextKey contextKey = "tx"

func txFromContext(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(TransactionContextKey).(*sqlx.Tx)
	return tx, ok && tx != nil
}

// GetExecutor returns the transaction carried by ctx, falling back to db.
// Repository methods call it so they join a surrounding WithTransaction.
func GetExecutor(ctx context.Context, db DBTX) DBTX {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return db
}

// TransactionManagerAdapter implements domain.TransactionManager with sqlx.
type TransactionManagerAdapter struct {
	db *sqlx.DB
}

func NewTransactionManagerAdapter(db *sqlx.DB) domain.TransactionManager {
	return &TransactionManagerAdapter{db: db}
}

// WithTransaction commits when fn returns nil and rolls back otherwise,
// re-raising panics after the rollback. A ctx that already carries a
// transaction is passed through, so step recording can nest inside a wider
// unit of work.
func (tma *TransactionManagerAdapter) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := tma.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		rollbackErr := tx.Rollback()
		if p := recover(); p != nil {
			if rollbackErr != nil {
				logger.Get().Error("Rollback after panic failed", zap.Error(rollbackErr))
			}
			panic(p)
		}
		if rollbackErr != nil {
			err = fmt.Errorf("failed to rollback transaction: %v (original error: %w)", rollbackErr, err)
		}
	}()

	if err = fn(context.WithValue(ctx, TransactionContextKey, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		committed = true
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}
