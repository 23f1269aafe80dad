package db

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"go.uber.org/zap"

	"eventtrack-api/internal/apperr"
	"eventtrack-api/internal/metrics"
)

// TxFunc performs a group of writes against an open transaction.
type TxFunc func(tx dialect.Tx) error

// WithTx runs fn inside a transaction. It commits when fn returns nil and rolls
// back on error or panic. Every failure is reported wrapped in apperr.ErrTransactionAborted
// with the cause kept in the chain.
func WithTx(ctx context.Context, drv dialect.Driver, fn TxFunc) (err error) {
	tx, err := drv.Tx(ctx)
	if err != nil {
		metrics.TxAborted.WithLabelValues("begin").Inc()
		return fmt.Errorf("%w: begin: %w", apperr.ErrTransactionAborted, err)
	}
	defer func() {
		if v := recover(); v != nil {
			rollback(tx)
			metrics.TxAborted.WithLabelValues("panic").Inc()
			panic(v)
		}
	}()
	if err := fn(tx); err != nil {
		rollback(tx)
		metrics.TxAborted.WithLabelValues("rollback").Inc()
		return fmt.Errorf("%w: %w", apperr.ErrTransactionAborted, err)
	}
	if err := tx.Commit(); err != nil {
		metrics.TxAborted.WithLabelValues("commit").Inc()
		return fmt.Errorf("%w: commit: %w", apperr.ErrTransactionAborted, err)
	}
	return nil
}

func rollback(tx dialect.Tx) {
	if err := tx.Rollback(); err != nil {
		dbLogger.Warn("rollback failed", zap.Error(err))
	}
}
