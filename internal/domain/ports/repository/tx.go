package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// NoTX marks the non-transactional path explicitly at call sites.
var NoTX Tx

// TransactionManager executes a function inside a database transaction,
// passing the transaction handle to repositories via the `tx` argument.
//
// Use-case interfaces stay clean (no driver types leaking out); repository
// methods that accept a Tx detect it implementation-side and bind their
// statements to it (SELECT ... FOR UPDATE, tx-bound Exec/Query).
// Repositories MUST gracefully accept a nil Tx (non-transactional path).
//
// The concrete type of the handle is infra-defined (pgx.Tx for Postgres).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
