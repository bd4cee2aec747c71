package pgsql

import "github.com/jackc/pgx/v5/pgxpool"

// TxManager exposes BaseRepository's RunInTx as a standalone dependency, so
// a service that touches several aggregates — the orchestrator posting a
// settlement across contracts, transfers, and the ledger — can open one
// transaction spanning all of them without depending on any single
// repository struct.
type TxManager struct {
	BaseRepository
}

// NewTxManager constructs a TxManager.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{BaseRepository{Pool: pool}}
}
