package postgres

import "github.com/tinoosan/finledger/internal/storage"

var (
	_ storage.Store = (*Store)(nil)
	_ storage.Tx    = (*pgTx)(nil)
)
