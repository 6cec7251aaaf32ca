package memory

import "github.com/tinoosan/finledger/internal/storage"

// Compile-time assertions that Store satisfies the storage contract.
var _ storage.Store = (*Store)(nil)
