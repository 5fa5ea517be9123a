package trading

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/apetros/valuecycle/internal/domain"
	"github.com/apetros/valuecycle/internal/storage"
)

// LedgerRepository persists the append-only trade ledger as a JSON
// array. The status server reads trades while the cycle records them,
// so access is mutex guarded.
type LedgerRepository struct {
	store  *storage.Store
	path   string
	logger zerolog.Logger

	mu     sync.RWMutex
	trades []domain.TradeRecord
}

// NewLedgerRepository creates a ledger repository and loads any
// existing trades from disk
func NewLedgerRepository(store *storage.Store, path string, logger zerolog.Logger) (*LedgerRepository, error) {
	r := &LedgerRepository{
		store:  store,
		path:   path,
		logger: logger.With().Str("repo", "ledger").Logger(),
	}

	if err := store.Load(path, &r.trades); err != nil {
		return nil, fmt.Errorf("failed to load trade ledger: %w", err)
	}

	return r, nil
}

// Append adds a trade to the ledger and persists it synchronously
func (r *LedgerRepository) Append(trade domain.TradeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trades = append(r.trades, trade)
	if err := r.store.Save(r.path, r.trades); err != nil {
		return fmt.Errorf("failed to persist trade ledger: %w", err)
	}
	return nil
}

// All returns every trade in file order
func (r *LedgerRepository) All() []domain.TradeRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.TradeRecord, len(r.trades))
	copy(out, r.trades)
	return out
}

// Len returns the number of recorded trades
func (r *LedgerRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.trades)
}
