package trading

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/apetros/valuecycle/internal/domain"
)

// TestLedgerConcurrentAppendAndRead verifies the ledger can be read
// while trades are being recorded
func TestLedgerConcurrentAppendAndRead(t *testing.T) {
	ledger, _ := newTestLedger(t)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			_ = ledger.Append(domain.TradeRecord{
				Timestamp: time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
				Action:    domain.OrderActionBuy,
				Symbol:    "AAPL", Quantity: 1, Price: 150, Total: 150,
			})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			_ = ledger.All()
			_ = ledger.Len()
		}
	}()

	wg.Wait()
	assert.Equal(t, n, ledger.Len())
}
