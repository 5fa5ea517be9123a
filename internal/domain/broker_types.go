package domain

// Broker-agnostic types for account and order operations.
// These types abstract away broker-specific response shapes so the rest of
// the system never touches raw API payloads.

// Account represents a brokerage account available to the authenticated user
type Account struct {
	AccountID       string // Display identifier
	AccountIDKey    string // Opaque key used on subsequent API calls
	Description     string
	InstitutionType string
}

// Balance represents the spendable and total value of an account
type Balance struct {
	Cash       float64 // Cash buying power
	TotalValue float64 // Real-time total account value
}

// BrokerPosition represents a portfolio position as reported by the broker
type BrokerPosition struct {
	Symbol      string
	Quantity    float64
	PricePaid   float64 // Average cost basis
	MarketValue float64
	TotalGain   float64
}

// Quote represents a live market quote
type Quote struct {
	Symbol        string
	LastPrice     *float64
	Bid           *float64
	Ask           *float64
	Volume        *int64
	High52        *float64
	Low52         *float64
	PreviousClose *float64
}

// OrderAction is the side of an order
type OrderAction string

const (
	OrderActionBuy  OrderAction = "BUY"
	OrderActionSell OrderAction = "SELL"
)

// OrderRequest describes a LIMIT order to preview or place.
// ClientOrderID is a caller-generated idempotency token; the broker rejects
// a replayed token instead of filling the order twice.
type OrderRequest struct {
	AccountIDKey  string
	Symbol        string
	Action        OrderAction
	Quantity      int
	LimitPrice    float64
	ClientOrderID string
}

// OrderPreview is the broker's acknowledgement of a previewed order
type OrderPreview struct {
	PreviewID string
}

// OrderConfirmation is the broker's acknowledgement of a placed order
type OrderConfirmation struct {
	OrderID string
}

// BrokerClient defines broker-agnostic account, quote, and order operations.
// Implementations wrap a specific brokerage API; tests substitute mocks.
type BrokerClient interface {
	// Account operations
	ListAccounts() ([]Account, error)
	GetBalance(accountIDKey string) (*Balance, error)
	GetPositions(accountIDKey string) ([]BrokerPosition, error)

	// Market data operations
	GetQuotes(symbols []string) (map[string]Quote, error)

	// Order operations (two-phase: preview, then place with the preview ID)
	PreviewOrder(req OrderRequest) (*OrderPreview, error)
	PlaceOrder(req OrderRequest, previewID string) (*OrderConfirmation, error)

	// Session operations
	RenewSession() (bool, error)
}
