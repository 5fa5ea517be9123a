package trading

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/apetros/valuecycle/internal/domain"
	"github.com/apetros/valuecycle/internal/universe"
	"github.com/apetros/valuecycle/pkg/formulas"
)

// OrderState tracks an order through the two-phase execution flow
type OrderState string

const (
	OrderInitiated OrderState = "INITIATED"
	OrderPreviewed OrderState = "PREVIEWED"
	OrderPlaced    OrderState = "PLACED"
	OrderFailed    OrderState = "FAILED"
)

var (
	// ErrPreviewFailed means the brokerage returned no preview identifier
	ErrPreviewFailed = errors.New("order preview failed")
	// ErrPlaceFailed means the brokerage returned no order acknowledgement
	ErrPlaceFailed = errors.New("order placement failed")
)

// Execution is the outcome of one executed order. In live mode the
// State field exposes how far through preview/place the order got.
type Execution struct {
	Symbol    string
	Action    domain.OrderAction
	Quantity  int
	Price     float64
	Reason    string
	State     OrderState
	PreviewID string
	OrderID   string
}

// Executor carries out sized buy and sell decisions.
// The simulated and live implementations share this contract so the
// engine never branches on mode.
type Executor interface {
	ExecuteBuy(symbol string, quantity int, price float64, reason string) (*Execution, error)
	ExecuteSell(symbol string, quantity int, price float64, reason string) (*Execution, error)
}

// SimExecutor is the paper trading executor. Trades append to the JSON
// ledger and always succeed unless the write fails.
type SimExecutor struct {
	ledger *LedgerRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewSimExecutor creates a simulated executor backed by the ledger
func NewSimExecutor(ledger *LedgerRepository, logger zerolog.Logger) *SimExecutor {
	return &SimExecutor{
		ledger: ledger,
		logger: logger.With().Str("component", "sim_executor").Logger(),
		now:    time.Now,
	}
}

// ExecuteBuy logs a simulated buy to the ledger
func (e *SimExecutor) ExecuteBuy(symbol string, quantity int, price float64, reason string) (*Execution, error) {
	return e.record(domain.OrderActionBuy, symbol, quantity, price, reason)
}

// ExecuteSell logs a simulated sell to the ledger
func (e *SimExecutor) ExecuteSell(symbol string, quantity int, price float64, reason string) (*Execution, error) {
	return e.record(domain.OrderActionSell, symbol, quantity, price, reason)
}

func (e *SimExecutor) record(action domain.OrderAction, symbol string, quantity int, price float64, reason string) (*Execution, error) {
	sector := universe.SectorOf(symbol)
	if sector == "" {
		sector = "Unknown"
	}

	trade := domain.TradeRecord{
		Timestamp: e.now().UTC(),
		Action:    action,
		Symbol:    symbol,
		Quantity:  quantity,
		Price:     formulas.Round(price, 2),
		Total:     formulas.Round(float64(quantity)*price, 2),
		Reason:    reason,
		Sector:    sector,
	}

	if err := e.ledger.Append(trade); err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("action", string(action)).
		Str("symbol", symbol).
		Int("quantity", quantity).
		Float64("price", trade.Price).
		Str("reason", reason).
		Msg("Simulated trade recorded")

	return &Execution{
		Symbol:   symbol,
		Action:   action,
		Quantity: quantity,
		Price:    trade.Price,
		Reason:   reason,
		State:    OrderPlaced,
	}, nil
}

// LiveExecutor places real LIMIT orders through the broker in two
// phases: preview, then place with the returned preview ID. A failed
// phase is terminal for that order; the caller moves on to the next
// signal without retrying.
type LiveExecutor struct {
	broker       domain.BrokerClient
	accountIDKey string
	logger       zerolog.Logger
}

// NewLiveExecutor creates an executor that trades against a brokerage
// account
func NewLiveExecutor(broker domain.BrokerClient, accountIDKey string, logger zerolog.Logger) *LiveExecutor {
	return &LiveExecutor{
		broker:       broker,
		accountIDKey: accountIDKey,
		logger:       logger.With().Str("component", "live_executor").Logger(),
	}
}

// ExecuteBuy previews and places a LIMIT BUY order
func (e *LiveExecutor) ExecuteBuy(symbol string, quantity int, price float64, reason string) (*Execution, error) {
	return e.execute(domain.OrderActionBuy, symbol, quantity, price, reason)
}

// ExecuteSell previews and places a LIMIT SELL order
func (e *LiveExecutor) ExecuteSell(symbol string, quantity int, price float64, reason string) (*Execution, error) {
	return e.execute(domain.OrderActionSell, symbol, quantity, price, reason)
}

// Brokerage client order IDs are capped at 20 alphanumeric characters
func newClientOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}

func (e *LiveExecutor) execute(action domain.OrderAction, symbol string, quantity int, price float64, reason string) (*Execution, error) {
	exec := &Execution{
		Symbol:   symbol,
		Action:   action,
		Quantity: quantity,
		Price:    formulas.Round(price, 2),
		Reason:   reason,
		State:    OrderInitiated,
	}

	req := domain.OrderRequest{
		AccountIDKey:  e.accountIDKey,
		Symbol:        symbol,
		Action:        action,
		Quantity:      quantity,
		LimitPrice:    exec.Price,
		ClientOrderID: newClientOrderID(),
	}

	e.logger.Info().
		Str("action", string(action)).
		Str("symbol", symbol).
		Int("quantity", quantity).
		Float64("limit", exec.Price).
		Str("reason", reason).
		Msg("Previewing order")

	preview, err := e.broker.PreviewOrder(req)
	if err != nil || preview == nil || preview.PreviewID == "" {
		exec.State = OrderFailed
		e.logger.Error().Err(err).
			Str("symbol", symbol).
			Str("action", string(action)).
			Msg("Order preview failed")
		if err != nil {
			return exec, err
		}
		return exec, ErrPreviewFailed
	}

	exec.State = OrderPreviewed
	exec.PreviewID = preview.PreviewID

	confirmation, err := e.broker.PlaceOrder(req, preview.PreviewID)
	if err != nil || confirmation == nil || confirmation.OrderID == "" {
		exec.State = OrderFailed
		e.logger.Error().Err(err).
			Str("symbol", symbol).
			Str("action", string(action)).
			Str("preview_id", preview.PreviewID).
			Msg("Order placement failed")
		if err != nil {
			return exec, err
		}
		return exec, ErrPlaceFailed
	}

	exec.State = OrderPlaced
	exec.OrderID = confirmation.OrderID

	e.logger.Info().
		Str("symbol", symbol).
		Str("action", string(action)).
		Str("order_id", exec.OrderID).
		Msg("Order placed")

	return exec, nil
}
