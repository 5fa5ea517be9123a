// Package etrade implements the brokerage client against the E*TRADE
// REST API. Requests are signed with OAuth1 using a consumer key pair
// and an access token obtained out of band; the process never runs the
// interactive authorization flow itself.
package etrade

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/rs/zerolog"

	"github.com/apetros/valuecycle/internal/config"
	"github.com/apetros/valuecycle/internal/domain"
)

// Client is the E*TRADE implementation of domain.BrokerClient
type Client struct {
	httpClient     *http.Client
	baseURL        string
	renewURL       string
	consumerKey    string
	quoteBatchSize int
	logger         zerolog.Logger
}

// NewClient creates an authenticated E*TRADE client from configuration
func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	oauthCfg := oauth1.NewConfig(cfg.BrokerConsumerKey, cfg.BrokerConsumerSecret)
	token := oauth1.NewToken(cfg.BrokerAccessToken, cfg.BrokerAccessSecret)

	httpClient := oauthCfg.Client(oauth1.NoContext, token)
	httpClient.Timeout = 30 * time.Second

	return &Client{
		httpClient:     httpClient,
		baseURL:        cfg.BrokerURL(),
		renewURL:       cfg.BrokerBaseURL + "/oauth/renew_access_token",
		consumerKey:    cfg.BrokerConsumerKey,
		quoteBatchSize: cfg.QuoteBatchSize,
		logger:         logger.With().Str("client", "etrade").Logger(),
	}
}

type accountListResponse struct {
	AccountListResponse struct {
		Accounts struct {
			Account []struct {
				AccountID       string `json:"accountId"`
				AccountIDKey    string `json:"accountIdKey"`
				AccountDesc     string `json:"accountDesc"`
				InstitutionType string `json:"institutionType"`
				AccountStatus   string `json:"accountStatus"`
			} `json:"Account"`
		} `json:"Accounts"`
	} `json:"AccountListResponse"`
}

// ListAccounts returns all non-closed accounts for the authenticated user
func (c *Client) ListAccounts() ([]domain.Account, error) {
	var parsed accountListResponse
	if err := c.getJSON(c.baseURL+"/v1/accounts/list.json", &parsed); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	var accounts []domain.Account
	for _, a := range parsed.AccountListResponse.Accounts.Account {
		if a.AccountStatus == "CLOSED" {
			continue
		}
		accounts = append(accounts, domain.Account{
			AccountID:       a.AccountID,
			AccountIDKey:    a.AccountIDKey,
			Description:     a.AccountDesc,
			InstitutionType: a.InstitutionType,
		})
	}

	return accounts, nil
}

type balanceResponse struct {
	BalanceResponse struct {
		Computed struct {
			CashBuyingPower float64 `json:"cashBuyingPower"`
			RealTimeValues  struct {
				TotalAccountValue float64 `json:"totalAccountValue"`
			} `json:"RealTimeValues"`
		} `json:"Computed"`
	} `json:"BalanceResponse"`
}

// GetBalance returns the cash buying power and real-time total value
func (c *Client) GetBalance(accountIDKey string) (*domain.Balance, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/balance.json?instType=BROKERAGE&realTimeNAV=true",
		c.baseURL, accountIDKey)

	var parsed balanceResponse
	if err := c.getJSON(url, &parsed); err != nil {
		return nil, fmt.Errorf("failed to fetch balance: %w", err)
	}

	return &domain.Balance{
		Cash:       parsed.BalanceResponse.Computed.CashBuyingPower,
		TotalValue: parsed.BalanceResponse.Computed.RealTimeValues.TotalAccountValue,
	}, nil
}

type portfolioResponse struct {
	PortfolioResponse struct {
		AccountPortfolio []struct {
			Position []struct {
				Product struct {
					Symbol string `json:"symbol"`
				} `json:"Product"`
				SymbolDescription string  `json:"symbolDescription"`
				Quantity          float64 `json:"quantity"`
				PricePaid         float64 `json:"pricePaid"`
				MarketValue       float64 `json:"marketValue"`
				TotalGain         float64 `json:"totalGain"`
			} `json:"Position"`
		} `json:"AccountPortfolio"`
	} `json:"PortfolioResponse"`
}

// GetPositions returns the open positions in an account. An empty
// account yields an empty slice, not an error.
func (c *Client) GetPositions(accountIDKey string) ([]domain.BrokerPosition, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/portfolio.json", c.baseURL, accountIDKey)

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch portfolio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return []domain.BrokerPosition{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("portfolio request returned status %d", resp.StatusCode)
	}

	var parsed portfolioResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode portfolio response: %w", err)
	}

	var positions []domain.BrokerPosition
	for _, ap := range parsed.PortfolioResponse.AccountPortfolio {
		for _, p := range ap.Position {
			symbol := p.Product.Symbol
			if symbol == "" {
				symbol = p.SymbolDescription
			}
			if symbol == "" {
				continue
			}
			positions = append(positions, domain.BrokerPosition{
				Symbol:      symbol,
				Quantity:    p.Quantity,
				PricePaid:   p.PricePaid,
				MarketValue: p.MarketValue,
				TotalGain:   p.TotalGain,
			})
		}
	}

	return positions, nil
}

type quoteResponse struct {
	QuoteResponse struct {
		QuoteData []struct {
			Product struct {
				Symbol string `json:"symbol"`
			} `json:"Product"`
			All struct {
				LastTrade      *float64 `json:"lastTrade"`
				Bid            *float64 `json:"bid"`
				Ask            *float64 `json:"ask"`
				TotalVolume    *int64   `json:"totalVolume"`
				PreviousClose  *float64 `json:"previousClose"`
				Week52HiPrice  *float64 `json:"week52HiPrice"`
				Week52LowPrice *float64 `json:"week52LowPrice"`
			} `json:"All"`
		} `json:"QuoteData"`
	} `json:"QuoteResponse"`
}

// GetQuotes fetches live quotes for the given symbols, batched to the
// API's per-request symbol limit. A failed batch is logged and skipped
// so one bad batch does not lose the rest of the universe.
func (c *Client) GetQuotes(symbols []string) (map[string]domain.Quote, error) {
	quotes := make(map[string]domain.Quote, len(symbols))

	for start := 0; start < len(symbols); start += c.quoteBatchSize {
		end := start + c.quoteBatchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batch := symbols[start:end]

		url := fmt.Sprintf("%s/v1/market/quote/%s.json?detailFlag=ALL",
			c.baseURL, strings.Join(batch, ","))

		var parsed quoteResponse
		if err := c.getJSON(url, &parsed); err != nil {
			c.logger.Error().Err(err).
				Strs("batch", batch).
				Msg("Quote batch failed")
			continue
		}

		for _, qd := range parsed.QuoteResponse.QuoteData {
			if qd.Product.Symbol == "" {
				continue
			}
			quotes[qd.Product.Symbol] = domain.Quote{
				Symbol:        qd.Product.Symbol,
				LastPrice:     qd.All.LastTrade,
				Bid:           qd.All.Bid,
				Ask:           qd.All.Ask,
				Volume:        qd.All.TotalVolume,
				PreviousClose: qd.All.PreviousClose,
				High52:        qd.All.Week52HiPrice,
				Low52:         qd.All.Week52LowPrice,
			}
		}
	}

	return quotes, nil
}

type previewOrderResponse struct {
	PreviewOrderResponse struct {
		PreviewIds []struct {
			PreviewID json.Number `json:"previewId"`
		} `json:"PreviewIds"`
	} `json:"PreviewOrderResponse"`
}

// PreviewOrder previews a LIMIT equity order and returns the preview ID
func (c *Client) PreviewOrder(req domain.OrderRequest) (*domain.OrderPreview, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/orders/preview.json", c.baseURL, req.AccountIDKey)

	var parsed previewOrderResponse
	if err := c.postOrderXML(url, previewPayload(req), &parsed); err != nil {
		return nil, fmt.Errorf("failed to preview order: %w", err)
	}

	ids := parsed.PreviewOrderResponse.PreviewIds
	if len(ids) == 0 {
		return &domain.OrderPreview{}, nil
	}

	return &domain.OrderPreview{PreviewID: ids[0].PreviewID.String()}, nil
}

type placeOrderResponse struct {
	PlaceOrderResponse struct {
		OrderIds []struct {
			OrderID json.Number `json:"orderId"`
		} `json:"OrderIds"`
	} `json:"PlaceOrderResponse"`
}

// PlaceOrder places a previously previewed order
func (c *Client) PlaceOrder(req domain.OrderRequest, previewID string) (*domain.OrderConfirmation, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/orders/place.json", c.baseURL, req.AccountIDKey)

	var parsed placeOrderResponse
	if err := c.postOrderXML(url, placePayload(req, previewID), &parsed); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	ids := parsed.PlaceOrderResponse.OrderIds
	if len(ids) == 0 {
		return &domain.OrderConfirmation{}, nil
	}

	return &domain.OrderConfirmation{OrderID: ids[0].OrderID.String()}, nil
}

// RenewSession keeps the access token alive. Returns false without an
// error when the brokerage rejects the renewal.
func (c *Client) RenewSession() (bool, error) {
	resp, err := c.httpClient.Get(c.renewURL)
	if err != nil {
		return false, fmt.Errorf("failed to renew session: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Msg("Session renewal rejected")
		return false, nil
	}

	c.logger.Info().Msg("Access token renewed")
	return true, nil
}

func (c *Client) getJSON(url string, out any) error {
	resp, err := c.httpClient.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("request returned status %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) postOrderXML(url, payload string, out any) error {
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("consumerKey", c.consumerKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("request returned status %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

const orderTemplate = `<%sOrderRequest>
	<orderType>EQ</orderType>
	<clientOrderId>%s</clientOrderId>
	%s<Order>
		<allOrNone>false</allOrNone>
		<priceType>LIMIT</priceType>
		<orderTerm>GOOD_FOR_DAY</orderTerm>
		<marketSession>REGULAR</marketSession>
		<stopPrice></stopPrice>
		<limitPrice>%.2f</limitPrice>
		<Instrument>
			<Product>
				<securityType>EQ</securityType>
				<symbol>%s</symbol>
			</Product>
			<orderAction>%s</orderAction>
			<quantityType>QUANTITY</quantityType>
			<quantity>%d</quantity>
		</Instrument>
	</Order>
</%sOrderRequest>`

func previewPayload(req domain.OrderRequest) string {
	return fmt.Sprintf(orderTemplate,
		"Preview", req.ClientOrderID, "", req.LimitPrice, req.Symbol, req.Action, req.Quantity, "Preview")
}

func placePayload(req domain.OrderRequest, previewID string) string {
	previewBlock := fmt.Sprintf("<PreviewIds>\n\t\t<previewId>%s</previewId>\n\t</PreviewIds>\n\t", previewID)
	return fmt.Sprintf(orderTemplate,
		"Place", req.ClientOrderID, previewBlock, req.LimitPrice, req.Symbol, req.Action, req.Quantity, "Place")
}
