package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// RouteQuoteClient queries the external route aggregator for swap quotes.
// The backend never executes what the aggregator returns; results are only
// suggestions callers turn into swap legs, which the gateway re-verifies by
// balance delta.
type RouteQuoteClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRouteQuoteClient creates a new route quote client.
func NewRouteQuoteClient(baseURL, apiKey string, timeout time.Duration) *RouteQuoteClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RouteQuoteClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// RouteQuoteRequest represents one quote request.
type RouteQuoteRequest struct {
	FromToken   string `json:"fromToken"`
	ToToken     string `json:"toToken"`
	FromAmount  string `json:"fromAmount"`
	FromAddress string `json:"fromAddress,omitempty"`
}

// RouteQuoteResponse represents the aggregator's quote response.
type RouteQuoteResponse struct {
	ID     string `json:"id"`
	Tool   string `json:"tool"`
	Action struct {
		FromToken  QuoteToken `json:"fromToken"`
		ToToken    QuoteToken `json:"toToken"`
		FromAmount string     `json:"fromAmount"`
		ToAmount   string     `json:"toAmount"`
		Slippage   string     `json:"slippage"`
	} `json:"action"`
	Estimate struct {
		FromAmount        string `json:"fromAmount"`
		ToAmount          string `json:"toAmount"`
		ToAmountMin       string `json:"toAmountMin"`
		ApprovalAddress   string `json:"approvalAddress"`
		SwapTarget        string `json:"swapTarget"`
		CallData          string `json:"callData"`
		ExecutionDuration int    `json:"executionDuration"` // seconds
	} `json:"estimate"`
}

// QuoteToken represents a token in a quote.
type QuoteToken struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	PriceUSD string `json:"priceUSD"`
}

// GetQuote gets one swap quote.
func (c *RouteQuoteClient) GetQuote(ctx context.Context, req *RouteQuoteRequest) (*RouteQuoteResponse, error) {
	params := url.Values{}
	params.Add("fromToken", req.FromToken)
	params.Add("toToken", req.ToToken)
	params.Add("fromAmount", req.FromAmount)
	if req.FromAddress != "" {
		params.Add("fromAddress", req.FromAddress)
	}

	reqURL := fmt.Sprintf("%s/quote?%s", c.baseURL, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("quote API error (status %d): %s", resp.StatusCode, string(body))
	}

	var quoteResp RouteQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quoteResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &quoteResp, nil
}
