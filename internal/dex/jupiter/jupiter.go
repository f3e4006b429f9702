// internal/dex/jupiter/jupiter.go
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://lite-api.jup.ag/swap/v1"

var (
	ErrNoRoute     = errors.New("jupiter found no route")
	ErrRateLimited = errors.New("jupiter rate limited")
)

// Options configure the HTTP client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64 // requests per second
	MaxRetries uint
}

func DefaultOptions() Options {
	return Options{
		BaseURL:    DefaultBaseURL,
		Timeout:    10 * time.Second,
		RateLimit:  1,
		MaxRetries: 3,
	}
}

// Client talks to the Jupiter swap API.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	retries uint
	logger  *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 1
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		baseURL: opts.BaseURL,
		limiter: limiter,
		retries: opts.MaxRetries,
		logger:  logger.Named("jupiter"),
	}
}

func (c *Client) GetName() string { return "Jupiter" }

// Quote is a route returned by /quote. Raw is posted back verbatim to /swap.
type Quote struct {
	InputMint    solana.PublicKey
	OutputMint   solana.PublicKey
	AmountIn     uint64
	AmountOut    uint64
	MinAmountOut uint64
	SlippageBps  uint64
	PriceImpact  decimal.Decimal
	Route        []string
	Raw          json.RawMessage
}

type quoteResponse struct {
	InputMint            string `json:"inputMint"`
	InAmount             string `json:"inAmount"`
	OutputMint           string `json:"outputMint"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	SlippageBps          uint64 `json:"slippageBps"`
	PriceImpactPct       string `json:"priceImpactPct"`
	RoutePlan            []struct {
		SwapInfo struct {
			Label string `json:"label"`
		} `json:"swapInfo"`
	} `json:"routePlan"`
}

type errorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
}

// Quote asks for the best ExactIn route for amount of inputMint.
func (c *Client) Quote(ctx context.Context, inputMint, outputMint solana.PublicKey, amount, slippageBps uint64) (*Quote, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint.String())
	q.Set("outputMint", outputMint.String())
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.FormatUint(slippageBps, 10))

	raw, err := c.do(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var resp quoteResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	quote, err := resp.toQuote(raw)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Quote",
		zap.String("input", quote.InputMint.String()),
		zap.String("output", quote.OutputMint.String()),
		zap.Uint64("amount_in", quote.AmountIn),
		zap.Uint64("amount_out", quote.AmountOut),
		zap.Strings("route", quote.Route))
	return quote, nil
}

func (r quoteResponse) toQuote(raw json.RawMessage) (*Quote, error) {
	in, err := solana.PublicKeyFromBase58(r.InputMint)
	if err != nil {
		return nil, fmt.Errorf("quote input mint: %w", err)
	}
	out, err := solana.PublicKeyFromBase58(r.OutputMint)
	if err != nil {
		return nil, fmt.Errorf("quote output mint: %w", err)
	}
	amountIn, err := strconv.ParseUint(r.InAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("quote inAmount: %w", err)
	}
	amountOut, err := strconv.ParseUint(r.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("quote outAmount: %w", err)
	}
	minOut, err := strconv.ParseUint(r.OtherAmountThreshold, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("quote otherAmountThreshold: %w", err)
	}
	impact := decimal.Zero
	if r.PriceImpactPct != "" {
		if impact, err = decimal.NewFromString(r.PriceImpactPct); err != nil {
			return nil, fmt.Errorf("quote priceImpactPct: %w", err)
		}
	}
	route := make([]string, 0, len(r.RoutePlan))
	for _, step := range r.RoutePlan {
		route = append(route, step.SwapInfo.Label)
	}
	return &Quote{
		InputMint:    in,
		OutputMint:   out,
		AmountIn:     amountIn,
		AmountOut:    amountOut,
		MinAmountOut: minOut,
		SlippageBps:  r.SlippageBps,
		PriceImpact:  impact,
		Route:        route,
		Raw:          raw,
	}, nil
}

// SwapOptions tune the transaction Jupiter builds.
type SwapOptions struct {
	PrioritizationFeeLamports uint64
	DynamicComputeUnitLimit   bool
}

type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool            `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports uint64          `json:"prioritizationFeeLamports,omitempty"`
}

type swapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// SwapTransaction turns a quote into an unsigned versioned transaction paid by user.
// Jupiter sets the blockhash; the caller only signs.
func (c *Client) SwapTransaction(ctx context.Context, quote *Quote, user solana.PublicKey, opts SwapOptions) (*solana.Transaction, error) {
	if quote == nil || len(quote.Raw) == 0 {
		return nil, fmt.Errorf("quote response is required")
	}
	body, err := json.Marshal(swapRequest{
		QuoteResponse:             quote.Raw,
		UserPublicKey:             user.String(),
		WrapAndUnwrapSol:          true,
		DynamicComputeUnitLimit:   opts.DynamicComputeUnitLimit,
		PrioritizationFeeLamports: opts.PrioritizationFeeLamports,
	})
	if err != nil {
		return nil, fmt.Errorf("encode swap request: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/swap", body)
	if err != nil {
		return nil, err
	}
	var resp swapResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode swap response: %w", err)
	}
	return DecodeTransaction(resp.SwapTransaction)
}

// DecodeTransaction parses a base64 wire transaction.
func DecodeTransaction(b64 string) (*solana.Transaction, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode swap transaction: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, fmt.Errorf("parse swap transaction: %w", err)
	}
	return tx, nil
}

// do sends one request, retrying rate limits and server errors.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	op := func() ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return payload, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, ErrRateLimited
		case resp.StatusCode >= http.StatusInternalServerError:
			return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(payload))
		}

		var apiErr errorResponse
		_ = json.Unmarshal(payload, &apiErr)
		if apiErr.ErrorCode == "COULD_NOT_FIND_ANY_ROUTE" || apiErr.ErrorCode == "NO_ROUTES_FOUND" {
			return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrNoRoute, apiErr.Error))
		}
		return nil, backoff.Permanent(fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(payload)))
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.retries),
		backoff.WithNotify(func(err error, d time.Duration) {
			c.logger.Debug("Retrying request", zap.String("url", endpoint), zap.Duration("in", d), zap.Error(err))
		}))
}
