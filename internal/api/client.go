package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"crypto-desk-go/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	adminPasswordHeader = "X-Admin-Password"

	TransactionBuy  = "buy"
	TransactionSell = "sell"
)

// Client defines the interface for the exchange REST API client.
type Client interface {
	Login(ctx context.Context, username string) (*User, error)
	GetQuote(ctx context.Context) (*Quote, error)
	GetBalance(ctx context.Context, userID int) (float64, error)
	GetTransactions(ctx context.Context) ([]Transaction, error)
	GetLotteries(ctx context.Context) ([]Lottery, error)
	SubmitPurchaseRequest(ctx context.Context, userID int, amount float64, signature string) (*PurchaseReceipt, error)
	Sell(ctx context.Context, userID int, amount float64) (float64, error)
	AddClicks(ctx context.Context, userID int, amount float64) error
	JoinLottery(ctx context.Context, lotteryID, userID int) error

	AdminUsers(ctx context.Context) ([]AdminUser, error)
	AdminPromotions(ctx context.Context) ([]Promotion, error)
	AdminLotteries(ctx context.Context) ([]Lottery, error)
	AdminPurchaseRequests(ctx context.Context) ([]PurchaseRequest, error)
	SetPrice(ctx context.Context, price float64) error
	SetCommission(ctx context.Context, commission float64) error
	CreatePromotion(ctx context.Context, title, description string, discount float64) (int, error)
	TogglePromotion(ctx context.Context, promoID int) error
	CreateLottery(ctx context.Context, prize float64) (int, error)
	DrawWinner(ctx context.Context, lotteryID int) (*DrawResult, error)
	ApprovePurchase(ctx context.Context, requestID int, approved bool) error
	RemoveCrypto(ctx context.Context, userID int, amount float64) error
}

// RestClient is a client for the exchange REST API.
// It implements the Client interface.
type RestClient struct {
	client      *resty.Client
	authURL     string
	tradingURL  string
	lotteryURL  string
	adminURL    string
	adminSecret string
	logger      *zap.Logger
	limiter     *rate.Limiter
}

// ensure RestClient implements the interface
var _ Client = (*RestClient)(nil)

// NewRestClient creates a new exchange REST API client. The admin secret
// is attached as a header to every admin call; it is client-visible
// configuration, not a credential.
func NewRestClient(cfg *config.API, adminSecret string, logger *zap.Logger) *RestClient {
	client := resty.New().SetHeader("Content-Type", "application/json")

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &RestClient{
		client:      client,
		authURL:     cfg.AuthURL,
		tradingURL:  cfg.TradingURL,
		lotteryURL:  cfg.LotteryURL,
		adminURL:    cfg.AdminURL,
		adminSecret: adminSecret,
		logger:      logger,
		limiter:     limiter,
	}
}

// StatusError carries the HTTP status and the server-provided error
// message, so callers can surface the message verbatim.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// errorBody is the error payload every endpoint uses.
type errorBody struct {
	Error string `json:"error"`
}

// newRequest prepares a request with the error payload decoder attached.
func (c *RestClient) newRequest(ctx context.Context) *resty.Request {
	return c.client.R().
		SetContext(ctx).
		SetError(&errorBody{})
}

// statusError converts an error response into a StatusError, preferring
// the server's own message over the raw body.
func statusError(resp *resty.Response) *StatusError {
	msg := resp.String()
	if body, ok := resp.Error().(*errorBody); ok && body.Error != "" {
		msg = body.Error
	}
	return &StatusError{Code: resp.StatusCode(), Message: msg}
}

// doRead executes a read with rate limiting and retry on throttling or
// server errors. Reads are idempotent, so retrying is safe.
func (c *RestClient) doRead(ctx context.Context, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", "GET"), zap.String("url", url))
		resp, err = req.Execute(http.MethodGet, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && resp.StatusCode() != 0 {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, statusError(resp)
		}

		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// Keep the server's own message when the last attempt was an error
	// response rather than a transport failure.
	if err == nil && resp != nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, statusError(resp))
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// doWrite executes a mutation exactly once. Mutations are never retried
// automatically; a failed one must be resubmitted by the user.
func (c *RestClient) doWrite(ctx context.Context, url string, req *resty.Request) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	c.logger.Debug("Executing request", zap.String("method", "POST"), zap.String("url", url))
	resp, err := req.Execute(http.MethodPost, url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, statusError(resp)
	}
	return resp, nil
}

// User is the identity response from the auth endpoint.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// Login registers or looks up the user by display name. The backend
// returns the existing row when the name is already taken.
func (c *RestClient) Login(ctx context.Context, username string) (*User, error) {
	req := c.newRequest(ctx).
		SetBody(map[string]string{"username": username}).
		SetResult(&User{})

	resp, err := c.doWrite(ctx, c.authURL, req)
	if err != nil {
		c.logger.Error("Failed to log in", zap.Error(err), zap.String("username", username))
		return nil, fmt.Errorf("failed to log in: %w", err)
	}

	return resp.Result().(*User), nil
}

// Quote is the current price and commission snapshot.
type Quote struct {
	Price      float64 `json:"price"`
	Commission float64 `json:"commission"` // percent
}

// GetQuote fetches the current price and commission percent.
func (c *RestClient) GetQuote(ctx context.Context) (*Quote, error) {
	req := c.newRequest(ctx).
		SetQueryParam("action", "price").
		SetResult(&Quote{})

	resp, err := c.doRead(ctx, c.tradingURL, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	return resp.Result().(*Quote), nil
}

// GetBalance fetches the crypto balance for the given user.
func (c *RestClient) GetBalance(ctx context.Context, userID int) (float64, error) {
	type balanceResponse struct {
		CryptoBalance float64 `json:"cryptoBalance"`
	}

	req := c.newRequest(ctx).
		SetQueryParam("action", "balance").
		SetQueryParam("userId", strconv.Itoa(userID)).
		SetResult(&balanceResponse{})

	resp, err := c.doRead(ctx, c.tradingURL, req)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	return resp.Result().(*balanceResponse).CryptoBalance, nil
}

// Transaction is a settled ledger entry. The feed is append-only and
// most-recent-first.
type Transaction struct {
	ID         int     `json:"id"`
	Type       string  `json:"type"` // "buy" or "sell"
	Amount     float64 `json:"amount"`
	Price      float64 `json:"price"`
	Commission float64 `json:"commission"`
	Timestamp  string  `json:"timestamp"`
	User       string  `json:"user"`
}

// GetTransactions fetches the recent transaction feed.
func (c *RestClient) GetTransactions(ctx context.Context) ([]Transaction, error) {
	type transactionsResponse struct {
		Transactions []Transaction `json:"transactions"`
	}

	req := c.newRequest(ctx).
		SetQueryParam("action", "transactions").
		SetResult(&transactionsResponse{})

	resp, err := c.doRead(ctx, c.tradingURL, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	return resp.Result().(*transactionsResponse).Transactions, nil
}

// Lottery is a prize pool. User-facing listings carry only active
// lotteries; the admin listing includes finished ones with the winner set.
type Lottery struct {
	ID               int     `json:"id"`
	Prize            float64 `json:"prize"`
	Active           bool    `json:"active"`
	ParticipantCount int     `json:"participantCount"`
	Winner           string  `json:"winner,omitempty"`
	WinnerID         int     `json:"winnerId,omitempty"`
}

// GetLotteries fetches the active lotteries visible to users.
func (c *RestClient) GetLotteries(ctx context.Context) ([]Lottery, error) {
	type lotteriesResponse struct {
		Lotteries []Lottery `json:"lotteries"`
	}

	req := c.newRequest(ctx).
		SetResult(&lotteriesResponse{})

	resp, err := c.doRead(ctx, c.lotteryURL, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get lotteries: %w", err)
	}

	return resp.Result().(*lotteriesResponse).Lotteries, nil
}

// PurchaseReceipt is the response to a submitted purchase request.
type PurchaseReceipt struct {
	RequestID int    `json:"requestId"`
	Status    string `json:"status"`
}

// SubmitPurchaseRequest submits a buy order for admin approval. The
// balance does not change until an admin approves it.
func (c *RestClient) SubmitPurchaseRequest(ctx context.Context, userID int, amount float64, signature string) (*PurchaseReceipt, error) {
	req := c.newRequest(ctx).
		SetBody(map[string]any{
			"action":    "purchase_request",
			"userId":    userID,
			"amount":    amount,
			"signature": signature,
		}).
		SetResult(&PurchaseReceipt{})

	resp, err := c.doWrite(ctx, c.tradingURL, req)
	if err != nil {
		c.logger.Error("Failed to submit purchase request",
			zap.Error(err),
			zap.Int("user_id", userID),
			zap.Float64("amount", amount),
		)
		return nil, fmt.Errorf("failed to submit purchase request: %w", err)
	}

	return resp.Result().(*PurchaseReceipt), nil
}

// Sell settles a sell order immediately and returns the commission the
// server actually charged.
func (c *RestClient) Sell(ctx context.Context, userID int, amount float64) (float64, error) {
	type sellResponse struct {
		Success    bool    `json:"success"`
		Commission float64 `json:"commission"`
	}

	req := c.newRequest(ctx).
		SetBody(map[string]any{
			"action": "sell",
			"userId": userID,
			"amount": amount,
		}).
		SetResult(&sellResponse{})

	resp, err := c.doWrite(ctx, c.tradingURL, req)
	if err != nil {
		c.logger.Error("Failed to sell",
			zap.Error(err),
			zap.Int("user_id", userID),
			zap.Float64("amount", amount),
		)
		return 0, fmt.Errorf("failed to sell: %w", err)
	}

	return resp.Result().(*sellResponse).Commission, nil
}

// AddClicks credits tapped reward amounts to the user's balance.
func (c *RestClient) AddClicks(ctx context.Context, userID int, amount float64) error {
	req := c.newRequest(ctx).
		SetBody(map[string]any{
			"action": "add_clicks",
			"userId": userID,
			"amount": amount,
		})

	if _, err := c.doWrite(ctx, c.tradingURL, req); err != nil {
		return fmt.Errorf("failed to add clicks: %w", err)
	}
	return nil
}

// JoinLottery enters the user into a lottery. Double-join rejection is
// the server's responsibility.
func (c *RestClient) JoinLottery(ctx context.Context, lotteryID, userID int) error {
	req := c.newRequest(ctx).
		SetBody(map[string]any{
			"lotteryId": lotteryID,
			"userId":    userID,
		})

	if _, err := c.doWrite(ctx, c.lotteryURL, req); err != nil {
		return fmt.Errorf("failed to join lottery: %w", err)
	}
	return nil
}
