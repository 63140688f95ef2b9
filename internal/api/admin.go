package api

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// adminRequest prepares a request carrying the shared-secret header the
// admin endpoint expects on every call.
func (c *RestClient) adminRequest(ctx context.Context) *resty.Request {
	return c.newRequest(ctx).SetHeader(adminPasswordHeader, c.adminSecret)
}

// AdminUser is a registered user with their current balance.
type AdminUser struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	CryptoBalance float64 `json:"cryptoBalance"`
}

// AdminUsers fetches all registered users with balances.
func (c *RestClient) AdminUsers(ctx context.Context) ([]AdminUser, error) {
	type usersResponse struct {
		Users []AdminUser `json:"users"`
	}

	req := c.adminRequest(ctx).
		SetQueryParam("action", "users").
		SetResult(&usersResponse{})

	resp, err := c.doRead(ctx, c.adminURL, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	return resp.Result().(*usersResponse).Users, nil
}

// Promotion is a bonus-percentage offer managed by admins.
type Promotion struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Discount    float64 `json:"discount"` // percent
	Active      bool    `json:"active"`
}

// AdminPromotions fetches all promotions, active and inactive.
func (c *RestClient) AdminPromotions(ctx context.Context) ([]Promotion, error) {
	type promotionsResponse struct {
		Promotions []Promotion `json:"promotions"`
	}

	req := c.adminRequest(ctx).
		SetQueryParam("action", "promotions").
		SetResult(&promotionsResponse{})

	resp, err := c.doRead(ctx, c.adminURL, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get promotions: %w", err)
	}

	return resp.Result().(*promotionsResponse).Promotions, nil
}

// AdminLotteries fetches all lotteries, including finished ones with the
// winner filled in.
func (c *RestClient) AdminLotteries(ctx context.Context) ([]Lottery, error) {
	type lotteriesResponse struct {
		Lotteries []Lottery `json:"lotteries"`
	}

	req := c.adminRequest(ctx).
		SetQueryParam("action", "lotteries").
		SetResult(&lotteriesResponse{})

	resp, err := c.doRead(ctx, c.adminURL, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get lotteries: %w", err)
	}

	return resp.Result().(*lotteriesResponse).Lotteries, nil
}

// PurchaseRequest is a buy order awaiting manual review. The signature
// is free-text reviewed by the operator, not a cryptographic signature.
type PurchaseRequest struct {
	ID        int     `json:"id"`
	UserID    int     `json:"userId"`
	Username  string  `json:"username"`
	Amount    float64 `json:"amount"`
	Price     float64 `json:"price"`
	Signature string  `json:"signature"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt"`
}

// AdminPurchaseRequests fetches the pending purchase requests.
func (c *RestClient) AdminPurchaseRequests(ctx context.Context) ([]PurchaseRequest, error) {
	type requestsResponse struct {
		Requests []PurchaseRequest `json:"requests"`
	}

	req := c.adminRequest(ctx).
		SetQueryParam("action", "purchase_requests").
		SetResult(&requestsResponse{})

	resp, err := c.doRead(ctx, c.adminURL, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase requests: %w", err)
	}

	return resp.Result().(*requestsResponse).Requests, nil
}

// postAction posts a mutation with the given action discriminator.
func (c *RestClient) postAction(ctx context.Context, action string, fields map[string]any, result any) (*resty.Response, error) {
	body := map[string]any{"action": action}
	for k, v := range fields {
		body[k] = v
	}

	req := c.adminRequest(ctx).SetBody(body)
	if result != nil {
		req.SetResult(result)
	}

	resp, err := c.doWrite(ctx, c.adminURL, req)
	if err != nil {
		return nil, fmt.Errorf("admin action %s failed: %w", action, err)
	}
	return resp, nil
}

// SetPrice sets the current coin price.
func (c *RestClient) SetPrice(ctx context.Context, price float64) error {
	_, err := c.postAction(ctx, "set_price", map[string]any{"price": price}, nil)
	return err
}

// SetCommission sets the commission percent applied at settlement.
func (c *RestClient) SetCommission(ctx context.Context, commission float64) error {
	_, err := c.postAction(ctx, "set_commission", map[string]any{"commission": commission}, nil)
	return err
}

// CreatePromotion creates a promotion and returns its id.
func (c *RestClient) CreatePromotion(ctx context.Context, title, description string, discount float64) (int, error) {
	type createdResponse struct {
		ID int `json:"id"`
	}

	var result createdResponse
	if _, err := c.postAction(ctx, "create_promotion", map[string]any{
		"title":       title,
		"description": description,
		"discount":    discount,
	}, &result); err != nil {
		return 0, err
	}
	return result.ID, nil
}

// TogglePromotion flips a promotion between active and inactive.
func (c *RestClient) TogglePromotion(ctx context.Context, promoID int) error {
	_, err := c.postAction(ctx, "toggle_promotion", map[string]any{"promoId": promoID}, nil)
	return err
}

// CreateLottery creates a lottery with the given prize and returns its id.
func (c *RestClient) CreateLottery(ctx context.Context, prize float64) (int, error) {
	type createdResponse struct {
		ID int `json:"id"`
	}

	var result createdResponse
	if _, err := c.postAction(ctx, "create_lottery", map[string]any{"prize": prize}, &result); err != nil {
		return 0, err
	}
	return result.ID, nil
}

// DrawResult identifies the winner picked by the server.
type DrawResult struct {
	WinnerID int    `json:"winnerId"`
	Winner   string `json:"winner"`
}

// DrawWinner asks the server to pick a winner and close the lottery.
// The server rejects the draw when there are no participants; the error
// message is surfaced unchanged.
func (c *RestClient) DrawWinner(ctx context.Context, lotteryID int) (*DrawResult, error) {
	var result DrawResult
	if _, err := c.postAction(ctx, "draw_winner", map[string]any{"lotteryId": lotteryID}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ApprovePurchase approves or rejects a pending purchase request.
// Approval credits the user's balance server-side.
func (c *RestClient) ApprovePurchase(ctx context.Context, requestID int, approved bool) error {
	_, err := c.postAction(ctx, "approve_purchase", map[string]any{
		"requestId": requestID,
		"approved":  approved,
	}, nil)
	return err
}

// RemoveCrypto debits the given amount from a user's balance. The server
// clamps the balance at zero.
func (c *RestClient) RemoveCrypto(ctx context.Context, userID int, amount float64) error {
	_, err := c.postAction(ctx, "remove_crypto", map[string]any{
		"userId": userID,
		"amount": amount,
	}, nil)
	return err
}
