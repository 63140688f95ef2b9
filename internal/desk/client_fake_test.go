package desk

import (
	"context"
	"sync"

	"crypto-desk-go/internal/api"
)

// fakeClient implements api.Client and counts every call, so tests can
// assert which collections were (or were not) refetched.
type fakeClient struct {
	mu    sync.Mutex
	calls map[string]int

	quote          api.Quote
	balance        float64
	transactions   []api.Transaction
	lotteries      []api.Lottery
	users          []api.AdminUser
	promotions     []api.Promotion
	adminLotteries []api.Lottery
	requests       []api.PurchaseRequest

	quoteErr       error
	balanceErr     error
	usersErr       error
	submitErr      error
	sellErr        error
	sellCommission float64
	joinErr        error
	drawErr        error
	drawResult     *api.DrawResult

	// When set, DrawWinner signals drawStarted and blocks on drawRelease.
	drawStarted chan struct{}
	drawRelease chan struct{}
}

var _ api.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{calls: make(map[string]int)}
}

func (f *fakeClient) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeClient) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeClient) Login(ctx context.Context, username string) (*api.User, error) {
	f.count("Login")
	return &api.User{ID: 1, Username: username}, nil
}

func (f *fakeClient) GetQuote(ctx context.Context) (*api.Quote, error) {
	f.count("GetQuote")
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	q := f.quote
	return &q, nil
}

func (f *fakeClient) GetBalance(ctx context.Context, userID int) (float64, error) {
	f.count("GetBalance")
	if f.balanceErr != nil {
		return 0, f.balanceErr
	}
	return f.balance, nil
}

func (f *fakeClient) GetTransactions(ctx context.Context) ([]api.Transaction, error) {
	f.count("GetTransactions")
	return f.transactions, nil
}

func (f *fakeClient) GetLotteries(ctx context.Context) ([]api.Lottery, error) {
	f.count("GetLotteries")
	return f.lotteries, nil
}

func (f *fakeClient) SubmitPurchaseRequest(ctx context.Context, userID int, amount float64, signature string) (*api.PurchaseReceipt, error) {
	f.count("SubmitPurchaseRequest")
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &api.PurchaseReceipt{RequestID: 7, Status: "pending"}, nil
}

func (f *fakeClient) Sell(ctx context.Context, userID int, amount float64) (float64, error) {
	f.count("Sell")
	if f.sellErr != nil {
		return 0, f.sellErr
	}
	return f.sellCommission, nil
}

func (f *fakeClient) AddClicks(ctx context.Context, userID int, amount float64) error {
	f.count("AddClicks")
	return nil
}

func (f *fakeClient) JoinLottery(ctx context.Context, lotteryID, userID int) error {
	f.count("JoinLottery")
	return f.joinErr
}

func (f *fakeClient) AdminUsers(ctx context.Context) ([]api.AdminUser, error) {
	f.count("AdminUsers")
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return f.users, nil
}

func (f *fakeClient) AdminPromotions(ctx context.Context) ([]api.Promotion, error) {
	f.count("AdminPromotions")
	return f.promotions, nil
}

func (f *fakeClient) AdminLotteries(ctx context.Context) ([]api.Lottery, error) {
	f.count("AdminLotteries")
	return f.adminLotteries, nil
}

func (f *fakeClient) AdminPurchaseRequests(ctx context.Context) ([]api.PurchaseRequest, error) {
	f.count("AdminPurchaseRequests")
	return f.requests, nil
}

func (f *fakeClient) SetPrice(ctx context.Context, price float64) error {
	f.count("SetPrice")
	return nil
}

func (f *fakeClient) SetCommission(ctx context.Context, commission float64) error {
	f.count("SetCommission")
	return nil
}

func (f *fakeClient) CreatePromotion(ctx context.Context, title, description string, discount float64) (int, error) {
	f.count("CreatePromotion")
	return 1, nil
}

func (f *fakeClient) TogglePromotion(ctx context.Context, promoID int) error {
	f.count("TogglePromotion")
	return nil
}

func (f *fakeClient) CreateLottery(ctx context.Context, prize float64) (int, error) {
	f.count("CreateLottery")
	return 1, nil
}

func (f *fakeClient) DrawWinner(ctx context.Context, lotteryID int) (*api.DrawResult, error) {
	f.count("DrawWinner")
	if f.drawStarted != nil {
		close(f.drawStarted)
	}
	if f.drawRelease != nil {
		<-f.drawRelease
	}
	if f.drawErr != nil {
		return nil, f.drawErr
	}
	return f.drawResult, nil
}

func (f *fakeClient) ApprovePurchase(ctx context.Context, requestID int, approved bool) error {
	f.count("ApprovePurchase")
	return nil
}

func (f *fakeClient) RemoveCrypto(ctx context.Context, userID int, amount float64) error {
	f.count("RemoveCrypto")
	return nil
}
