package desk

import (
	"context"
	"strings"
	"sync"
	"time"

	"crypto-desk-go/internal/api"
	"crypto-desk-go/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TradingView holds the trader's local snapshot of the server state:
// quote, balance, transaction feed and active lotteries. The snapshot is
// a cache refreshed by polling; the server is authoritative for all of
// it. Mutations never update the snapshot optimistically, they trigger a
// targeted refetch of the collections the server changed.
type TradingView struct {
	UUID      string
	StartTime time.Time

	logger *zap.Logger
	client api.Client
	db     *gorm.DB // local trade journal, may be nil
	user   api.User
	poller *Poller

	mu           sync.RWMutex
	quote        api.Quote
	balance      float64
	transactions []api.Transaction
	lotteries    []api.Lottery
	notice       string
	lastSync     time.Time
}

// TradingSnapshot is a point-in-time copy of the view state.
type TradingSnapshot struct {
	User         api.User          `json:"user"`
	Quote        api.Quote         `json:"quote"`
	Balance      float64           `json:"balance"`
	Transactions []api.Transaction `json:"transactions"`
	Lotteries    []api.Lottery     `json:"lotteries"`
	Notice       string            `json:"notice,omitempty"`
	LastSync     time.Time         `json:"last_sync"`
}

// NewTradingView creates a trading view for the logged-in user.
// interval is the poll interval; db is the optional local trade journal.
func NewTradingView(logger *zap.Logger, client api.Client, db *gorm.DB, user api.User, interval time.Duration) *TradingView {
	return &TradingView{
		UUID:      uuid.NewString(),
		StartTime: time.Now(),
		logger:    logger,
		client:    client,
		db:        db,
		user:      user,
		poller:    NewPoller(interval, logger.Named("trading-poll")),
	}
}

// Start launches the polling loop for the view's lifetime.
func (v *TradingView) Start(ctx context.Context) {
	v.poller.Start(ctx, v.refresh)
}

// Stop cancels the polling loop. Idempotent; a refresh already in flight
// has its result discarded.
func (v *TradingView) Stop() {
	v.poller.Stop()
}

// User returns the identity the view was built for.
func (v *TradingView) User() api.User {
	return v.user
}

// Snapshot returns a copy of the current view state.
func (v *TradingView) Snapshot() TradingSnapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return TradingSnapshot{
		User:         v.user,
		Quote:        v.quote,
		Balance:      v.balance,
		Transactions: append([]api.Transaction(nil), v.transactions...),
		Lotteries:    append([]api.Lottery(nil), v.lotteries...),
		Notice:       v.notice,
		LastSync:     v.lastSync,
	}
}

// Balance returns the last-polled crypto balance.
func (v *TradingView) Balance() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.balance
}

// Quote returns the last-polled price and commission.
func (v *TradingView) Quote() api.Quote {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.quote
}

// apply runs fn under the state lock unless the view was stopped while
// the response was in flight, in which case the result is dropped.
func (v *TradingView) apply(ctx context.Context, fn func()) {
	if ctx.Err() != nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	fn()
	v.lastSync = time.Now()
}

// refresh fetches all collections in parallel. Each collection fails or
// succeeds on its own: a failed fetch leaves the previous value in place
// and never blocks the others.
func (v *TradingView) refresh(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		v.refreshQuote(ctx)
	}()
	go func() {
		defer wg.Done()
		v.refreshBalance(ctx)
	}()
	go func() {
		defer wg.Done()
		v.refreshTransactions(ctx)
	}()
	go func() {
		defer wg.Done()
		v.refreshLotteries(ctx)
	}()

	wg.Wait()
}

func (v *TradingView) refreshQuote(ctx context.Context) {
	quote, err := v.client.GetQuote(ctx)
	if err != nil {
		v.logger.Error("Failed to refresh quote", zap.Error(err))
		return
	}
	v.apply(ctx, func() { v.quote = *quote })
}

func (v *TradingView) refreshBalance(ctx context.Context) {
	balance, err := v.client.GetBalance(ctx, v.user.ID)
	if err != nil {
		v.logger.Error("Failed to refresh balance", zap.Error(err))
		return
	}
	v.apply(ctx, func() { v.balance = balance })
}

func (v *TradingView) refreshTransactions(ctx context.Context) {
	transactions, err := v.client.GetTransactions(ctx)
	if err != nil {
		v.logger.Error("Failed to refresh transactions", zap.Error(err))
		return
	}
	v.apply(ctx, func() { v.transactions = transactions })
}

func (v *TradingView) refreshLotteries(ctx context.Context) {
	lotteries, err := v.client.GetLotteries(ctx)
	if err != nil {
		v.logger.Error("Failed to refresh lotteries", zap.Error(err))
		return
	}
	v.apply(ctx, func() { v.lotteries = lotteries })
}

// SubmitPurchaseRequest submits a buy order for admin approval. The
// local balance is untouched; it only changes once an admin approves,
// which the next poll picks up.
func (v *TradingView) SubmitPurchaseRequest(ctx context.Context, amount float64, signature string) (*api.PurchaseReceipt, error) {
	signature = strings.TrimSpace(signature)
	if !validAmount(amount) {
		return nil, ErrInvalidAmount
	}
	if signature == "" {
		return nil, ErrSignatureRequired
	}

	receipt, err := v.client.SubmitPurchaseRequest(ctx, v.user.ID, amount, signature)
	if err != nil {
		return nil, err
	}

	quote := v.Quote()
	v.journal(models.TradeRecord{
		Type:      api.TransactionBuy,
		Amount:    amount,
		Price:     quote.Price,
		Timestamp: time.Now().Unix(),
		Pending:   true,
	})

	v.mu.Lock()
	v.notice = "Purchase request submitted, pending admin approval"
	v.mu.Unlock()

	v.logger.Info("Purchase request submitted",
		zap.Int("request_id", receipt.RequestID),
		zap.Float64("amount", amount),
	)
	return receipt, nil
}

// Sell settles a sell order immediately and returns the commission the
// server charged. The amount is checked against the last-polled balance;
// a race with a concurrent balance change is resolved server-side.
func (v *TradingView) Sell(ctx context.Context, amount float64) (float64, error) {
	if !validAmount(amount) {
		return 0, ErrInvalidAmount
	}
	if amount > v.Balance() {
		return 0, ErrInsufficientBalance
	}

	commission, err := v.client.Sell(ctx, v.user.ID, amount)
	if err != nil {
		return 0, err
	}

	quote := v.Quote()
	v.journal(models.TradeRecord{
		Type:       api.TransactionSell,
		Amount:     amount,
		Price:      quote.Price,
		Commission: commission,
		Timestamp:  time.Now().Unix(),
	})

	// The sale changed the balance and appended a ledger entry.
	v.refreshBalance(ctx)
	v.refreshTransactions(ctx)

	v.logger.Info("Sold", zap.Float64("amount", amount), zap.Float64("commission", commission))
	return commission, nil
}

// TapReward credits tapped reward amounts to the balance.
func (v *TradingView) TapReward(ctx context.Context, amount float64) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}

	if err := v.client.AddClicks(ctx, v.user.ID, amount); err != nil {
		return err
	}

	v.refreshBalance(ctx)
	return nil
}

// JoinLottery enters the user into a lottery. Double-join rejection is
// the server's call; its message is surfaced unchanged.
func (v *TradingView) JoinLottery(ctx context.Context, lotteryID int) error {
	if err := v.client.JoinLottery(ctx, lotteryID, v.user.ID); err != nil {
		return err
	}

	v.refreshLotteries(ctx)

	v.logger.Info("Joined lottery", zap.Int("lottery_id", lotteryID))
	return nil
}

// journal appends a record to the local trade journal.
func (v *TradingView) journal(rec models.TradeRecord) {
	if v.db == nil {
		return
	}
	if err := v.db.Create(&rec).Error; err != nil {
		v.logger.Error("Failed to save trade record", zap.Error(err))
	}
}

// Journal returns the local trade journal, most recent first.
func (v *TradingView) Journal() ([]models.TradeRecord, error) {
	if v.db == nil {
		return nil, nil
	}
	var records []models.TradeRecord
	if err := v.db.Order("timestamp desc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
