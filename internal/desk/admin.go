package desk

import (
	"context"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"crypto-desk-go/internal/api"
	"go.uber.org/zap"
)

// AdminView is the operator's console state. It is gated by an exact
// compare against the configured shared secret, polls the admin
// collections, and exposes the mutating operations. One busy flag covers
// all mutations: it only guards against re-submitting before the
// previous call returned, not against concurrent operators.
type AdminView struct {
	logger *zap.Logger
	client api.Client
	secret string
	poller *Poller

	unlocked atomic.Bool
	busy     atomic.Bool

	mu         sync.RWMutex
	users      []api.AdminUser
	promotions []api.Promotion
	lotteries  []api.Lottery
	requests   []api.PurchaseRequest
	lastSync   time.Time
}

// AdminSnapshot is a point-in-time copy of the admin view state.
type AdminSnapshot struct {
	Users      []api.AdminUser       `json:"users"`
	Promotions []api.Promotion       `json:"promotions"`
	Lotteries  []api.Lottery         `json:"lotteries"`
	Requests   []api.PurchaseRequest `json:"requests"`
	LastSync   time.Time             `json:"last_sync"`
}

// NewAdminView creates an admin view gated by the given shared secret.
func NewAdminView(logger *zap.Logger, client api.Client, secret string, interval time.Duration) *AdminView {
	return &AdminView{
		logger: logger,
		client: client,
		secret: secret,
		poller: NewPoller(interval, logger.Named("admin-poll")),
	}
}

// Unlock opens the gate if and only if the typed password exactly equals
// the configured secret. There is no lockout or rate limit; a mismatch
// just leaves the gate closed.
func (v *AdminView) Unlock(password string) error {
	if password != v.secret {
		return ErrWrongPassword
	}
	v.unlocked.Store(true)
	v.logger.Info("Admin view unlocked")
	return nil
}

// Lock closes the gate again.
func (v *AdminView) Lock() {
	v.unlocked.Store(false)
}

// Unlocked reports whether the gate is open.
func (v *AdminView) Unlocked() bool {
	return v.unlocked.Load()
}

// Start launches the polling loop. The view must be unlocked first.
func (v *AdminView) Start(ctx context.Context) error {
	if !v.Unlocked() {
		return ErrLocked
	}
	v.poller.Start(ctx, v.refresh)
	return nil
}

// Stop cancels the polling loop. Idempotent.
func (v *AdminView) Stop() {
	v.poller.Stop()
}

// Snapshot returns a copy of the current admin state.
func (v *AdminView) Snapshot() AdminSnapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return AdminSnapshot{
		Users:      append([]api.AdminUser(nil), v.users...),
		Promotions: append([]api.Promotion(nil), v.promotions...),
		Lotteries:  append([]api.Lottery(nil), v.lotteries...),
		Requests:   append([]api.PurchaseRequest(nil), v.requests...),
		LastSync:   v.lastSync,
	}
}

func (v *AdminView) apply(ctx context.Context, fn func()) {
	if ctx.Err() != nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	fn()
	v.lastSync = time.Now()
}

// refresh fetches all admin collections in parallel, each isolated from
// the others' failures.
func (v *AdminView) refresh(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		v.refreshUsers(ctx)
	}()
	go func() {
		defer wg.Done()
		v.refreshPromotions(ctx)
	}()
	go func() {
		defer wg.Done()
		v.refreshLotteries(ctx)
	}()
	go func() {
		defer wg.Done()
		v.refreshRequests(ctx)
	}()

	wg.Wait()
}

func (v *AdminView) refreshUsers(ctx context.Context) {
	users, err := v.client.AdminUsers(ctx)
	if err != nil {
		v.logger.Error("Failed to refresh users", zap.Error(err))
		return
	}
	v.apply(ctx, func() { v.users = users })
}

func (v *AdminView) refreshPromotions(ctx context.Context) {
	promotions, err := v.client.AdminPromotions(ctx)
	if err != nil {
		v.logger.Error("Failed to refresh promotions", zap.Error(err))
		return
	}
	v.apply(ctx, func() { v.promotions = promotions })
}

func (v *AdminView) refreshLotteries(ctx context.Context) {
	lotteries, err := v.client.AdminLotteries(ctx)
	if err != nil {
		v.logger.Error("Failed to refresh lotteries", zap.Error(err))
		return
	}
	v.apply(ctx, func() { v.lotteries = lotteries })
}

func (v *AdminView) refreshRequests(ctx context.Context) {
	requests, err := v.client.AdminPurchaseRequests(ctx)
	if err != nil {
		v.logger.Error("Failed to refresh purchase requests", zap.Error(err))
		return
	}
	v.apply(ctx, func() { v.requests = requests })
}

// run wraps a mutation with the gate and busy checks. The busy flag is
// held for the duration of the call so rapid re-submission of the same
// action is rejected with ErrBusy.
func (v *AdminView) run(fn func() error) error {
	if !v.Unlocked() {
		return ErrLocked
	}
	if !v.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer v.busy.Store(false)
	return fn()
}

// SetPrice updates the coin price. The snapshot is not updated here; the
// next poll reflects the change.
func (v *AdminView) SetPrice(ctx context.Context, price float64) error {
	if !validAmount(price) {
		return ErrInvalidAmount
	}
	return v.run(func() error {
		if err := v.client.SetPrice(ctx, price); err != nil {
			return err
		}
		v.logger.Info("Price updated", zap.Float64("price", price))
		return nil
	})
}

// SetCommission updates the commission percent. Zero is allowed.
func (v *AdminView) SetCommission(ctx context.Context, commission float64) error {
	if math.IsNaN(commission) || commission < 0 {
		return ErrInvalidAmount
	}
	return v.run(func() error {
		if err := v.client.SetCommission(ctx, commission); err != nil {
			return err
		}
		v.logger.Info("Commission updated", zap.Float64("commission", commission))
		return nil
	})
}

// CreatePromotion creates a promotion and refetches the collection; the
// new row comes back from the server, it is never inserted locally.
func (v *AdminView) CreatePromotion(ctx context.Context, title, description string, discount float64) (int, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, ErrTitleRequired
	}
	if !validAmount(discount) {
		return 0, ErrInvalidDiscount
	}

	var id int
	err := v.run(func() error {
		var err error
		id, err = v.client.CreatePromotion(ctx, title, description, discount)
		if err != nil {
			return err
		}
		v.refreshPromotions(ctx)
		return nil
	})
	return id, err
}

// TogglePromotion flips a promotion's active flag and refetches.
func (v *AdminView) TogglePromotion(ctx context.Context, promoID int) error {
	return v.run(func() error {
		if err := v.client.TogglePromotion(ctx, promoID); err != nil {
			return err
		}
		v.refreshPromotions(ctx)
		return nil
	})
}

// CreateLottery creates a lottery and refetches the collection.
func (v *AdminView) CreateLottery(ctx context.Context, prize float64) (int, error) {
	if !validAmount(prize) {
		return 0, ErrInvalidPrize
	}

	var id int
	err := v.run(func() error {
		var err error
		id, err = v.client.CreateLottery(ctx, prize)
		if err != nil {
			return err
		}
		v.refreshLotteries(ctx)
		return nil
	})
	return id, err
}

// DrawWinner asks the server to pick a winner. On the server's
// no-participants error the snapshot is left untouched; the lottery
// stays active with no winner.
func (v *AdminView) DrawWinner(ctx context.Context, lotteryID int) (*api.DrawResult, error) {
	var result *api.DrawResult
	err := v.run(func() error {
		var err error
		result, err = v.client.DrawWinner(ctx, lotteryID)
		if err != nil {
			return err
		}
		v.refreshLotteries(ctx)
		v.logger.Info("Lottery drawn",
			zap.Int("lottery_id", lotteryID),
			zap.String("winner", result.Winner),
		)
		return nil
	})
	return result, err
}

// ApprovePurchase decides a pending purchase request. Approval credits
// the user's balance server-side, so both the request list and the user
// list are refetched.
func (v *AdminView) ApprovePurchase(ctx context.Context, requestID int, approved bool) error {
	return v.run(func() error {
		if err := v.client.ApprovePurchase(ctx, requestID, approved); err != nil {
			return err
		}
		v.refreshRequests(ctx)
		v.refreshUsers(ctx)
		v.logger.Info("Purchase request decided",
			zap.Int("request_id", requestID),
			zap.Bool("approved", approved),
		)
		return nil
	})
}

// RemoveCrypto debits a user's balance. No upper bound is checked here;
// the server clamps at zero.
func (v *AdminView) RemoveCrypto(ctx context.Context, userID int, amount float64) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	return v.run(func() error {
		if err := v.client.RemoveCrypto(ctx, userID, amount); err != nil {
			return err
		}
		v.refreshUsers(ctx)
		return nil
	})
}
