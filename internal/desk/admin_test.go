package desk

import (
	"context"
	"testing"
	"time"

	"crypto-desk-go/internal/api"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testSecret = "sekret"

func newTestAdminView(client api.Client) *AdminView {
	return NewAdminView(zap.NewNop(), client, testSecret, time.Second)
}

func TestUnlock(t *testing.T) {
	t.Run("WrongPasswordKeepsGateClosed", func(t *testing.T) {
		fc := newFakeClient()
		v := newTestAdminView(fc)

		assert.ErrorIs(t, v.Unlock("guess"), ErrWrongPassword)
		assert.False(t, v.Unlocked())

		// The gate also blocks every mutation and no call leaves the client.
		err := v.SetPrice(context.Background(), 50)
		assert.ErrorIs(t, err, ErrLocked)
		assert.Equal(t, 0, fc.callCount("SetPrice"))
	})

	t.Run("ExactMatchOpensGate", func(t *testing.T) {
		v := newTestAdminView(newFakeClient())
		assert.NoError(t, v.Unlock(testSecret))
		assert.True(t, v.Unlocked())
	})

	t.Run("LockClosesGateAgain", func(t *testing.T) {
		v := newTestAdminView(newFakeClient())
		assert.NoError(t, v.Unlock(testSecret))
		v.Lock()
		assert.False(t, v.Unlocked())
	})
}

func TestAdminValidation(t *testing.T) {
	fc := newFakeClient()
	v := newTestAdminView(fc)
	assert.NoError(t, v.Unlock(testSecret))
	ctx := context.Background()

	assert.ErrorIs(t, v.SetPrice(ctx, 0), ErrInvalidAmount)
	assert.ErrorIs(t, v.SetPrice(ctx, -1), ErrInvalidAmount)
	assert.ErrorIs(t, v.SetCommission(ctx, -1), ErrInvalidAmount)

	_, err := v.CreatePromotion(ctx, "  ", "desc", 10)
	assert.ErrorIs(t, err, ErrTitleRequired)
	_, err = v.CreatePromotion(ctx, "Bonus", "desc", 0)
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	_, err = v.CreateLottery(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidPrize)

	assert.ErrorIs(t, v.RemoveCrypto(ctx, 1, 0), ErrInvalidAmount)

	// None of the rejected inputs reached the network.
	for _, name := range []string{"SetPrice", "SetCommission", "CreatePromotion", "CreateLottery", "RemoveCrypto"} {
		assert.Equal(t, 0, fc.callCount(name), name)
	}

	// Zero commission is allowed.
	assert.NoError(t, v.SetCommission(ctx, 0))
	assert.Equal(t, 1, fc.callCount("SetCommission"))
}

func TestSetPriceReliesOnNextPoll(t *testing.T) {
	fc := newFakeClient()
	v := newTestAdminView(fc)
	assert.NoError(t, v.Unlock(testSecret))

	assert.NoError(t, v.SetPrice(context.Background(), 50))
	assert.Equal(t, 1, fc.callCount("SetPrice"))
	// No refetch; the next scheduled poll picks up the change.
	assert.Equal(t, 0, fc.callCount("AdminUsers"))
	assert.Equal(t, 0, fc.callCount("AdminLotteries"))
}

func TestApprovePurchase(t *testing.T) {
	fc := newFakeClient()
	v := newTestAdminView(fc)
	assert.NoError(t, v.Unlock(testSecret))

	err := v.ApprovePurchase(context.Background(), 4, true)
	assert.NoError(t, err)

	// Approval mutates a balance server-side, so both the request list
	// and the user list are refetched exactly once.
	assert.Equal(t, 1, fc.callCount("AdminPurchaseRequests"))
	assert.Equal(t, 1, fc.callCount("AdminUsers"))
}

func TestCreatePromotionRefetches(t *testing.T) {
	fc := newFakeClient()
	v := newTestAdminView(fc)
	assert.NoError(t, v.Unlock(testSecret))

	id, err := v.CreatePromotion(context.Background(), "Bonus", "extra coins", 15)
	assert.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.Equal(t, 1, fc.callCount("AdminPromotions"))
}

func TestDrawWinner(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		fc := newFakeClient()
		fc.drawResult = &api.DrawResult{WinnerID: 2, Winner: "masha"}
		v := newTestAdminView(fc)
		assert.NoError(t, v.Unlock(testSecret))

		result, err := v.DrawWinner(context.Background(), 3)
		assert.NoError(t, err)
		assert.Equal(t, "masha", result.Winner)
		assert.Equal(t, 1, fc.callCount("AdminLotteries"))
	})

	t.Run("NoParticipants", func(t *testing.T) {
		fc := newFakeClient()
		fc.drawErr = &api.StatusError{Code: 400, Message: "No participants"}
		fc.adminLotteries = []api.Lottery{{ID: 3, Prize: 100, Active: true}}
		v := newTestAdminView(fc)
		assert.NoError(t, v.Unlock(testSecret))
		v.refresh(context.Background())

		_, err := v.DrawWinner(context.Background(), 3)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "No participants")

		// The lottery stays active with no winner: no refetch beyond the
		// initial load, snapshot untouched.
		assert.Equal(t, 1, fc.callCount("AdminLotteries"))
		snapshot := v.Snapshot()
		assert.True(t, snapshot.Lotteries[0].Active)
		assert.Empty(t, snapshot.Lotteries[0].Winner)
	})
}

func TestBusyFlag(t *testing.T) {
	fc := newFakeClient()
	fc.drawResult = &api.DrawResult{WinnerID: 2, Winner: "masha"}
	fc.drawStarted = make(chan struct{})
	fc.drawRelease = make(chan struct{})
	v := newTestAdminView(fc)
	assert.NoError(t, v.Unlock(testSecret))

	drawDone := make(chan error, 1)
	go func() {
		_, err := v.DrawWinner(context.Background(), 3)
		drawDone <- err
	}()

	<-fc.drawStarted

	// A second mutation while the draw is in flight is rejected.
	assert.ErrorIs(t, v.SetPrice(context.Background(), 50), ErrBusy)

	close(fc.drawRelease)
	assert.NoError(t, <-drawDone)

	// Once the call returned, the flag is released.
	assert.NoError(t, v.SetPrice(context.Background(), 50))
}

func TestAdminRefresh(t *testing.T) {
	fc := newFakeClient()
	fc.users = []api.AdminUser{{ID: 1, Name: "vanya", CryptoBalance: 10}}
	fc.requests = []api.PurchaseRequest{{ID: 4, UserID: 1, Username: "vanya", Amount: 10, Status: "pending"}}
	v := newTestAdminView(fc)
	assert.NoError(t, v.Unlock(testSecret))

	v.refresh(context.Background())

	snapshot := v.Snapshot()
	assert.Len(t, snapshot.Users, 1)
	assert.Len(t, snapshot.Requests, 1)
	assert.Equal(t, 1, fc.callCount("AdminUsers"))
	assert.Equal(t, 1, fc.callCount("AdminPromotions"))
	assert.Equal(t, 1, fc.callCount("AdminLotteries"))
	assert.Equal(t, 1, fc.callCount("AdminPurchaseRequests"))
}

func TestAdminRefreshFailureIsolated(t *testing.T) {
	fc := newFakeClient()
	fc.users = []api.AdminUser{{ID: 1, Name: "vanya", CryptoBalance: 10}}
	v := newTestAdminView(fc)
	assert.NoError(t, v.Unlock(testSecret))
	v.refresh(context.Background())

	// The user fetch starts failing; the others keep moving.
	fc.usersErr = &api.StatusError{Code: 500, Message: "Internal error"}
	fc.requests = []api.PurchaseRequest{{ID: 4, UserID: 1, Username: "vanya", Status: "pending"}}
	fc.promotions = []api.Promotion{{ID: 2, Title: "Bonus", Discount: 15, Active: true}}
	v.refresh(context.Background())

	snapshot := v.Snapshot()
	// The previously-polled users stay in place; nothing is cleared.
	assert.Len(t, snapshot.Users, 1)
	assert.Equal(t, "vanya", snapshot.Users[0].Name)
	assert.Len(t, snapshot.Requests, 1)
	assert.Len(t, snapshot.Promotions, 1)
}

func TestStartRequiresUnlock(t *testing.T) {
	v := newTestAdminView(newFakeClient())
	assert.ErrorIs(t, v.Start(context.Background()), ErrLocked)
}
