package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suman7063/Restaurant-Managment-sub002/kds"
	"github.com/suman7063/Restaurant-Managment-sub002/models"
	"github.com/suman7063/Restaurant-Managment-sub002/otp"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

func TestOpenSession(t *testing.T) {
	f := newFixture(t, otp.WithSource(sequenceSource(482913)))
	ctx := context.Background()

	s, err := f.sessions.Open(ctx, waiter, f.table.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "482913", s.OTP)
	assert.Equal(t, models.SessionActive, s.Status)
	assert.True(t, s.Total.IsZero())
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), s.OTPExpiresAt, time.Minute)

	var table models.Table
	require.NoError(t, f.db.First(&table, f.table.ID).Error)
	assert.Equal(t, models.TableOccupied, table.Status)
	assert.Equal(t, []string{kds.EventSessionOpened}, f.events.Types())

	_, err = f.sessions.Open(ctx, waiter, f.table.ID, 1)
	assert.ErrorIs(t, err, utils.ErrConflict)
}

func TestOpenRejectsForeignTable(t *testing.T) {
	f := newFixture(t)
	_, err := f.sessions.Open(context.Background(), waiter, f.table.ID, 2)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = f.sessions.Open(context.Background(), outsider, f.table.ID, 1)
	assert.ErrorIs(t, err, utils.ErrAuthorization)
}

func TestOpenRetriesOnOTPCollision(t *testing.T) {
	f := newFixture(t, otp.WithSource(sequenceSource(111111, 111111, 222222)))
	ctx := context.Background()
	second := f.addTable(t, 1, "T2")

	a, err := f.sessions.Open(ctx, waiter, f.table.ID, 1)
	require.NoError(t, err)
	b, err := f.sessions.Open(ctx, waiter, second.ID, 1)
	require.NoError(t, err)

	assert.Equal(t, "111111", a.OTP)
	assert.Equal(t, "222222", b.OTP)
}

func TestOpenSameCodeAllowedAcrossRestaurants(t *testing.T) {
	f := newFixture(t, otp.WithSource(sequenceSource(111111)))
	ctx := context.Background()
	foreign := f.addTable(t, 2, "F1")

	_, err := f.sessions.Open(ctx, waiter, f.table.ID, 1)
	require.NoError(t, err)
	s, err := f.sessions.Open(ctx, outsider, foreign.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "111111", s.OTP)
}

func TestOpenExhaustsOTPs(t *testing.T) {
	f := newFixture(t, otp.WithSource(sequenceSource(123456)))
	ctx := context.Background()
	second := f.addTable(t, 1, "T2")

	_, err := f.sessions.Open(ctx, waiter, f.table.ID, 1)
	require.NoError(t, err)
	_, err = f.sessions.Open(ctx, waiter, second.ID, 1)
	assert.ErrorIs(t, err, utils.ErrIssuanceExhausted)
}

func TestConcurrentOpenYieldsOneSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.sessions.Open(ctx, waiter, f.table.ID, 1)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, utils.ErrConflict)
	}
	assert.Equal(t, 1, succeeded)

	var active int64
	f.db.Model(&models.Session{}).Where("table_id = ? AND status = ?", f.table.ID, models.SessionActive).Count(&active)
	assert.Equal(t, int64(1), active)
}

func TestRegenerateOTPInvalidatesOldCode(t *testing.T) {
	f := newFixture(t, otp.WithSource(sequenceSource(111111, 222222)))
	ctx := context.Background()

	s, err := f.sessions.Open(ctx, waiter, f.table.ID, 1)
	require.NoError(t, err)
	updated, err := f.sessions.RegenerateOTP(ctx, waiter, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "222222", updated.OTP)

	_, err = f.joins.Join(ctx, JoinRequest{OTP: "111111", TableID: f.table.ID, DisplayName: "Asha"})
	assert.ErrorIs(t, err, utils.ErrNotFound)

	res, err := f.joins.Join(ctx, JoinRequest{OTP: "222222", TableID: f.table.ID, DisplayName: "Asha"})
	require.NoError(t, err)
	assert.Equal(t, s.ID, res.Customer.SessionID)
}

func TestConcurrentRegenerationsLeaveOneLiveCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.sessions.Open(ctx, waiter, f.table.ID, 1)
	require.NoError(t, err)

	const n = 5
	var wg sync.WaitGroup
	codes := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			updated, err := f.sessions.RegenerateOTP(ctx, waiter, s.ID)
			if assert.NoError(t, err) {
				codes[i] = updated.OTP
			}
		}(i)
	}
	wg.Wait()

	stored := f.storedSession(t, s.ID)
	assert.Contains(t, codes, stored.OTP)
	require.NotNil(t, stored.ActiveOTPKey)
	assert.Equal(t, models.OTPKey(1, stored.OTP), *stored.ActiveOTPKey)
}

func TestRegenerateRequiresActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.sessions.Open(ctx, waiter, f.table.ID, 1)
	require.NoError(t, err)
	_, err = f.sessions.Close(ctx, waiter, s.ID)
	require.NoError(t, err)

	_, err = f.sessions.RegenerateOTP(ctx, waiter, s.ID)
	assert.ErrorIs(t, err, utils.ErrInvalidState)
}

func TestCloseAndClearLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.sessions.Open(ctx, waiter, f.table.ID, 1)
	require.NoError(t, err)

	_, err = f.sessions.Clear(ctx, waiter, s.ID)
	assert.ErrorIs(t, err, utils.ErrInvalidState, "clear needs billed")

	closed, err := f.sessions.Close(ctx, waiter, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionBilled, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.Nil(t, closed.ActiveTableKey)

	_, err = f.sessions.Close(ctx, waiter, s.ID)
	assert.ErrorIs(t, err, utils.ErrInvalidState)

	cleared, err := f.sessions.Clear(ctx, waiter, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCleared, cleared.Status)
	assert.NotNil(t, cleared.ClearedAt)

	var table models.Table
	require.NoError(t, f.db.First(&table, f.table.ID).Error)
	assert.Equal(t, models.TableDirty, table.Status)

	// the table can be reopened once the previous session is billed
	_, err = f.sessions.Open(ctx, waiter, f.table.ID, 1)
	assert.NoError(t, err)

	assert.Equal(t, []string{
		kds.EventSessionOpened, kds.EventSessionClosed, kds.EventSessionCleared, kds.EventSessionOpened,
	}, f.events.Types())
}

func TestConcurrentCloseExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.sessions.Open(ctx, waiter, f.table.ID, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.sessions.Close(ctx, waiter, s.ID)
		}(i)
	}
	wg.Wait()

	invalid := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, utils.ErrInvalidState)
			invalid++
		}
	}
	assert.Equal(t, 1, invalid)
}

func TestCustomerCannotCloseForeignSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	foreign := f.addTable(t, 2, "F1")
	s, err := f.sessions.Open(ctx, outsider, foreign.ID, 2)
	require.NoError(t, err)

	customer := models.SessionCustomer{ID: 77, RestaurantID: 1}
	_, err = f.sessions.Close(ctx, customerActor(&customer), s.ID)
	assert.ErrorIs(t, err, utils.ErrAuthorization)
	assert.Equal(t, models.SessionActive, f.storedSession(t, s.ID).Status)

	// id yang tidak ada tetap authorization, bukan not_found
	for _, id := range []uint{s.ID, 99999} {
		_, err = f.sessions.Close(ctx, customerActor(&customer), id)
		assert.ErrorIs(t, err, utils.ErrAuthorization, "close %d", id)
		_, err = f.sessions.Clear(ctx, customerActor(&customer), id)
		assert.ErrorIs(t, err, utils.ErrAuthorization, "clear %d", id)
		_, err = f.sessions.RegenerateOTP(ctx, customerActor(&customer), id)
		assert.ErrorIs(t, err, utils.ErrAuthorization, "regenerate %d", id)
	}

	_, err = f.sessions.Close(ctx, waiter, 99999)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestTombstonedSessionIsInvisible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.sessions.Open(ctx, waiter, f.table.ID, 1)
	require.NoError(t, err)

	_, err = f.records.SoftDelete(ctx, admin, models.EntitySession, s.ID)
	require.NoError(t, err)

	_, err = f.sessions.Get(ctx, owner, s.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = f.sessions.Close(ctx, owner, s.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	// the guard was released with the tombstone
	_, err = f.sessions.Open(ctx, waiter, f.table.ID, 1)
	assert.NoError(t, err)
}

func TestListSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	second := f.addTable(t, 1, "T2")
	a, err := f.sessions.Open(ctx, waiter, f.table.ID, 1)
	require.NoError(t, err)
	_, err = f.sessions.Open(ctx, waiter, second.ID, 1)
	require.NoError(t, err)
	_, err = f.records.SoftDelete(ctx, admin, models.EntitySession, a.ID)
	require.NoError(t, err)

	live, err := f.sessions.List(ctx, waiter, SessionFilter{Status: models.SessionActive})
	require.NoError(t, err)
	assert.Len(t, live, 1)

	_, err = f.sessions.List(ctx, waiter, SessionFilter{IncludeDeleted: true})
	assert.ErrorIs(t, err, utils.ErrAuthorization)

	all, err := f.sessions.List(ctx, admin, SessionFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	foreign, err := f.sessions.List(ctx, outsider, SessionFilter{})
	require.NoError(t, err)
	assert.Empty(t, foreign)
}

func TestExpiredContextSurfacesAsTimeout(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := f.sessions.Open(ctx, waiter, f.table.ID, 1)
	assert.ErrorIs(t, err, utils.ErrTimeout)
}

func TestRecomputeTotalLeavesUpdatedAtAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, customers := f.openAndJoin(t, "Asha")
	order, err := f.ledger.PlaceOrder(ctx, customerActor(customers[0]), PlaceOrderInput{Items: []OrderItemInput{{MenuItemID: f.thali.ID, Quantity: 2}}})
	require.NoError(t, err)

	past := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, f.db.Model(&models.Session{}).Where("id = ?", s.ID).UpdateColumn("updated_at", past).Error)
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", order.ID).UpdateColumn("updated_at", past).Error)

	total, err := f.sessions.RecomputeTotal(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "500.00", total.StringFixed(2))
	require.NoError(t, recomputeOrderTotal(ctx, f.store, order.ID))

	assert.True(t, f.storedSession(t, s.ID).UpdatedAt.Equal(past))
	var stored models.Order
	require.NoError(t, f.db.First(&stored, order.ID).Error)
	assert.True(t, stored.UpdatedAt.Equal(past))
	assert.Equal(t, "500.00", stored.TotalAmount.StringFixed(2))
}
