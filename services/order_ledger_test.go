package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suman7063/Restaurant-Managment-sub002/models"
	"github.com/suman7063/Restaurant-Managment-sub002/otp"
	"github.com/suman7063/Restaurant-Managment-sub002/policy"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

func (f *fixture) openAndJoin(t *testing.T, names ...string) (*models.Session, []*models.SessionCustomer) {
	t.Helper()
	ctx := context.Background()
	s, err := f.sessions.Open(ctx, waiter, f.table.ID, 1)
	require.NoError(t, err)
	var customers []*models.SessionCustomer
	for _, name := range names {
		res, err := f.joins.Join(ctx, JoinRequest{OTP: s.OTP, TableID: f.table.ID, DisplayName: name})
		require.NoError(t, err)
		customers = append(customers, res.Customer)
	}
	return s, customers
}

func (f *fixture) staffOrder(t *testing.T, item models.MenuItem, qty int) *models.Order {
	t.Helper()
	order, err := f.ledger.PlaceOrder(context.Background(), waiter, PlaceOrderInput{
		Items: []OrderItemInput{{MenuItemID: item.ID, Quantity: qty}},
	})
	require.NoError(t, err)
	return order
}

func assertTotalsAgree(t *testing.T, f *fixture, sessionID uint) *Summary {
	t.Helper()
	summary, err := f.ledger.Summarize(context.Background(), admin, sessionID)
	require.NoError(t, err)
	stored := f.storedSession(t, sessionID)
	assert.True(t, summary.GrandTotal.Equal(stored.Total), "summary %s, stored %s", summary.GrandTotal, stored.Total)
	return summary
}

func TestJoinOrderAndSummarizeScenario(t *testing.T) {
	f := newFixture(t, otp.WithSource(sequenceSource(482913)))
	ctx := context.Background()

	s, err := f.sessions.Open(ctx, waiter, f.table.ID, 1)
	require.NoError(t, err)
	require.Equal(t, "482913", s.OTP)

	joined, err := f.joins.Join(ctx, JoinRequest{OTP: "482913", TableID: f.table.ID, DisplayName: "Asha"})
	require.NoError(t, err)

	order, err := f.ledger.PlaceOrder(ctx, customerActor(joined.Customer), PlaceOrderInput{
		Items: []OrderItemInput{{MenuItemID: f.thali.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NotNil(t, order.SessionCustomerID)
	assert.Equal(t, joined.Customer.ID, *order.SessionCustomerID)
	assert.Equal(t, "250.00", order.TotalAmount.StringFixed(2))

	summary := assertTotalsAgree(t, f, s.ID)
	assert.Equal(t, 1, summary.OrderCount)
	assert.Equal(t, "250.00", summary.PerCustomerTotals[joined.Customer.ID].StringFixed(2))
	assert.Equal(t, "250.00", summary.GrandTotal.StringFixed(2))
	require.Len(t, summary.Customers, 1)
	assert.Equal(t, "Asha", summary.Customers[0].DisplayName)

	closed, err := f.sessions.Close(ctx, waiter, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "250.00", closed.Total.StringFixed(2))
	assert.Equal(t, "INR 250.00", utils.FormatCurrency(closed.Total, "INR"))
}

func TestAttributeMovesOrderBetweenSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s1, c1 := f.openAndJoin(t, "Asha", "Ravi")

	order := f.staffOrder(t, f.lassi, 2)
	_, err := f.ledger.Attribute(ctx, waiter, order.ID, s1.ID, c1[0].ID)
	require.NoError(t, err)
	summary := assertTotalsAgree(t, f, s1.ID)
	assert.Equal(t, "161.00", summary.GrandTotal.StringFixed(2))

	_, err = f.ledger.Attribute(ctx, waiter, order.ID, s1.ID, c1[1].ID)
	require.NoError(t, err)
	summary = assertTotalsAgree(t, f, s1.ID)
	assert.Equal(t, "161.00", summary.PerCustomerTotals[c1[1].ID].StringFixed(2))
	_, stale := summary.PerCustomerTotals[c1[0].ID]
	assert.False(t, stale)

	other := f.addTable(t, 1, "T2")
	s2, err := f.sessions.Open(ctx, waiter, other.ID, 1)
	require.NoError(t, err)
	j, err := f.joins.Join(ctx, JoinRequest{OTP: s2.OTP, TableID: other.ID, DisplayName: "Meera"})
	require.NoError(t, err)

	_, err = f.ledger.Attribute(ctx, waiter, order.ID, s2.ID, j.Customer.ID)
	require.NoError(t, err)
	assert.True(t, f.storedSession(t, s1.ID).Total.IsZero())
	assert.Equal(t, "161.00", f.storedSession(t, s2.ID).Total.StringFixed(2))

	detached, err := f.ledger.Detach(ctx, waiter, order.ID)
	require.NoError(t, err)
	assert.Nil(t, detached.SessionID)
	assert.Nil(t, detached.SessionCustomerID)
	assert.True(t, f.storedSession(t, s2.ID).Total.IsZero())
}

func TestAttributeRejectsForeignCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s1, _ := f.openAndJoin(t)
	other := f.addTable(t, 1, "T2")
	s2, err := f.sessions.Open(ctx, waiter, other.ID, 1)
	require.NoError(t, err)
	j, err := f.joins.Join(ctx, JoinRequest{OTP: s2.OTP, TableID: other.ID, DisplayName: "Meera"})
	require.NoError(t, err)
	order := f.staffOrder(t, f.thali, 1)

	_, err = f.ledger.Attribute(ctx, waiter, order.ID, s1.ID, j.Customer.ID)
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = f.ledger.Attribute(ctx, waiter, order.ID, s1.ID, 9999)
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestAttributeRequiresActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, customers := f.openAndJoin(t, "Asha")
	order := f.staffOrder(t, f.thali, 1)
	_, err := f.sessions.Close(ctx, waiter, s.ID)
	require.NoError(t, err)

	_, err = f.ledger.Attribute(ctx, waiter, order.ID, s.ID, customers[0].ID)
	assert.ErrorIs(t, err, utils.ErrInvalidState)
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.PlaceOrder(ctx, waiter, PlaceOrderInput{})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = f.ledger.PlaceOrder(ctx, waiter, PlaceOrderInput{Items: []OrderItemInput{{MenuItemID: f.thali.ID, Quantity: 0}}})
	assert.ErrorIs(t, err, utils.ErrValidation)

	foreign := models.MenuItem{RestaurantID: 2, Name: "Other", Price: decimal.NewFromInt(10), Available: true}
	require.NoError(t, f.db.Create(&foreign).Error)
	_, err = f.ledger.PlaceOrder(ctx, waiter, PlaceOrderInput{Items: []OrderItemInput{{MenuItemID: foreign.ID, Quantity: 1}}})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = f.ledger.PlaceOrder(ctx, policy.Public(1), PlaceOrderInput{Items: []OrderItemInput{{MenuItemID: f.thali.ID, Quantity: 1}}})
	assert.ErrorIs(t, err, utils.ErrAuthorization)
}

func TestSessionOrderNeedsCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, customers := f.openAndJoin(t, "Asha")
	items := []OrderItemInput{{MenuItemID: f.thali.ID, Quantity: 1}}

	_, err := f.ledger.PlaceOrder(ctx, waiter, PlaceOrderInput{SessionID: &s.ID, Items: items})
	assert.ErrorIs(t, err, utils.ErrValidation)

	var count int64
	f.db.Model(&models.Order{}).Where("session_id = ?", s.ID).Count(&count)
	assert.Zero(t, count)

	order, err := f.ledger.PlaceOrder(ctx, waiter, PlaceOrderInput{SessionID: &s.ID, CustomerID: &customers[0].ID, Items: items})
	require.NoError(t, err)
	require.NotNil(t, order.SessionCustomerID)
	assert.Equal(t, customers[0].ID, *order.SessionCustomerID)
	assertTotalsAgree(t, f, s.ID)
}

func TestPriceSnapshotSurvivesMenuChange(t *testing.T) {
	f := newFixture(t)
	order := f.staffOrder(t, f.thali, 2)
	require.NoError(t, f.db.Model(&f.thali).Update("price", "300.00").Error)

	got, err := f.ledger.GetOrder(context.Background(), waiter, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "250.00", got.Items[0].PriceAtTime.StringFixed(2))
	assert.Equal(t, "500.00", got.TotalAmount.StringFixed(2))
}

func TestCustomerCancelsOnlyOwnOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, customers := f.openAndJoin(t, "Asha", "Ravi")
	asha, ravi := customerActor(customers[0]), customerActor(customers[1])

	order, err := f.ledger.PlaceOrder(ctx, asha, PlaceOrderInput{Items: []OrderItemInput{{MenuItemID: f.thali.ID, Quantity: 1}}})
	require.NoError(t, err)

	_, err = f.ledger.UpdateStatus(ctx, ravi, order.ID, models.OrderCancelled)
	assert.ErrorIs(t, err, utils.ErrAuthorization)

	_, err = f.ledger.UpdateStatus(ctx, asha, order.ID, models.OrderPreparing)
	assert.ErrorIs(t, err, utils.ErrAuthorization, "customers only cancel")

	cancelled, err := f.ledger.UpdateStatus(ctx, asha, order.ID, models.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	summary := assertTotalsAgree(t, f, s.ID)
	assert.Zero(t, summary.OrderCount)
}

func TestOrderStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.staffOrder(t, f.thali, 1)

	for _, next := range []string{models.OrderPreparing, models.OrderReady, models.OrderServed} {
		_, err := f.ledger.UpdateStatus(ctx, waiter, order.ID, next)
		require.NoError(t, err, next)
	}
	_, err := f.ledger.UpdateStatus(ctx, waiter, order.ID, models.OrderCancelled)
	assert.ErrorIs(t, err, utils.ErrInvalidState)

	_, err = f.ledger.UpdateStatus(ctx, waiter, order.ID, "teleported")
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestCustomerOrderVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, customers := f.openAndJoin(t, "Asha", "Ravi")
	order, err := f.ledger.PlaceOrder(ctx, customerActor(customers[0]), PlaceOrderInput{Items: []OrderItemInput{{MenuItemID: f.lassi.ID, Quantity: 1}}})
	require.NoError(t, err)

	_, err = f.ledger.GetOrder(ctx, customerActor(customers[1]), order.ID)
	assert.NoError(t, err, "tablemates see the shared bill")

	stray := f.staffOrder(t, f.thali, 1)
	_, err = f.ledger.GetOrder(ctx, customerActor(customers[0]), stray.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, customers := f.openAndJoin(t, "Asha")
	_, err := f.ledger.PlaceOrder(ctx, customerActor(customers[0]), PlaceOrderInput{Items: []OrderItemInput{
		{MenuItemID: f.thali.ID, Quantity: 1},
		{MenuItemID: f.lassi.ID, Quantity: 2},
	}})
	require.NoError(t, err)

	bill, err := f.ledger.Bill(ctx, waiter, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "T1", bill.Table.TableNumber)
	require.Len(t, bill.Orders, 1)
	assert.Len(t, bill.Orders[0].Items, 2)
	assert.Equal(t, "411.00", bill.Summary.GrandTotal.StringFixed(2))
}
