package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/suman7063/Restaurant-Managment-sub002/models"
	"github.com/suman7063/Restaurant-Managment-sub002/store"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

// recomputeSessionTotal rewrites sessions.total from its live, non-cancelled
// orders. It writes nothing else, not even updated_at, and is safe to repeat.
// Tombstoned sessions are kept in step too so a restore finds a correct total.
func recomputeSessionTotal(ctx context.Context, st *store.Store, sessionID uint) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := st.DB(ctx).Model(&models.Order{}).
		Where("session_id = ? AND status <> ?", sessionID, models.OrderCancelled).
		Pluck("total_amount", &amounts).Error
	if err != nil {
		return decimal.Zero, utils.WrapDBError(err, "order")
	}

	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}

	err = st.DB(ctx).Unscoped().Model(&models.Session{}).Where("id = ?", sessionID).
		UpdateColumn("total", total.StringFixed(2)).Error
	if err != nil {
		return decimal.Zero, utils.WrapDBError(err, "session")
	}
	return total, nil
}

// recomputeOrderTotal rewrites orders.total_amount from its live items and
// then the total of the session it is attributed to.
func recomputeOrderTotal(ctx context.Context, st *store.Store, orderID uint) error {
	var items []models.OrderItem
	if err := st.DB(ctx).Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return utils.WrapDBError(err, "order item")
	}
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].Subtotal())
	}

	var order models.Order
	if err := st.DB(ctx).Unscoped().First(&order, orderID).Error; err != nil {
		return utils.WrapDBError(err, "order")
	}
	err := st.DB(ctx).Unscoped().Model(&models.Order{}).Where("id = ?", orderID).
		UpdateColumn("total_amount", total.StringFixed(2)).Error
	if err != nil {
		return utils.WrapDBError(err, "order")
	}
	if order.SessionID != nil {
		_, err = recomputeSessionTotal(ctx, st, *order.SessionID)
	}
	return err
}
