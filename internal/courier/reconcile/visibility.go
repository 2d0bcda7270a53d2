package reconcile

import "courierboard/internal/courier/data"

// Visible decides whether an order belongs in this driver's rendered list.
// It is a pure function of (status, assigned driver, local decline set):
//   - any order assigned to this driver is visible regardless of declines
//   - a pool order (pending, unassigned) is visible unless declined
//   - everything else, notably orders assigned to someone else, is hidden
func Visible(order data.Order, driverID string, declined func(orderID string) bool) bool {
	switch {
	case order.DriverID != "" && order.DriverID == driverID:
		return true
	case order.Pool():
		return !declined(order.ID)
	default:
		return false
	}
}
