package api

import (
	"fmt"

	"courierboard/internal/common/clientprotocol"
	"courierboard/internal/courier/data"
)

func ConvertOrder(p clientprotocol.Order) (data.Order, error) {
	status, err := data.ParseStatus(p.Status)
	if err != nil {
		return data.Order{}, fmt.Errorf("order %q: %w", p.ID, err)
	}
	order := data.Order{
		ID:            p.ID,
		Status:        status,
		CustomerName:  p.CustomerName,
		CustomerPhone: p.CustomerPhone,
		Address:       p.Address,
		Note:          p.Note,
		Price:         p.Price,
		DeliveryFee:   p.DeliveryFee,
		CreatedAt:     p.CreatedAt,
		DeliveredAt:   p.DeliveredAt,
		CancelledAt:   p.CancelledAt,
		CancelReason:  p.CancelReason,
		CancelledBy:   p.CancelledBy,
	}
	if p.DriverID != nil {
		order.DriverID = *p.DriverID
	}
	return order, nil
}

func convertDriver(p clientprotocol.Driver) data.Driver {
	return data.Driver{
		ID:      p.ID,
		Name:    p.Name,
		Phone:   p.Phone,
		Online:  p.Online,
		Balance: p.Balance,
	}
}

func ConvertTransaction(p clientprotocol.WalletTransaction) (data.WalletTransaction, error) {
	switch data.TransactionType(p.Type) {
	case data.CreditTransaction, data.DebitTransaction:
	default:
		return data.WalletTransaction{}, fmt.Errorf("transaction %q: unknown type %q", p.ID, p.Type)
	}
	return data.WalletTransaction{
		ID:        p.ID,
		Amount:    p.Amount,
		Type:      data.TransactionType(p.Type),
		Method:    p.Method,
		Note:      p.Note,
		CreatedAt: p.CreatedAt,
	}, nil
}
