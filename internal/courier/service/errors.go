package service

import "errors"

var (
	ErrOrderNotFound        = errors.New("order is not known locally")
	ErrOrderBusy            = errors.New("another command is in flight for this order")
	ErrIllegalTransition    = errors.New("illegal status transition")
	ErrCancelReasonRequired = errors.New("cancellation requires a reason")
)
