package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"courierboard/internal/common/clientprotocol"
	"courierboard/internal/courier/data"
	"courierboard/pkg/logging"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the platform backend. Transport failures come back
// wrapped; application-level rejections come back as *Error with the
// server's message intact.
type Client struct {
	http   *resty.Client
	logger *logging.ZapLogger
}

func New(cfg Config, logger *logging.ZapLogger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL)
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}
	return &Client{
		http:   httpClient,
		logger: logger,
	}
}

func (c *Client) Login(ctx context.Context, phone, code string) (data.Driver, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(clientprotocol.LoginRequest{Phone: phone, Code: code}).
		Post("/drivers/login")
	if err != nil {
		return data.Driver{}, fmt.Errorf("login request failed: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return data.Driver{}, err
	}
	var body clientprotocol.LoginResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return data.Driver{}, fmt.Errorf("error unmarshalling login response: %w", err)
	}
	return convertDriver(body.Driver), nil
}

// Orders fetches the snapshot for a driver: assigned orders plus the open
// pool. Entries with a status this client does not know are dropped with a
// debug log instead of failing the whole snapshot.
func (c *Client) Orders(ctx context.Context, driverID string, statuses ...string) ([]data.Order, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("driver_id", driverID)
	for _, status := range statuses {
		req.SetQueryParam("status", status)
	}
	resp, err := req.Get("/orders")
	if err != nil {
		return nil, fmt.Errorf("orders request failed: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	var payload []clientprotocol.Order
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("error unmarshalling orders response: %w", err)
	}
	orders := make([]data.Order, 0, len(payload))
	for _, p := range payload {
		order, err := ConvertOrder(p)
		if err != nil {
			c.logger.DebugCtx(ctx, "dropping order from snapshot", zap.Error(err))
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (c *Client) PatchOrderStatus(
	ctx context.Context,
	orderID string,
	status data.Status,
	actorID string,
	code string,
	cancelReason string,
) (data.Order, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", orderID).
		SetBody(clientprotocol.StatusPatchRequest{
			Status:       string(status),
			ActorID:      actorID,
			Code:         code,
			CancelReason: cancelReason,
		}).
		Patch("/orders/{id}/status")
	if err != nil {
		return data.Order{}, fmt.Errorf("status patch request failed: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return data.Order{}, err
	}
	var payload clientprotocol.Order
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return data.Order{}, fmt.Errorf("error unmarshalling patched order: %w", err)
	}
	return ConvertOrder(payload)
}

func (c *Client) DeclineOrder(ctx context.Context, orderID, actorID, code, reason string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", orderID).
		SetBody(clientprotocol.DeclineRequest{
			ActorID: actorID,
			Code:    code,
			Reason:  reason,
		}).
		Post("/orders/{id}/decline")
	if err != nil {
		return fmt.Errorf("decline request failed: %w", err)
	}
	return checkResponse(resp)
}

func (c *Client) Driver(ctx context.Context, driverID string) (data.Driver, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", driverID).
		Get("/drivers/{id}")
	if err != nil {
		return data.Driver{}, fmt.Errorf("driver request failed: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return data.Driver{}, err
	}
	var payload clientprotocol.Driver
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return data.Driver{}, fmt.Errorf("error unmarshalling driver response: %w", err)
	}
	return convertDriver(payload), nil
}

func (c *Client) UpdateDriverOnline(ctx context.Context, driverID, code string, online bool) (data.Driver, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", driverID).
		SetBody(clientprotocol.DriverPatchRequest{
			Code:   code,
			Online: &online,
		}).
		Patch("/drivers/{id}")
	if err != nil {
		return data.Driver{}, fmt.Errorf("driver patch request failed: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return data.Driver{}, err
	}
	var payload clientprotocol.Driver
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return data.Driver{}, fmt.Errorf("error unmarshalling driver response: %w", err)
	}
	return convertDriver(payload), nil
}

func (c *Client) WalletTransactions(ctx context.Context, driverID string, limit int) ([]data.WalletTransaction, error) {
	req := c.http.R().
		SetContext(ctx).
		SetPathParam("id", driverID)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	resp, err := req.Get("/drivers/{id}/wallet/transactions")
	if err != nil {
		return nil, fmt.Errorf("wallet transactions request failed: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	var payload []clientprotocol.WalletTransaction
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("error unmarshalling wallet transactions: %w", err)
	}
	transactions := make([]data.WalletTransaction, 0, len(payload))
	for _, p := range payload {
		tx, err := ConvertTransaction(p)
		if err != nil {
			c.logger.DebugCtx(ctx, "dropping wallet transaction", zap.Error(err))
			continue
		}
		transactions = append(transactions, tx)
	}
	return transactions, nil
}

func (c *Client) Ledger(ctx context.Context, driverID string) ([]clientprotocol.LedgerEntry, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", driverID).
		Get("/drivers/{id}/ledger")
	if err != nil {
		return nil, fmt.Errorf("ledger request failed: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	var payload []clientprotocol.LedgerEntry
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("error unmarshalling ledger response: %w", err)
	}
	return payload, nil
}

func checkResponse(resp *resty.Response) error {
	if resp.StatusCode() < 400 {
		return nil
	}
	apiErr := &Error{StatusCode: resp.StatusCode()}
	var body clientprotocol.ErrorResponse
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		apiErr.Message = body.Message
	}
	return apiErr
}
