package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side indicates whether an order buys or sells the instrument.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType is the execution style of an order.
type OrderType string

const (
	OrderTypeMarket       OrderType = "market"
	OrderTypeLimit        OrderType = "limit"
	OrderTypeStop         OrderType = "stop"
	OrderTypeStopLimit    OrderType = "stop_limit"
	OrderTypeTrailingStop OrderType = "trailing_stop"
)

// OrderClass groups an order with its attached legs.
type OrderClass string

const (
	OrderClassSimple  OrderClass = "simple"
	OrderClassBracket OrderClass = "bracket"
	OrderClassOCO     OrderClass = "oco"
	OrderClassOTO     OrderClass = "oto"
)

// TimeInForce controls how long an order stays working.
type TimeInForce string

const (
	TimeInForceDay TimeInForce = "day"
	TimeInForceGTC TimeInForce = "gtc"
	TimeInForceOPG TimeInForce = "opg"
	TimeInForceCLS TimeInForce = "cls"
	TimeInForceIOC TimeInForce = "ioc"
	TimeInForceFOK TimeInForce = "fok"
)

// OrderStatus tracks the simulated order lifecycle. The canonical initial
// status is new; orders reach filled only through a position close and
// canceled only through cancel/replace. There is no price-triggered fill.
type OrderStatus string

const (
	OrderStatusNew      OrderStatus = "new"
	OrderStatusAccepted OrderStatus = "accepted"
	OrderStatusFilled   OrderStatus = "filled"
	OrderStatusCanceled OrderStatus = "canceled"
	OrderStatusHeld     OrderStatus = "held"
)

// Terminal reports whether the status is an end state for the simulation.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCanceled
}

// Order is a persisted intent to buy or sell an instrument. Rows are never
// physically deleted; lifecycle changes only flip Status and UpdatedAt.
type Order struct {
	ID              uuid.UUID        `json:"id"`
	Instrument      string           `json:"instrument"`
	Quantity        decimal.Decimal  `json:"quantity"`
	Side            Side             `json:"side"`
	EntryPrice      *decimal.Decimal `json:"entry_price,omitempty"`
	TakeProfitPrice *decimal.Decimal `json:"take_profit_price,omitempty"`
	StopLossPrice   *decimal.Decimal `json:"stop_loss_price,omitempty"`
	Type            OrderType        `json:"order_type"`
	Class           OrderClass       `json:"order_class"`
	TimeInForce     TimeInForce      `json:"time_in_force"`
	Status          OrderStatus      `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// OrderSpec is the generic order specification accepted by submit. Acceptance
// is unconditional: no symbol, price, or quantity validation is performed.
type OrderSpec struct {
	Symbol      string           `json:"symbol"`
	Qty         decimal.Decimal  `json:"qty"`
	Side        Side             `json:"side"`
	Type        OrderType        `json:"type"`
	Class       OrderClass       `json:"order_class,omitempty"`
	TimeInForce TimeInForce      `json:"time_in_force"`
	LimitPrice  *decimal.Decimal `json:"limit_price,omitempty"`
	StopPrice   *decimal.Decimal `json:"stop_price,omitempty"`
	TakeProfit  *decimal.Decimal `json:"take_profit,omitempty"`
	StopLoss    *decimal.Decimal `json:"stop_loss,omitempty"`
}

// ReplaceSpec carries the caller-supplied overrides for a replace. Nil fields
// inherit from the order being replaced, except StopLoss which is never
// inherited: it applies only when supplied here.
type ReplaceSpec struct {
	Qty         *decimal.Decimal `json:"qty,omitempty"`
	TimeInForce *TimeInForce     `json:"time_in_force,omitempty"`
	LimitPrice  *decimal.Decimal `json:"limit_price,omitempty"`
	StopPrice   *decimal.Decimal `json:"stop_price,omitempty"`
}

// CloseRequest asks to liquidate a position. Only a full close is supported:
// Percentage must be exactly the string "100".
type CloseRequest struct {
	Percentage string `json:"percentage"`
}

// OrderAck is the result of submit, fetch, and cancel operations.
type OrderAck struct {
	Status OrderStatus `json:"status"`
	ID     uuid.UUID   `json:"id"`
}

// ReplaceAck is the result of a replace: the acknowledgement for the
// newly-created order plus its effective terms.
type ReplaceAck struct {
	Status     OrderStatus      `json:"status"`
	ID         uuid.UUID        `json:"id"`
	Qty        decimal.Decimal  `json:"qty"`
	LimitPrice *decimal.Decimal `json:"limit_price,omitempty"`
	StopPrice  *decimal.Decimal `json:"stop_price,omitempty"`
}
