// Package execution paces orders into slices and intervals over wall-clock time.
package execution

import (
	"fmt"
	"time"

	"github.com/aristath/conductor/internal/domain"
)

// Algorithm tags how an order is paced.
type Algorithm string

const (
	AlgorithmMarket  Algorithm = "market"
	AlgorithmIceberg Algorithm = "iceberg"
	AlgorithmTWAP    Algorithm = "twap"
)

// Status is the lifecycle state of an order.
// Transitions are active -> completed | cancelled | failed, and terminal states never change.
type Status int32

const (
	StatusActive Status = iota
	StatusCompleted
	StatusCancelled
	StatusFailed
)

// String returns the lowercase name of the status
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name, so JSON carries "active" rather than 0.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name produced by MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	for _, st := range []Status{StatusActive, StatusCompleted, StatusCancelled, StatusFailed} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown order status %q", text)
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s != StatusActive
}

// Slice is one child unit of an order: an iceberg slice or a TWAP interval.
type Slice struct {
	Index        int       `json:"index"`
	Amount       float64   `json:"amount"`
	LimitPrice   float64   `json:"limit_price,omitempty"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	Executed     bool      `json:"executed"`
	Skipped      bool      `json:"skipped"`
	FillPrice    float64   `json:"fill_price,omitempty"`
	FillAmount   float64   `json:"fill_amount,omitempty"`
	ExecutedAt   time.Time `json:"executed_at,omitempty"`
	VenueOrderID string    `json:"venue_order_id,omitempty"`
}

// IcebergParams describes an iceberg order.
type IcebergParams struct {
	Symbol      string
	Side        domain.Side
	TotalAmount float64
	SliceSize   float64
	// PriceRange perturbs each slice's limit price by up to ±PriceRange (0.001 = 0.1%).
	PriceRange float64
	// Interval separates consecutive slice submissions.
	Interval time.Duration
}

// TWAPParams describes a time-weighted order.
type TWAPParams struct {
	Symbol      string
	Side        domain.Side
	TotalAmount float64
	Duration    time.Duration
	Intervals   int
	// PriceLimit skips any interval whose live price is worse than the limit. 0 disables it.
	PriceLimit float64
}

// OrderStatus is a point-in-time view of an order.
type OrderStatus struct {
	OrderID        string      `json:"order_id"`
	Symbol         string      `json:"symbol"`
	Side           domain.Side `json:"side"`
	Algorithm      Algorithm   `json:"algorithm"`
	Status         Status      `json:"status"`
	ExecutedAmount float64     `json:"executed_amount"`
	TotalAmount    float64     `json:"total_amount"`
	Progress       float64     `json:"progress"`
	AveragePrice   float64     `json:"average_price"`
	SlicesTotal    int         `json:"slices_total"`
	SlicesExecuted int         `json:"slices_executed"`
	SlicesSkipped  int         `json:"slices_skipped"`
	CreatedAt      time.Time   `json:"created_at"`
	CompletedAt    time.Time   `json:"completed_at,omitempty"`
	Error          string      `json:"error,omitempty"`
	Slices         []Slice     `json:"slices,omitempty"`
}

// Remaining returns the unexecuted part of the order.
func (s OrderStatus) Remaining() float64 {
	r := s.TotalAmount - s.ExecutedAmount
	if r < 0 {
		return 0
	}
	return r
}
