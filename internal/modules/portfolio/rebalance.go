package portfolio

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/aristath/conductor/internal/domain"
	"github.com/aristath/conductor/internal/modules/execution"
	"github.com/shopspring/decimal"
)

// LegOrder is one rebalance leg that was handed to execution.
type LegOrder struct {
	Symbol    string              `json:"symbol"`
	Side      domain.Side         `json:"side"`
	Amount    float64             `json:"amount"`
	Notional  float64             `json:"notional"`
	Algorithm execution.Algorithm `json:"algorithm"`
	OrderID   string              `json:"order_id"`
}

// RebalanceResult describes one rebalance cycle.
type RebalanceResult struct {
	// OrderIDs of every order created, whatever the algorithm.
	OrderIDs []string   `json:"order_ids"`
	Orders   []LegOrder `json:"orders"`
	// Rejected legs were not executed and will be retried next cycle.
	Rejected []PendingLeg `json:"rejected"`
	// Abandoned legs exhausted their retries.
	Abandoned []PendingLeg `json:"abandoned"`
	// Skipped symbols had a dust-sized delta or no usable price.
	Skipped     []string            `json:"skipped"`
	Allocations []domain.Allocation `json:"allocations"`
}

// Rebalance diffs the target allocation against holdings and executes every
// non-dust delta. Market legs run synchronously; TWAP and iceberg legs are
// submitted and paced by the execution scheduler.
func (m *Manager) Rebalance(ctx context.Context, holdings map[string]float64, useAdvancedOrders bool) (*RebalanceResult, error) {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	m.mu.RLock()
	if !m.initialized {
		m.mu.RUnlock()
		return nil, domain.ErrNotInitialized
	}
	req := m.requestLocked()
	value := m.value
	m.mu.RUnlock()

	if m.retention > 0 {
		m.execution.Prune(m.retention)
	}

	targets := m.optimizer.Optimize(req)
	if value <= 0 {
		value = m.optimizer.PortfolioValue(holdings)
	}
	deltas := m.optimizer.Rebalance(targets, holdings, value)

	m.mu.Lock()
	m.targets = targets
	m.allocations = deltas
	m.mu.Unlock()

	result := &RebalanceResult{
		OrderIDs:    make([]string, 0, len(deltas)),
		Allocations: deltas,
	}
	traded := make(map[string]bool, len(deltas))

	for _, d := range deltas {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		qty := math.Abs(d.RebalanceAmount)
		if qty < m.thresholds.Dust || qty == 0 {
			result.Skipped = append(result.Skipped, d.Symbol)
			continue
		}
		asset, _ := m.optimizer.Asset(d.Symbol)
		if asset.Price <= 0 {
			m.log.Warn().Str("symbol", d.Symbol).Msg("No price for rebalance leg, skipping")
			result.Skipped = append(result.Skipped, d.Symbol)
			continue
		}

		traded[d.Symbol] = true
		if id, busy := m.inflightOrder(d.Symbol); busy {
			m.log.Debug().Str("symbol", d.Symbol).Str("order_id", id).Msg("Order still in flight, skipping leg")
			result.Skipped = append(result.Skipped, d.Symbol)
			continue
		}

		side := domain.SideBuy
		if d.RebalanceAmount < 0 {
			side = domain.SideSell
		}

		leg := LegOrder{
			Symbol:   d.Symbol,
			Side:     side,
			Amount:   qty,
			Notional: qty * asset.Price,
		}
		leg.Algorithm = m.selectAlgorithm(leg.Notional, useAdvancedOrders)

		orderID, err := m.submit(ctx, leg)
		if err != nil {
			m.log.Warn().
				Err(err).
				Str("symbol", leg.Symbol).
				Str("side", string(leg.Side)).
				Float64("amount", leg.Amount).
				Str("algorithm", string(leg.Algorithm)).
				Msg("Rebalance leg rejected")

			pl, abandoned := m.reject(leg.Symbol, leg.Side, leg.Amount, err)
			if abandoned {
				result.Abandoned = append(result.Abandoned, pl)
			} else {
				result.Rejected = append(result.Rejected, pl)
			}
			// A failed market order still has an ID that can be queried.
			if orderID == "" {
				continue
			}
		} else {
			m.clearPending(leg.Symbol)
			if leg.Algorithm != execution.AlgorithmMarket {
				m.trackInflight(leg.Symbol, orderID)
			}
		}

		leg.OrderID = orderID
		result.Orders = append(result.Orders, leg)
		result.OrderIDs = append(result.OrderIDs, orderID)
	}

	// Legs whose symbol no longer needs trading are resolved.
	m.resolvePending(traded)

	m.log.Info().
		Int("orders", len(result.OrderIDs)).
		Int("rejected", len(result.Rejected)).
		Int("abandoned", len(result.Abandoned)).
		Int("skipped", len(result.Skipped)).
		Float64("portfolio_value", value).
		Msg("Rebalance cycle complete")

	return result, nil
}

func (m *Manager) selectAlgorithm(notional float64, advanced bool) execution.Algorithm {
	switch {
	case !advanced || notional < m.thresholds.SmallNotional:
		return execution.AlgorithmMarket
	case notional <= m.thresholds.LargeNotional:
		return execution.AlgorithmTWAP
	default:
		return execution.AlgorithmIceberg
	}
}

func (m *Manager) submit(ctx context.Context, leg LegOrder) (string, error) {
	switch leg.Algorithm {
	case execution.AlgorithmTWAP:
		return m.execution.SubmitTWAP(execution.TWAPParams{
			Symbol:      leg.Symbol,
			Side:        leg.Side,
			TotalAmount: leg.Amount,
			Duration:    m.thresholds.TWAPDuration,
			Intervals:   m.thresholds.TWAPIntervals,
		})
	case execution.AlgorithmIceberg:
		return m.execution.SubmitIceberg(execution.IcebergParams{
			Symbol:      leg.Symbol,
			Side:        leg.Side,
			TotalAmount: leg.Amount,
			SliceSize:   icebergSliceSize(leg.Amount, m.thresholds.IcebergSlices),
			PriceRange:  m.thresholds.IcebergPriceRange,
			Interval:    m.thresholds.IcebergInterval,
		})
	default:
		return m.execution.ExecuteMarket(ctx, leg.Symbol, leg.Side, leg.Amount)
	}
}

// icebergSliceSize rounds total/slices up to 8 places so the split never
// produces an extra dust slice from a non-terminating quotient.
func icebergSliceSize(total float64, slices int) float64 {
	if slices <= 1 {
		return total
	}
	size := decimal.NewFromFloat(total).
		DivRound(decimal.NewFromInt(int64(slices)), 16).
		RoundUp(8)
	if size.IsZero() {
		return total
	}
	return size.InexactFloat64()
}

// onOrderTerminal turns the unfilled remainder of a failed paced order into a
// pending leg so the next cycle accounts for it.
func (m *Manager) onOrderTerminal(st execution.OrderStatus) {
	if st.Algorithm == execution.AlgorithmMarket {
		return
	}
	m.untrackInflight(st.Symbol, st.OrderID)
	switch st.Status {
	case execution.StatusFailed:
		remaining := st.Remaining()
		if remaining <= m.thresholds.Dust {
			return
		}
		m.reject(st.Symbol, st.Side, remaining, fmt.Errorf("order %s failed: %s", st.OrderID, st.Error))
	case execution.StatusCompleted:
		m.clearPending(st.Symbol)
	}
}

// PendingLegs returns rejected legs awaiting retry, ordered by symbol.
func (m *Manager) PendingLegs() []PendingLeg {
	m.legsMu.Lock()
	defer m.legsMu.Unlock()
	out := make([]PendingLeg, 0, len(m.pending))
	for _, pl := range m.pending {
		out = append(out, *pl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
