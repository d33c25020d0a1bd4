package portfolio

import (
	"time"

	"github.com/aristath/conductor/internal/domain"
)

// PendingLeg is a rebalance leg that could not be executed. The next cycle
// recomputes the delta for its symbol and tries again.
type PendingLeg struct {
	Symbol        string      `json:"symbol"`
	Side          domain.Side `json:"side"`
	Amount        float64     `json:"amount"`
	Attempts      int         `json:"attempts"`
	LastError     string      `json:"last_error"`
	FirstRejected time.Time   `json:"first_rejected"`
	LastRejected  time.Time   `json:"last_rejected"`
}

// reject records a failed attempt for symbol and reports whether the leg has
// now exhausted its retries.
func (m *Manager) reject(symbol string, side domain.Side, amount float64, cause error) (PendingLeg, bool) {
	now := m.clock.Now()

	m.legsMu.Lock()
	defer m.legsMu.Unlock()

	pl, ok := m.pending[symbol]
	if !ok {
		pl = &PendingLeg{Symbol: symbol, FirstRejected: now}
		m.pending[symbol] = pl
	}
	pl.Side = side
	pl.Amount = amount
	pl.Attempts++
	pl.LastRejected = now
	if cause != nil {
		pl.LastError = cause.Error()
	}

	if pl.Attempts > m.thresholds.MaxLegRetries {
		delete(m.pending, symbol)
		m.log.Error().
			Str("symbol", symbol).
			Str("side", string(side)).
			Float64("amount", amount).
			Int("attempts", pl.Attempts).
			Str("last_error", pl.LastError).
			Msg("Rebalance leg abandoned")
		return *pl, true
	}
	return *pl, false
}

func (m *Manager) clearPending(symbol string) {
	m.legsMu.Lock()
	delete(m.pending, symbol)
	m.legsMu.Unlock()
}

// resolvePending drops legs for symbols that did not need trading this cycle.
func (m *Manager) resolvePending(traded map[string]bool) {
	m.legsMu.Lock()
	defer m.legsMu.Unlock()
	for symbol := range m.pending {
		if !traded[symbol] {
			m.log.Debug().Str("symbol", symbol).Msg("Pending leg resolved")
			delete(m.pending, symbol)
		}
	}
}

func (m *Manager) inflightOrder(symbol string) (string, bool) {
	m.legsMu.Lock()
	defer m.legsMu.Unlock()
	id, ok := m.inflight[symbol]
	return id, ok
}

// trackInflight remembers a paced order until it terminates. The status check
// runs under legsMu so an order that already finished is never tracked.
func (m *Manager) trackInflight(symbol, orderID string) {
	m.legsMu.Lock()
	defer m.legsMu.Unlock()
	if st, err := m.execution.Status(orderID); err != nil || st.Status.IsTerminal() {
		return
	}
	m.inflight[symbol] = orderID
}

func (m *Manager) untrackInflight(symbol, orderID string) {
	m.legsMu.Lock()
	defer m.legsMu.Unlock()
	if m.inflight[symbol] == orderID {
		delete(m.inflight, symbol)
	}
}
