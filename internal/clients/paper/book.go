package paper

import (
	"sync"
	"time"

	"github.com/aristath/conductor/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// position is a signed quantity with its average entry price.
type position struct {
	qty       decimal.Decimal
	avgPrice  decimal.Decimal
	entryTime time.Time
}

// Book is a paper account: cash plus signed positions. Reducing or flipping a
// position closes the reduced part and reports it as a TradeRecord.
type Book struct {
	mu        sync.RWMutex
	cash      decimal.Decimal
	positions map[string]*position
	onClose   []func(domain.TradeRecord)
	log       zerolog.Logger
}

// NewBook creates a book holding only cash.
func NewBook(cash float64, log zerolog.Logger) *Book {
	return &Book{
		cash:      decimal.NewFromFloat(cash),
		positions: make(map[string]*position),
		log:       log.With().Str("component", "paper_book").Logger(),
	}
}

// OnClose registers fn to receive every closed trade.
func (b *Book) OnClose(fn func(domain.TradeRecord)) {
	b.mu.Lock()
	b.onClose = append(b.onClose, fn)
	b.mu.Unlock()
}

// ApplyFill books a fill against cash and the symbol's position.
func (b *Book) ApplyFill(f Fill) {
	qty := decimal.NewFromFloat(f.Amount)
	price := decimal.NewFromFloat(f.Price)
	fee := decimal.NewFromFloat(f.Fee)
	notional := qty.Mul(price)

	signed := qty
	if f.Side == domain.SideSell {
		signed = qty.Neg()
		b.mu.Lock()
		b.cash = b.cash.Add(notional).Sub(fee)
	} else {
		b.mu.Lock()
		b.cash = b.cash.Sub(notional).Sub(fee)
	}

	pos, ok := b.positions[f.Symbol]
	if !ok {
		pos = &position{qty: decimal.Zero, avgPrice: decimal.Zero}
		b.positions[f.Symbol] = pos
	}

	var closed []domain.TradeRecord
	switch {
	case pos.qty.IsZero() || pos.qty.Sign() == signed.Sign():
		// Opening or adding: blend the average entry price.
		total := pos.qty.Add(signed)
		if pos.qty.IsZero() {
			pos.entryTime = f.At
			pos.avgPrice = price
		} else {
			pos.avgPrice = pos.qty.Abs().Mul(pos.avgPrice).Add(notional).Div(total.Abs())
		}
		pos.qty = total

	default:
		// Reducing, closing or flipping.
		closeQty := decimal.Min(pos.qty.Abs(), qty)
		entrySide := domain.SideBuy
		if pos.qty.IsNegative() {
			entrySide = domain.SideSell
		}
		feeShare := fee.Mul(closeQty).Div(qty)
		closed = append(closed, domain.NewTradeRecord(
			f.Symbol,
			entrySide,
			pos.entryTime,
			f.At,
			pos.avgPrice.InexactFloat64(),
			f.Price,
			closeQty.InexactFloat64(),
			feeShare.InexactFloat64(),
		))

		pos.qty = pos.qty.Add(signed)
		if pos.qty.IsZero() {
			pos.avgPrice = decimal.Zero
		} else if pos.qty.Sign() == signed.Sign() {
			// Flipped: the remainder opens a new position at the fill price.
			pos.avgPrice = price
			pos.entryTime = f.At
		}
	}

	hooks := append(([]func(domain.TradeRecord))(nil), b.onClose...)
	b.mu.Unlock()

	for _, tr := range closed {
		b.log.Debug().
			Str("symbol", tr.Symbol).
			Float64("quantity", tr.Quantity).
			Float64("pnl", tr.PnL).
			Msg("Position reduced")
		for _, fn := range hooks {
			fn(tr)
		}
	}
}

// Cash returns the cash balance.
func (b *Book) Cash() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cash.InexactFloat64()
}

// Holdings returns the signed quantity per symbol, omitting flat positions.
func (b *Book) Holdings() map[string]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]float64, len(b.positions))
	for s, p := range b.positions {
		if !p.qty.IsZero() {
			out[s] = p.qty.InexactFloat64()
		}
	}
	return out
}

// Value marks every position to prices and adds cash. Symbols without a price
// are valued at their average entry price.
func (b *Book) Value(prices map[string]float64) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := b.cash
	for s, p := range b.positions {
		mark := p.avgPrice
		if px, ok := prices[s]; ok && px > 0 {
			mark = decimal.NewFromFloat(px)
		}
		total = total.Add(p.qty.Mul(mark))
	}
	return total.InexactFloat64()
}
