// Package analytics reduces the portfolio value series and trade ledger to
// return, risk and drawdown statistics.
package analytics

import (
	"time"

	"github.com/aristath/conductor/internal/domain"
)

// Metrics are the return and risk statistics of the value series.
// Volatility-based figures assume daily sampling (252 periods per year).
type Metrics struct {
	TotalReturn      float64   `json:"total_return"`
	AnnualizedReturn float64   `json:"annualized_return"`
	Volatility       float64   `json:"volatility"`
	DownsideDev      float64   `json:"downside_deviation"`
	SharpeRatio      float64   `json:"sharpe_ratio"`
	SortinoRatio     float64   `json:"sortino_ratio"`
	CalmarRatio      float64   `json:"calmar_ratio"`
	MaxDrawdown      float64   `json:"max_drawdown"`
	CurrentDrawdown  float64   `json:"current_drawdown"`
	Observations     int       `json:"observations"`
	Start            time.Time `json:"start,omitempty"`
	End              time.Time `json:"end,omitempty"`
	StartValue       float64   `json:"start_value"`
	EndValue         float64   `json:"end_value"`
}

// TradeMetrics summarise the closed-trade ledger.
type TradeMetrics struct {
	TotalTrades   int                 `json:"total_trades"`
	WinningTrades int                 `json:"winning_trades"`
	LosingTrades  int                 `json:"losing_trades"`
	WinRate       float64             `json:"win_rate"`
	ProfitFactor  float64             `json:"profit_factor"`
	AverageWin    float64             `json:"average_win"`
	AverageLoss   float64             `json:"average_loss"` // negative
	TotalPnL      float64             `json:"total_pnl"`
	TotalFees     float64             `json:"total_fees"`
	BestTrade     *domain.TradeRecord `json:"best_trade,omitempty"`
	WorstTrade    *domain.TradeRecord `json:"worst_trade,omitempty"`
}

// BenchmarkComparison relates portfolio returns to benchmark returns.
type BenchmarkComparison struct {
	Alpha            float64 `json:"alpha"`
	Beta             float64 `json:"beta"`
	Correlation      float64 `json:"correlation"`
	TrackingError    float64 `json:"tracking_error"`
	InformationRatio float64 `json:"information_ratio"`
	Observations     int     `json:"observations"`
}

// HistogramBucket counts trades whose P&L falls in [Low, High).
type HistogramBucket struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// Report bundles everything a dashboard needs.
type Report struct {
	GeneratedAt     time.Time               `json:"generated_at"`
	Metrics         Metrics                 `json:"metrics"`
	Trades          TradeMetrics            `json:"trades"`
	DrawdownPeriods []domain.DrawdownPeriod `json:"drawdown_periods"`
	Distribution    []HistogramBucket       `json:"distribution"`
}
