package di

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aristath/conductor/internal/clients/paper"
	"github.com/aristath/conductor/internal/config"
	"github.com/aristath/conductor/internal/domain"
	"github.com/aristath/conductor/internal/modules/market"
	"github.com/aristath/conductor/internal/modules/portfolio"
	"github.com/aristath/conductor/internal/modules/routing"
	"github.com/aristath/conductor/internal/scheduler"
	"github.com/aristath/conductor/internal/work"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Wire builds every component, initializes the portfolio from a first market
// snapshot and registers the rebalance job. Nothing is started.
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	c := &Container{}

	// Simulation
	c.Market = paper.NewMarket(paper.MarketConfig{
		Prices:     cfg.Universe,
		WarmupDays: cfg.PaperWarmupDays,
		MaxHistory: cfg.PaperWarmupDays + 1,
		Seed:       cfg.PaperSeed,
	})
	c.Book = paper.NewBook(cfg.InitialPortfolioValue, log)

	venues := make([]routing.Venue, 0, len(cfg.PaperVenues))
	for _, vc := range cfg.PaperVenues {
		v := paper.NewVenue(vc, c.Market, log)
		v.OnFill(c.Book.ApplyFill)
		c.Venues = append(c.Venues, v)

		rv := routing.Venue{Name: vc.Name, Quotes: v, Orders: v}
		if cfg.VenueRateLimit > 0 {
			burst := int(math.Max(1, math.Ceil(cfg.VenueRateLimit)))
			rv.Limiter = rate.NewLimiter(rate.Limit(cfg.VenueRateLimit), burst)
		}
		venues = append(venues, rv)
	}

	// Routing and pacing
	c.Router = routing.NewRouter(venues, cfg.RouterOptions(), log)
	c.WorkScheduler = work.NewScheduler(work.SystemClock{}, log)

	// Orchestration
	manager, err := portfolio.NewManager(portfolio.Options{
		Tuning:         cfg.Tuning(),
		Thresholds:     cfg.Thresholds(),
		RiskFreeRate:   cfg.RiskFreeRate,
		OrderRetention: cfg.OrderRetention,
		Seed:           cfg.PaperSeed,
	}, portfolio.Dependencies{
		Placer:    c.Router,
		Prices:    c.Market,
		Scheduler: c.WorkScheduler,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create portfolio manager: %w", err)
	}
	c.Manager = manager
	c.Book.OnClose(func(tr domain.TradeRecord) {
		manager.Analytics().AddTrade(tr)
	})

	universe := make([]domain.Asset, 0, len(cfg.Universe))
	for _, symbol := range cfg.Symbols() {
		universe = append(universe, domain.Asset{Symbol: symbol})
	}
	c.Feed = market.NewHistoricalFeed(c.Market, universe, c.WorkScheduler.Clock(), log)
	if cfg.HistoryEMALength > 0 {
		c.Feed.SetEMALength(cfg.HistoryEMALength)
	}

	snap, err := c.Feed.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial market snapshot: %w", err)
	}
	if err := manager.Initialize(snap.Assets, cfg.Constraints(), cfg.InitialPortfolioValue); err != nil {
		return nil, fmt.Errorf("failed to initialize portfolio: %w", err)
	}
	manager.UpdateMarket(snap)

	// Jobs
	c.Cron = scheduler.New(log)
	c.RebalanceJob = scheduler.NewRebalanceJob(scheduler.RebalanceJobConfig{
		Log:               log,
		Feed:              c.Feed,
		Manager:           manager,
		Account:           c.Book,
		UseAdvancedOrders: cfg.UseAdvancedOrders,
		Timeout:           time.Minute,
		BeforeCycle:       c.Market.Tick,
	})
	if err := c.Cron.AddJob(cfg.RebalanceSchedule, c.RebalanceJob); err != nil {
		return nil, fmt.Errorf("failed to register rebalance job: %w", err)
	}

	return c, nil
}
