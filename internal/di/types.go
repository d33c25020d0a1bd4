/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds every engine component.
 * The Container is built once by Wire() in the composition root and owns the
 * explicit instances that would otherwise be module-level singletons.
 */
package di

import (
	"github.com/aristath/conductor/internal/clients/paper"
	"github.com/aristath/conductor/internal/modules/market"
	"github.com/aristath/conductor/internal/modules/portfolio"
	"github.com/aristath/conductor/internal/modules/routing"
	"github.com/aristath/conductor/internal/scheduler"
	"github.com/aristath/conductor/internal/work"
)

/**
 * Container holds all dependencies for the engine.
 *
 * Architecture:
 * - Simulation: paper market, paper account and one paper client per venue
 * - Routing: smart router over the venues, used as the single order placer
 * - Pacing: work scheduler driving iceberg slices and TWAP intervals
 * - Orchestration: portfolio manager owning optimizer, analytics and execution
 * - Jobs: cron scheduler running the rebalance cycle
 */
type Container struct {
	Market *paper.Market
	Book   *paper.Book
	Venues []*paper.Venue

	Router        *routing.Router
	WorkScheduler *work.Scheduler
	Feed          *market.HistoricalFeed
	Manager       *portfolio.Manager

	Cron         *scheduler.Scheduler
	RebalanceJob *scheduler.RebalanceJob
}
