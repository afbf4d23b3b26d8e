package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"numislive/internal/domain"
	"numislive/internal/metrics"
	"numislive/pkg/logger"
)

// Sweeper is the recurring expiry scan: every tick it finds listings whose
// deadline has passed and hands each to the Closer. The Closer's per-listing
// lock and sold re-check make a sweep racing a manual close (or an
// overlapping tick) a harmless no-op.
type Sweeper struct {
	cron           *cron.Cron
	listings       domain.ListingRepository
	closer         *Closer
	leader         domain.LeaderElection
	instanceID     string
	clock          domain.Clock
	interval       time.Duration
	listingTimeout time.Duration
	log            logger.Logger
}

func NewSweeper(
	listings domain.ListingRepository,
	closer *Closer,
	leader domain.LeaderElection,
	instanceID string,
	clock domain.Clock,
	interval time.Duration,
	listingTimeout time.Duration,
	log logger.Logger,
) *Sweeper {
	return &Sweeper{
		cron:           cron.New(cron.WithSeconds()),
		listings:       listings,
		closer:         closer,
		leader:         leader,
		instanceID:     instanceID,
		clock:          clock,
		interval:       interval,
		listingTimeout: listingTimeout,
		log:            log,
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.log.Info("Starting expiration sweeper", "interval", s.interval.String())

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() error {
	s.log.Info("Stopping expiration sweeper")
	s.cron.Stop()
	return nil
}

// Sweep runs one expiry pass. Errors are logged and retried on the next
// tick; a failure closing one listing never aborts the rest of the pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	if s.leader != nil {
		isLeader, err := s.leader.IsLeader(ctx, s.instanceID)
		if err != nil {
			s.log.Error("Failed to check leadership", "error", err)
			return
		}
		if !isLeader {
			return
		}
	}

	metrics.SweepRuns.Inc()

	expired, err := s.listings.FindExpiredOpen(ctx, s.clock.Now())
	if err != nil {
		s.log.Error("Failed to scan for expired listings", "error", err)
		return
	}

	for _, listing := range expired {
		s.closeOne(ctx, listing.ID)
	}
}

// closeOne gives each listing its own bounded unit of work.
func (s *Sweeper) closeOne(ctx context.Context, listingID string) {
	cctx, cancel := context.WithTimeout(ctx, s.listingTimeout)
	defer cancel()

	result, err := s.closer.CloseListing(cctx, listingID, domain.SystemActor)
	if err != nil {
		s.log.Error("Failed to close expired listing, continuing sweep",
			"listing_id", listingID, "error", err)
		return
	}

	if !result.AlreadyClosed {
		s.log.Info("Expired listing closed", "listing_id", listingID,
			"winner_id", result.WinnerID)
	}
}
