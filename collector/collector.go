package collector

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/railradar/locotrack/config"
	"github.com/railradar/locotrack/fois"
	"github.com/railradar/locotrack/model"
	"github.com/railradar/locotrack/store"
)

// ErrNoData is returned by FetchLive when the upstream has no current
// position report for the locomotive.
var ErrNoData = errors.New("no position data for locomotive")

// UpstreamClient is the upstream capability the collector consumes.
// *fois.Client implements it.
type UpstreamClient interface {
	FetchDirectory(ctx context.Context) ([]fois.DirectoryEntry, error)
	FetchDetail(ctx context.Context, locoNo int) ([]byte, error)
}

// ObservationStore is the persistence capability the collector writes
// through. *store.Store implements it.
type ObservationStore interface {
	Ready() bool
	BulkUpsert(observations []model.Observation) (store.WriteResult, error)
	UpsertOne(obs model.Observation) error
	LatestByLoco(locoNo int) (*model.Observation, error)
}

// Collector runs the repeating collection schedule and the on-demand
// live lookup path.
type Collector struct {
	client UpstreamClient
	store  ObservationStore
	parser *fois.Parser

	interval   time.Duration
	chunkSize  int
	chunkDelay time.Duration

	// inProgress guards against overlapping cycles when a cycle
	// outlives the interval.
	inProgress atomic.Bool

	lastCycleEpoch atomic.Int64
}

// New creates a Collector. chunkSize and interval fall back to the
// config defaults when unset.
func New(client UpstreamClient, st ObservationStore, parser *fois.Parser, cfg config.CollectorConfig) *Collector {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = config.DefaultChunkSize
	}
	interval := cfg.Interval()
	if interval <= 0 {
		interval = time.Duration(config.DefaultIntervalMS) * time.Millisecond
	}
	return &Collector{
		client:     client,
		store:      st,
		parser:     parser,
		interval:   interval,
		chunkSize:  chunkSize,
		chunkDelay: cfg.ChunkDelay(),
	}
}

// Run executes one cycle immediately, then re-triggers at the fixed
// interval until ctx is cancelled. It blocks; run it in a goroutine.
func (c *Collector) Run(ctx context.Context) {
	log.Info().Dur("interval", c.interval).Int("chunk_size", c.chunkSize).
		Msg("starting collection schedule")

	c.cycle(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("collection schedule stopped")
			return
		case <-ticker.C:
			c.cycle(ctx)
		}
	}
}

// cycle wraps RunCycle with the re-entrancy guard and top-level
// failure containment: nothing raised inside a cycle escapes it.
func (c *Collector) cycle(ctx context.Context) {
	if !c.inProgress.CompareAndSwap(false, true) {
		cyclesSkipped.Inc()
		log.Warn().Msg("previous cycle still running, skipping this trigger")
		return
	}
	defer c.inProgress.Store(false)
	defer func() {
		if r := recover(); r != nil {
			cyclesFailed.Inc()
			log.Error().Any("panic", r).Msg("collection cycle panicked")
		}
	}()

	if err := c.RunCycle(ctx); err != nil {
		cyclesFailed.Inc()
		log.Error().Err(err).Msg("collection cycle failed")
	}
}

// RunCycle performs one full collection cycle: directory fetch, chunked
// detail fetches, reconciliation and one bulk upsert. A store that is
// not ready skips the cycle; a directory failure ends it early. Both
// are retried on the next trigger.
func (c *Collector) RunCycle(ctx context.Context) error {
	if !c.store.Ready() {
		cyclesSkipped.Inc()
		log.Warn().Msg("store not ready, skipping collection cycle")
		return nil
	}

	start := time.Now()
	log.Info().Msg("starting collection cycle")

	dir, err := c.client.FetchDirectory(ctx)
	if err != nil {
		return fmt.Errorf("fetch directory: %w", err)
	}
	if len(dir) == 0 {
		log.Info().Msg("no active locomotives in directory, ending cycle")
		c.finishCycle(start)
		return nil
	}
	log.Info().Int("locos", len(dir)).Msg("fetching live data")

	results := c.fetchDetails(ctx, dir)
	ops := c.reconcile(results, dir)
	log.Info().Int("parsed", len(ops)).Int("locos", len(dir)).Msg("reconciled detail results")

	res, err := c.store.BulkUpsert(ops)
	if err != nil {
		return fmt.Errorf("bulk upsert: %w", err)
	}
	observationsStored.Add(float64(res.Inserted + res.Updated))
	observationsFailed.Add(float64(res.Failed))
	log.Info().
		Int("inserted", res.Inserted).
		Int("updated", res.Updated).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("store updated")

	c.finishCycle(start)
	return nil
}

func (c *Collector) finishCycle(start time.Time) {
	cyclesTotal.Inc()
	cycleDuration.Observe(time.Since(start).Seconds())
	c.lastCycleEpoch.Store(time.Now().Unix())
}

// LastCycleEpoch reports when the last cycle completed, 0 before the
// first one. Used by the health endpoint.
func (c *Collector) LastCycleEpoch() int64 {
	return c.lastCycleEpoch.Load()
}

// FetchLive serves the on-demand path: fetch and parse the current
// report for one locomotive, enrich it with the train number of the
// latest stored record, and cache it in the background. The cache
// write is fire-and-forget; its failure never reaches the caller.
func (c *Collector) FetchLive(ctx context.Context, locoNo int) (*model.Observation, error) {
	raw, err := c.client.FetchDetail(ctx, locoNo)
	if err != nil {
		return nil, err
	}
	obs, err := c.parser.Parse(locoNo, raw)
	if err != nil {
		return nil, err
	}
	if obs == nil {
		return nil, ErrNoData
	}

	if prev, err := c.store.LatestByLoco(locoNo); err == nil && prev.TrainNo != nil {
		obs.TrainNo = prev.TrainNo
	}

	go func(cached model.Observation) {
		if err := c.store.UpsertOne(cached); err != nil {
			log.Warn().Err(err).Int("loco", cached.LocoNo).Msg("background cache write failed")
		}
	}(*obs)

	return obs, nil
}
