// Package source assembles the three input series into a snapshot, either
// from the live upstream feeds or from local fixtures and storage.
package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/external/cftc"
	"github.com/silverpulse/heat/internal/external/etf"
	"github.com/silverpulse/heat/internal/external/premium"
	"github.com/silverpulse/heat/internal/metrics"
	"github.com/silverpulse/heat/pkg/logger"
	"github.com/silverpulse/heat/pkg/redis"
)

// Collector downloads all three sources concurrently
// ⭐ SSOT: 외부 데이터 → Snapshot 변환은 여기서만
type Collector struct {
	cot     *cftc.Client
	etf     *etf.Client
	premium *premium.Client

	cache   *redis.Cache
	ttl     time.Duration
	series  contracts.SeriesRepository
	metrics *metrics.Recorder
	logger  *logger.Logger
}

// NewCollector creates a collector. cache may be backed by a disabled client.
func NewCollector(cot *cftc.Client, holdings *etf.Client, prem *premium.Client, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *Collector {
	if log == nil {
		log = logger.Nop()
	}
	if ttl <= 0 {
		ttl = redis.TTLLong
	}
	return &Collector{
		cot:     cot,
		etf:     holdings,
		premium: prem,
		cache:   cache,
		ttl:     ttl,
		logger:  log.Component("collector"),
	}
}

// WithSeriesStore persists every collected series and evaluates against the
// stored history, so windows can reach further back than one download.
func (c *Collector) WithSeriesStore(repo contracts.SeriesRepository) *Collector {
	c.series = repo
	return c
}

// WithMetrics records fetch counts and latency
func (c *Collector) WithMetrics(m *metrics.Recorder) *Collector {
	c.metrics = m
	return c
}

type fetchResult struct {
	series contracts.Series
	cot    *contracts.COTReport
	err    error
}

// Snapshot fetches the three series. Any source failure fails the snapshot.
func (c *Collector) Snapshot(ctx context.Context) (*contracts.Snapshot, error) {
	var (
		wg      sync.WaitGroup
		results [3]fetchResult
	)

	jobs := []func(context.Context) fetchResult{c.fetchPositioning, c.fetchFlow, c.fetchPremium}
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job func(context.Context) fetchResult) {
			defer wg.Done()
			results[i] = job(ctx)
		}(i, job)
	}
	wg.Wait()

	var errs []error
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	snap := &contracts.Snapshot{
		Positioning: results[0].series,
		Flow:        results[1].series,
		Premium:     results[2].series,
		LatestCOT:   results[0].cot,
	}

	if c.series != nil {
		snap.Positioning = c.withHistory(ctx, snap.Positioning)
		snap.Flow = c.withHistory(ctx, snap.Flow)
		snap.Premium = c.withHistory(ctx, snap.Premium)
	}

	c.logger.WithFields(map[string]interface{}{
		"positioning": snap.Positioning.Len(),
		"flow":        snap.Flow.Len(),
		"premium":     snap.Premium.Len(),
	}).Info("Collected snapshot")
	return snap, nil
}

// withHistory upserts the fresh points and returns the merged stored series.
// Storage failures fall back to the downloaded series.
func (c *Collector) withHistory(ctx context.Context, fresh contracts.Series) contracts.Series {
	log := c.logger.WithField("series", string(fresh.Name))
	if err := c.series.Upsert(ctx, fresh); err != nil {
		log.WithError(err).Warn("Failed to persist series")
		return fresh
	}
	merged, err := c.series.Load(ctx, fresh.Name)
	if err != nil {
		log.WithError(err).Warn("Failed to load stored series")
		return fresh
	}
	if err := merged.Validate(); err != nil {
		log.WithError(err).Warn("Stored series is not ordered")
		return fresh
	}
	return merged
}

func (c *Collector) fetchPositioning(ctx context.Context) fetchResult {
	reports, err := c.cot.FetchWith(ctx, func(ctx context.Context, url string) ([]byte, error) {
		return c.download(ctx, "cot", url, func(ctx context.Context) ([]byte, error) {
			return c.cot.Download(ctx, url)
		})
	})
	if err != nil {
		return fetchResult{err: fmt.Errorf("cot: %w", err)}
	}
	latest, _ := cftc.Latest(reports)
	return fetchResult{series: cftc.PositioningSeries(reports), cot: &latest}
}

func (c *Collector) fetchFlow(ctx context.Context) fetchResult {
	data, err := c.download(ctx, "etf", c.etf.URL(), c.etf.Download)
	if err != nil {
		return fetchResult{err: err}
	}
	s, err := c.etf.Parse(data)
	if err != nil {
		return fetchResult{err: fmt.Errorf("etf: %w", err)}
	}
	return fetchResult{series: s}
}

func (c *Collector) fetchPremium(ctx context.Context) fetchResult {
	data, err := c.download(ctx, "premium", c.premium.URL(), c.premium.Download)
	if err != nil {
		return fetchResult{err: err}
	}
	s, err := c.premium.Parse(data)
	if err != nil {
		return fetchResult{err: fmt.Errorf("premium: %w", err)}
	}
	return fetchResult{series: s}
}

// download serves raw bytes from the cache when present
func (c *Collector) download(ctx context.Context, name, url string, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%s: source URL not configured", name)
	}

	start := time.Now()
	data, cached, err := c.cache.GetOrFetchBytes(ctx, redis.SourceKey(name, url), c.ttl, fetch)
	if !cached {
		c.metrics.RecordFetch(name, time.Since(start).Seconds(), err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"source": name,
		"bytes":  len(data),
		"cached": cached,
	}).Debug("Downloaded source")
	return data, nil
}
