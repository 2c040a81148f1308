// Package collector gathers item links from an infinite-scroll listing page.
//
// Each attempt scans the page with every selector, merges matching links
// into a URLSet and then triggers more content by scrolling. Collection
// converges once the set stops growing for MaxStallAttempts consecutive
// attempts, or gives up after MaxTotalAttempts.
package collector

import (
	"context"
	"time"

	"bookmarkdl/pkg/config"
	"bookmarkdl/pkg/links"
	"bookmarkdl/pkg/logger"
)

// LinkSource queries the rendered page for link targets
type LinkSource interface {
	// QueryLinks returns the href of every element matching selector
	QueryLinks(ctx context.Context, selector string) ([]string, error)
}

// Scroller triggers loading of more content
type Scroller interface {
	ScrollToBottom(ctx context.Context) error
	ScrollContainers(ctx context.Context, selectors []string) error
}

// StopReason explains why collection ended
type StopReason string

const (
	StopStalled     StopReason = "stalled"
	StopCeiling     StopReason = "ceiling"
	StopInterrupted StopReason = "interrupted"
)

// Stats describes a finished collection
type Stats struct {
	Attempts       int
	Found          int
	SelectorErrors int
	Reason         StopReason
	Elapsed        time.Duration
}

// Options tune the loop
type Options struct {
	Matcher            links.Matcher
	Selectors          []string
	ContainerSelectors []string
	MaxStallAttempts   int
	MaxTotalAttempts   int
	ScrollDelay        time.Duration
	ContainerDelay     time.Duration

	// OnAttempt is called after every attempt with the running count
	OnAttempt func(attempt, found int)
	Logger    logger.Logger
}

// OptionsFromConfig builds Options from the collector and platform sections
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Matcher:            links.Matcher{Domain: cfg.Platform.Domain, Marker: cfg.Platform.ItemMarker},
		Selectors:          cfg.Collector.Selectors,
		ContainerSelectors: cfg.Collector.ContainerSelectors,
		MaxStallAttempts:   cfg.Collector.MaxStallAttempts,
		MaxTotalAttempts:   cfg.Collector.MaxTotalAttempts,
		ScrollDelay:        cfg.Collector.ScrollDelay,
		ContainerDelay:     cfg.Collector.ContainerDelay,
	}
}

// Collect runs the scan-merge-scroll loop and returns the frozen set.
// Selector and scroll failures never end the loop; only ctx cancellation does.
func Collect(ctx context.Context, source LinkSource, scroller Scroller, opts Options) (*links.URLSet, Stats) {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "collector")

	logger.LogComponentStart(log, "collector", map[string]interface{}{
		"selectors":   len(opts.Selectors),
		"max_stall":   opts.MaxStallAttempts,
		"max_attempt": opts.MaxTotalAttempts,
	})

	set := links.NewURLSet()
	stats := Stats{Reason: StopCeiling}
	start := time.Now()
	stall := 0

	for stats.Attempts < opts.MaxTotalAttempts {
		if ctx.Err() != nil {
			stats.Reason = StopInterrupted
			break
		}
		stats.Attempts++

		before := set.Len()
		stats.SelectorErrors += scan(ctx, source, set, opts, log)

		if set.Len() == before {
			stall++
		} else {
			stall = 0
		}

		logger.LogCollectProgress(log, stats.Attempts, set.Len(), stall)
		if opts.OnAttempt != nil {
			opts.OnAttempt(stats.Attempts, set.Len())
		}

		if err := loadMore(ctx, scroller, opts, log); err != nil {
			stats.Reason = StopInterrupted
			break
		}

		if stall >= opts.MaxStallAttempts {
			stats.Reason = StopStalled
			break
		}
	}

	set.Freeze()
	stats.Found = set.Len()
	stats.Elapsed = time.Since(start)

	log.InfoWithFields("Collection finished", map[string]interface{}{
		"found":    stats.Found,
		"attempts": stats.Attempts,
		"reason":   string(stats.Reason),
		"elapsed":  stats.Elapsed,
	})
	logger.LogComponentStop(log, "collector", string(stats.Reason))

	return set, stats
}

// scan queries each selector independently and returns how many failed
func scan(ctx context.Context, source LinkSource, set *links.URLSet, opts Options, log logger.Logger) int {
	failed := 0
	for _, sel := range opts.Selectors {
		hrefs, err := source.QueryLinks(ctx, sel)
		if err != nil {
			failed++
			log.WithError(err).DebugWithFields("Selector query failed", map[string]interface{}{
				"selector": sel,
			})
			continue
		}
		for _, href := range hrefs {
			if u, ok := opts.Matcher.Normalize(href); ok {
				set.Add(u)
			}
		}
	}
	return failed
}

// loadMore scrolls the window and the nested containers, pausing after each.
// It only returns an error when ctx is done.
func loadMore(ctx context.Context, scroller Scroller, opts Options, log logger.Logger) error {
	if err := scroller.ScrollToBottom(ctx); err != nil {
		log.WithError(err).Debug("Scroll to bottom failed")
	}
	if err := sleep(ctx, opts.ScrollDelay); err != nil {
		return err
	}

	if len(opts.ContainerSelectors) == 0 {
		return nil
	}
	if err := scroller.ScrollContainers(ctx, opts.ContainerSelectors); err != nil {
		log.WithError(err).Debug("Container scroll failed")
	}
	return sleep(ctx, opts.ContainerDelay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
