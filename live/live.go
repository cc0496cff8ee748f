// Package live aggregates the current live status of all configured streamers.
// On each request it either serves a short-lived cached result or fans out one
// concurrent poll per streamer to the platform adapters, merging whatever
// succeeded. Individual provider failures degrade to "not live" and never
// abort the cycle.
package live

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/livehub/db"
	"github.com/onnwee/livehub/telemetry"
)

// Stream is one normalized live broadcast, rebuilt on every poll cycle and
// never persisted.
type Stream struct {
	ID           string      `json:"id"`
	StreamerName string      `json:"streamerName"`
	Platform     db.Platform `json:"platform"`
	Title        string      `json:"title"`
	ThumbnailURL string      `json:"thumbnailUrl"`
	ViewerCount  int         `json:"viewerCount"`
	StreamURL    string      `json:"streamUrl"`
}

// StreamID derives the stable identifier for a streamer's live record.
func StreamID(platform db.Platform, streamerID string) string {
	return fmt.Sprintf("%s-%s", platform, streamerID)
}

// Poller checks one streamer's live status on a single platform.
// A nil Stream with nil error means "not currently live".
type Poller interface {
	Poll(ctx context.Context, s db.Streamer) (*Stream, error)
}

// PollerFunc adapts a function to the Poller interface.
type PollerFunc func(ctx context.Context, s db.Streamer) (*Stream, error)

func (f PollerFunc) Poll(ctx context.Context, s db.Streamer) (*Stream, error) { return f(ctx, s) }

// Aggregator answers "which configured streamers are currently live" from a
// freshness-bounded cache, refreshing it with a full provider fan-out when
// stale. Overlapping refreshes are permitted; the cache takes the last writer.
type Aggregator struct {
	pollers map[db.Platform]Poller
	cache   Cache
	ttl     time.Duration

	// list is the streamer roster source, replaceable in tests.
	list func(ctx context.Context) ([]db.Streamer, error)
}

// NewAggregator wires the aggregator with its streamer source and one poller
// per supported platform.
func NewAggregator(dbc *sql.DB, pollers map[db.Platform]Poller, ttl time.Duration) *Aggregator {
	return &Aggregator{
		pollers: pollers,
		ttl:     ttl,
		list: func(ctx context.Context) ([]db.Streamer, error) {
			return db.ListStreamers(ctx, dbc)
		},
	}
}

// GetLiveStreams returns the current ordered set of live streams. It never
// returns an error: store or provider failures are logged and degrade to an
// empty (or partial) result.
func (a *Aggregator) GetLiveStreams(ctx context.Context) []Stream {
	if entries, ok := a.cache.Get(a.ttl); ok {
		if telemetry.LiveCacheHits != nil {
			telemetry.LiveCacheHits.Inc()
		}
		return entries
	}
	if telemetry.LiveCacheMisses != nil {
		telemetry.LiveCacheMisses.Inc()
	}

	streamers, err := a.list(ctx)
	if err != nil {
		slog.Error("live: failed to list streamers", slog.Any("err", err))
		return []Stream{}
	}

	entries := a.pollAll(ctx, streamers)
	a.cache.Set(entries)
	if telemetry.LiveStreamsGauge != nil {
		telemetry.LiveStreamsGauge.Set(float64(len(entries)))
	}
	return entries
}

// pollAll dispatches one concurrent poll per streamer and waits for the full
// set (barrier, no early return). Results keep streamer-iteration order.
func (a *Aggregator) pollAll(ctx context.Context, streamers []db.Streamer) []Stream {
	ctx, span := telemetry.StartSpan(ctx, "live", "poll-cycle")
	defer span.End()

	start := time.Now()
	results := make([]*Stream, len(streamers))
	var wg sync.WaitGroup
	for i, s := range streamers {
		poller, ok := a.pollers[s.Platform]
		if !ok {
			slog.Warn("live: no poller for platform", slog.String("platform", string(s.Platform)), slog.String("streamer", s.Name))
			continue
		}
		wg.Add(1)
		go func(i int, s db.Streamer, poller Poller) {
			defer wg.Done()
			pctx, pspan := telemetry.StartSpan(ctx, "live", "poll", telemetry.PlatformAttr(string(s.Platform)))
			defer pspan.End()
			stream, err := poller.Poll(pctx, s)
			telemetry.IncProviderPoll(string(s.Platform), err != nil)
			if err != nil {
				// Fault isolation: one provider's failure is this slot's
				// "not live", nothing more.
				telemetry.RecordError(pspan, err)
				slog.Warn("live: poll failed",
					slog.String("platform", string(s.Platform)),
					slog.String("streamer", s.Name),
					slog.Any("err", err))
				return
			}
			results[i] = stream
		}(i, s, poller)
	}
	wg.Wait()
	if telemetry.PollCycleDuration != nil {
		telemetry.PollCycleDuration.Observe(time.Since(start).Seconds())
	}

	entries := make([]Stream, 0, len(streamers))
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.ViewerCount < 0 {
			r.ViewerCount = 0
		}
		entries = append(entries, *r)
	}
	return entries
}
