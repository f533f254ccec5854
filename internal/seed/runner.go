package seed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/fitscore/internal/domain/model"
	"github.com/okian/fitscore/internal/domain/scoring"
	"github.com/okian/fitscore/pkg/logger"
)

// submitted is a record the server acknowledged, with the score expected for it.
type submitted struct {
	ID       string
	Name     string
	Expected scoring.Result
}

// Run generates cfg.Count evaluations, submits them and verifies the roster.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.Discard()
	}
	stats := &Stats{StartTime: time.Now(), ByLabel: make(map[scoring.Label]int)}

	log.Info(ctx, "starting fitscore seed",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("count", cfg.Count),
		logger.Int("workers", cfg.Workers))

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, err
	}

	evs := Generate(cfg.Count)
	stats.Generated = len(evs)

	records := submitAll(ctx, cfg, client, evs, stats, log)
	log.Info(ctx, "submission completed",
		logger.Int("successful", stats.Successful), logger.Int("failed", stats.Failed))

	if err := awaitVisible(ctx, cfg, client, records, stats, log); err != nil {
		return finish(stats, log), err
	}
	return finish(stats, log), nil
}

func finish(stats *Stats, log logger.Logger) *Stats {
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(context.Background(), "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("failed", stats.Failed),
		logger.Int("visible", stats.Visible),
		logger.Int("mismatched", stats.Mismatched),
		logger.Any("byLabel", stats.ByLabel),
		logger.Duration("duration", stats.Duration))
	return stats
}

// submitAll mounts one form per evaluation and submits it, using cfg.Workers
// concurrent submitters.
func submitAll(ctx context.Context, cfg *Config, client *Client, evs []model.Evaluation, stats *Stats, log logger.Logger) []submitted {
	var (
		mu      sync.Mutex
		out     = make([]submitted, 0, len(evs))
		ok, bad int64
		wg      sync.WaitGroup
	)
	work := make(chan model.Evaluation, cfg.Workers*2)

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range work {
				rec, err := submitOne(ctx, cfg, client, ev)
				if err != nil {
					atomic.AddInt64(&bad, 1)
					log.Warn(ctx, "submission failed", logger.String("name", ev.Name), logger.Error(err))
					continue
				}
				atomic.AddInt64(&ok, 1)
				if cfg.Verbose {
					log.Info(ctx, "submitted", logger.String("id", rec.ID),
						logger.Int("fit_score", rec.Expected.Score))
				}
				mu.Lock()
				out = append(out, rec)
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(work)
		for _, ev := range evs {
			select {
			case <-ctx.Done():
				return
			case work <- ev:
			}
		}
	}()
	wg.Wait()

	stats.Successful = int(ok)
	stats.Failed = int(bad)
	stats.Submitted = stats.Successful + stats.Failed
	return out
}

func submitOne(ctx context.Context, cfg *Config, client *Client, ev model.Evaluation) (submitted, error) {
	st, err := client.OpenForm(ctx)
	if err != nil {
		return submitted{}, err
	}
	if !st.AuthReady {
		waitCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		_, err = client.WaitReady(waitCtx, st.ID, cfg.PollInterval)
		cancel()
		if err != nil {
			return submitted{}, err
		}
	}
	conf, err := client.Submit(ctx, st.ID, ev)
	if err != nil {
		return submitted{}, err
	}
	want := scoring.Evaluate(ev.Ratings)
	if conf.FitScore == nil || *conf.FitScore != want.Score || conf.Classification != want.Classification {
		return submitted{}, fmt.Errorf("%w: confirmation for %s", ErrInconsistent, ev.Name)
	}
	return submitted{ID: conf.CandidateID, Name: ev.Name, Expected: want}, nil
}

// awaitVisible polls the roster until every record is listed or
// cfg.Visibility elapses, then verifies the listed scores.
func awaitVisible(ctx context.Context, cfg *Config, client *Client, records []submitted, stats *Stats, log logger.Logger) error {
	if len(records) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Visibility)
	defer cancel()
	t := time.NewTicker(cfg.PollInterval)
	defer t.Stop()

	for {
		frame, err := client.Candidates(ctx)
		if err == nil {
			res := verify(records, frame.Candidates)
			stats.Visible = res.visible
			if res.visible == len(records) {
				stats.Mismatched = len(res.mismatched)
				for _, r := range records {
					stats.ByLabel[r.Expected.Classification]++
				}
				if len(res.mismatched) > 0 {
					return fmt.Errorf("%w: %v", ErrInconsistent, res.mismatched)
				}
				return nil
			}
			log.Debug(ctx, "waiting for records", logger.Int("visible", res.visible), logger.Int("want", len(records)))
		} else {
			log.Warn(ctx, "roster read failed", logger.Error(err))
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %d of %d listed", ErrNotVisible, stats.Visible, len(records))
		case <-t.C:
		}
	}
}
