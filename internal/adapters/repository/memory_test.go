package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/fitscore/internal/domain/model"
	"github.com/okian/fitscore/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func record(name string, score int) model.Candidate {
	return model.Candidate{
		Name:           name,
		Email:          name + "@example.com",
		FitScore:       score,
		Classification: scoring.Classify(score),
		OwnerIdentity:  "owner",
	}
}

// waitFor polls cond until it holds or the timeout passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

type recorder struct {
	mu    sync.Mutex
	snaps [][]model.Candidate
	errs  []error
}

func (r *recorder) onSnapshot(s []model.Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recorder) last() []model.Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return nil
	}
	return r.snaps[len(r.snaps)-1]
}

func (r *recorder) errCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func TestCollectionPath(t *testing.T) {
	Convey("Given an application id", t, func() {
		So(CollectionPath("acme"), ShouldEqual, "artifacts/acme/public/data/candidates")

		Convey("Then a blank id falls back to the default namespace", func() {
			So(CollectionPath("  "), ShouldEqual, "artifacts/default-app-id/public/data/candidates")
		})
	})
}

func TestMemoryStore(t *testing.T) {
	Convey("Given a memory store with a fixed clock", t, func() {
		ctx := context.Background()
		fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		n := 0
		s := NewMemoryStore(
			WithClock(func() time.Time { return fixed }),
			WithIDGenerator(func() string { n++; return "id-" + string(rune('0'+n)) }),
		)
		defer s.Close()
		path := CollectionPath("")

		Convey("When a record is created", func() {
			id, err := s.Create(ctx, path, record("ana", 85))

			Convey("Then the store assigns id and timestamp", func() {
				So(err, ShouldBeNil)
				So(id, ShouldEqual, "id-1")
				snap, err := s.Snapshot(ctx, path)
				So(err, ShouldBeNil)
				So(len(snap), ShouldEqual, 1)
				So(snap[0].ID, ShouldEqual, "id-1")
				So(snap[0].CreatedAt, ShouldEqual, fixed)
				So(snap[0].Classification, ShouldEqual, scoring.FitAltissimo)
			})

			Convey("Then other namespaces stay empty", func() {
				snap, err := s.Snapshot(ctx, CollectionPath("other"))
				So(err, ShouldBeNil)
				So(snap, ShouldBeEmpty)
			})
		})

		Convey("When the path is empty", func() {
			_, err := s.Create(ctx, "", record("ana", 85))

			Convey("Then the write fails", func() {
				So(errors.Is(err, ErrWrite), ShouldBeTrue)
				So(errors.Is(err, ErrInvalidPath), ShouldBeTrue)
			})
		})

		Convey("When subscribing", func() {
			r := &recorder{}
			sub, err := s.Subscribe(ctx, path, r.onSnapshot, r.onError)
			So(err, ShouldBeNil)

			Convey("Then the current listing arrives first", func() {
				So(waitFor(func() bool { return r.count() >= 1 }), ShouldBeTrue)
				So(r.last(), ShouldBeEmpty)
			})

			Convey("Then a new record eventually shows up in a full snapshot", func() {
				_, err := s.Create(ctx, path, record("ana", 85))
				So(err, ShouldBeNil)
				_, err = s.Create(ctx, path, record("bia", 20))
				So(err, ShouldBeNil)
				So(waitFor(func() bool { return len(r.last()) == 2 }), ShouldBeTrue)
				So(r.last()[0].Name, ShouldEqual, "ana")
				So(r.last()[1].Name, ShouldEqual, "bia")
			})

			Convey("Then no callback fires after Unsubscribe", func() {
				So(waitFor(func() bool { return r.count() >= 1 }), ShouldBeTrue)
				sub.Unsubscribe()
				before := r.count()
				for i := 0; i < 5; i++ {
					_, _ = s.Create(ctx, path, record("late", 50))
				}
				time.Sleep(50 * time.Millisecond)
				So(r.count(), ShouldEqual, before)
				So(r.errCount(), ShouldEqual, 0)
			})

			Convey("Then closing the store ends the subscription", func() {
				So(s.Close(), ShouldBeNil)
				So(waitFor(func() bool { return r.errCount() == 1 }), ShouldBeTrue)
				So(errors.Is(r.errs[0], ErrClosed), ShouldBeTrue)

				_, err := s.Create(ctx, path, record("ana", 85))
				So(errors.Is(err, ErrWrite), ShouldBeTrue)
				_, err = s.Subscribe(ctx, path, r.onSnapshot, r.onError)
				So(errors.Is(err, ErrClosed), ShouldBeTrue)
			})
		})

		Convey("When a subscriber is slow", func() {
			release := make(chan struct{})
			var calls atomic.Int32
			var latest atomic.Int32
			sub, err := s.Subscribe(ctx, path, func(snap []model.Candidate) {
				if calls.Add(1) == 1 {
					<-release
				}
				latest.Store(int32(len(snap)))
			}, nil)
			So(err, ShouldBeNil)
			defer sub.Unsubscribe()

			So(waitFor(func() bool { return calls.Load() == 1 }), ShouldBeTrue)
			for i := 0; i < 5; i++ {
				_, err := s.Create(ctx, path, record("c", 60))
				So(err, ShouldBeNil)
			}
			close(release)

			Convey("Then it skips stale snapshots and lands on the latest", func() {
				So(waitFor(func() bool { return latest.Load() == 5 }), ShouldBeTrue)
				So(calls.Load(), ShouldBeLessThan, 6)
			})
		})
	})
}

func TestUnconfigured(t *testing.T) {
	Convey("Given a store without configuration", t, func() {
		ctx := context.Background()
		u := Unconfigured{Reason: "no blob"}

		Convey("Then writes fail without panicking", func() {
			_, err := u.Create(ctx, CollectionPath(""), record("ana", 85))
			So(errors.Is(err, ErrWrite), ShouldBeTrue)
			So(errors.Is(err, ErrNotConfigured), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "no blob")
		})

		Convey("Then subscribers receive a single error", func() {
			r := &recorder{}
			sub, err := u.Subscribe(ctx, CollectionPath(""), r.onSnapshot, r.onError)
			So(err, ShouldBeNil)
			So(waitFor(func() bool { return r.errCount() == 1 }), ShouldBeTrue)
			So(errors.Is(r.errs[0], ErrNotConfigured), ShouldBeTrue)
			So(r.count(), ShouldEqual, 0)
			sub.Unsubscribe()
		})

		Convey("Then one-shot reads fail", func() {
			_, err := u.Snapshot(ctx, CollectionPath(""))
			So(errors.Is(err, ErrRead), ShouldBeTrue)
		})
	})
}

func TestParseConfig(t *testing.T) {
	Convey("Given connection blobs", t, func() {
		Convey("Then a sqlite blob parses", func() {
			c, err := ParseConfig(`{"driver":"SQLite","dsn":"file::memory:"}`)
			So(err, ShouldBeNil)
			So(c.Driver, ShouldEqual, DriverSQLite)
			So(c.DSN, ShouldEqual, "file::memory:")
		})

		Convey("Then an empty blob means not configured", func() {
			_, err := ParseConfig("")
			So(errors.Is(err, ErrNotConfigured), ShouldBeTrue)
		})

		Convey("Then malformed JSON is rejected", func() {
			_, err := ParseConfig(`{"driver":`)
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("Then unknown drivers are rejected", func() {
			_, err := ParseConfig(`{"driver":"firebase"}`)
			So(errors.Is(err, ErrUnsupportedDriver), ShouldBeTrue)
		})
	})

	Convey("Given Open", t, func() {
		ctx := context.Background()

		Convey("When the blob is missing", func() {
			s := Open(ctx, "")

			Convey("Then it degrades to Unconfigured", func() {
				_, ok := s.(Unconfigured)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When the blob selects memory", func() {
			s := Open(ctx, `{"driver":"memory"}`)
			defer s.Close()

			Convey("Then a memory store is returned", func() {
				_, ok := s.(*MemoryStore)
				So(ok, ShouldBeTrue)
			})
		})
	})
}
