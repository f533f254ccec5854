package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/fitscore/internal/adapters/identity"
	"github.com/okian/fitscore/internal/adapters/repository"
	service "github.com/okian/fitscore/internal/app"
	"github.com/okian/fitscore/internal/domain/model"
	"github.com/okian/fitscore/internal/domain/roster"
	"github.com/okian/fitscore/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

// flakyStore fails writes while failing is set and can hold writes until released.
type flakyStore struct {
	*repository.MemoryStore
	mu      sync.Mutex
	failing bool
	hold    chan struct{}
	entered chan struct{}
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: repository.NewMemoryStore()}
}

func (f *flakyStore) Create(ctx context.Context, path string, c model.Candidate) (string, error) {
	f.mu.Lock()
	failing, hold, entered := f.failing, f.hold, f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if hold != nil {
		<-hold
	}
	if failing {
		return "", fmt.Errorf("%w: permission denied", repository.ErrWrite)
	}
	return f.MemoryStore.Create(ctx, path, c)
}

type capture struct {
	mu    sync.Mutex
	notes []model.Notification
}

func (c *capture) Dispatch(_ context.Context, n model.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append(c.notes, n)
	return nil
}

func (c *capture) all() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Notification(nil), c.notes...)
}

type stalledProvider struct{ release chan struct{} }

func (p stalledProvider) SignInAnonymously(context.Context) (identity.Identity, error) {
	<-p.release
	return identity.Identity{UID: "late"}, nil
}

func (stalledProvider) Resolve(context.Context, string) (identity.Identity, error) {
	return identity.Identity{}, identity.ErrInvalidToken
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func ratings(v int) [scoring.ItemCount]int {
	var r [scoring.ItemCount]int
	for i := range r {
		r[i] = v
	}
	return r
}

func evaluation(v int) model.Evaluation {
	return model.Evaluation{Name: "Ana", Email: "ana@example.com", Ratings: ratings(v)}
}

func newService(store repository.Store, opts ...service.Option) (*service.Service, *capture) {
	c := &capture{}
	base := []service.Option{
		service.WithStore(store),
		service.WithIdentity(identity.NewJWTProvider("test-secret")),
		service.WithDispatcher(c),
		service.WithAppID("test-app"),
		service.WithNotifyDelay(0),
		service.WithReportDelay(0),
		service.WithWorkerCount(1),
	}
	return service.New(append(base, opts...)...), c
}

func readyForm(svc *service.Service) *service.Form {
	f := svc.OpenForm(context.Background(), "")
	So(f.Session().Wait(context.Background()), ShouldBeNil)
	return f
}

func TestSubmit(t *testing.T) {
	Convey("Given a started service over a memory store", t, func() {
		ctx := context.Background()
		store := newFlakyStore()
		svc, notes := newService(store)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		f := readyForm(svc)
		So(f.State().AuthReady, ShouldBeTrue)

		Convey("When every slider is at zero", func() {
			conf, err := f.Submit(ctx, evaluation(0))

			Convey("Then 0 / Fora do Perfil is persisted", func() {
				So(err, ShouldBeNil)
				So(conf.Success, ShouldBeTrue)
				So(conf.Title, ShouldEqual, service.TitleSubmitted)
				So(conf.Redirect, ShouldEqual, "/dashboard")
				So(*conf.FitScore, ShouldEqual, 0)
				So(conf.Classification, ShouldEqual, scoring.ForaDoPerfil)

				snap, err := store.Snapshot(ctx, svc.CollectionPath())
				So(err, ShouldBeNil)
				So(len(snap), ShouldEqual, 1)
				So(snap[0].FitScore, ShouldEqual, 0)
				So(snap[0].Classification, ShouldEqual, scoring.ForaDoPerfil)
				So(snap[0].OwnerIdentity, ShouldEqual, f.State().UserID)
				So(snap[0].CreatedAt.IsZero(), ShouldBeFalse)
			})

			Convey("Then a submission notification is dispatched", func() {
				So(eventually(func() bool { return len(notes.all()) == 1 }), ShouldBeTrue)
				n := notes.all()[0]
				So(n.Kind, ShouldEqual, model.NotifySubmission)
				So(n.Candidate.ID, ShouldEqual, conf.CandidateID)
			})
		})

		Convey("When every slider is at ten", func() {
			conf, err := f.Submit(ctx, evaluation(10))

			Convey("Then 100 / Fit Altíssimo is persisted", func() {
				So(err, ShouldBeNil)
				So(*conf.FitScore, ShouldEqual, 100)
				So(conf.Classification, ShouldEqual, scoring.FitAltissimo)
			})
		})

		Convey("When the email is missing", func() {
			ev := evaluation(5)
			ev.Email = ""
			_, err := f.Submit(ctx, ev)

			Convey("Then nothing is written", func() {
				var verr *model.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				snap, _ := store.Snapshot(ctx, svc.CollectionPath())
				So(snap, ShouldBeEmpty)
			})
		})

		Convey("When the write fails", func() {
			store.mu.Lock()
			store.failing = true
			store.mu.Unlock()
			conf, err := f.Submit(ctx, evaluation(7))

			Convey("Then the detail is surfaced and the form is usable again", func() {
				So(errors.Is(err, repository.ErrWrite), ShouldBeTrue)
				So(conf.Success, ShouldBeFalse)
				So(conf.Title, ShouldEqual, service.TitleSubmitFailed)
				So(conf.Message, ShouldStartWith, service.MessageWriteFailed)
				So(conf.Message, ShouldContainSubstring, "permission denied")
				So(f.State().Submitting, ShouldBeFalse)

				snap, _ := store.Snapshot(ctx, svc.CollectionPath())
				So(snap, ShouldBeEmpty)
				So(notes.all(), ShouldBeEmpty)

				store.mu.Lock()
				store.failing = false
				store.mu.Unlock()
				conf, err = f.Submit(ctx, evaluation(7))
				So(err, ShouldBeNil)
				So(conf.Success, ShouldBeTrue)
			})
		})

		Convey("When a second submit arrives while one is in flight", func() {
			store.mu.Lock()
			store.hold = make(chan struct{})
			store.entered = make(chan struct{}, 1)
			store.mu.Unlock()

			done := make(chan error, 1)
			go func() {
				_, err := f.Submit(ctx, evaluation(6))
				done <- err
			}()
			<-store.entered
			So(f.State().Submitting, ShouldBeTrue)

			_, err := f.Submit(ctx, evaluation(6))

			Convey("Then it is rejected and only one record is written", func() {
				So(errors.Is(err, service.ErrSubmitInFlight), ShouldBeTrue)
				close(store.hold)
				So(<-done, ShouldBeNil)
				snap, _ := store.Snapshot(ctx, svc.CollectionPath())
				So(len(snap), ShouldEqual, 1)
			})
		})

		Convey("When two forms submit at once", func() {
			g := readyForm(svc)
			var wg sync.WaitGroup
			for _, form := range []*service.Form{f, g} {
				wg.Add(1)
				go func(form *service.Form) {
					defer wg.Done()
					_, _ = form.Submit(ctx, evaluation(8))
				}(form)
			}
			wg.Wait()

			Convey("Then both are written", func() {
				snap, _ := store.Snapshot(ctx, svc.CollectionPath())
				So(len(snap), ShouldEqual, 2)
			})
		})
	})
}

func TestSubmitAuth(t *testing.T) {
	Convey("Given a provider that cannot sign in", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithStore(repository.NewMemoryStore()),
			service.WithIdentity(identity.NewJWTProvider("")),
			service.WithNotifyDelay(0),
		)
		f := svc.OpenForm(ctx, "")
		So(f.Session().Wait(ctx), ShouldBeNil)

		Convey("Then the form shows a persistent auth error and refuses submits", func() {
			So(f.State().AuthError, ShouldEqual, service.MessageAuthFailed)
			conf, err := f.Submit(ctx, evaluation(5))
			So(errors.Is(err, identity.ErrAuth), ShouldBeTrue)
			So(service.IsAuthError(err), ShouldBeTrue)
			So(conf.Message, ShouldEqual, service.MessageAuthFailed)
			So(f.State().AuthError, ShouldEqual, service.MessageAuthFailed)
		})
	})

	Convey("Given a sign-in that has not completed", t, func() {
		ctx := context.Background()
		p := stalledProvider{release: make(chan struct{})}
		svc := service.New(service.WithStore(repository.NewMemoryStore()), service.WithIdentity(p))
		f := svc.OpenForm(ctx, "")

		Convey("Then submit reports that auth is not ready", func() {
			conf, err := f.Submit(ctx, evaluation(5))
			So(errors.Is(err, service.ErrAuthNotReady), ShouldBeTrue)
			So(conf.Message, ShouldEqual, service.MessageAuthNotReady)
			So(f.State().AuthReady, ShouldBeFalse)
			close(p.release)
		})
	})

	Convey("Given a returning visitor with a valid token", t, func() {
		ctx := context.Background()
		p := identity.NewJWTProvider("test-secret")
		id, err := p.SignInAnonymously(ctx)
		So(err, ShouldBeNil)
		svc := service.New(service.WithIdentity(p))

		Convey("Then the form adopts the same identity", func() {
			f := svc.OpenForm(ctx, id.Token)
			So(f.State().UserID, ShouldEqual, id.UID)
		})
	})
}

func TestForms(t *testing.T) {
	Convey("Given a service limited to two forms", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithMaxForms(2), service.WithIdentity(identity.NewJWTProvider("k")))
		a := svc.OpenForm(ctx, "")
		b := svc.OpenForm(ctx, "")
		c := svc.OpenForm(ctx, "")

		Convey("Then the oldest form is evicted", func() {
			_, err := svc.Form(a.ID())
			So(errors.Is(err, service.ErrFormNotFound), ShouldBeTrue)
			got, err := svc.Form(b.ID())
			So(err, ShouldBeNil)
			So(got, ShouldEqual, b)
			_, err = svc.Form(c.ID())
			So(err, ShouldBeNil)
		})

		Convey("When a form is used before a new one mounts", func() {
			_, err := svc.Form(b.ID())
			So(err, ShouldBeNil)
			d := svc.OpenForm(ctx, "")

			Convey("Then the least recently used form is evicted instead", func() {
				_, err := svc.Form(c.ID())
				So(errors.Is(err, service.ErrFormNotFound), ShouldBeTrue)
				_, err = svc.Form(b.ID())
				So(err, ShouldBeNil)
				_, err = svc.Form(d.ID())
				So(err, ShouldBeNil)
				So(svc.Stats(ctx)["formsActive"], ShouldEqual, 2)
			})
		})

		Convey("Then a closed form is gone", func() {
			svc.CloseForm(c.ID())
			_, err := svc.Form(c.ID())
			So(errors.Is(err, service.ErrFormNotFound), ShouldBeTrue)
			So(svc.Stats(ctx)["formsActive"], ShouldEqual, 1)
		})
	})
}

func TestRoster(t *testing.T) {
	Convey("Given a service with a few candidates", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		svc, _ := newService(store)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)
		f := readyForm(svc)
		for _, v := range []int{9, 2, 9} {
			_, err := f.Submit(ctx, evaluation(v))
			So(err, ShouldBeNil)
		}

		Convey("When rendering a one-shot frame", func() {
			frame := svc.RosterFrame(ctx, string(scoring.FitAltissimo))

			Convey("Then only the selected label is listed", func() {
				So(frame.Status, ShouldEqual, roster.Populated)
				So(len(frame.Candidates), ShouldEqual, 2)
				So(frame.Total, ShouldEqual, 3)
				So(frame.Options, ShouldResemble, []string{
					string(scoring.FitAltissimo), string(scoring.ForaDoPerfil),
				})
			})
		})

		Convey("When watching the roster", func() {
			var mu sync.Mutex
			var frames []roster.Frame
			_, sub, err := svc.Watch(ctx, roster.FilterAll, func(fr roster.Frame) {
				mu.Lock()
				frames = append(frames, fr)
				mu.Unlock()
			})
			So(err, ShouldBeNil)
			latest := func() roster.Frame {
				mu.Lock()
				defer mu.Unlock()
				if len(frames) == 0 {
					return roster.Frame{}
				}
				return frames[len(frames)-1]
			}

			Convey("Then a new submission eventually shows up", func() {
				_, err := f.Submit(ctx, evaluation(6))
				So(err, ShouldBeNil)
				So(eventually(func() bool { return latest().Total == 4 }), ShouldBeTrue)
				So(latest().Options, ShouldContain, string(scoring.FitAprovado))
				sub.Unsubscribe()
			})

			Convey("Then no frame arrives after unsubscribing", func() {
				So(eventually(func() bool { return latest().Total == 3 }), ShouldBeTrue)
				sub.Unsubscribe()
				mu.Lock()
				before := len(frames)
				mu.Unlock()
				_, err := f.Submit(ctx, evaluation(1))
				So(err, ShouldBeNil)
				time.Sleep(50 * time.Millisecond)
				mu.Lock()
				So(len(frames), ShouldEqual, before)
				mu.Unlock()
			})
		})
	})

	Convey("Given a service without persistence", t, func() {
		ctx := context.Background()
		svc := service.New()

		Convey("Then the roster is in the error state", func() {
			frame := svc.RosterFrame(ctx, "")
			So(frame.Status, ShouldEqual, roster.Error)
			So(frame.Error, ShouldEqual, service.MessageReadFailed)
			So(svc.Stats(ctx)["persistence"], ShouldEqual, "unconfigured")
		})

		Convey("Then a watched view ends in the error state", func() {
			got := make(chan roster.Frame, 1)
			_, sub, err := svc.Watch(ctx, "", func(fr roster.Frame) { got <- fr })
			So(err, ShouldBeNil)
			fr := <-got
			So(fr.Status, ShouldEqual, roster.Error)
			sub.Unsubscribe()
		})
	})
}

func TestGenerateReport(t *testing.T) {
	Convey("Given stored candidates around the approval line", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		path := repository.CollectionPath("test-app")
		for _, score := range []int{79, 80, 100, 10} {
			_, err := store.Create(ctx, path, model.Candidate{
				Name: "c", FitScore: score, Classification: scoring.Classify(score),
			})
			So(err, ShouldBeNil)
		}
		svc, notes := newService(store)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("When a report is generated", func() {
			conf, rep, err := svc.GenerateReport(ctx)

			Convey("Then only scores >= 80 are approved", func() {
				So(err, ShouldBeNil)
				So(conf.Title, ShouldEqual, service.TitleReport)
				So(conf.Success, ShouldBeTrue)
				So(rep.Total, ShouldEqual, 4)
				So(len(rep.Approved), ShouldEqual, 2)
				So(strings.Contains(conf.Message, "2 candidato"), ShouldBeTrue)
			})

			Convey("Then the report is dispatched", func() {
				So(eventually(func() bool { return len(notes.all()) == 1 }), ShouldBeTrue)
				So(notes.all()[0].Kind, ShouldEqual, model.NotifyReport)
			})
		})

		Convey("When two reports overlap", func() {
			slow, _ := newService(store, service.WithReportDelay(200*time.Millisecond))
			done := make(chan error, 1)
			go func() {
				_, _, err := slow.GenerateReport(ctx)
				done <- err
			}()
			So(eventually(func() bool { return slow.Stats(ctx)["reporting"] == true }), ShouldBeTrue)
			_, _, err := slow.GenerateReport(ctx)

			Convey("Then the second is rejected", func() {
				So(errors.Is(err, service.ErrReportInFlight), ShouldBeTrue)
				So(<-done, ShouldBeNil)
			})
		})
	})

	Convey("Given candidates in snapshot order", t, func() {
		snap := []model.Candidate{{ID: "a", FitScore: 95}, {ID: "b", FitScore: 50}, {ID: "c", FitScore: 80}}

		Convey("Then Approved keeps that order", func() {
			got := service.Approved(snap)
			So(len(got), ShouldEqual, 2)
			So(got[0].ID, ShouldEqual, "a")
			So(got[1].ID, ShouldEqual, "c")
		})
	})
}
