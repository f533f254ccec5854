package seed

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fitscore/internal/adapters/http/api"
	"github.com/okian/fitscore/internal/adapters/identity"
	"github.com/okian/fitscore/internal/adapters/repository"
	service "github.com/okian/fitscore/internal/app"
	"github.com/okian/fitscore/internal/domain/roster"
	"github.com/okian/fitscore/internal/domain/scoring"
)

func TestGenerate(t *testing.T) {
	Convey("Given generated evaluations", t, func() {
		evs := Generate(50)

		Convey("Then every one is valid and emails are unique", func() {
			seen := map[string]bool{}
			for _, ev := range evs {
				So(ev.Validate(), ShouldBeNil)
				So(seen[ev.Email], ShouldBeFalse)
				seen[ev.Email] = true
			}
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given submitted records and listed rows", t, func() {
		records := []submitted{
			{ID: "a", Expected: scoring.Evaluate([scoring.ItemCount]int{10, 10, 10, 10, 10, 10, 10, 10, 10, 10})},
			{ID: "b", Expected: scoring.Result{Score: 50, Classification: scoring.FitQuestionavel}},
			{ID: "c", Expected: scoring.Result{Score: 10, Classification: scoring.ForaDoPerfil}},
		}
		rows := []roster.Row{
			{ID: "a", FitScore: 100, Classification: scoring.FitAltissimo},
			{ID: "b", FitScore: 50, Classification: scoring.FitAprovado},
		}

		Convey("Then missing rows are not visible and wrong labels are reported", func() {
			v := verify(records, rows)
			So(v.visible, ShouldEqual, 2)
			So(v.mismatched, ShouldResemble, []string{"b"})
		})
	})
}

func newServer(store repository.Store) *httptest.Server {
	svc := service.New(
		service.WithStore(store),
		service.WithIdentity(identity.NewJWTProvider("test-secret")),
		service.WithNotifyDelay(0),
	)
	srv := api.NewServer(svc)
	r := srv.Router()
	srv.Register(context.Background(), r)
	return httptest.NewServer(r)
}

func TestRun(t *testing.T) {
	Convey("Given a running server with a memory store", t, func() {
		ts := newServer(repository.NewMemoryStore())
		defer ts.Close()

		Convey("When seeding a few evaluations", func() {
			stats, err := Run(context.Background(), &Config{
				BaseURL:      ts.URL,
				Count:        12,
				Workers:      3,
				Timeout:      5 * time.Second,
				Visibility:   5 * time.Second,
				PollInterval: 10 * time.Millisecond,
			}, nil)

			Convey("Then every record is stored and listed consistently", func() {
				So(err, ShouldBeNil)
				So(stats.Successful, ShouldEqual, 12)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Visible, ShouldEqual, 12)
				So(stats.Mismatched, ShouldEqual, 0)
				total := 0
				for _, n := range stats.ByLabel {
					total += n
				}
				So(total, ShouldEqual, 12)
			})
		})
	})

	Convey("Given a server without persistence", t, func() {
		ts := newServer(repository.Unconfigured{})
		defer ts.Close()

		Convey("Then every submission fails and nothing becomes visible", func() {
			stats, err := Run(context.Background(), &Config{
				BaseURL:      ts.URL,
				Count:        2,
				Workers:      1,
				Timeout:      2 * time.Second,
				Visibility:   100 * time.Millisecond,
				PollInterval: 10 * time.Millisecond,
			}, nil)
			So(stats.Failed, ShouldEqual, 2)
			So(stats.Successful, ShouldEqual, 0)
			So(err, ShouldBeNil)
		})
	})

	Convey("Given no server", t, func() {
		_, err := Run(context.Background(), &Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, nil)
		So(errors.Is(err, ErrUnhealthy), ShouldBeTrue)
	})
}
