package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/fitscore/internal/adapters/repository"
	"github.com/okian/fitscore/internal/config"
	"github.com/okian/fitscore/internal/domain/model"
	"github.com/okian/fitscore/pkg/logger"
)

func run(args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScoreCommand(t *testing.T) {
	convey.Convey("Given the score command", t, func() {
		convey.Convey("When every rating is ten", func() {
			out, err := run("score", "10", "10", "10", "10", "10", "10", "10", "10", "10", "10")

			convey.Convey("Then it prints the top tier", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldEqual, "100\tFit Altíssimo\n")
			})
		})

		convey.Convey("When ratings sit on a boundary", func() {
			out, err := run("score", "4", "4", "4", "4", "4", "4", "4", "4", "4", "4")

			convey.Convey("Then 40 is questionable", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldEqual, "40\tFit Questionável\n")
			})
		})

		convey.Convey("When a rating is out of range", func() {
			_, err := run("score", "11", "0", "0", "0", "0", "0", "0", "0", "0", "0")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When fewer than ten ratings are given", func() {
			_, err := run("score", "1", "2")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestMigrateCommand(t *testing.T) {
	convey.Convey("Given a sqlite store config", t, func() {
		dsn := t.TempDir() + "/fitscore.db"
		_ = os.Setenv("FITSCORE_STORE_CONFIG", `{"driver":"sqlite","dsn":"`+dsn+`"}`)
		defer func() { _ = os.Unsetenv("FITSCORE_STORE_CONFIG") }()

		convey.Convey("Then migrate reports the schema version", func() {
			out, err := run("migrate")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldEqual, "sqlite schema at version 1\n")
		})
	})

	convey.Convey("Given the memory store config", t, func() {
		_ = os.Setenv("FITSCORE_STORE_CONFIG", `{"driver":"memory"}`)
		defer func() { _ = os.Unsetenv("FITSCORE_STORE_CONFIG") }()

		convey.Convey("Then migrate refuses", func() {
			_, err := run("migrate")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestServeWiring(t *testing.T) {
	convey.Convey("Given a config with the memory store", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.StoreConfig = `{"driver":"memory"}`
		cfg.AuthSecret = "test-secret"
		log := logger.Discard()

		svc, store, dispatcher := newService(ctx, cfg, log)
		defer func() { _ = dispatcher.Close() }()
		defer func() { _ = store.Close() }()
		h := newHandler(ctx, cfg, svc, log)

		convey.Convey("Then the store is the in-memory one", func() {
			_, ok := store.(*repository.MemoryStore)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("Then every page and API group is routed", func() {
			for _, path := range []string{"/", "/dashboard", "/api/questionnaire", "/stats", "/healthz", "/openapi.yaml", "/api-docs"} {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})
	})

	convey.Convey("Given a config without an auth secret", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.StoreConfig = `{"driver":"memory"}`
		cfg.NotifyDelayMS = 0
		log := logger.Discard()

		convey.Convey("Then a random secret is generated per process", func() {
			a := authSecret(ctx, cfg, log)
			b := authSecret(ctx, cfg, log)
			convey.So(a, convey.ShouldHaveLength, 2*ephemeralSecretBytes)
			convey.So(a, convey.ShouldNotEqual, b)

			cfg.AuthSecret = "configured"
			convey.So(authSecret(ctx, cfg, log), convey.ShouldEqual, "configured")
		})

		convey.Convey("Then a fresh form still signs in and accepts a submission", func() {
			svc, store, dispatcher := newService(ctx, cfg, log)
			defer func() { _ = dispatcher.Close() }()
			defer func() { _ = store.Close() }()

			f := svc.OpenForm(ctx, "")
			convey.So(f.Session().Wait(ctx), convey.ShouldBeNil)
			convey.So(f.State().AuthReady, convey.ShouldBeTrue)

			ev := model.Evaluation{Name: "Ana", Email: "ana@example.com"}
			conf, err := f.Submit(ctx, ev)
			convey.So(err, convey.ShouldBeNil)
			convey.So(conf.Success, convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given kafka brokers in the config", t, func() {
		cfg := config.New()
		cfg.KafkaBrokers = "localhost:9092"

		convey.Convey("Then notifications fan out to the log and kafka", func() {
			d := newDispatcher(context.Background(), cfg, logger.Discard())
			defer func() { _ = d.Close() }()
			convey.So(d, convey.ShouldHaveLength, 2)
		})
	})
}
