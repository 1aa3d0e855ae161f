package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/scenecalc/internal/app"
	"github.com/okian/scenecalc/internal/config"
	"github.com/okian/scenecalc/pkg/metrics"
)

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given environment overrides", t, func() {
		t.Setenv("SCENECALC_ADDR", ":8088")
		t.Setenv("SCENECALC_CATALOG_FILE", "catalog.yaml")

		convey.Convey("Then configuration should be loadable", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8088")
			convey.So(cfg.CatalogFile, convey.ShouldEqual, "catalog.yaml")
		})
	})

	convey.Convey("Given an empty listen address", t, func() {
		t.Setenv("SCENECALC_ADDR", " ")

		convey.Convey("Then configuration loading should fail", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestHTTPServer(t *testing.T) {
	convey.Convey("Given an HTTP server over a stopped service", t, func() {
		svc := app.New()
		srv := newHTTPServer(context.Background(), ":0", svc)

		convey.Convey("Then timeouts should be set", func() {
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
			convey.So(srv.WriteTimeout, convey.ShouldEqual, writeTimeout)
		})

		convey.Convey("When requesting stats", func() {
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

			convey.Convey("Then the service should report it is not started", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, `"started":false`)
			})
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		metrics.Init()
		svc := app.New(
			app.WithCatalogFile(filepath.Join("..", "internal", "adapters", "repository", "testdata", "catalog.yaml")),
			app.WithGameConfigFile(filepath.Join("..", "internal", "config", "testdata", "game.yaml")),
		)
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer svc.Stop()

		convey.Convey("When service metrics are refreshed", func() {
			updateServiceMetrics(svc)

			convey.Convey("Then every static table should be published", func() {
				n, err := testutil.GatherAndCount(metrics.GetRegistry(), "scenecalc_engine_catalog_entries")
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When system metrics are refreshed", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("When the updaters run until cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, svc)
			}, convey.ShouldNotPanic)
		})
	})
}
