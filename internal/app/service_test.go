package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	service "github.com/okian/tapdiag/internal/app"
	"github.com/okian/tapdiag/internal/config"
	"github.com/okian/tapdiag/internal/domain/analytics"
	"github.com/okian/tapdiag/internal/domain/eventlog"
	"github.com/okian/tapdiag/internal/domain/faults"
	"github.com/okian/tapdiag/internal/domain/model"
	"github.com/okian/tapdiag/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it is not started and has no components", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Started(), ShouldBeFalse)
			So(svc.EventLog(), ShouldBeNil)
			So(svc.FaultSink(), ShouldBeNil)
		})
	})

	Convey("Given a service built from configuration", t, func() {
		cfg := config.New()
		cfg.MaxEvents = 3
		cfg.AlertVariance = 12
		svc := service.New(service.WithConfig(cfg))
		So(svc.Init(context.Background()), ShouldBeNil)
		defer svc.Shutdown()

		Convey("Then the event log capacity follows it", func() {
			So(svc.EventLog().Cap(), ShouldEqual, 3)
		})

		Convey("Then the default analysis config uses its variance", func() {
			So(svc.AnalysisConfig().AlertThresholds.Variance, ShouldEqual, 12.0)
			So(svc.AnalysisConfig().Weightings.Equity, ShouldEqual, 0.4)
		})
	})
}

func TestService_NotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		ctx := context.Background()
		svc := service.New()

		Convey("Then operations report that it is not started", func() {
			So(errors.Is(svc.ResetPerformance(ctx), service.ErrNotStarted), ShouldBeTrue)

			_, err := svc.Analyze(ctx, analytics.SampleDataset(), "", nil)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			status, err := svc.ReportFault(ctx, model.Fault{Message: "x"})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(status, ShouldEqual, faults.StatusRejected)
		})

		Convey("Then stats carry only the configuration", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["maxEvents"], ShouldEqual, 1000)
			_, ok := stats["events"]
			So(ok, ShouldBeFalse)
		})

		Convey("Then Shutdown is a no-op", func() {
			So(svc.Shutdown, ShouldNotPanic)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Init(ctx), ShouldBeNil)
		defer svc.Shutdown()

		Convey("When Init is called again", func() {
			log := svc.EventLog()
			So(svc.Init(ctx), ShouldBeNil)

			Convey("Then the components are kept", func() {
				So(svc.EventLog(), ShouldEqual, log)
			})
		})

		Convey("When the service is shut down twice", func() {
			svc.Shutdown()
			svc.Shutdown()

			Convey("Then it is stopped and the log is still readable", func() {
				So(svc.Started(), ShouldBeFalse)
				So(svc.EventLog(), ShouldNotBeNil)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Analyze(t *testing.T) {
	Convey("Given a started service on a fixed clock", t, func() {
		ctx := context.Background()
		clock := &fixedClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
		svc := service.New(service.WithClock(clock))
		So(svc.Init(ctx), ShouldBeNil)
		defer svc.Shutdown()

		Convey("When the sample dataset is analyzed with defaults", func() {
			report, err := svc.Analyze(ctx, analytics.SampleDataset(), "", nil)

			Convey("Then the report carries the default timeframe and the clock time", func() {
				So(err, ShouldBeNil)
				So(report.Timeframe, ShouldEqual, analytics.DefaultTimeframe)
				So(report.Timestamp.Equal(clock.now), ShouldBeTrue)
			})
		})

		Convey("When a caller passes its own config", func() {
			cfg := analytics.DefaultConfig()
			cfg.AlertThresholds.Variance = 1
			report, err := svc.Analyze(ctx, []analytics.DataPoint{
				{Category: "A", Target: 48, Actual: 50, Variance: 2},
			}, "7d", &cfg)

			Convey("Then its threshold is used", func() {
				So(err, ShouldBeNil)
				So(report.Alerts, ShouldNotBeEmpty)
				So(report.Timeframe, ShouldEqual, "7d")
			})
		})

		Convey("When a caller passes only weightings", func() {
			report, err := svc.Analyze(ctx, []analytics.DataPoint{
				{Category: "A", Target: 48, Actual: 50, Variance: 2},
			}, "", &analytics.Config{Weightings: analytics.Weightings{Equity: 1}})

			Convey("Then the weightings apply and the server threshold fills the rest", func() {
				So(err, ShouldBeNil)
				So(report.CompositeScore, ShouldAlmostEqual, 70.0, 1e-9)
				So(report.Alerts, ShouldBeEmpty)
			})
		})

		Convey("When the input is invalid", func() {
			_, err := svc.Analyze(ctx, nil, "", nil)

			Convey("Then the analyzer error is returned", func() {
				So(errors.Is(err, analytics.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}

func TestService_ResetPerformance(t *testing.T) {
	Convey("Given a started service with an observed tap", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Init(ctx), ShouldBeNil)
		defer svc.Shutdown()

		svc.EventLog().TrackObjectTap(ctx, "obj-1", true, model.PlayerLeft, 42*time.Millisecond)
		So(svc.Sampler().Snapshot().TouchLatency, ShouldEqual, 42.0)

		Convey("When performance is reset", func() {
			So(svc.ResetPerformance(ctx), ShouldBeNil)

			Convey("Then the touch latency is zero", func() {
				So(svc.Sampler().Snapshot().TouchLatency, ShouldEqual, 0.0)
			})
		})
	})
}

func TestService_Ingest(t *testing.T) {
	tap := func(latency time.Duration) func(context.Context, *eventlog.EventLog) model.Event {
		return func(ctx context.Context, log *eventlog.EventLog) model.Event {
			return log.TrackObjectTap(ctx, "obj-1", true, model.PlayerRight, latency)
		}
	}

	Convey("Given a service that was never started", t, func() {
		_, status, err := service.New().Ingest(context.Background(), "", tap(time.Millisecond))

		Convey("Then ingest is refused", func() {
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(status, ShouldEqual, faults.StatusRejected)
		})
	})

	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Init(ctx), ShouldBeNil)
		defer svc.Shutdown()

		Convey("When a tap is ingested", func() {
			e, status, err := svc.Ingest(ctx, "tap-1", tap(30*time.Millisecond))

			Convey("Then it is recorded and the sampler sees the latency", func() {
				So(err, ShouldBeNil)
				So(status, ShouldEqual, faults.StatusAccepted)
				So(e.Seq, ShouldEqual, uint64(1))
				So(svc.Sampler().Snapshot().TouchLatency, ShouldEqual, 30.0)
			})

			Convey("And a retry with the same ID is a duplicate", func() {
				again, status, err := svc.Ingest(ctx, "tap-1", tap(90*time.Millisecond))
				So(err, ShouldBeNil)
				So(status, ShouldEqual, faults.StatusDuplicate)
				So(again.ID, ShouldBeEmpty)
				So(svc.EventLog().Len(), ShouldEqual, 1)
				So(svc.Sampler().Snapshot().TouchLatency, ShouldEqual, 30.0)
			})
		})

		Convey("When an event ID matches an earlier fault report ID", func() {
			status, err := svc.ReportFault(ctx, model.Fault{ReportID: "shared", Message: "boom"})
			So(err, ShouldBeNil)
			So(status, ShouldEqual, faults.StatusAccepted)
			_, evStatus, err := svc.Ingest(ctx, "shared", tap(5*time.Millisecond))

			Convey("Then the two do not collide", func() {
				So(err, ShouldBeNil)
				So(evStatus, ShouldEqual, faults.StatusAccepted)
			})
		})
	})
}

func TestService_PublishDebug(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New()
		So(svc.Init(context.Background()), ShouldBeNil)
		defer svc.Shutdown()

		Convey("When its stats are published twice under one name", func() {
			first := svc.PublishDebug("tapdiag_service_test")
			second := svc.PublishDebug("tapdiag_service_test")

			Convey("Then only the first succeeds", func() {
				So(first, ShouldBeNil)
				So(errors.Is(second, service.ErrDebugNameTaken), ShouldBeTrue)
			})
		})
	})
}
