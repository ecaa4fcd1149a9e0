package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			bucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			enabledOpt := WithEnabled(true)
			refreshOpt := WithRefreshInterval(5 * time.Second)

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(bucketsOpt, ShouldNotBeNil)
				So(enabledOpt, ShouldNotBeNil)
				So(refreshOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestManagerCreation(t *testing.T) {
	Convey("Given a metrics manager", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording pipeline events", func() {
			So(func() {
				RecordEventIngested()
				RecordEventProcessed()
				RecordEventDropped("stale")
				RecordEventDropped("quality")
				RecordInsightEmitted()
				RecordInsightSuppressed()
				RecordPatternScan()
			}, ShouldNotPanic)
		})

		Convey("When updating gauges", func() {
			So(func() {
				UpdateQueueSize(10)
				UpdateQueueCapacity(1000)
				UpdateQueueUtilization(0.01)
				UpdateWorkerCount(4)
				UpdateWinProbability(0.5)
				UpdateStrategyDebt(12.5)
				UpdateFeatureStoreSize(100)
			}, ShouldNotPanic)
		})

		Convey("When recording latencies and errors", func() {
			So(func() {
				RecordWorkerProcessingLatency(12.0)
				RecordFeedReceiveLatency(3.0)
				RecordFeedReconnect()
				RecordFeedPoll()
				RecordHandlerError()
				RecordWorkerError()
				RecordQueueEnqueueError()
				RecordErrorByComponent("feed", "stale")
				RecordHTTPRequest("status", "GET", "200")
				RecordHTTPRequestDuration("status", "GET", "200", 1.5)
			}, ShouldNotPanic)
		})

		Convey("Then the registry should be available", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
