package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(m, ShouldNotBeNil)
				m.messagesPosted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_unit_chat_messages_total"], ShouldBeTrue)
			})
		})
	})
}

func TestGlobalRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording webhook outcomes", func() {
			before := testutil.ToFloat64(globalManager.webhookOutcomes.WithLabelValues(OutcomeCredited))
			RecordWebhookOutcome(OutcomeCredited)
			RecordWebhookOutcome(OutcomeCredited)

			Convey("Then the counter advances", func() {
				after := testutil.ToFloat64(globalManager.webhookOutcomes.WithLabelValues(OutcomeCredited))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When awarding XP", func() {
			before := testutil.ToFloat64(globalManager.xpAwarded.WithLabelValues("push"))
			RecordXPAwarded("push", 30)

			Convey("Then the XP counter grows by the delta", func() {
				So(testutil.ToFloat64(globalManager.xpAwarded.WithLabelValues("push"))-before, ShouldEqual, 30)
			})
		})

		Convey("When recording the remaining collectors", func() {
			So(func() {
				RecordWebhookReceived("")
				RecordWebhookReceived("issues")
				RecordCreditLatency(1.5)
				RecordAwayDecision("APPROVED")
				RecordMessagePosted()
				RecordGoalAssigned()
				UpdateUsersTotal(3)
				RecordHTTPRequest("leaderboard", "GET", "200")
				RecordHTTPRequestDuration("leaderboard", "GET", "200", 2)
				RecordErrorByEndpoint("webhook", "POST", "client_error")
				RecordErrorByType("client_error", "medium")
			}, ShouldNotPanic)
			So(testutil.ToFloat64(globalManager.usersTotal), ShouldEqual, 3)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}

func TestLatencyBuckets(t *testing.T) {
	Convey("Given a manager with the default buckets", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(registry))

		Convey("When credit latencies in milliseconds are observed", func() {
			for _, ms := range []float64{0.4, 40, 120, 800} {
				m.creditLatency.Observe(ms)
			}

			Convey("Then they spread across the finite buckets", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				cumulative := map[float64]uint64{}
				found := false
				for _, f := range families {
					if f.GetName() != "commitquest_xp_credit_latency_milliseconds" {
						continue
					}
					found = true
					h := f.GetMetric()[0].GetHistogram()
					So(h.GetSampleCount(), ShouldEqual, 4)
					for _, b := range h.GetBucket() {
						cumulative[b.GetUpperBound()] = b.GetCumulativeCount()
					}
				}
				So(found, ShouldBeTrue)
				So(cumulative[1], ShouldEqual, 1)
				So(cumulative[50], ShouldEqual, 2)
				So(cumulative[250], ShouldEqual, 3)
				So(cumulative[1000], ShouldEqual, 4)
				So(cumulative[2500], ShouldEqual, 4)
			})
		})
	})

	Convey("Given a start time 1.5ms ago", t, func() {
		start := time.Now().Add(-1500 * time.Microsecond)

		Convey("Then the elapsed milliseconds keep the fraction", func() {
			ms := ElapsedMs(start)
			So(ms, ShouldBeGreaterThanOrEqualTo, 1.5)
			So(ms, ShouldBeLessThan, 1000)
		})
	})
}
