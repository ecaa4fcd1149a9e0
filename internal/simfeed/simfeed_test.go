package simfeed_test

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/matchpulse/matchpulse/internal/domain/model"
	"github.com/matchpulse/matchpulse/internal/simfeed"
	"github.com/matchpulse/matchpulse/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func testConfig() *simfeed.Config {
	return &simfeed.Config{
		Mode:       "serve",
		Addr:       simfeed.DefaultAddr,
		Path:       simfeed.DefaultPath,
		Rounds:     4,
		Interval:   5 * time.Millisecond,
		Seed:       42,
		HomePrefix: simfeed.DefaultHomePrefix,
		AwayPrefix: simfeed.DefaultAwayPrefix,
	}
}

func TestGeneratorScript(t *testing.T) {
	ctx := context.Background()

	Convey("Given a seeded generator", t, func() {
		cfg := testConfig()
		script := simfeed.NewGenerator(cfg).Script(ctx)

		Convey("Then the same seed replays the same match", func() {
			again := simfeed.NewGenerator(cfg).Script(ctx)
			So(again, ShouldResemble, script)
		})

		Convey("Then a different seed produces a different match", func() {
			other := *cfg
			other.Seed = 43
			So(simfeed.NewGenerator(&other).Script(ctx), ShouldNotResemble, script)
		})

		Convey("Then the match opens with round one", func() {
			So(script[0].Type, ShouldEqual, "round_start")
			So(script[0].Data["round"], ShouldEqual, 1)
		})

		Convey("Then the match closes with a full score", func() {
			last := script[len(script)-1]
			So(last.Type, ShouldEqual, "score_update")
			home, _ := last.Data["home"].(int)
			away, _ := last.Data["away"].(int)
			So(home+away, ShouldEqual, cfg.Rounds)
		})

		Convey("Then sequence numbers are strictly increasing", func() {
			for i := 1; i < len(script); i++ {
				So(script[i].Sequence, ShouldBeGreaterThan, script[i-1].Sequence)
			}
		})

		Convey("Then every frame decodes cleanly at full quality", func() {
			ts := time.Now().UTC().Format(time.RFC3339Nano)
			for _, f := range script {
				ev, err := model.DecodeEvent(f.Type, ts, f.Data, f.Sequence)
				So(err, ShouldBeNil)
				So(ev.Quality(), ShouldBeGreaterThanOrEqualTo, model.MinQuality)
			}
		})

		Convey("Then each round wipes the losing side", func() {
			kills := 0
			for _, f := range script {
				if f.Type == "kill" {
					kills++
				}
			}
			So(kills, ShouldBeGreaterThanOrEqualTo, cfg.Rounds*5)
		})
	})
}

func TestFrameEncoding(t *testing.T) {
	Convey("Given a frame encoder", t, func() {
		cfg := testConfig()
		frame := simfeed.Frame{ID: "sim-1", Type: "round_start", Sequence: 1, Data: map[string]any{"round": 1}}

		Convey("When no faults are injected", func() {
			data, err := simfeed.EncodeFrame(frame, cfg, rand.New(rand.NewSource(1)))
			So(err, ShouldBeNil)

			Convey("Then the frame carries a fresh parseable timestamp", func() {
				var got simfeed.Frame
				So(json.Unmarshal(data, &got), ShouldBeNil)
				ts, err := time.Parse(time.RFC3339, got.Timestamp)
				So(err, ShouldBeNil)
				So(time.Since(ts), ShouldBeLessThan, time.Second)
			})
		})

		Convey("When every frame is malformed", func() {
			cfg.MalformedRate = 1.0
			data, err := simfeed.EncodeFrame(frame, cfg, rand.New(rand.NewSource(1)))
			So(err, ShouldBeNil)

			Convey("Then the output is not JSON", func() {
				So(json.Valid(data), ShouldBeFalse)
			})
		})

		Convey("When every frame is late", func() {
			cfg.LateRate = 1.0
			data, err := simfeed.EncodeFrame(frame, cfg, rand.New(rand.NewSource(1)))
			So(err, ShouldBeNil)

			Convey("Then the timestamp is backdated past the latency threshold", func() {
				var got simfeed.Frame
				So(json.Unmarshal(data, &got), ShouldBeNil)
				ts, err := time.Parse(time.RFC3339, got.Timestamp)
				So(err, ShouldBeNil)
				So(time.Since(ts), ShouldBeGreaterThan, 500*time.Millisecond)
			})
		})
	})
}

func TestServerStreaming(t *testing.T) {
	ctx := context.Background()

	Convey("Given a feed server with a short script", t, func() {
		cfg := testConfig()
		script := simfeed.NewGenerator(cfg).Script(ctx)
		srv := httptest.NewServer(simfeed.NewServer(cfg, script).Handler())
		defer srv.Close()

		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

		Convey("When a client subscribes", func() {
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			So(err, ShouldBeNil)
			defer func() { _ = conn.Close() }()

			Convey("Then frames stream in script order", func() {
				for i := 0; i < 5; i++ {
					_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
					_, data, err := conn.ReadMessage()
					So(err, ShouldBeNil)

					var got simfeed.Frame
					So(json.Unmarshal(data, &got), ShouldBeNil)
					So(got.Sequence, ShouldEqual, script[i].Sequence)
					So(got.Timestamp, ShouldNotBeEmpty)
				}
			})
		})

		Convey("When two clients subscribe", func() {
			a, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			So(err, ShouldBeNil)
			defer func() { _ = a.Close() }()

			b, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			So(err, ShouldBeNil)
			defer func() { _ = b.Close() }()

			Convey("Then each receives its own replay from the start", func() {
				for _, conn := range []*websocket.Conn{a, b} {
					_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
					_, data, err := conn.ReadMessage()
					So(err, ShouldBeNil)

					var got simfeed.Frame
					So(json.Unmarshal(data, &got), ShouldBeNil)
					So(got.Sequence, ShouldEqual, script[0].Sequence)
				}
			})
		})
	})
}
