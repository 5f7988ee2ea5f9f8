package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/okian/tweetcast/internal/config"
	"github.com/okian/tweetcast/pkg/logger"
	"github.com/okian/tweetcast/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func testConfig(t *testing.T) *config.Config {
	t.Setenv("TWEETCAST_STORE_DRIVER", "memory")
	t.Setenv("TWEETCAST_DELIVERY_DRY_RUN", "true")
	t.Setenv("TWEETCAST_BOOTSTRAP_TOPICS", "Crypto,Parrots")
	cfg, err := config.Load(context.Background())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func TestRun(t *testing.T) {
	convey.Convey("Given a built service", t, func() {
		ctx := context.Background()
		cfg := testConfig(t)
		lis, err := net.Listen("tcp", "127.0.0.1:0")
		convey.So(err, convey.ShouldBeNil)

		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- run(runCtx, cfg, lis, logger.Get()) }()
		shutdown := sync.OnceValue(func() error {
			cancel()
			select {
			case err := <-done:
				return err
			case <-time.After(5 * time.Second):
				return context.DeadlineExceeded
			}
		})
		defer func() { _ = shutdown() }()

		base := "http://" + lis.Addr().String()
		get := func(path string) (*http.Response, string) {
			var resp *http.Response
			deadline := time.Now().Add(2 * time.Second)
			for {
				resp, err = http.Get(base + path)
				if err == nil || time.Now().After(deadline) {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			return resp, string(body)
		}

		convey.Convey("Then every surface is mounted", func() {
			resp, body := get("/healthz")
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			convey.So(body, convey.ShouldContainSubstring, "ok")

			resp, body = get("/topics")
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			var list struct {
				Topics []map[string]string `json:"topics"`
			}
			convey.So(json.Unmarshal([]byte(body), &list), convey.ShouldBeNil)
			convey.So(list.Topics, convey.ShouldHaveLength, 2)

			resp, _ = get("/api-docs")
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

			resp, body = get("/")
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			convey.So(body, convey.ShouldContainSubstring, "Parrots")
		})

		convey.Convey("Then cancelling the context stops the server", func() {
			convey.So(shutdown(), convey.ShouldBeNil)
			_, err := net.Dial("tcp", lis.Addr().String())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestRegisterRuntimeCollectors(t *testing.T) {
	convey.Convey("Runtime collectors land on the service registry", t, func() {
		convey.So(registerRuntimeCollectors, convey.ShouldNotPanic)
		convey.So(registerRuntimeCollectors, convey.ShouldNotPanic)

		families, err := metrics.GetRegistry().Gather()
		convey.So(err, convey.ShouldBeNil)
		names := make([]string, 0, len(families))
		for _, f := range families {
			names = append(names, f.GetName())
		}
		convey.So(names, convey.ShouldContain, "go_goroutines")
	})
}
