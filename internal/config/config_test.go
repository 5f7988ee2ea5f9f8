package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/okian/tweetcast/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.PubSubDriver, convey.ShouldEqual, config.PubSubMemory)
			convey.So(cfg.BootstrapTopics, convey.ShouldResemble, []string{"Crypto", "Test", "Parrots"})
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid configurations", t, func() {
		ctx := context.Background()
		cases := map[string]func(*config.Config){
			"empty addr":      func(c *config.Config) { c.Addr = "" },
			"unknown store":   func(c *config.Config) { c.StoreDriver = "redis" },
			"pebble no dir":   func(c *config.Config) { c.StoreDriver = config.StorePebble; c.PebbleDir = "" },
			"unknown pubsub":  func(c *config.Config) { c.PubSubDriver = "nats" },
			"kafka no topic":  func(c *config.Config) { c.KafkaBrokers = []string{"localhost:9092"} },
			"unknown log fmt": func(c *config.Config) { c.LogFormat = "xml" },
			"zero dedupe":     func(c *config.Config) { c.DedupeSize = 0 },
		}
		for name, mutate := range cases {
			convey.Convey("When "+name, func() {
				cfg := config.New(ctx)
				mutate(cfg)

				convey.Convey("Then validation should fail", func() {
					convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}
	})
}
