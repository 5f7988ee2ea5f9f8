package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/tweetcast/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
				convey.So(cfg.KafkaBrokers, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("TWEETCAST_ADDR", ":8080")
			_ = os.Setenv("TWEETCAST_QUEUE_SIZE", "64")
			_ = os.Setenv("TWEETCAST_BROADCAST_ENABLED", "true")
			_ = os.Setenv("TWEETCAST_KAFKA_BROKERS", "k1:9092, k2:9092")
			_ = os.Setenv("TWEETCAST_KAFKA_TOPIC", "classified-tweets")
			_ = os.Setenv("TWEETCAST_BOOTSTRAP_TOPICS", "Gold,Silver")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults and split lists", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.BroadcastEnabled, convey.ShouldBeTrue)
				convey.So(cfg.KafkaBrokers, convey.ShouldResemble, []string{"k1:9092", "k2:9092"})
				convey.So(cfg.BootstrapTopics, convey.ShouldResemble, []string{"Gold", "Silver"})
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			path := createTempConfigFile(t, `
addr: ":9090"
worker_count: 24
store_driver: pebble
pebble_dir: /var/lib/tweetcast
bootstrap_topics: [Crypto]
`)
			_ = os.Setenv("TWEETCAST_CONFIG", path)
			_ = os.Setenv("TWEETCAST_WORKER_COUNT", "32")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StorePebble)
				convey.So(cfg.PebbleDir, convey.ShouldEqual, "/var/lib/tweetcast")
				convey.So(cfg.BootstrapTopics, convey.ShouldResemble, []string{"Crypto"})
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			_ = os.Setenv("TWEETCAST_CONFIG", createTempConfigFile(t, `invalid: yaml: content: [`))
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("TWEETCAST_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("TWEETCAST_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if key, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(key, "TWEETCAST_") {
			_ = os.Unsetenv(key)
		}
	}
}
