package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	service "github.com/okian/tweetcast/internal/app"
	"github.com/okian/tweetcast/internal/config"
	"github.com/okian/tweetcast/internal/domain/model"
	"github.com/okian/tweetcast/internal/domain/subscriptions"
	"github.com/okian/tweetcast/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBuild(t *testing.T) {
	Convey("Given a dry-run in-memory configuration", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.DeliveryDryRun = true
		cfg.BroadcastEnabled = true
		cfg.ChannelSubscriptionsEnabled = true
		cfg.WorkerCount = 2

		Convey("Build wires a working service", func() {
			svc, err := service.Build(ctx, cfg, logger.Get())
			So(err, ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { So(svc.Stop(ctx), ShouldBeNil) }()

			count := 0
			for _, err := range svc.ListTopics(ctx) {
				So(err, ShouldBeNil)
				count++
			}
			So(count, ShouldEqual, 3)

			_, err = svc.CreateSubscription(ctx, subscriptions.CreateRequest{
				Type: "email", Topics: []string{"Crypto", "Unknown"}, Target: "a@b.com",
			})
			So(err, ShouldBeNil)

			report, err := svc.ProcessBatch(ctx, model.Batch{Events: []model.ClassifiedEvent{tweet("1", "Crypto")}})
			So(err, ShouldBeNil)
			So(report.Delivery.Delivered, ShouldEqual, 1)
			So(report.Broadcast, ShouldEqual, 1)
		})

		Convey("A sample subscriptions file replaces the stored set for fan-out", func() {
			path := filepath.Join(t.TempDir(), "subs.yaml")
			So(os.WriteFile(path, []byte(`subscriptions:
  - type: discord
    topics: [Parrots]
    url: https://hook/sample
`), 0o600), ShouldBeNil)
			cfg.SampleSubscriptionsFile = path

			svc, err := service.Build(ctx, cfg, nil)
			So(err, ShouldBeNil)
			report, err := svc.ProcessBatch(ctx, model.Batch{Events: []model.ClassifiedEvent{
				tweet("1", "Parrots"),
				tweet("2", "Crypto"),
			}})
			So(err, ShouldBeNil)
			So(report.Delivery.Matched, ShouldEqual, 1)
			So(svc.Stop(ctx), ShouldBeNil)
		})

		Convey("A pebble store persists across builds", func() {
			cfg.StoreDriver = config.StorePebble
			cfg.PebbleDir = t.TempDir()
			cfg.BootstrapTopics = nil

			svc, err := service.Build(ctx, cfg, nil)
			So(err, ShouldBeNil)
			created, err := svc.CreateTopic(ctx, "Crypto")
			So(err, ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			svc, err = service.Build(ctx, cfg, nil)
			So(err, ShouldBeNil)
			var stored []model.Topic
			for topic, err := range svc.ListTopics(ctx) {
				So(err, ShouldBeNil)
				stored = append(stored, topic)
			}
			So(stored, ShouldResemble, []model.Topic{created})
			So(svc.Stop(ctx), ShouldBeNil)
		})

		Convey("An invalid configuration is rejected", func() {
			cfg.StoreDriver = "postgres"
			_, err := service.Build(ctx, cfg, nil)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("Incomplete SMTP settings are rejected", func() {
			cfg.DeliveryDryRun = false
			cfg.SMTPHost = "smtp.example.com"
			_, err := service.Build(ctx, cfg, nil)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
