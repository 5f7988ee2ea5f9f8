package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/okian/tweetcast/internal/adapters/delivery"
	"github.com/okian/tweetcast/internal/adapters/http/api"
	"github.com/okian/tweetcast/internal/adapters/pubsub"
	"github.com/okian/tweetcast/internal/adapters/repository"
	service "github.com/okian/tweetcast/internal/app"
	"github.com/okian/tweetcast/internal/client"
	"github.com/okian/tweetcast/internal/domain/archive"
	"github.com/okian/tweetcast/internal/domain/fanout"
	"github.com/okian/tweetcast/internal/domain/model"
	"github.com/okian/tweetcast/internal/domain/subscriptions"
	"github.com/okian/tweetcast/internal/domain/topics"
	"github.com/okian/tweetcast/internal/domain/types"
	"github.com/okian/tweetcast/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type countingSender struct{ n atomic.Int64 }

func (s *countingSender) Send(context.Context, string, model.Notification) error {
	s.n.Add(1)
	return nil
}

// startServer runs the real API over an in-memory service.
func startServer(t *testing.T) (*httptest.Server, *service.Service, *countingSender) {
	kv := repository.NewMemoryKV()
	broker := pubsub.NewInMemoryBroker()
	sender := &countingSender{}
	router := delivery.NewRouter().
		Register(model.ChannelEmail, sender).
		Register(model.ChannelDiscord, sender)
	registry := topics.NewRegistry(repository.NewTopicStore(kv), broker)
	manager := subscriptions.NewManager(repository.NewSubscriptionStore(kv))
	svc := service.New(service.Components{
		Topics:        registry,
		Subscriptions: manager,
		Fanout:        fanout.NewEngine(manager, router),
		Archive:       archive.New(repository.NewEventStore(kv)),
		Publisher:     broker,
	}, service.WithWorkerCount(2), service.WithCloser(kv))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Stop(context.Background())
	})
	return srv, svc, sender
}

func TestClient(t *testing.T) {
	Convey("Given a client against a running server", t, func() {
		ctx := context.Background()
		srv, _, sender := startServer(t)
		c := client.New(srv.URL + "/")

		Convey("Topics round-trip", func() {
			created, err := c.CreateTopic(ctx, "Crypto")
			So(err, ShouldBeNil)
			again, err := c.CreateTopic(ctx, "Crypto")
			So(err, ShouldBeNil)
			So(again, ShouldResemble, created)

			list, err := c.ListTopics(ctx)
			So(err, ShouldBeNil)
			So(list, ShouldResemble, []model.Topic{created})
		})

		Convey("Subscriptions round-trip", func() {
			created, err := c.CreateSubscription(ctx, types.SubscriptionRequest{
				Type: "discord", Topics: []string{"Crypto"}, URL: "https://hook/x",
			})
			So(err, ShouldBeNil)

			got, err := c.GetSubscription(ctx, created.SubscriptionID)
			So(err, ShouldBeNil)
			So(got.URL, ShouldEqual, "https://hook/x")

			byTopic, err := c.ListSubscriptions(ctx, "Crypto")
			So(err, ShouldBeNil)
			So(byTopic, ShouldHaveLength, 1)

			So(c.DeleteSubscription(ctx, created.SubscriptionID), ShouldBeNil)
			_, err = c.GetSubscription(ctx, created.SubscriptionID)
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("API errors carry the server code", func() {
			_, err := c.CreateSubscription(ctx, types.SubscriptionRequest{Type: "fax"})
			var apiErr *client.APIError
			So(errors.As(err, &apiErr), ShouldBeTrue)
			So(apiErr.Status, ShouldEqual, http.StatusBadRequest)
			So(apiErr.Code, ShouldEqual, "bad_request")
		})

		Convey("Notify delivers to matching subscriptions", func() {
			_, err := c.CreateSubscription(ctx, types.SubscriptionRequest{
				Type: "email", Topics: []string{"Parrots"}, Email: "a@b.com",
			})
			So(err, ShouldBeNil)

			resp, err := c.Notify(ctx, client.Generate(5, []string{"Parrots"}))
			So(err, ShouldBeNil)
			So(resp.Delivered, ShouldEqual, 5)
			So(resp.Message, ShouldEqual, "Notified 5 channel(s).")
			So(sender.n.Load(), ShouldEqual, 5)
		})

		Convey("Submit queues generated events in batches", func() {
			events := client.Generate(25, []string{"Crypto", "Test"})
			stats, err := client.Submit(ctx, c, events, client.LoadConfig{BatchSize: 10, Workers: 3})
			So(err, ShouldBeNil)
			So(stats.Batches, ShouldEqual, 3)
			So(stats.Accepted, ShouldEqual, 25)

			again, err := client.Submit(ctx, c, events[:10], client.LoadConfig{BatchSize: 10, Workers: 1})
			So(err, ShouldBeNil)
			So(again.Duplicates, ShouldEqual, 10)

			stats2, err := c.Stats(ctx)
			So(err, ShouldBeNil)
			So(stats2["started"], ShouldEqual, true)
		})
	})
}

func TestGenerate(t *testing.T) {
	Convey("Generated events are valid and unique", t, func() {
		events := client.Generate(50, nil)
		seen := map[string]bool{}
		for _, ev := range events {
			So(ev.Validate(), ShouldBeNil)
			So(ev.Topic, ShouldEqual, "Test")
			seen[ev.ID] = true
		}
		So(seen, ShouldHaveLength, 50)
	})
}

func TestAPIError(t *testing.T) {
	Convey("Backpressure replies match ErrBackpressure", t, func() {
		err := error(&client.APIError{Status: http.StatusTooManyRequests, Code: "backpressure", Message: "queue full"})
		So(errors.Is(err, client.ErrBackpressure), ShouldBeTrue)
		So(errors.Is(err, model.ErrNotFound), ShouldBeFalse)
		So(err.Error(), ShouldEqual, "tweetcast: 429 backpressure: queue full")
	})
}
