package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/tweetcast/internal/adapters/mq/queue"
	"github.com/okian/tweetcast/internal/adapters/pubsub"
	"github.com/okian/tweetcast/internal/adapters/repository"
	service "github.com/okian/tweetcast/internal/app"
	"github.com/okian/tweetcast/internal/domain/archive"
	"github.com/okian/tweetcast/internal/domain/fanout"
	"github.com/okian/tweetcast/internal/domain/model"
	"github.com/okian/tweetcast/internal/domain/subscriptions"
	"github.com/okian/tweetcast/internal/domain/topics"
	"github.com/okian/tweetcast/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type delivery struct {
	Kind   model.ChannelType
	Target string
	Body   string
}

// recordingDeliverer records every call. When gate is non-nil each call
// signals entered and then waits for gate to close.
type recordingDeliverer struct {
	mu      sync.Mutex
	calls   []delivery
	fail    map[string]error
	entered chan struct{}
	gate    chan struct{}
}

func (d *recordingDeliverer) Deliver(_ context.Context, kind model.ChannelType, target string, n model.Notification) error {
	if d.gate != nil {
		d.entered <- struct{}{}
		<-d.gate
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, delivery{Kind: kind, Target: target, Body: n.Body})
	return d.fail[target]
}

func (d *recordingDeliverer) Calls() []delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]delivery(nil), d.calls...)
}

type fixture struct {
	kv        *repository.MemoryKV
	broker    *pubsub.InMemoryBroker
	deliverer *recordingDeliverer
	comps     service.Components
}

func newFixture() *fixture {
	kv := repository.NewMemoryKV()
	broker := pubsub.NewInMemoryBroker()
	d := &recordingDeliverer{fail: map[string]error{}}
	registry := topics.NewRegistry(repository.NewTopicStore(kv), broker)
	manager := subscriptions.NewManager(repository.NewSubscriptionStore(kv))
	return &fixture{
		kv:        kv,
		broker:    broker,
		deliverer: d,
		comps: service.Components{
			Topics:        registry,
			Subscriptions: manager,
			Fanout:        fanout.NewEngine(manager, d),
			Archive:       archive.New(repository.NewEventStore(kv)),
			Publisher:     broker,
		},
	}
}

func tweet(id, topic string) model.ClassifiedEvent {
	return model.ClassifiedEvent{ID: id, Topic: topic, Author: "satoshi", CreatedAt: "Mon Jan 01", Text: "hello"}
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_ProcessBatch(t *testing.T) {
	Convey("Given a service with one discord subscription on Crypto", t, func() {
		ctx := context.Background()
		f := newFixture()
		svc := service.New(f.comps, service.WithIDGenerator(func() string { return "batch-1" }))
		_, err := svc.CreateSubscription(ctx, subscriptions.CreateRequest{
			Type: "discord", Topics: []string{"Crypto"}, Target: "https://hook/x",
		})
		So(err, ShouldBeNil)

		Convey("A matching event is archived and delivered once", func() {
			report, err := svc.ProcessBatch(ctx, model.Batch{Events: []model.ClassifiedEvent{
				tweet("1", "Crypto"),
				tweet("2", "Parrots"),
			}})
			So(err, ShouldBeNil)
			So(report.BatchID, ShouldEqual, "batch-1")
			So(report.Archived, ShouldEqual, 2)
			So(report.Delivery.Matched, ShouldEqual, 1)
			So(report.Delivery.Delivered, ShouldEqual, 1)
			So(f.kv.Len(repository.EventTable), ShouldEqual, 2)

			calls := f.deliverer.Calls()
			So(calls, ShouldHaveLength, 1)
			So(calls[0].Target, ShouldEqual, "https://hook/x")
			So(calls[0].Body, ShouldContainSubstring, "satoshi tweeted at Mon Jan 01 about Crypto")
		})

		Convey("A failed delivery is reported without failing the batch", func() {
			f.deliverer.fail["https://hook/x"] = errors.New("boom")
			report, err := svc.ProcessBatch(ctx, model.Batch{Events: []model.ClassifiedEvent{tweet("1", "Crypto")}})
			So(err, ShouldBeNil)
			So(report.Archived, ShouldEqual, 1)
			So(report.Delivery.Failed, ShouldEqual, 1)
			So(report.Delivery.Errors, ShouldHaveLength, 1)
		})

		Convey("An invalid event rejects the batch before anything is written", func() {
			_, err := svc.ProcessBatch(ctx, model.Batch{Events: []model.ClassifiedEvent{
				tweet("1", "Crypto"),
				{ID: "2"},
			}})
			So(errors.Is(err, model.ErrInvalidEvent), ShouldBeTrue)
			So(f.kv.Len(repository.EventTable), ShouldEqual, 0)
			So(f.deliverer.Calls(), ShouldBeEmpty)
		})
	})
}

func TestService_Broadcast(t *testing.T) {
	Convey("Given broadcasting is enabled", t, func() {
		ctx := context.Background()
		f := newFixture()
		svc := service.New(f.comps, service.WithBroadcast(true))
		crypto, err := svc.CreateTopic(ctx, "Crypto")
		So(err, ShouldBeNil)

		Convey("Events are published to their topic address", func() {
			report, err := svc.ProcessBatch(ctx, model.Batch{Events: []model.ClassifiedEvent{tweet("1", "Crypto")}})
			So(err, ShouldBeNil)
			So(report.Broadcast, ShouldEqual, 1)

			published := f.broker.Published(crypto.Address)
			So(published, ShouldHaveLength, 1)
			So(published[0].Subject, ShouldEqual, "New tweet about Crypto")
		})

		Convey("An unknown topic is recorded as a broadcast failure", func() {
			report, err := svc.ProcessBatch(ctx, model.Batch{Events: []model.ClassifiedEvent{
				tweet("1", "Nope"),
				tweet("2", "Crypto"),
			}})
			So(err, ShouldBeNil)
			So(report.Archived, ShouldEqual, 2)
			So(report.Broadcast, ShouldEqual, 1)
			So(report.BroadcastFailures, ShouldHaveLength, 1)
			So(report.BroadcastFailures[0].EventID, ShouldEqual, "1")
			So(errors.Is(report.BroadcastFailures[0].Err, model.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx := context.Background()
		f := newFixture()
		svc := service.New(f.comps,
			service.WithWorkerCount(1),
			service.WithBootstrapTopics("Crypto", "Test"))

		Convey("Asynchronous ingestion requires Start", func() {
			_, err := svc.Enqueue(ctx, []model.ClassifiedEvent{tweet("1", "Crypto")})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldBeFalse)
		})

		Convey("Start bootstraps topics and rejects a second start", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			So(errors.Is(svc.Start(ctx), service.ErrAlreadyStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldBeTrue)

			var names []string
			for topic, err := range svc.ListTopics(ctx) {
				So(err, ShouldBeNil)
				names = append(names, topic.Name)
			}
			So(names, ShouldHaveLength, 2)
			So(names, ShouldContain, "Crypto")
		})

		Convey("Queued events are processed and duplicates dropped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			res, err := svc.Enqueue(ctx, []model.ClassifiedEvent{tweet("1", "Crypto"), tweet("2", "Crypto")})
			So(err, ShouldBeNil)
			So(res.Accepted, ShouldEqual, 2)
			So(res.BatchID, ShouldNotBeEmpty)

			res, err = svc.Enqueue(ctx, []model.ClassifiedEvent{tweet("2", "Crypto"), tweet("3", "Test")})
			So(err, ShouldBeNil)
			So(res.Accepted, ShouldEqual, 1)
			So(res.Duplicates, ShouldEqual, 1)

			So(eventually(func() bool { return f.kv.Len(repository.EventTable) == 3 }), ShouldBeTrue)
		})

		Convey("Stop is safe without Start", func() {
			So(svc.Stop(ctx), ShouldBeNil)
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given one worker blocked on delivery and a one-slot queue", t, func() {
		ctx := context.Background()
		f := newFixture()
		f.deliverer.entered = make(chan struct{}, 8)
		f.deliverer.gate = make(chan struct{})
		svc := service.New(f.comps, service.WithWorkerCount(1), service.WithQueueSize(1))
		_, err := svc.CreateSubscription(ctx, subscriptions.CreateRequest{
			Type: "discord", Topics: []string{"Crypto"}, Target: "https://hook/x",
		})
		So(err, ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)

		_, err = svc.Enqueue(ctx, []model.ClassifiedEvent{tweet("1", "Crypto")})
		So(err, ShouldBeNil)
		<-f.deliverer.entered

		_, err = svc.Enqueue(ctx, []model.ClassifiedEvent{tweet("2", "Crypto")})
		So(err, ShouldBeNil)

		Convey("A full queue rejects the batch and forgets its ids", func() {
			_, err := svc.Enqueue(ctx, []model.ClassifiedEvent{tweet("3", "Crypto")})
			So(errors.Is(err, queue.ErrFull), ShouldBeTrue)

			close(f.deliverer.gate)
			So(eventually(func() bool { return f.kv.Len(repository.EventTable) == 2 }), ShouldBeTrue)

			res, err := svc.Enqueue(ctx, []model.ClassifiedEvent{tweet("3", "Crypto")})
			So(err, ShouldBeNil)
			So(res.Accepted, ShouldEqual, 1)
			So(svc.Stop(ctx), ShouldBeNil)
			So(f.kv.Len(repository.EventTable), ShouldEqual, 3)
		})
	})
}

type blockingReader struct {
	started chan struct{}
	stopped chan struct{}
}

func (r *blockingReader) Run(ctx context.Context) error {
	close(r.started)
	<-ctx.Done()
	close(r.stopped)
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestService_IngestReaderAndClosers(t *testing.T) {
	Convey("Given a service with an ingest reader and closers", t, func() {
		ctx := context.Background()
		f := newFixture()
		reader := &blockingReader{started: make(chan struct{}), stopped: make(chan struct{})}
		var order []string
		svc := service.New(f.comps,
			service.WithIngestReader(reader),
			service.WithCloser(closerFunc(func() error { order = append(order, "store"); return nil })),
			service.WithCloser(closerFunc(func() error { order = append(order, "broker"); return errors.New("closed twice") })))

		So(svc.Start(ctx), ShouldBeNil)
		<-reader.started

		Convey("Stop cancels the reader and closes resources in reverse order", func() {
			err := svc.Stop(ctx)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "closed twice")

			select {
			case <-reader.stopped:
			default:
				So("reader still running", ShouldBeEmpty)
			}
			So(order, ShouldResemble, []string{"broker", "store"})
		})
	})
}
