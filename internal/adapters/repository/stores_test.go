package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/tweetcast/internal/adapters/repository"
	"github.com/okian/tweetcast/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTopicStore(t *testing.T) {
	Convey("Given a topic store", t, func() {
		ctx := context.Background()
		kv := repository.NewMemoryKV()
		store := repository.NewTopicStore(kv, repository.WithPageSize(2))

		Convey("When a topic is stored twice with different addresses", func() {
			first, created1, err1 := store.PutTopicIfAbsent(ctx, model.Topic{Name: "Crypto", Address: "A1"})
			second, created2, err2 := store.PutTopicIfAbsent(ctx, model.Topic{Name: "Crypto", Address: "A2"})

			Convey("Then the first mapping should be permanent", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(created1, ShouldBeTrue)
				So(created2, ShouldBeFalse)
				So(first.Address, ShouldEqual, "A1")
				So(second.Address, ShouldEqual, "A1")
				So(kv.Len(repository.TopicTable), ShouldEqual, 1)
			})
		})

		Convey("When listing more topics than fit a page", func() {
			for _, name := range []string{"Crypto", "Test", "Parrots", "Gold", "Rust"} {
				_, _, err := store.PutTopicIfAbsent(ctx, model.Topic{Name: name, Address: "arn:" + name})
				So(err, ShouldBeNil)
			}

			Convey("Then every page should be drained, and again on a second pass", func() {
				seq := store.Topics(ctx)
				for range 2 {
					var names []string
					for topic, err := range seq {
						So(err, ShouldBeNil)
						names = append(names, topic.Name)
					}
					So(names, ShouldHaveLength, 5)
				}
			})
		})

		Convey("When a topic is missing", func() {
			_, err := store.GetTopic(ctx, "Nope")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestSubscriptionStore(t *testing.T) {
	Convey("Given a subscription store", t, func() {
		ctx := context.Background()
		kv := repository.NewMemoryKV()
		store := repository.NewSubscriptionStore(kv, repository.WithPageSize(1))

		sub := model.Subscription{ID: "s1", Type: model.ChannelDiscord, Topics: []string{"Crypto"}, URL: "https://hook/x"}
		So(store.PutSubscription(ctx, sub), ShouldBeNil)

		Convey("Then it should round-trip by id", func() {
			got, err := store.GetSubscription(ctx, "s1")
			So(err, ShouldBeNil)
			So(got, ShouldResemble, sub)
		})

		Convey("Then a corrupt record should surface as an error in the sequence", func() {
			So(kv.Put(ctx, repository.SubscriptionTable, "s2", []byte("{not json")), ShouldBeNil)
			var errs int
			for _, err := range store.Subscriptions(ctx) {
				if err != nil {
					errs++
					So(errors.Is(err, repository.ErrCorruptRecord), ShouldBeTrue)
				}
			}
			So(errs, ShouldEqual, 1)
		})

		Convey("Then deleting should remove it", func() {
			So(store.DeleteSubscription(ctx, "s1"), ShouldBeNil)
			_, err := store.GetSubscription(ctx, "s1")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestEventStore(t *testing.T) {
	Convey("Given an event store", t, func() {
		ctx := context.Background()
		kv := repository.NewMemoryKV()
		store := repository.NewEventStore(kv)

		Convey("When the same event is archived twice", func() {
			rec := model.ArchivedEvent{Event: model.ClassifiedEvent{ID: "t1", Topic: "Crypto"}, BatchID: "b1"}
			So(store.PutEvent(ctx, rec), ShouldBeNil)
			So(store.PutEvent(ctx, rec), ShouldBeNil)

			Convey("Then exactly one record should exist", func() {
				So(kv.Len(repository.EventTable), ShouldEqual, 1)
				var n int
				for got, err := range store.Events(ctx) {
					So(err, ShouldBeNil)
					So(got.Event.ID, ShouldEqual, "t1")
					n++
				}
				So(n, ShouldEqual, 1)
			})
		})
	})
}
