package pubsub_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/okian/tweetcast/internal/adapters/pubsub"
	"github.com/okian/tweetcast/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeSNS struct {
	err       error
	published []*sns.PublishInput
	subs      []*sns.SubscribeInput
}

func (f *fakeSNS) CreateTopic(_ context.Context, in *sns.CreateTopicInput, _ ...func(*sns.Options)) (*sns.CreateTopicOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sns.CreateTopicOutput{TopicArn: aws.String("arn:aws:sns:eu-west-1:123:" + aws.ToString(in.Name))}, nil
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.published = append(f.published, in)
	return &sns.PublishOutput{MessageId: aws.String("m1")}, nil
}

func (f *fakeSNS) Subscribe(_ context.Context, in *sns.SubscribeInput, _ ...func(*sns.Options)) (*sns.SubscribeOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.subs = append(f.subs, in)
	return &sns.SubscribeOutput{}, nil
}

func TestInMemoryBroker(t *testing.T) {
	Convey("Given an in-memory broker", t, func() {
		ctx := context.Background()
		b := pubsub.NewInMemoryBroker()

		Convey("When a topic is created twice", func() {
			a1, err1 := b.CreateTopic(ctx, "Crypto")
			a2, err2 := b.CreateTopic(ctx, "Crypto")

			Convey("Then the address should be stable", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(a1, ShouldEqual, a2)
			})

			Convey("Then publications and subscriptions should be retained", func() {
				So(b.Publish(ctx, a1, "New tweet about Crypto", "hi"), ShouldBeNil)
				So(b.Subscribe(ctx, a1, "email", "a@b.com"), ShouldBeNil)
				So(b.Subscribe(ctx, a1, "email", "a@b.com"), ShouldBeNil)
				So(b.Published(a1), ShouldResemble, []pubsub.Message{{Subject: "New tweet about Crypto", Body: "hi"}})
				So(b.Endpoints(a1), ShouldHaveLength, 1)
			})
		})

		Convey("When publishing to an unknown address", func() {
			err := b.Publish(ctx, "mem:topic:Gold", "s", "m")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the broker is closed", func() {
			So(b.Close(), ShouldBeNil)
			_, err := b.CreateTopic(ctx, "Crypto")
			So(errors.Is(err, model.ErrChannelUnavailable), ShouldBeTrue)
		})
	})
}

func TestSNSBroker(t *testing.T) {
	Convey("Given an SNS broker on a fake client", t, func() {
		ctx := context.Background()
		fake := &fakeSNS{}
		b := pubsub.NewSNSBroker(fake)

		Convey("When creating a topic", func() {
			arn, err := b.CreateTopic(ctx, "Parrots")

			Convey("Then the ARN should be returned", func() {
				So(err, ShouldBeNil)
				So(arn, ShouldEndWith, ":Parrots")
			})
		})

		Convey("When publishing with a long subject", func() {
			So(b.Publish(ctx, "arn:x", strings.Repeat("s", 150), "body"), ShouldBeNil)

			Convey("Then the subject should be cut below the SNS limit", func() {
				So(aws.ToString(fake.published[0].Subject), ShouldHaveLength, 99)
				So(aws.ToString(fake.published[0].TopicArn), ShouldEqual, "arn:x")
			})
		})

		Convey("When the subject carries a long non-ASCII topic and a line break", func() {
			subject := "New tweet about x" + strings.Repeat("暗", 40) + "\nnext"
			So(b.Publish(ctx, "arn:x", subject, "body"), ShouldBeNil)
			got := aws.ToString(fake.published[0].Subject)

			Convey("Then it should be printable ASCII under 100 characters", func() {
				So(len(got), ShouldBeLessThan, 100)
				So(utf8.ValidString(got), ShouldBeTrue)
				So(got, ShouldStartWith, "New tweet about x???")
				So(got, ShouldNotContainSubstring, "\n")
				for _, r := range got {
					So(r >= ' ' && r < 0x7f, ShouldBeTrue)
				}
			})
		})

		Convey("When the subject is blank", func() {
			So(b.Publish(ctx, "arn:x", " \t ", "body"), ShouldBeNil)
			So(aws.ToString(fake.published[0].Subject), ShouldEqual, "New tweet")
		})

		Convey("When subscribing an email endpoint", func() {
			So(b.Subscribe(ctx, "arn:x", "email", "a@b.com"), ShouldBeNil)
			So(aws.ToString(fake.subs[0].Protocol), ShouldEqual, "email")
			So(aws.ToString(fake.subs[0].Endpoint), ShouldEqual, "a@b.com")
		})

		Convey("When SNS fails", func() {
			fake.err = errors.New("throttled")
			_, err := b.CreateTopic(ctx, "Crypto")

			Convey("Then ChannelUnavailable should be reported", func() {
				So(errors.Is(err, model.ErrChannelUnavailable), ShouldBeTrue)
				So(b.Publish(ctx, "arn:x", "s", "m"), ShouldNotBeNil)
			})
		})
	})
}
