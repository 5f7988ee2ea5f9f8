package pubsub

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/okian/tweetcast/internal/domain/model"
)

// SNS subjects are printable ASCII, fewer than 100 characters.
const (
	maxSubjectLen   = 99
	fallbackSubject = "New tweet"
)

// SNSAPI is the subset of the SNS client the broker calls.
type SNSAPI interface {
	CreateTopic(ctx context.Context, in *sns.CreateTopicInput, optFns ...func(*sns.Options)) (*sns.CreateTopicOutput, error)
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	Subscribe(ctx context.Context, in *sns.SubscribeInput, optFns ...func(*sns.Options)) (*sns.SubscribeOutput, error)
}

// SNSBroker implements Broker on Amazon SNS. Topic addresses are topic ARNs.
type SNSBroker struct {
	client SNSAPI
}

// NewSNSBroker wraps an SNS client.
func NewSNSBroker(client SNSAPI) *SNSBroker {
	return &SNSBroker{client: client}
}

// CreateTopic is idempotent on the SNS side: an existing name returns its ARN.
func (b *SNSBroker) CreateTopic(ctx context.Context, name string) (string, error) {
	out, err := b.client.CreateTopic(ctx, &sns.CreateTopicInput{Name: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("sns create topic %s: %w: %w", name, model.ErrChannelUnavailable, err)
	}
	return aws.ToString(out.TopicArn), nil
}

func (b *SNSBroker) Publish(ctx context.Context, address, subject, message string) error {
	subject = sanitizeSubject(subject)
	_, err := b.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(address),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("sns publish to %s: %w: %w", address, model.ErrChannelUnavailable, err)
	}
	return nil
}

// sanitizeSubject turns line breaks and control characters into spaces,
// replaces non-ASCII runes with '?' and cuts the result below the limit.
func sanitizeSubject(subject string) string {
	subject = strings.Map(func(r rune) rune {
		switch {
		case r < ' ' || r == 0x7f:
			return ' '
		case r > unicode.MaxASCII:
			return '?'
		}
		return r
	}, subject)
	subject = strings.TrimSpace(subject)
	if len(subject) > maxSubjectLen {
		subject = strings.TrimSpace(subject[:maxSubjectLen])
	}
	if subject == "" {
		return fallbackSubject
	}
	return subject
}

func (b *SNSBroker) Subscribe(ctx context.Context, address, protocol, endpoint string) error {
	_, err := b.client.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn: aws.String(address),
		Protocol: aws.String(protocol),
		Endpoint: aws.String(endpoint),
	})
	if err != nil {
		return fmt.Errorf("sns subscribe %s to %s: %w: %w", endpoint, address, model.ErrChannelUnavailable, err)
	}
	return nil
}

// Close is a no-op; the SNS client holds no resources.
func (b *SNSBroker) Close() error { return nil }
