package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/okian/tweetcast/internal/adapters/delivery"
	"github.com/okian/tweetcast/internal/adapters/mq/kafka"
	"github.com/okian/tweetcast/internal/adapters/pubsub"
	"github.com/okian/tweetcast/internal/adapters/repository"
	"github.com/okian/tweetcast/internal/config"
	"github.com/okian/tweetcast/internal/domain/archive"
	"github.com/okian/tweetcast/internal/domain/fanout"
	"github.com/okian/tweetcast/internal/domain/model"
	"github.com/okian/tweetcast/internal/domain/subscriptions"
	"github.com/okian/tweetcast/internal/domain/topics"
	"github.com/okian/tweetcast/pkg/logger"
)

// Build assembles a Service from configuration. Resources opened here are
// released by Service.Stop.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger) (svc *Service, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Get()
	}

	var closers []io.Closer
	defer func() {
		if err == nil {
			return
		}
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	var awsc *awsClients
	if cfg.StoreDriver == config.StoreDynamoDB || cfg.PubSubDriver == config.PubSubSNS {
		awsc, err = loadAWS(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	kv, err := openStore(cfg, awsc)
	if err != nil {
		return nil, err
	}
	closers = append(closers, kv)

	broker := openBroker(cfg, awsc)
	closers = append(closers, broker)

	storeOpts := []repository.Option{repository.WithPageSize(cfg.ScanPageSize)}
	topicStore := repository.NewTopicStore(kv, storeOpts...)
	subStore := repository.NewSubscriptionStore(kv, storeOpts...)
	eventStore := repository.NewEventStore(kv, storeOpts...)

	registry := topics.NewRegistry(topicStore, broker, topics.WithLogger(log.Named("topics")))

	managerOpts := []subscriptions.Option{subscriptions.WithLogger(log.Named("subscriptions"))}
	if cfg.ChannelSubscriptionsEnabled {
		managerOpts = append(managerOpts, subscriptions.WithChannelSubscriptions(registry, broker))
	}
	manager := subscriptions.NewManager(subStore, managerOpts...)

	var source fanout.Source = manager
	if cfg.SampleSubscriptionsFile != "" {
		static, err := subscriptions.LoadStatic(cfg.SampleSubscriptionsFile)
		if err != nil {
			return nil, err
		}
		log.Warn(ctx, "fan-out reads sample subscriptions",
			logger.String("file", cfg.SampleSubscriptionsFile))
		source = static
	}

	router, err := buildRouter(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	engine := fanout.NewEngine(source, router,
		fanout.WithConcurrency(cfg.FanoutConcurrency),
		fanout.WithLogger(log.Named("fanout")))

	opts := []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithBroadcast(cfg.BroadcastEnabled),
		WithBootstrapTopics(cfg.BootstrapTopics...),
		WithLogger(log.Named("service")),
	}
	for _, c := range closers {
		opts = append(opts, WithCloser(c))
	}
	svc = New(Components{
		Topics:        registry,
		Subscriptions: manager,
		Fanout:        engine,
		Archive:       archive.New(eventStore),
		Publisher:     broker,
	}, opts...)

	if len(cfg.KafkaBrokers) > 0 {
		reader, err := kafka.NewReader(kafka.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		})
		if err != nil {
			return nil, err
		}
		svc.ingest = kafka.NewConsumer(reader, svc, kafka.WithLogger(log.Named("kafka")))
	}
	return svc, nil
}

type awsClients struct {
	cfg      aws.Config
	endpoint string
}

func loadAWS(ctx context.Context, cfg *config.Config) (*awsClients, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &awsClients{cfg: awsCfg, endpoint: cfg.AWSEndpoint}, nil
}

func (a *awsClients) dynamodb() *dynamodb.Client {
	return dynamodb.NewFromConfig(a.cfg, func(o *dynamodb.Options) {
		if a.endpoint != "" {
			o.BaseEndpoint = aws.String(a.endpoint)
		}
	})
}

func (a *awsClients) sns() *sns.Client {
	return sns.NewFromConfig(a.cfg, func(o *sns.Options) {
		if a.endpoint != "" {
			o.BaseEndpoint = aws.String(a.endpoint)
		}
	})
}

func openStore(cfg *config.Config, a *awsClients) (repository.KV, error) {
	switch cfg.StoreDriver {
	case config.StorePebble:
		return repository.OpenPebble(repository.PebbleOptions{Dir: cfg.PebbleDir})
	case config.StoreDynamoDB:
		return repository.NewDynamoKV(a.dynamodb(), cfg.DynamoDBTablePrefix), nil
	default:
		return repository.NewMemoryKV(), nil
	}
}

func openBroker(cfg *config.Config, a *awsClients) pubsub.Broker {
	if cfg.PubSubDriver == config.PubSubSNS {
		return pubsub.NewSNSBroker(a.sns())
	}
	return pubsub.NewInMemoryBroker()
}

func buildRouter(ctx context.Context, cfg *config.Config, log logger.Logger) (*delivery.Router, error) {
	router := delivery.NewRouter()
	if cfg.DeliveryDryRun {
		for _, kind := range model.ChannelTypes {
			router.Register(kind, delivery.NewLogSender(kind, log.Named("delivery")))
		}
		return router, nil
	}

	discordOpts := []delivery.DiscordOption{
		delivery.WithTimeout(time.Duration(cfg.DiscordTimeoutMS) * time.Millisecond),
	}
	if cfg.DiscordUsername != "" {
		discordOpts = append(discordOpts, delivery.WithUsername(cfg.DiscordUsername))
	}
	router.Register(model.ChannelDiscord, delivery.NewDiscordSender(discordOpts...))

	if cfg.SMTPHost == "" {
		log.Warn(ctx, "smtp_host not set; email deliveries will fail")
		return router, nil
	}
	smtpSender, err := delivery.NewSMTPSender(delivery.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	if err != nil {
		return nil, errors.Join(config.ErrInvalidConfig, err)
	}
	router.Register(model.ChannelEmail, smtpSender)
	return router, nil
}
