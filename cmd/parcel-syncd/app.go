package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/astoko/ParcelBuddy/config"
	"github.com/astoko/ParcelBuddy/internal/broker/kafka"
	"github.com/astoko/ParcelBuddy/internal/cache/rediscache"
	"github.com/astoko/ParcelBuddy/internal/integrations/carrier"
	"github.com/astoko/ParcelBuddy/internal/integrations/carrier/fake"
	"github.com/astoko/ParcelBuddy/internal/integrations/carrier/trackql"
	"github.com/astoko/ParcelBuddy/internal/notify"
	"github.com/astoko/ParcelBuddy/internal/services/syncer"
	"github.com/astoko/ParcelBuddy/internal/storage/histfile"
	"github.com/astoko/ParcelBuddy/internal/storage/pghistory"
)

type appFactories struct {
	newStorage       func(cfg *config.Config) (store syncer.Store, closeFn func(), err error)
	newProducer      func(cfg *config.Config) syncer.Publisher
	newCarrierClient func(cfg *config.Config, creds *config.CredentialsHolder) carrier.Client
	newResolver      func(cfg *config.Config, client carrier.Client) *carrier.Resolver
	newNotifier      func(cfg *config.Config, producer syncer.Publisher) notify.Notifier
}

func defaultFactories() appFactories {
	return appFactories{
		newStorage: func(cfg *config.Config) (syncer.Store, func(), error) {
			if cfg.History.Backend == "postgres" {
				sslMode := cfg.History.Database.SSLMode
				if sslMode == "" {
					sslMode = "disable"
				}
				connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
					cfg.History.Database.Username, cfg.History.Database.Password,
					cfg.History.Database.Host, cfg.History.Database.Port,
					cfg.History.Database.DBName, sslMode)
				st, err := pghistory.New(connString)
				if err != nil {
					return nil, nil, err
				}
				return st, st.Close, nil
			}
			path := cfg.History.FilePath
			if path == "" {
				path = "history.json"
			}
			return histfile.New(path), nil, nil
		},
		newProducer: func(cfg *config.Config) syncer.Publisher {
			if cfg.Kafka.Host == "" {
				return nil
			}
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers)
		},
		newCarrierClient: func(cfg *config.Config, creds *config.CredentialsHolder) carrier.Client {
			// fake — для локального демо без ключей TrackQL.
			if cfg.ParcelSync.CarrierMode == "fake" {
				return fake.New()
			}
			return trackql.New(creds)
		},
		newResolver: func(cfg *config.Config, client carrier.Client) *carrier.Resolver {
			r := carrier.NewResolver(client)
			if ttl := cfg.ParcelSync.CacheDirectoryTTLSeconds; ttl > 0 && cfg.Redis.Host != "" {
				redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
				r.WithCache(rediscache.New(redisAddr), time.Duration(ttl)*time.Second)
			}
			return r
		},
		newNotifier: func(cfg *config.Config, producer syncer.Publisher) notify.Notifier {
			switch cfg.ParcelSync.NotifyMode {
			case "kafka":
				if producer != nil {
					topic := cfg.Kafka.NotificationsTopicName
					if topic == "" {
						topic = "parcel.notifications"
					}
					return notify.NewKafka(producer, topic)
				}
				return notify.NewLog()
			case "log":
				return notify.NewLog()
			default:
				return notify.NewDesktop()
			}
		},
	}
}

func RunParcelSync(ctx context.Context, cfg *config.Config, f appFactories) error {
	credsPath := cfg.ParcelSync.CredentialsFile
	if credsPath == "" {
		credsPath = ".env"
	}
	loaded, err := config.LoadCredentials(credsPath)
	if err != nil {
		return err
	}
	creds := config.NewCredentialsHolder(loaded)

	store, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	producer := f.newProducer(cfg)
	client := f.newCarrierClient(cfg, creds)
	resolver := f.newResolver(cfg, client)
	notifier := f.newNotifier(cfg, producer)

	refresh := time.Duration(cfg.ParcelSync.RefreshIntervalSeconds) * time.Second
	fetchTimeout := time.Duration(cfg.ParcelSync.FetchTimeoutSeconds) * time.Second

	engine := syncer.New(store, client, resolver, notifier, creds, syncer.Events{}).
		WithSettings(refresh, fetchTimeout, cfg.ParcelSync.FetchConcurrency)
	if producer != nil && cfg.Kafka.ParcelUpdatedTopicName != "" {
		engine.WithProducer(producer, cfg.Kafka.ParcelUpdatedTopicName)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		err := runHTTPServer(ctx, httpOpts{
			httpAddr:  cfg.ParcelSync.HTTPAddr,
			engine:    engine,
			creds:     creds,
			credsPath: credsPath,
			resolver:  resolver,
			cfg:       cfg,
		})
		if err != nil && err != http.ErrServerClosed {
			slog.Error("http server", "error", err.Error())
			cancel()
		}
	}()

	return engine.Run(ctx)
}
