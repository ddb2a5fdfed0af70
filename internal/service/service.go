// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package service wires the resolution engine together and manages the lifecycle of the response
// cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	stdhttp "net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wneessen/troncon/internal/cache"
	"github.com/wneessen/troncon/internal/config"
	"github.com/wneessen/troncon/internal/http"
	"github.com/wneessen/troncon/internal/logger"
	"github.com/wneessen/troncon/internal/metrics"
	"github.com/wneessen/troncon/internal/overpass"
	"github.com/wneessen/troncon/internal/presenter"
	"github.com/wneessen/troncon/internal/resolver"
	"github.com/wneessen/troncon/internal/troncon"
)

const metricsReadHeaderTimeout = time.Second * 5

type signalSource interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

type stdLibSignalSource struct{}

func (stdLibSignalSource) Notify(c chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(c, sig...)
}

func (stdLibSignalSource) Stop(c chan<- os.Signal) {
	signal.Stop(c)
}

type Service struct {
	SignalSrc signalSource

	config     *config.Config
	logger     *logger.Logger
	httpClient *http.Client
	cache      *cache.Cache
	registry   *prometheus.Registry
	resolver   *resolver.Resolver
	presenter  *presenter.Presenter
	scheduler  gocron.Scheduler
	output     io.Writer

	metricsServer   *stdhttp.Server
	metricsListener net.Listener
}

func New(conf *config.Config, log *logger.Logger) (*Service, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	pres, err := presenter.New(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create presenter: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	httpClient := http.New(log)
	store := cache.New(conf.Cache.File, log)
	client := overpass.New(httpClient, store, conf, log, m)

	service := &Service{
		SignalSrc:  stdLibSignalSource{},
		config:     conf,
		logger:     log,
		httpClient: httpClient,
		cache:      store,
		registry:   registry,
		resolver:   resolver.New(client, conf, log, m),
		presenter:  pres,
		scheduler:  scheduler,
		output:     os.Stdout,
	}
	return service, nil
}

// Start loads the cache, schedules the periodic cache flush and starts the metrics listener if
// one is configured.
func (s *Service) Start(ctx context.Context) error {
	entries := s.cache.Load()
	s.logger.Info("response cache ready", slog.String("file", s.cache.Path()), slog.Int("entries", entries))

	if s.config.Cache.FlushInterval > 0 {
		if err := s.createScheduledJob(ctx, s.config.Cache.FlushInterval, s.flushCache,
			"cache_flush_job"); err != nil {
			return err
		}
	}
	s.scheduler.Start()

	if s.config.Metrics.Listen != "" {
		if err := s.serveMetrics(); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown stops the scheduled jobs and the metrics listener and flushes the cache a last time.
func (s *Service) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.scheduler.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down scheduler: %w", err))
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down metrics listener: %w", err))
		}
	}
	if err := s.cache.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush cache: %w", err))
	}
	return errors.Join(errs...)
}

// ResolvePoints resolves single points and writes the records in the configured output format.
func (s *Service) ResolvePoints(ctx context.Context, points []troncon.GeoPoint) ([]resolver.Record, error) {
	s.logger.Info("resolving points", slog.Int("count", len(points)))
	records := s.resolver.ResolvePoints(ctx, points)
	if err := s.presenter.Render(s.output, s.config.Output.Format, records); err != nil {
		return records, fmt.Errorf("failed to render records: %w", err)
	}
	return records, nil
}

// ResolvePairs resolves pairs of points and writes the records in the configured output format.
func (s *Service) ResolvePairs(ctx context.Context, pairs [][2]troncon.GeoPoint) ([]resolver.Record, error) {
	s.logger.Info("resolving pairs", slog.Int("count", len(pairs)))
	records := s.resolver.ResolvePairs(ctx, pairs)
	if err := s.presenter.Render(s.output, s.config.Output.Format, records); err != nil {
		return records, fmt.Errorf("failed to render records: %w", err)
	}
	return records, nil
}

// MetricsAddr returns the address the metrics listener is bound to, if any.
func (s *Service) MetricsAddr() string {
	if s.metricsListener == nil {
		return ""
	}
	return s.metricsListener.Addr().String()
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

func (s *Service) flushCache(context.Context) {
	if err := s.cache.Flush(); err != nil {
		s.logger.Error("failed to flush cache", logger.Err(err))
	}
}

func (s *Service) serveMetrics() error {
	listener, err := net.Listen("tcp", s.config.Metrics.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics requests: %w", err)
	}
	mux := stdhttp.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(s.registry))
	s.metricsListener = listener
	s.metricsServer = &stdhttp.Server{
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		if err := s.metricsServer.Serve(listener); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			s.logger.Error("metrics listener failed", logger.Err(err))
		}
	}()
	s.logger.Info("serving metrics", slog.String("address", listener.Addr().String()))
	return nil
}
