// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build linux

// Package main implements the troncon command.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/wneessen/troncon/internal/config"
	"github.com/wneessen/troncon/internal/logger"
	"github.com/wneessen/troncon/internal/resolver"
	"github.com/wneessen/troncon/internal/service"
)

const shutdownTimeout = time.Second * 10

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGABRT, os.Interrupt)
	defer cancel()

	// Initialize Logger
	log := logger.New(slog.LevelError)

	confRead := false
	confPath := flag.String("config", "", "path to the config file")
	format := flag.String("format", "", "output format (text, table or json)")
	pairs := flag.Bool("pairs", false, "resolve pairs of points given as lat1,lon1:lat2,lon2")
	flag.Usage = func() {
		_, _ = fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] COORD...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	// Read default config
	conf, err := config.New()
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		return 1
	}

	// If config file was specified, read it
	if *confPath != "" {
		file := filepath.Base(*confPath)
		path := filepath.Dir(*confPath)
		conf, err = config.NewFromFile(path, file)
		if err != nil {
			log.Error("failed to load config from file", logger.Err(err))
			return 1
		}
		confRead = true
	}

	// Check if we have a config file in the default location
	if path, file := findConfigFile(); !confRead && (path != "" && file != "") {
		conf, err = config.NewFromFile(path, file)
		if err != nil {
			log.Error("failed to load config from file", logger.Err(err))
			return 1
		}
	}
	if *format != "" {
		conf.Output.Format = *format
		if err = conf.Validate(); err != nil {
			log.Error("invalid output format", logger.Err(err))
			return 1
		}
	}

	log = logger.New(conf.LogLevel)
	serv, err := service.New(conf, log)
	if err != nil {
		log.Error("failed to initialize troncon service", logger.Err(err))
		return 1
	}

	log.Info("starting troncon service", slog.String("version", version),
		slog.String("commit", commit), slog.String("date", date))
	if err = serv.Start(ctx); err != nil {
		log.Error("failed to start troncon service", logger.Err(err))
		return 1
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := serv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shut down troncon service", logger.Err(err))
		}
		log.Info("troncon service shut down")
	}()

	sigChan := make(chan os.Signal, 1)
	serv.SignalSrc.Notify(sigChan, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		defer serv.SignalSrc.Stop(sigChan)
		serv.HandleSignals(ctx, sigChan)
	}()

	var records []resolver.Record
	if *pairs {
		input, err := parsePairs(flag.Args())
		if err != nil {
			log.Error("invalid coordinates", logger.Err(err))
			return 2
		}
		records, err = serv.ResolvePairs(ctx, input)
		if err != nil {
			log.Error("failed to resolve pairs", logger.Err(err))
			return 1
		}
	} else {
		input, err := parsePoints(flag.Args())
		if err != nil {
			log.Error("invalid coordinates", logger.Err(err))
			return 2
		}
		records, err = serv.ResolvePoints(ctx, input)
		if err != nil {
			log.Error("failed to resolve points", logger.Err(err))
			return 1
		}
	}

	for _, record := range records {
		if record.Err != nil {
			return 1
		}
	}
	return 0
}

func findConfigFile() (string, string) {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", ""
	}
	exts := []string{"toml", "yaml", "yml", "json"}
	for _, ext := range exts {
		path := filepath.Join(homedir, ".config", "troncon", "config."+ext)
		if _, err = os.Stat(path); err == nil {
			return filepath.Dir(path), filepath.Base(path)
		}
	}
	return "", ""
}
