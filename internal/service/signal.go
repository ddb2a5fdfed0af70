// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build unix

package service

import (
	"context"
	"log/slog"
	"os"
	"syscall"
)

// HandleSignals flushes the cache on SIGUSR1 and logs the cache status on SIGUSR2.
func (s *Service) HandleSignals(ctx context.Context, sigChan chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGUSR1:
				s.flushCache(ctx)
			case syscall.SIGUSR2:
				s.logger.Info("current cache status", slog.String("file", s.cache.Path()),
					slog.Int("entries", s.cache.Len()))
			}
		}
	}
}
