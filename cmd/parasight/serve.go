package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"parasight/internal/bot"
	"parasight/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the share API, the Telegram bot and background maintenance",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(cfg, log)
		if err != nil {
			return err
		}
		defer a.Close(log)

		srv := httpapi.New(httpapi.Config{
			Addr:        cfg.HTTPAddr,
			DefaultNote: cfg.ShareDefaultNote,
			RateLimit:   cfg.ShareRateLimit,
			RateBurst:   cfg.ShareRateBurst,
		}, a.ingester, a.grouper, a.repo, log)

		var h *bot.Handler
		if cfg.TelegramBotToken != "" {
			if h, err = bot.NewHandler(cfg.TelegramBotToken, a.ingester, log); err != nil {
				return err
			}
		} else {
			log.Info("TELEGRAM_BOT_TOKEN not set, share bot disabled")
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Stop(shutdownCtx)
		})

		g.Go(func() error {
			a.repo.RunGC(gctx, cfg.GCInterval)
			return nil
		})

		if h != nil {
			g.Go(func() error {
				h.Start(gctx)
				return nil
			})
		}

		log.Info("Parasight is running. Press Ctrl+C to exit.")
		err = g.Wait()
		log.Info("Parasight shut down.")
		return err
	},
}
