package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/geraldfingburke/dailydigest/internal/digest"
	"github.com/geraldfingburke/dailydigest/internal/rssgen"
	"github.com/geraldfingburke/dailydigest/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dynamic RSS feed, health, and metrics endpoints (read path only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			defer a.Close()

			ctx := context.Background()
			s := a.settings

			channelTitle, err := s.String(ctx, "rss", "channel_title")
			if err != nil {
				return err
			}
			channelDescription, err := s.String(ctx, "rss", "channel_description")
			if err != nil {
				return err
			}
			ownerEmail, err := s.String(ctx, "rss", "owner_email")
			if err != nil {
				return err
			}
			imageURL, err := s.String(ctx, "rss", "image_url")
			if err != nil {
				return err
			}
			edgeCacheSeconds, err := s.Int(ctx, "rss", "edge_cache_seconds")
			if err != nil {
				return err
			}
			swrSeconds, err := s.Int(ctx, "rss", "swr_seconds")
			if err != nil {
				return err
			}
			tzName, err := s.String(ctx, "general", "display_timezone")
			if err != nil {
				return err
			}
			location, err := time.LoadLocation(tzName)
			if err != nil {
				return fmt.Errorf("display_timezone %q: %w", tzName, err)
			}

			listenAddr := a.cfg.Server.Addr
			if addr != "" {
				listenAddr = addr
			}

			feed := rssgen.NewGenerator(digest.NewStore(a.db), rssgen.ChannelInfo{
				Title:           channelTitle,
				Description:     channelDescription,
				OwnerEmail:      ownerEmail,
				ImageURL:        imageURL,
				SelfURL:         "https://" + listenAddr,
				DisplayLocation: location,
			})

			srv := server.New(server.Config{
				Addr:             listenAddr,
				ReadTimeout:      a.cfg.Server.ReadTimeout,
				WriteTimeout:     a.cfg.Server.WriteTimeout,
				IdleTimeout:      a.cfg.Server.IdleTimeout,
				ShutdownTimeout:  a.cfg.Server.ShutdownTimeout,
				EdgeCacheSeconds: edgeCacheSeconds,
				SWRSeconds:       swrSeconds,
			}, a.db, feed, a.log)

			go func() {
				a.log.Info().Str("addr", listenAddr).Msg("serve: listening")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					a.log.Fatal().Err(err).Msg("server failed")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			a.log.Info().Msg("serve: shutting down")
			return server.Shutdown(srv, a.cfg.Server.ShutdownTimeout)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "override HTTP listen address")
	return cmd
}
