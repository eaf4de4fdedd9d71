package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pevans/newsscraper/web"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		addr        string
		noScheduler bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web interface and run scheduled scrapes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.ListenAddr
			}
			return serve(cmd.Context(), c, addr, !noScheduler)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from LISTEN_ADDR)")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not run scheduled scrapes")
	return cmd
}

func serve(ctx context.Context, c *cli, addr string, scheduler bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := c.open()
	if err != nil {
		return err
	}
	defer a.Close()

	server, err := web.NewServer(web.Options{
		Config:    a.cfg,
		Websites:  a.websites,
		Articles:  a.articles,
		Logs:      a.logs,
		Schedules: a.schedules,
		Manager:   a.manager,
		Settings:  a.settings,
		Scraper:   a.engine,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx, addr)
	})
	if scheduler {
		g.Go(func() error {
			if err := a.manager.Start(); err != nil {
				return err
			}
			<-ctx.Done()
			a.manager.Stop()
			return nil
		})
	} else {
		log.Info().Msg("Scheduler disabled")
	}

	return g.Wait()
}
