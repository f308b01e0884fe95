package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/selfcaststudios/sitecast/internal/config"
	"github.com/selfcaststudios/sitecast/internal/keepalive"
	"github.com/selfcaststudios/sitecast/internal/renderer"
	"github.com/selfcaststudios/sitecast/internal/server"
	"github.com/selfcaststudios/sitecast/internal/site"
	"github.com/selfcaststudios/sitecast/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the content API and site generation server",
	RunE:    runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 3001, "port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "host to bind to")
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = st.Close(context.Background())
	}()

	asm := site.New(st, renderer.New(logger), cfg, logger)
	srv := server.New(cfg, st, asm, logger)

	if cfg.Development.WatchTemplates {
		tw, err := watcher.NewTemplateWatcher(cfg.Site.TemplatesDir, cfg.Site.OutputDir, asm, logger)
		if err != nil {
			logger.Warn(ctx, err, "template watcher unavailable")
		} else {
			tw.Start(ctx)
			defer func() {
				_ = tw.Stop()
			}()
		}
	}

	pinger := keepalive.New(cfg.KeepAlive, logger, srv.Metrics())
	if err := pinger.Start(ctx); err != nil {
		return err
	}
	defer pinger.Stop()

	return srv.Start(ctx)
}
