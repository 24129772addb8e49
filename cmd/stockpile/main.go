package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/asaskevich/EventBus"
	"github.com/stockpiled/stockpile/config"
	"github.com/stockpiled/stockpile/internal/api"
	"github.com/stockpiled/stockpile/internal/app"
	"github.com/stockpiled/stockpile/internal/inventory"
	"github.com/stockpiled/stockpile/internal/webserver"
	"github.com/stockpiled/stockpile/pkg/foodfacts"
	"go.uber.org/zap"
)

var (
	h        = flag.Bool("h", false, "help usage")
	x        = flag.Bool("x", false, "debug mode")
	initdb   = flag.Bool("initdb", false, "drop and re-create all tables, exit")
	conffile = flag.String("c", "/etc/stockpile.yml", "config file")
)

func printHelp() {
	if *h {
		fmt.Fprint(os.Stderr, "stockpile usage:\nstockpile -h | -x | -initdb | -c configfile\n")
		flag.PrintDefaults()
		os.Exit(0)
	}
}

func main() {
	flag.Parse()
	printHelp()

	cfg := config.LoadConfig(*conffile)
	if *x {
		cfg.System.Debug = true
	}

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.L().Info("database initialized")
		return
	}

	bus := EventBus.New()
	repo := inventory.NewGormProductRepository(application.DB())
	service := inventory.NewService(application.DB(), repo, bus)
	projector := inventory.NewProjector(repo, bus)

	webserver.Init(application)
	api.Setup(service, projector, foodfacts.NewClient())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application.StartBackgroundJobs(ctx)

	go func() {
		if err := webserver.Listen(); err != nil {
			zap.L().Error("web server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zap.L().Info("shutting down")
}
