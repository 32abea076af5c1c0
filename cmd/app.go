package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/goatnetwork/qlink/internal/broadcast"
	"github.com/goatnetwork/qlink/internal/config"
	"github.com/goatnetwork/qlink/internal/db"
	"github.com/goatnetwork/qlink/internal/http"
	"github.com/goatnetwork/qlink/internal/metrics"
	"github.com/goatnetwork/qlink/internal/scanner"
	"github.com/goatnetwork/qlink/internal/state"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	DatabaseManager *db.DatabaseManager
	State           *state.State
	Scanner         *scanner.Scanner
	UnixBroadcast   *broadcast.UnixBroadcast
	MetricsReporter *metrics.Reporter
	HTTPServer      *http.HTTPServer
}

func NewApplication() *Application {
	config.InitConfig()

	dbm := db.NewDatabaseManager()
	state := state.InitializeState(dbm)
	app := &Application{
		DatabaseManager: dbm,
		State:           state,
		Scanner:         scanner.NewScanner(state),
	}

	if config.AppConfig.UnixSocket != "" {
		ub, err := broadcast.NewUnixBroadcast(state, config.AppConfig.UnixSocket)
		if err != nil {
			log.Fatalf("Failed to start unix broadcast: %v", err)
		}
		app.UnixBroadcast = ub
	}
	if config.AppConfig.MetricsEnabled {
		app.MetricsReporter = metrics.NewReporter(config.AppConfig.MetricsInterval)
	}
	if config.AppConfig.HTTPEnabled {
		app.HTTPServer = http.NewHTTPServer(state, app.MetricsReporter)
	}
	return app
}

func (app *Application) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	scanDone := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.State.Start(ctx)
	}()

	if app.UnixBroadcast != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.UnixBroadcast.Start(ctx)
		}()
	}

	if app.MetricsReporter != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.MetricsReporter.Start(ctx)
		}()
	}

	if app.HTTPServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.HTTPServer.Start(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(scanDone)
		app.Scanner.Start(ctx)
	}()

	select {
	case <-stop:
		log.Info("Receiving exit signal...")
	case <-scanDone:
		// In watch mode the API keeps serving after the input is exhausted.
		if config.AppConfig.Watch && app.HTTPServer != nil {
			<-stop
			log.Info("Receiving exit signal...")
		}
	}

	cancel()

	wg.Wait()
	if err := app.DatabaseManager.Close(); err != nil {
		log.Warnf("Failed to close database: %v", err)
	}
	log.Info("Server stopped")
}

func main() {
	app := NewApplication()
	app.Run()
}
