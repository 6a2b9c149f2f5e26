// Command procdrive-sim serves a simulated vehicle bridge over websocket
// at /ws. Every client gets its own vehicle on the configured layout.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/procdrive/internal/config"
	"github.com/banshee-data/procdrive/internal/monitoring"
	"github.com/banshee-data/procdrive/internal/sim"
	"github.com/banshee-data/procdrive/internal/version"
)

var (
	listen      = flag.String("listen", ":8090", "Listen address")
	layoutPath  = flag.String("layout", "", "Track layout yaml (default: built-in oval)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func newMux(layout sim.Layout) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", sim.Handler(layout))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "procdrive-sim %s\nvehicle %d on %d pieces, connect to /ws\n",
			version.Version, layout.VehicleID, len(layout.Pieces))
	})
	return mux
}

func loadLayout(path string) (sim.Layout, error) {
	if path == "" {
		return sim.DefaultLayout(), nil
	}
	return sim.LoadLayout(path)
}

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}

	env, err := config.LoadEnv(".env")
	if err != nil {
		log.Fatalf("failed to load environment: %v", err)
	}
	monitoring.SetDebug(env.Debug)

	layout, err := loadLayout(*layoutPath)
	if err != nil {
		log.Fatalf("failed to load layout: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:    *listen,
		Handler: newMux(layout),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
			stop()
		}
	}()
	log.Printf("simulated bridge listening on %s/ws", *listen)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		server.Close()
	}
	log.Printf("Graceful shutdown complete")
}
