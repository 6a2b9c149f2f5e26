package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/message"

	"github.com/banshee-data/procdrive"
	"github.com/banshee-data/procdrive/internal/config"
	"github.com/banshee-data/procdrive/internal/i18n"
	"github.com/banshee-data/procdrive/internal/recorder"
	"github.com/banshee-data/procdrive/internal/sim"
)

// sessionFlags are shared by every command that talks to a vehicle.
type sessionFlags struct {
	link    string
	layout  string
	config  string
	db      string
	listen  string
	locale  string
	vehicle int
}

func addSessionFlags(fs *flag.FlagSet, env config.Env) *sessionFlags {
	f := &sessionFlags{}
	fs.StringVar(&f.link, "link", env.Link, "bridge: sim, ws://host/ws, or a serial device")
	fs.StringVar(&f.layout, "layout", "", "track layout yaml for -link sim")
	fs.StringVar(&f.config, "config", env.Config, "session config JSON file")
	fs.StringVar(&f.db, "db", env.DB, "sqlite file to record telemetry into")
	fs.StringVar(&f.listen, "listen", env.Listen, "serve admin routes on this address")
	fs.StringVar(&f.locale, "locale", env.Locale, "output locale")
	fs.IntVar(&f.vehicle, "vehicle", 0, "vehicle id, 0 for the first one found")
	return f
}

// rig is everything a command opened and must release.
type rig struct {
	flags  *sessionFlags
	cfg    *config.SessionConfig
	link   procdrive.Link
	db     *recorder.DB
	rec    *recorder.SessionRecorder
	p      *message.Printer
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (f *sessionFlags) open(ctx context.Context) (*rig, error) {
	r := &rig{flags: f, cfg: &config.SessionConfig{}, p: i18n.Printer(f.locale)}
	if f.config != "" {
		cfg, err := config.LoadSessionConfig(f.config)
		if err != nil {
			return nil, err
		}
		r.cfg = cfg
		if f.locale == "" {
			r.p = i18n.Printer(cfg.GetLocale())
		}
	}

	ctx, r.cancel = context.WithCancel(ctx)
	link, err := openLink(ctx, f.link, f.layout, r.cfg.GetSerial())
	if err != nil {
		r.cancel()
		return nil, err
	}
	r.link = link

	if f.db != "" {
		db, err := recorder.Open(f.db)
		if err != nil {
			r.close()
			return nil, fmt.Errorf("failed to open recorder: %w", err)
		}
		r.db = db
	}

	if f.listen != "" {
		r.serve(ctx, f.listen)
	}
	return r, nil
}

func openLink(ctx context.Context, spec, layoutPath string, serialOpts procdrive.SerialOptions) (procdrive.Link, error) {
	switch {
	case spec == "" || spec == "sim":
		layout := sim.DefaultLayout()
		if layoutPath != "" {
			l, err := sim.LoadLayout(layoutPath)
			if err != nil {
				return nil, err
			}
			layout = l
		}
		link, _ := sim.NewLink(ctx, layout)
		return link, nil
	case strings.HasPrefix(spec, "ws://"), strings.HasPrefix(spec, "wss://"):
		return procdrive.DialWebSocket(ctx, spec, nil)
	default:
		return procdrive.OpenSerial(spec, serialOpts)
	}
}

// connect opens a session, recording into the database when one is open.
func (r *rig) connect(ctx context.Context) (*procdrive.Session, error) {
	opts := r.cfg.SessionOptions()
	if r.flags.vehicle > 0 {
		opts = append(opts, procdrive.WithVehicleID(r.flags.vehicle))
	}
	if r.db != nil {
		rec, err := r.db.StartSession(r.flags.vehicle, r.flags.link, time.Now())
		if err != nil {
			return nil, err
		}
		r.rec = rec
		opts = append(opts, procdrive.WithRecorder(rec))
	}

	s, err := procdrive.Connect(ctx, r.link, opts...)
	// Connect closed the link on failure
	r.link = nil
	if err != nil {
		return nil, err
	}
	if r.rec != nil {
		if err := r.rec.SetVehicle(s.VehicleID()); err != nil {
			log.Printf("failed to update session vehicle: %v", err)
		}
	}
	return s, nil
}

func (r *rig) serve(ctx context.Context, listen string) {
	mux := http.NewServeMux()
	if a, ok := r.link.(interface{ AttachAdminRoutes(*http.ServeMux) }); ok {
		a.AttachAdminRoutes(mux)
	}
	if r.db != nil {
		if err := r.db.AttachAdminRoutes(mux); err != nil {
			log.Printf("failed to attach recorder routes: %v", err)
		}
	}

	server := &http.Server{
		Addr:    listen,
		Handler: mux,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			server.Close()
		}
	}()
}

func (r *rig) close() {
	if r.rec != nil {
		if err := r.rec.End(time.Now()); err != nil {
			log.Printf("failed to end recorded session: %v", err)
		}
	}
	if r.link != nil {
		r.link.Close()
	}
	r.cancel()
	r.wg.Wait()
	if r.db != nil {
		r.db.Close()
	}
}
