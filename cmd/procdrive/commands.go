package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/banshee-data/procdrive"
	"github.com/banshee-data/procdrive/internal/bridge"
	"github.com/banshee-data/procdrive/internal/config"
	"github.com/banshee-data/procdrive/internal/i18n"
	"github.com/banshee-data/procdrive/internal/recorder"
	"github.com/banshee-data/procdrive/internal/security"
	"github.com/banshee-data/procdrive/internal/units"
)

func runDrive(ctx context.Context, env config.Env, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("drive", flag.ContinueOnError)
	sf := addSessionFlags(fs, env)
	speed := fs.Int("speed", 400, "target speed in mm/s")
	duration := fs.Duration("duration", 10*time.Second, "how long to drive")
	scan := fs.Bool("scan", false, "record the track map first")
	align := fs.Bool("align", false, "drive to the start piece first")
	lane := fs.String("lane", "", "lane to change into, e.g. left, mid-right")
	lanes := fs.Int("lanes", 4, "lane scheme for -lane: 3 or 4")
	unit := fs.String("units", units.MMPS, "speed units: "+units.GetValidUnitsString())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !units.IsValid(*unit) {
		return fmt.Errorf("invalid units %q, want one of %s", *unit, units.GetValidUnitsString())
	}
	var target procdrive.Lane
	if *lane != "" {
		l, err := parseLane(*lane, procdrive.LaneScheme(*lanes))
		if err != nil {
			return err
		}
		target = l
	}

	r, err := sf.open(ctx)
	if err != nil {
		return err
	}
	defer r.close()

	s, err := r.connect(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	printConnected(out, r, s)

	if *scan {
		m, err := s.Scan(ctx, r.cfg.GetScanSpeed())
		if err != nil {
			return err
		}
		printMap(out, r, m)
	}
	if *align {
		if err := s.AlignToStart(ctx, r.cfg.GetAlignSpeed()); err != nil {
			return err
		}
		fmt.Fprintln(out, r.p.Sprintf("cli.aligned"))
	}

	if err := s.SetSpeed(*speed, r.cfg.GetAcceleration()); err != nil {
		return err
	}
	if target != nil {
		if err := s.ChangeLane(target, r.cfg.GetHorizontalSpeed(), r.cfg.GetHorizontalAcceleration()); err != nil {
			return err
		}
	}

	driveCtx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()
	for {
		if s.Map() != nil {
			if _, err := s.WaitForTrackChange(driveCtx, time.Second); err != nil {
				break
			}
		} else {
			select {
			case <-tick.C:
			case <-driveCtx.Done():
			case <-s.Done():
			}
			if driveCtx.Err() != nil {
				break
			}
		}
		if isClosed(s) {
			return procdrive.ErrClosed
		}
		printTelemetry(out, r, s, *unit)
	}

	if err := s.Stop(); err != nil {
		return err
	}
	fmt.Fprintln(out, r.p.Sprintf("cli.stopped"))
	return nil
}

func runScan(ctx context.Context, env config.Env, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	sf := addSessionFlags(fs, env)
	timeout := fs.Duration("timeout", time.Minute, "give up after this long")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r, err := sf.open(ctx)
	if err != nil {
		return err
	}
	defer r.close()

	s, err := r.connect(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	printConnected(out, r, s)

	scanCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	m, err := s.Scan(scanCtx, r.cfg.GetScanSpeed())
	if err != nil {
		return err
	}
	printMap(out, r, m)
	return s.Stop()
}

func runTail(ctx context.Context, env config.Env, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("tail", flag.ContinueOnError)
	sf := addSessionFlags(fs, env)
	duration := fs.Duration("duration", 0, "stop after this long, 0 to run until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	r, err := sf.open(ctx)
	if err != nil {
		return err
	}
	defer r.close()

	link := r.link
	id, lines := link.Subscribe()
	defer link.Unsubscribe(id)

	monitorErr := make(chan error, 1)
	go func() { monitorErr <- link.Monitor(ctx) }()

	if err := link.SendCommand(bridge.Scan()); err != nil {
		return err
	}
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			fmt.Fprintln(out, line)
		case err := <-monitorErr:
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func runReport(ctx context.Context, env config.Env, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	dbPath := fs.String("db", env.DB, "sqlite recording file")
	session := fs.String("session", "", "session id, default the latest")
	png := fs.String("png", "", "write a speed plot to this file")
	locale := fs.String("locale", env.Locale, "output locale")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbPath == "" {
		return fmt.Errorf("-db is required")
	}
	if *png != "" {
		if err := security.ValidateOutputPath(*png); err != nil {
			return err
		}
	}
	p := i18n.Printer(*locale)

	db, err := recorder.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	sess, err := db.LookupSession(*session)
	if err != nil {
		return err
	}
	samples, err := db.Samples(sess.ID, procdrive.SamplePosition)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Fprintln(out, p.Sprintf("cli.no_samples", sess.ID))
		return nil
	}

	st := recorder.ComputeSpeedStats(samples)
	fmt.Fprintln(out, p.Sprintf("cli.stats", st.Count, st.Mean, st.StdDev, st.Max))

	if *png != "" {
		f, err := os.Create(*png)
		if err != nil {
			return err
		}
		if err := recorder.PlotSpeed(f, samples, fmt.Sprintf("Vehicle %d", sess.VehicleID)); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintln(out, p.Sprintf("cli.plot_written", *png))
	}
	return nil
}

func runHelp(ctx context.Context, env config.Env, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("help", flag.ContinueOnError)
	locale := fs.String("locale", env.Locale, "documentation locale")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p := i18n.Printer(*locale)

	if op := fs.Arg(0); op != "" {
		e, ok := i18n.Lookup(*locale, op)
		if !ok {
			return errors.New(p.Sprintf("cli.unknown_op", op))
		}
		printHelpEntry(out, e)
		return nil
	}

	fmt.Fprintln(out, p.Sprintf("cli.help_header"))
	for _, e := range i18n.Help(*locale) {
		printHelpEntry(out, e)
	}
	return nil
}

func printHelpEntry(out io.Writer, e i18n.HelpEntry) {
	fmt.Fprintf(out, "\n%s (%s)\n", e.Name, e.Op)
	for _, line := range strings.Split(strings.TrimSpace(e.Doc), "\n") {
		fmt.Fprintf(out, "    %s\n", line)
	}
}

func printConnected(out io.Writer, r *rig, s *procdrive.Session) {
	fmt.Fprintln(out, r.p.Sprintf("cli.connected", s.VehicleID(), s.Address()))
	if mv, ok := s.Battery(); ok {
		fmt.Fprintln(out, r.p.Sprintf("cli.battery", mv))
	}
	if r.rec != nil {
		fmt.Fprintln(out, r.p.Sprintf("cli.session", r.rec.ID()))
	}
}

func printMap(out io.Writer, r *rig, m []*procdrive.TrackPiece) {
	fmt.Fprintln(out, r.p.Sprintf("cli.map_recorded", len(m)))
	for _, piece := range m {
		fmt.Fprintln(out, r.p.Sprintf("cli.piece", piece.Index, piece.RoadPieceID, piece.Type))
	}
}

func printTelemetry(out io.Writer, r *rig, s *procdrive.Session, unit string) {
	piece := "-"
	if p := s.CurrentTrackPiece(); p != nil {
		piece = fmt.Sprintf("%d/%v", p.RoadPieceID, p.Type)
	}
	offset, _ := s.RoadOffset()
	speed := units.ConvertSpeed(float64(s.Speed()), unit)
	fmt.Fprintln(out, r.p.Sprintf("cli.telemetry", piece, offset, speed, units.Label(unit)))
}

func isClosed(s *procdrive.Session) bool {
	select {
	case <-s.Done():
		return true
	default:
		return false
	}
}

// parseLane resolves a lane name in scheme.
func parseLane(name string, scheme procdrive.LaneScheme) (procdrive.Lane, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch scheme {
	case procdrive.ThreeLanes:
		for _, l := range []procdrive.Lane3{procdrive.Left3, procdrive.Middle3, procdrive.Right3} {
			if l.String() == name {
				return l, nil
			}
		}
	case procdrive.FourLanes:
		for _, l := range []procdrive.Lane4{procdrive.Left4, procdrive.MidLeft4, procdrive.MidRight4, procdrive.Right4} {
			if l.String() == name {
				return l, nil
			}
		}
	default:
		return nil, fmt.Errorf("invalid lane scheme %d, want 3 or 4", scheme)
	}
	return nil, fmt.Errorf("unknown %v lane %q", scheme, name)
}
