package recorder

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/procdrive"
	"github.com/banshee-data/procdrive/internal/httputil"
	"github.com/banshee-data/procdrive/internal/monitoring"
	"github.com/banshee-data/procdrive/internal/security"
)

// AttachAdminRoutes mounts the SQL console and speed charts on mux under
// /debug/.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(db.path), db.DB, &tailsql.DBOptions{
		Label: "Drive recordings",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.HandleFunc("speed", "speed chart of the latest session (?session=id)", db.handleSpeedChart)
	debug.HandleSilentFunc("speed.png", db.handleSpeedPNG)
	debug.HandleSilentFunc("sessions", db.handleSessions)
	debug.HandleFunc("backup", "download a backup of the recording database", db.handleBackup)
	return nil
}

type sessionJSON struct {
	ID        string `json:"id"`
	VehicleID int    `json:"vehicle_id"`
	Link      string `json:"link"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
}

func (db *DB) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	sessions, err := db.Sessions()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	out := make([]sessionJSON, 0, len(sessions))
	for _, s := range sessions {
		j := sessionJSON{ID: s.ID, VehicleID: s.VehicleID, Link: s.Link, StartedAt: s.StartedAt.UTC().Format(time.RFC3339Nano)}
		if !s.EndedAt.IsZero() {
			j.EndedAt = s.EndedAt.UTC().Format(time.RFC3339Nano)
		}
		out = append(out, j)
	}
	httputil.WriteJSONOK(w, out)
}

func (db *DB) handleBackup(w http.ResponseWriter, r *http.Request) {
	name := security.SanitizeFilename(strings.TrimSuffix(filepath.Base(db.path), filepath.Ext(db.path)))
	backupPath := filepath.Join(os.TempDir(), fmt.Sprintf("%s-backup-%d.db", name, time.Now().UnixNano()))
	if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to create backup: %v", err))
		return
	}
	defer func() {
		if err := os.Remove(backupPath); err != nil {
			monitoring.Logf("failed to remove backup file: %v", err)
		}
	}()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(backupPath)))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, backupPath)
}

func (db *DB) sessionSamples(w http.ResponseWriter, r *http.Request) (Session, []procdrive.Sample, bool) {
	sess, err := db.LookupSession(r.URL.Query().Get("session"))
	if errors.Is(err, ErrNoSession) {
		httputil.NotFound(w, err.Error())
		return Session{}, nil, false
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return Session{}, nil, false
	}
	samples, err := db.Samples(sess.ID, procdrive.SamplePosition)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return Session{}, nil, false
	}
	return sess, samples, true
}

func (db *DB) handleSpeedChart(w http.ResponseWriter, r *http.Request) {
	sess, samples, ok := db.sessionSamples(w, r)
	if !ok {
		return
	}

	pts := speedSeries(samples)
	xs := make([]string, 0, len(pts))
	ys := make([]opts.LineData, 0, len(pts))
	for _, p := range pts {
		xs = append(xs, fmt.Sprintf("%.2f", p.X))
		ys = append(ys, opts.LineData{Value: p.Y})
	}
	st := ComputeSpeedStats(samples)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Vehicle speed", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Vehicle %d speed", sess.VehicleID),
			Subtitle: fmt.Sprintf("session=%s started=%s mean=%.0f max=%.0f mm/s", sess.ID, sess.StartedAt.Format(time.RFC3339), st.Mean, st.Max),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Speed (mm/s)", NameLocation: "middle", NameGap: 40}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(xs).AddSeries("speed", ys)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		http.Error(w, fmt.Sprintf("failed to render chart: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (db *DB) handleSpeedPNG(w http.ResponseWriter, r *http.Request) {
	sess, samples, ok := db.sessionSamples(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := PlotSpeed(&buf, samples, fmt.Sprintf("Vehicle %d speed", sess.VehicleID)); err != nil {
		httputil.WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}
