// Package de ist die deutschsprachige Schnittstelle zu procdrive. Jede
// Funktion leitet an die gleichnamige englische Operation weiter; die
// Dokumentation liegt im Sprachkatalog und wird mit Hilfe abgefragt.
package de

import (
	"context"
	"time"

	"github.com/banshee-data/procdrive"
	"github.com/banshee-data/procdrive/internal/i18n"
)

const locale = "de-DE"

type (
	Streckenabschnitt = procdrive.TrackPiece
	Spur              = procdrive.Lane
	Spurentyp         = procdrive.LaneScheme
	Verbindung        = procdrive.Link
	Option            = procdrive.Option
)

const (
	DreiSpuren = procdrive.ThreeLanes
	VierSpuren = procdrive.FourLanes

	Links3  = procdrive.Left3
	Mitte3  = procdrive.Middle3
	Rechts3 = procdrive.Right3

	Links4       = procdrive.Left4
	MitteLinks4  = procdrive.MidLeft4
	MitteRechts4 = procdrive.MidRight4
	Rechts4      = procdrive.Right4
)

const (
	StandardBeschleunigung             = procdrive.DefaultAcceleration
	StandardHorizontaleGeschwindigkeit = procdrive.DefaultHorizontalSpeed
	StandardHorizontaleBeschleunigung  = procdrive.DefaultHorizontalAcceleration
	StandardStartGeschwindigkeit       = procdrive.DefaultAlignSpeed

	// Unbegrenzt wartet ohne Zeitlimit.
	Unbegrenzt = procdrive.Forever
)

// Fahrzeug ist ein verbundenes Fahrzeug.
type Fahrzeug struct {
	s *procdrive.Session
}

// MitFahrzeugID wählt ein bestimmtes Fahrzeug aus.
func MitFahrzeugID(id int) Option { return procdrive.WithVehicleID(id) }

// Simulator öffnet eine Verbindung zu einem simulierten Fahrzeug.
func Simulator() Verbindung { return procdrive.OpenSimulator() }

// Verbinde baut die Verbindung zu einem Fahrzeug auf. Ohne MitFahrzeugID
// wird das erste gefundene Fahrzeug gewählt.
func Verbinde(ctx context.Context, v Verbindung, optionen ...Option) (*Fahrzeug, error) {
	s, err := procdrive.Connect(ctx, v, optionen...)
	if err != nil {
		return nil, err
	}
	return &Fahrzeug{s: s}, nil
}

// Sitzung gibt die zugrunde liegende Sitzung zurück.
func (f *Fahrzeug) Sitzung() *procdrive.Session { return f.s }

// Trennen beendet die Verbindung zum Fahrzeug.
func (f *Fahrzeug) Trennen() error { return f.s.Close() }

// WarteAufNeuenStreckenabschnitt wartet auf den nächsten Streckenabschnitt.
// Nach Ablauf der Wartezeit oder ohne Karte ist das Ergebnis nil.
func (f *Fahrzeug) WarteAufNeuenStreckenabschnitt(ctx context.Context, wartezeit time.Duration) (*Streckenabschnitt, error) {
	return f.s.WaitForTrackChange(ctx, wartezeit)
}

// SetzeGeschwindigkeit setzt die Zielgeschwindigkeit in mm/s.
func (f *Fahrzeug) SetzeGeschwindigkeit(geschwindigkeit, beschleunigung int) error {
	return f.s.SetSpeed(geschwindigkeit, beschleunigung)
}

// Anhalten bremst das Fahrzeug bis zum Stillstand.
func (f *Fahrzeug) Anhalten() error { return f.s.Stop() }

// SpurWechseln fährt in die Mitte der angegebenen Spur.
func (f *Fahrzeug) SpurWechseln(spur Spur, horizontaleGeschwindigkeit, horizontaleBeschleunigung int) error {
	return f.s.ChangeLane(spur, horizontaleGeschwindigkeit, horizontaleBeschleunigung)
}

// MittenabstandWechseln fährt auf einen Abstand zur Fahrbahnmitte in mm.
func (f *Fahrzeug) MittenabstandWechseln(mittenabstand float32, horizontaleGeschwindigkeit, horizontaleBeschleunigung int) error {
	return f.s.ChangePosition(mittenabstand, horizontaleGeschwindigkeit, horizontaleBeschleunigung)
}

// GibSpur gibt die aktuelle Spur im gewählten Spurentyp zurück.
func (f *Fahrzeug) GibSpur(spurentyp Spurentyp) (Spur, bool) { return f.s.GetLane(spurentyp) }

// FahreZumStart fährt bis zum Startabschnitt und kehrt erst dort zurück.
func (f *Fahrzeug) FahreZumStart(ctx context.Context, geschwindigkeit int) error {
	return f.s.AlignToStart(ctx, geschwindigkeit)
}

// FahreZumStartImHintergrund kehrt sofort zurück; beiEnde wird nach der
// Ankunft auf einer eigenen Goroutine aufgerufen.
func (f *Fahrzeug) FahreZumStartImHintergrund(geschwindigkeit int, beiEnde func()) error {
	return f.s.AlignToStartAsync(geschwindigkeit, beiEnde)
}

// GibAktuellenStreckenabschnitt gibt den befahrenen Abschnitt zurück, nil solange unbekannt.
func (f *Fahrzeug) GibAktuellenStreckenabschnitt() *Streckenabschnitt { return f.s.CurrentTrackPiece() }

// GibKarte gibt die aufgezeichnete Karte zurück, nil vor der ersten Runde.
func (f *Fahrzeug) GibKarte() []*Streckenabschnitt { return f.s.Map() }

// GibMittenabstand gibt den letzten Abstand zur Fahrbahnmitte zurück.
func (f *Fahrzeug) GibMittenabstand() (float32, bool) { return f.s.RoadOffset() }

// GibGeschwindigkeit gibt die zuletzt gemeldete Geschwindigkeit zurück.
func (f *Fahrzeug) GibGeschwindigkeit() int { return f.s.Speed() }

// GibAktuelleSpur3 gibt die Spur bei drei Spuren zurück.
func (f *Fahrzeug) GibAktuelleSpur3() (procdrive.Lane3, bool) { return f.s.CurrentLane3() }

// GibAktuelleSpur4 gibt die Spur bei vier Spuren zurück.
func (f *Fahrzeug) GibAktuelleSpur4() (procdrive.Lane4, bool) { return f.s.CurrentLane4() }

// GibFahrzeugID gibt die ID des verbundenen Fahrzeugs zurück.
func (f *Fahrzeug) GibFahrzeugID() int { return f.s.VehicleID() }

// Funktionen gibt die Namen aller dokumentierten Funktionen zurück.
func Funktionen() []string {
	entries := i18n.Help(locale)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

// Hilfe gibt die Dokumentation einer Funktion zurück.
func Hilfe(funktion string) (string, bool) {
	for _, e := range i18n.Help(locale) {
		if e.Name == funktion {
			return e.Doc, true
		}
	}
	return "", false
}
