// Package bridge formats and parses the text lines spoken between the host
// and a vehicle bridge (a BLE dongle on a serial port, or the simulator).
//
// Each line is a lower-case verb followed by space separated arguments:
//
//	host -> bridge   scan | conn <id> | tx <hex> | disc
//	bridge -> host   adv <id> <addr> | ok <id> | err <id> <reason...> | rx <hex>
package bridge

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/procdrive/internal/protocol"
)

// Verbs.
const (
	VerbScan       = "scan"
	VerbAdvertise  = "adv"
	VerbConnect    = "conn"
	VerbConnected  = "ok"
	VerbError      = "err"
	VerbTransmit   = "tx"
	VerbReceive    = "rx"
	VerbDisconnect = "disc"
)

// Kind classifies a line.
type Kind int

const (
	KindUnknown Kind = iota
	KindScan
	KindAdvertise
	KindConnect
	KindConnected
	KindError
	KindTransmit
	KindReceive
	KindDisconnect
)

func (k Kind) String() string {
	switch k {
	case KindScan:
		return VerbScan
	case KindAdvertise:
		return VerbAdvertise
	case KindConnect:
		return VerbConnect
	case KindConnected:
		return VerbConnected
	case KindError:
		return VerbError
	case KindTransmit:
		return VerbTransmit
	case KindReceive:
		return VerbReceive
	case KindDisconnect:
		return VerbDisconnect
	default:
		return "unknown"
	}
}

// Line is one parsed bridge line. Only the fields relevant to Kind are set.
type Line struct {
	Kind      Kind
	VehicleID int
	Address   string
	Reason    string
	Frame     []byte
}

// Scan returns the line that starts vehicle discovery.
func Scan() string { return VerbScan }

// Advertise returns the line announcing a reachable vehicle.
func Advertise(id int, addr string) string {
	return fmt.Sprintf("%s %d %s", VerbAdvertise, id, addr)
}

// Connect returns the line asking the bridge to connect a vehicle.
func Connect(id int) string {
	return fmt.Sprintf("%s %d", VerbConnect, id)
}

// Connected returns the success reply to Connect.
func Connected(id int) string {
	return fmt.Sprintf("%s %d", VerbConnected, id)
}

// Error returns the failure reply to Connect.
func Error(id int, reason string) string {
	return fmt.Sprintf("%s %d %s", VerbError, id, reason)
}

// Disconnect returns the line dropping the current vehicle.
func Disconnect() string { return VerbDisconnect }

// Transmit wraps a vehicle message for sending through the bridge.
func Transmit(m protocol.Message) string {
	return VerbTransmit + " " + hex.EncodeToString(protocol.Marshal(m))
}

// Receive wraps a vehicle message the bridge received.
func Receive(m protocol.Message) string {
	return VerbReceive + " " + hex.EncodeToString(protocol.Marshal(m))
}

// Parse splits a raw line into its parts. Lines with an unknown verb parse
// as KindUnknown without error; malformed arguments to a known verb are an
// error.
func Parse(raw string) (Line, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Line{Kind: KindUnknown}, nil
	}

	verb := strings.ToLower(fields[0])
	args := fields[1:]

	switch verb {
	case VerbScan:
		return Line{Kind: KindScan}, nil
	case VerbDisconnect:
		return Line{Kind: KindDisconnect}, nil
	case VerbAdvertise:
		if len(args) < 1 {
			return Line{}, fmt.Errorf("%s: missing vehicle id", verb)
		}
		id, err := parseID(args[0])
		if err != nil {
			return Line{}, fmt.Errorf("%s: %w", verb, err)
		}
		l := Line{Kind: KindAdvertise, VehicleID: id}
		if len(args) > 1 {
			l.Address = args[1]
		}
		return l, nil
	case VerbConnect, VerbConnected:
		if len(args) < 1 {
			return Line{}, fmt.Errorf("%s: missing vehicle id", verb)
		}
		id, err := parseID(args[0])
		if err != nil {
			return Line{}, fmt.Errorf("%s: %w", verb, err)
		}
		kind := KindConnect
		if verb == VerbConnected {
			kind = KindConnected
		}
		return Line{Kind: kind, VehicleID: id}, nil
	case VerbError:
		if len(args) < 1 {
			return Line{}, fmt.Errorf("%s: missing vehicle id", verb)
		}
		id, err := parseID(args[0])
		if err != nil {
			return Line{}, fmt.Errorf("%s: %w", verb, err)
		}
		return Line{Kind: KindError, VehicleID: id, Reason: strings.Join(args[1:], " ")}, nil
	case VerbTransmit, VerbReceive:
		if len(args) != 1 {
			return Line{}, fmt.Errorf("%s: expected one hex frame, got %d fields", verb, len(args))
		}
		frame, err := hex.DecodeString(args[0])
		if err != nil {
			return Line{}, fmt.Errorf("%s: invalid hex frame: %w", verb, err)
		}
		kind := KindTransmit
		if verb == VerbReceive {
			kind = KindReceive
		}
		return Line{Kind: kind, Frame: frame}, nil
	default:
		return Line{Kind: KindUnknown}, nil
	}
}

// Message decodes the vehicle message carried by a tx or rx line.
func (l Line) Message() (protocol.Message, error) {
	if l.Kind != KindTransmit && l.Kind != KindReceive {
		return nil, fmt.Errorf("%s line carries no vehicle message", l.Kind)
	}
	return protocol.Unmarshal(l.Frame)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid vehicle id %q", s)
	}
	if id < 0 {
		return 0, fmt.Errorf("invalid vehicle id %d: must be non-negative", id)
	}
	return id, nil
}
