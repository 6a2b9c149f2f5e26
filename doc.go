// Package procdrive drives a single track-following toy vehicle through a
// vehicle bridge.
//
// A Session owns one bridge link. Connect discovers and connects the
// vehicle, switches it into host-controlled mode, and starts consuming its
// telemetry. From then on the session tracks the vehicle's speed, road
// offset and road piece, records a map of the track on the first full lap,
// and follows the vehicle around that map.
//
// Commands (SetSpeed, Stop, ChangeLane, ChangePosition) are queued and
// return immediately. The vehicle reacts to them over the following
// telemetry updates. Two operations block: AlignToStart drives until the
// vehicle reaches the start piece, and WaitForTrackChange returns when the
// vehicle enters the next mapped piece or a timeout passes.
//
// The bridge speaks a small line protocol. It can sit behind a serial
// port (OpenSerial), a websocket (DialWebSocket) or an in-process
// simulator (OpenSimulator).
package procdrive
