// Package ui defines the UI collaborator's capability surface: the set of
// named-channel events the core publishes and the handful of commands the
// UI may call back into the core. No rendering lives here — building the
// dashboard/overlay surface itself is out of scope, so this package only
// generalizes a message-type/command catalogue shape into a plain Go
// interface.
package ui

import (
	"gse/internal/engine"
	"gse/internal/intervention"
)

// Channel names the Supervisor publishes events on.
const (
	ChannelCognitiveStateUpdate = "cognitive-state-update"
	ChannelSensorAccelerometer  = "sensor-accelerometer"
	ChannelInterventionState    = "intervention-state"
)

// CognitiveStateUpdate is the payload of ChannelCognitiveStateUpdate,
// published once per Supervisor analysis tick (at most about 1 Hz); there
// is no separate 2 Hz refresh.
type CognitiveStateUpdate struct {
	PFlow  float64
	PInc   float64
	PStuck float64
}

// FromBelief converts an engine.Belief into the wire-shaped update payload.
func FromBelief(b engine.Belief) CognitiveStateUpdate {
	return CognitiveStateUpdate{PFlow: b.PFlow, PInc: b.PInc, PStuck: b.PStuck}
}

// SensorAccelerometer is the payload of ChannelSensorAccelerometer: "move"
// on motion detection, empty otherwise.
type SensorAccelerometer struct {
	Move bool
}

// Collaborator is the publish side the Supervisor holds a handle to.
type Collaborator interface {
	PublishCognitiveState(update CognitiveStateUpdate)
	PublishSensorAccelerometer(event SensorAccelerometer)
	PublishInterventionState(state intervention.State)
}

// Commands is the call side: the four operations the UI may invoke on the
// core.
type Commands interface {
	// GetCognitiveState returns the current display belief.
	GetCognitiveState() CognitiveStateUpdate

	// GetHookStatus reports whether the keystroke hook is currently alive.
	GetHookStatus() bool

	// QuitApp requests an orderly shutdown of the Supervisor.
	QuitApp()

	// StartWallServer and StopWallServer toggle the optional out-of-band
	// Wall-unlock channel (e.g. a companion mobile app posting a motion
	// event over the network instead of the desktop accelerometer).
	StartWallServer() error
	StopWallServer() error
}

// NullCollaborator discards every published event. It is the default
// handle a headless Supervisor (e.g. the one cmd/gse builds) holds when no real UI
// is attached.
type NullCollaborator struct{}

func (NullCollaborator) PublishCognitiveState(CognitiveStateUpdate)     {}
func (NullCollaborator) PublishSensorAccelerometer(SensorAccelerometer) {}
func (NullCollaborator) PublishInterventionState(intervention.State)    {}

var _ Collaborator = NullCollaborator{}
