package ui

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gse/internal/engine"
)

func TestFromBelief(t *testing.T) {
	b := engine.Belief{PFlow: 0.5, PInc: 0.3, PStuck: 0.2}
	update := FromBelief(b)
	require.Equal(t, CognitiveStateUpdate{PFlow: 0.5, PInc: 0.3, PStuck: 0.2}, update)
}

func TestNullCollaborator_DiscardsEverything(t *testing.T) {
	var c Collaborator = NullCollaborator{}
	require.NotPanics(t, func() {
		c.PublishCognitiveState(CognitiveStateUpdate{})
		c.PublishSensorAccelerometer(SensorAccelerometer{Move: true})
	})
}
