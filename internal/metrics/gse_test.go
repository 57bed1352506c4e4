package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGSEMetrics_RecordTickUpdatesBeliefGauges(t *testing.T) {
	m := NewGSEMetrics(NewRegistry("test", ""))
	m.RecordTick(5*time.Millisecond, 0.7, 0.2, 0.1)

	require.Equal(t, uint64(1), m.TicksTotal.Value())
	require.Equal(t, int64(700), m.BeliefPFlowPermille.Value())
	require.Equal(t, int64(200), m.BeliefPIncPermille.Value())
	require.Equal(t, int64(100), m.BeliefPStuckPermille.Value())
}

func TestGSEMetrics_RecordInterventionIncrementsOnlyOnEscalation(t *testing.T) {
	m := NewGSEMetrics(NewRegistry("test", ""))
	m.RecordIntervention(1)
	m.SetInterventionState(0)

	require.Equal(t, uint64(1), m.InterventionsTotal.Value())
	require.Equal(t, int64(0), m.InterventionState.Value())
}

func TestGSEMetrics_SetHookAlive(t *testing.T) {
	m := NewGSEMetrics(NewRegistry("test", ""))
	m.SetHookAlive(true)
	require.Equal(t, int64(1), m.HookAlive.Value())
	m.SetHookAlive(false)
	require.Equal(t, int64(0), m.HookAlive.Value())
}
