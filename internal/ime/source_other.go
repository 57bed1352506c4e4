//go:build !windows && !darwin && !linux

package ime

import "context"

type fallbackSource struct{}

// NewPlatformSource creates a Source that always reports unavailable,
// the expected behavior on platforms with no IME integration.
func NewPlatformSource() Source { return fallbackSource{} }

func (fallbackSource) InputSourceOpen(ctx context.Context) (bool, bool) { return false, false }
func (fallbackSource) CandidateWindowVisible() bool                    { return false }
func (fallbackSource) AccessibilityFocusIsCandidate() bool             { return false }
