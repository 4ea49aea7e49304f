package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusQueued, StatusDownloading, StatusEncoding} {
		assert.False(t, s.IsTerminal(), s)
	}
	for _, s := range []Status{StatusCompleted, StatusUnrecognizedFormat, StatusDownloadFailed,
		StatusNetworkError, StatusEncodingFault, StatusInternalFault} {
		assert.True(t, s.IsTerminal(), s)
	}
}

func TestCanTransitionForwardOnly(t *testing.T) {
	assert.True(t, CanTransition(StatusQueued, StatusDownloading))
	assert.True(t, CanTransition(StatusDownloading, StatusEncoding))
	assert.True(t, CanTransition(StatusEncoding, StatusCompleted))
	assert.True(t, CanTransition(StatusDownloading, StatusDownloadFailed))

	assert.False(t, CanTransition(StatusEncoding, StatusDownloading))
	assert.False(t, CanTransition(StatusCompleted, StatusQueued))
	assert.False(t, CanTransition(StatusQueued, StatusCompleted))
	assert.False(t, CanTransition(StatusEncoding, StatusDownloadFailed))
}
