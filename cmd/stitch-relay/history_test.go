package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-stitch-relay/internal/model"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "worker", "history"}, names)
}

func TestHistoryRequiresInstallation(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"history"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	require.Error(t, root.Execute())
}

func TestRenderHistory(t *testing.T) {
	var out bytes.Buffer
	cmd := newHistoryCmd()
	cmd.SetOut(&out)

	renderHistory(cmd, []model.ProcessingRequest{
		{
			RequestID:  "req-2",
			ArtifactID: "art-2",
			Status:     model.StatusDownloadFailed,
			HTTPStatus: 503,
			CreatedAt:  time.Now().Add(-time.Minute),
		},
		{
			RequestID:   "req-1",
			ArtifactID:  "art-1",
			Status:      model.StatusCompleted,
			DisplayName: "clip",
			CreatedAt:   time.Now().Add(-time.Hour),
		},
	})

	text := out.String()
	assert.Contains(t, text, "REQUEST")
	assert.Contains(t, text, "req-2")
	assert.Contains(t, text, "DOWNLOAD_FAILED")
	assert.Contains(t, text, "503")
	assert.Contains(t, text, "clip")
	assert.Contains(t, text, "ago")
}
