package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu       sync.Mutex
	programs []ProgramExport
	crashes  []CrashExport
	got      chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{got: make(chan struct{}, 8)}
}

func (h *recordingHandler) OnProgramExport(p ProgramExport) {
	h.mu.Lock()
	h.programs = append(h.programs, p)
	h.mu.Unlock()
	h.got <- struct{}{}
}

func (h *recordingHandler) OnCrashExport(c CrashExport) {
	h.mu.Lock()
	h.crashes = append(h.crashes, c)
	h.mu.Unlock()
	h.got <- struct{}{}
}

func TestEndpointDeliversProgramExportToPeer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	parentConn, childConn := NewLocalPair()
	parentHandler := newRecordingHandler()
	childHandler := newRecordingHandler()

	parent := NewEndpoint(ctx, parentConn, parentHandler)
	defer parent.Close()
	child := NewEndpoint(ctx, childConn, childHandler)
	defer child.Close()

	child.ExportProgram(ctx, ProgramExport{Serialized: []byte{1, 2, 3}})

	select {
	case <-parentHandler.got:
	case <-time.After(2 * time.Second):
		t.Fatal("parent never received program export")
	}

	parentHandler.mu.Lock()
	defer parentHandler.mu.Unlock()
	require.Len(t, parentHandler.programs, 1)
	assert.Equal(t, []byte{1, 2, 3}, parentHandler.programs[0].Serialized)
}

func TestEndpointDeliversCrashExportToPeer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	parentConn, childConn := NewLocalPair()
	parentHandler := newRecordingHandler()
	childHandler := newRecordingHandler()

	parent := NewEndpoint(ctx, parentConn, parentHandler)
	defer parent.Close()
	child := NewEndpoint(ctx, childConn, childHandler)
	defer child.Close()

	child.ExportCrash(ctx, CrashExport{Signature: "deadbeef", Deterministic: true})

	select {
	case <-parentHandler.got:
	case <-time.After(2 * time.Second):
		t.Fatal("parent never received crash export")
	}

	parentHandler.mu.Lock()
	defer parentHandler.mu.Unlock()
	require.Len(t, parentHandler.crashes, 1)
	assert.True(t, parentHandler.crashes[0].Deterministic)
}
