package worker

import (
	"context"
	"encoding/json"
	"io"
	"log"

	"github.com/sourcegraph/jsonrpc2"
)

// Notification method names for the two export kinds §5's expansion
// names explicitly.
const (
	MethodProgramExport = "program/export"
	MethodCrashExport   = "crash/export"
)

// ProgramExport is the payload a worker sends when it discovers a
// program worth re-evaluating at the parent. Serialized is the
// program's binary tagged-instruction-stream encoding (internal/serialize).
type ProgramExport struct {
	Serialized []byte `json:"serialized"`
}

// CrashExport is the payload sent for a newly classified crash.
type CrashExport struct {
	Serialized    []byte `json:"serialized"`
	Signature     string `json:"signature"`
	Deterministic bool   `json:"deterministic"`
}

// Handler receives exported programs/crashes re-delivered by a peer's
// Endpoint. Both methods run on whatever goroutine jsonrpc2 delivers
// notifications on; implementations must hop back onto their own
// executor via Executor.Async before touching fuzzer state.
type Handler interface {
	OnProgramExport(ProgramExport)
	OnCrashExport(CrashExport)
}

// Endpoint is one side (worker or parent) of the exchange: it can
// notify its peer and receives the peer's notifications through
// Handler.
type Endpoint struct {
	conn *jsonrpc2.Conn
}

type dispatcher struct {
	handler Handler
}

func (d dispatcher) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if !req.Notif {
		return // only notifications are exchanged; requests are never sent.
	}
	switch req.Method {
	case MethodProgramExport:
		var payload ProgramExport
		if req.Params != nil {
			if err := unmarshal(*req.Params, &payload); err != nil {
				log.Printf("worker: dropping malformed %s: %v", req.Method, err)
				return
			}
		}
		d.handler.OnProgramExport(payload)
	case MethodCrashExport:
		var payload CrashExport
		if req.Params != nil {
			if err := unmarshal(*req.Params, &payload); err != nil {
				log.Printf("worker: dropping malformed %s: %v", req.Method, err)
				return
			}
		}
		d.handler.OnCrashExport(payload)
	}
}

// NewEndpoint wraps rwc in a jsonrpc2 connection, dispatching incoming
// notifications to handler until ctx is cancelled or rwc closes.
func NewEndpoint(ctx context.Context, rwc io.ReadWriteCloser, handler Handler) *Endpoint {
	stream := jsonrpc2.NewPlainObjectStream(rwc)
	conn := jsonrpc2.NewConn(ctx, stream, dispatcher{handler: handler})
	return &Endpoint{conn: conn}
}

// ExportProgram notifies the peer of a program. Best-effort: a send
// error (peer gone, pipe closed) is logged and swallowed rather than
// retried, matching the non-goal of guaranteed delivery.
func (e *Endpoint) ExportProgram(ctx context.Context, p ProgramExport) {
	if err := e.conn.Notify(ctx, MethodProgramExport, p); err != nil {
		log.Printf("worker: dropping program export: %v", err)
	}
}

// ExportCrash notifies the peer of a crash, same best-effort contract
// as ExportProgram.
func (e *Endpoint) ExportCrash(ctx context.Context, c CrashExport) {
	if err := e.conn.Notify(ctx, MethodCrashExport, c); err != nil {
		log.Printf("worker: dropping crash export: %v", err)
	}
}

// Close shuts the underlying connection down.
func (e *Endpoint) Close() error {
	return e.conn.Close()
}

func unmarshal(raw json.RawMessage, v any) error {
	return json.Unmarshal(raw, v)
}
