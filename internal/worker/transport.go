// Package worker implements the best-effort program/crash exchange
// between a worker fuzzer and its parent (§5 expansion): JSON-RPC 2.0
// notifications carried over an in-process io.Pipe-backed duplex pair,
// with drops tolerated rather than retried or acknowledged.
package worker

import "io"

// duplexPipe joins two unidirectional io.Pipes into one
// io.ReadWriteCloser, so jsonrpc2's stream wrapper can treat an
// in-process worker/parent pair like any other connection.
type duplexPipe struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (d duplexPipe) Read(p []byte) (int, error)  { return d.r.Read(p) }
func (d duplexPipe) Write(p []byte) (int, error) { return d.w.Write(p) }
func (d duplexPipe) Close() error {
	werr := d.w.Close()
	rerr := d.r.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// NewLocalPair builds two connected duplexPipe endpoints: writes on
// one side arrive as reads on the other, in both directions.
func NewLocalPair() (parent, child io.ReadWriteCloser) {
	parentR, childW := io.Pipe()
	childR, parentW := io.Pipe()
	return duplexPipe{r: parentR, w: parentW}, duplexPipe{r: childR, w: childW}
}
