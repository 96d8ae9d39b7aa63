// Package reprl drives a persistent Lua interpreter child process over
// the fixed-descriptor read-eval-print-reset-loop protocol described in
// §4.11: one HELO handshake per process lifetime, then one "cexe"
// header plus script bytes per execution, with the child echoing a
// 4-byte exit status word and resetting its global state in place
// instead of re-executing from scratch.
package reprl

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"

	"luafuzz/internal/fuzzerr"
)

// Config controls how a Runner spawns and respawns its child.
type Config struct {
	// InterpreterPath is the instrumented Lua binary (or a wrapper
	// script around it) to exec.
	InterpreterPath string
	// Args are extra arguments passed to InterpreterPath.
	Args []string
	// RespawnEvery restarts the child after this many executions, to
	// bound the damage a slow state leak does. Zero disables the limit.
	RespawnEvery int
	// HandshakeTimeout bounds how long Start waits for the child's HELO
	// reply before giving up.
	HandshakeTimeout time.Duration
	// ExecutionTimeout bounds a single Execute call: a script that
	// hangs (e.g. an unbounded loop) past this deadline gets its child
	// killed and respawned rather than blocking the executor forever,
	// per §4.11's respawn-on-hang policy.
	ExecutionTimeout time.Duration
}

// ExecResult is what one Execute call reports back.
type ExecResult struct {
	ExitCode int
	Signal   int
	Crashed  bool
	TimedOut bool
	NewEdges []uint32
	Duration time.Duration
}

// Runner owns one REPRL child process and its paired coverage map.
// It is not safe for concurrent use by multiple goroutines; the
// executor serializes calls through a single owning goroutine per
// instance (see internal/executor).
type Runner struct {
	cfg       Config
	cmd       *exec.Cmd
	ctrlW     *os.File
	ctrlRFile *os.File
	ctrlR     *bufio.Reader
	dataW     *os.File
	cov       *CoverageMap
	execs     int
}

// NewRunner constructs an unstarted Runner. Call Start before Execute.
func NewRunner(cfg Config) *Runner {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}
	if cfg.ExecutionTimeout == 0 {
		cfg.ExecutionTimeout = 2 * time.Second
	}
	return &Runner{cfg: cfg}
}

// Timeout reports the per-execution deadline this Runner enforces.
func (r *Runner) Timeout() time.Duration { return r.cfg.ExecutionTimeout }

// fdRenumberScript renumbers the four inherited pipe fds (3-6, the
// order exec.Cmd.ExtraFiles guarantees) onto the fixed fds 100-103 the
// REPRL protocol requires, then execs the real interpreter. A plain
// shell is the idiomatic way to get fds past 2 onto specific numbers
// without relying on the child binary itself knowing about the
// renumbering; the alternative (dup2 in a pre-exec hook) isn't
// reachable from exec.Cmd without cgo or a forkExec wrapper.
const fdRenumberScript = `exec 100<&3 101>&4 102<&5 103>&6 3<&- 4<&- 5<&- 6<&-
exec "$0" "$@"`

// Start spawns the child, maps its coverage region, and performs the
// handshake.
func (r *Runner) Start() error {
	cov, err := newCoverageMap()
	if err != nil {
		return err
	}
	r.cov = cov

	childCtrlR, parentCtrlW, err := pipePair()
	if err != nil {
		cov.Close()
		return err
	}
	parentCtrlR, childCtrlW, err := pipePair()
	if err != nil {
		cov.Close()
		childCtrlR.Close()
		parentCtrlW.Close()
		return err
	}
	childDataR, parentDataW, err := pipePair()
	if err != nil {
		cov.Close()
		childCtrlR.Close()
		parentCtrlW.Close()
		parentCtrlR.Close()
		childCtrlW.Close()
		return err
	}

	args := append([]string{r.cfg.InterpreterPath}, r.cfg.Args...)
	cmd := exec.Command("/bin/sh", append([]string{"-c", fdRenumberScript}, args...)...)
	cmd.ExtraFiles = []*os.File{childCtrlR, childCtrlW, childDataR}
	cmd.Env = append(os.Environ(), fmt.Sprintf("LUAFUZZ_COVFD=%d", cov.Fd()))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cov.Close()
		childCtrlR.Close()
		childCtrlW.Close()
		childDataR.Close()
		parentCtrlW.Close()
		parentCtrlR.Close()
		parentDataW.Close()
		return fuzzerr.Wrap(fuzzerr.CodeHandshakeFailed, err)
	}
	childCtrlR.Close()
	childCtrlW.Close()
	childDataR.Close()

	r.cmd = cmd
	r.ctrlW = parentCtrlW
	r.ctrlRFile = parentCtrlR
	r.ctrlR = bufio.NewReader(parentCtrlR)
	r.dataW = parentDataW

	return r.handshake()
}

func pipePair() (read, write *os.File, err error) {
	fds, err := unix.Pipe2(unix.O_CLOEXEC)
	if err != nil {
		return nil, nil, fuzzerr.Wrap(fuzzerr.CodeHandshakeFailed, err)
	}
	return os.NewFile(uintptr(fds[0]), "reprl-r"), os.NewFile(uintptr(fds[1]), "reprl-w"), nil
}

func (r *Runner) handshake() error {
	done := make(chan error, 1)
	go func() {
		if _, err := r.ctrlW.Write(helloTag[:]); err != nil {
			done <- fuzzerr.HandshakeError(fuzzerr.CodeHandshakeFailed, r.pid(), err)
			return
		}
		reply := make([]byte, 4)
		if _, err := r.ctrlR.Read(reply); err != nil {
			done <- fuzzerr.HandshakeError(fuzzerr.CodeHandshakeFailed, r.pid(), err)
			return
		}
		done <- verifyHandshake(reply)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.cfg.HandshakeTimeout):
		return fuzzerr.HandshakeError(fuzzerr.CodeHandshakeTimeout, r.pid(), fmt.Errorf("no reply within %s", r.cfg.HandshakeTimeout))
	}
}

func (r *Runner) pid() int {
	if r.cmd == nil || r.cmd.Process == nil {
		return 0
	}
	return r.cmd.Process.Pid
}

// Execute sends one Lua script through the running child and reports
// its outcome. It respawns the child first if RespawnEvery has been
// reached, and bounds the whole round trip by cfg.ExecutionTimeout.
func (r *Runner) Execute(script []byte, found *EdgeSet) (ExecResult, error) {
	return r.ExecuteWithTimeout(script, found, r.cfg.ExecutionTimeout)
}

// ExecuteWithTimeout is Execute with an explicit per-call deadline,
// overriding cfg.ExecutionTimeout; the crash classifier uses this to
// re-run a crashing script at double the original timeout (§4.11).
func (r *Runner) ExecuteWithTimeout(script []byte, found *EdgeSet, timeout time.Duration) (ExecResult, error) {
	if r.cfg.RespawnEvery > 0 && r.execs >= r.cfg.RespawnEvery {
		if err := r.Stop(); err != nil {
			return ExecResult{}, err
		}
		if err := r.Start(); err != nil {
			return ExecResult{}, err
		}
	}

	start := time.Now()
	var deadline time.Time
	if timeout > 0 {
		deadline = start.Add(timeout)
	}
	r.ctrlW.SetWriteDeadline(deadline)
	r.dataW.SetWriteDeadline(deadline)
	r.ctrlRFile.SetReadDeadline(deadline)

	header := encodeExecHeader(len(script))
	if _, err := r.ctrlW.Write(header); err != nil {
		if isTimeout(err) {
			return r.respawnAfterTimeout(start)
		}
		return ExecResult{}, fuzzerr.HandshakeError(fuzzerr.CodeHandshakeFailed, r.pid(), err)
	}
	if _, err := r.dataW.Write(script); err != nil {
		if isTimeout(err) {
			return r.respawnAfterTimeout(start)
		}
		return ExecResult{}, fuzzerr.HandshakeError(fuzzerr.CodeHandshakeFailed, r.pid(), err)
	}

	statusBuf := make([]byte, 4)
	if _, err := r.ctrlR.Read(statusBuf); err != nil {
		if isTimeout(err) {
			return r.respawnAfterTimeout(start)
		}
		return ExecResult{}, fuzzerr.HandshakeError(fuzzerr.CodeHandshakeFailed, r.pid(), err)
	}

	r.ctrlW.SetWriteDeadline(time.Time{})
	r.dataW.SetWriteDeadline(time.Time{})
	r.ctrlRFile.SetReadDeadline(time.Time{})

	word := uint32(statusBuf[0]) | uint32(statusBuf[1])<<8 | uint32(statusBuf[2])<<16 | uint32(statusBuf[3])<<24
	exitCode, signal := decodeStatus(word)

	r.execs++
	edges := r.cov.NewEdges(found)
	r.cov.Reset()

	return ExecResult{
		ExitCode: exitCode,
		Signal:   signal,
		Crashed:  signal != 0,
		NewEdges: edges,
		Duration: time.Since(start),
	}, nil
}

// isTimeout reports whether err came from a deadline set by
// SetReadDeadline/SetWriteDeadline expiring mid-call.
func isTimeout(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded)
}

// respawnAfterTimeout kills and restarts the hung child, reporting a
// TimedOut result rather than an error: a hang is an expected, handled
// outcome (the fuzz loop skips the sample and counts it), not a fatal
// transport failure.
func (r *Runner) respawnAfterTimeout(start time.Time) (ExecResult, error) {
	_ = r.Stop()
	if err := r.Start(); err != nil {
		return ExecResult{}, err
	}
	return ExecResult{TimedOut: true, Duration: time.Since(start)}, nil
}

// Stop tears the child and its pipes down.
func (r *Runner) Stop() error {
	if r.cmd != nil && r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
		_ = r.cmd.Wait()
	}
	if r.ctrlW != nil {
		r.ctrlW.Close()
	}
	if r.ctrlRFile != nil {
		r.ctrlRFile.Close()
	}
	if r.dataW != nil {
		r.dataW.Close()
	}
	if r.cov != nil {
		r.cov.Close()
	}
	r.execs = 0
	return nil
}
