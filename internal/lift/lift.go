// Package lift translates IR into Lua source text. An expression
// inliner avoids emitting a local for every pure intermediate value;
// effectful expressions are emitted as statements as soon as a second
// one becomes pending, so side-effect order is preserved.
package lift

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"

	"luafuzz/internal/ir"
)

// pendingExpr is a not-yet-emitted expression for one variable: either
// inlinable at its next use (pure, or effectful but still the sole
// pending one) or already materialized as a local.
type pendingExpr struct {
	text string
	pure bool
}

// Lifter walks a Code sequence once, emitting Lua statements into an
// internal buffer.
type Lifter struct {
	out          strings.Builder
	sink         *strings.Builder // non-nil while buffering a segment for later injection (e.g. for-loop afterthought)
	indent       int
	pending      map[uint32]*pendingExpr
	locals       map[uint32]string
	pendingOrder []uint32 // effectful expressions awaiting flush, oldest first
	forFrames    []*forLoopFrame
	tableFrames  []*tableFrame
}

func New() *Lifter {
	return &Lifter{
		pending: map[uint32]*pendingExpr{},
		locals:  map[uint32]string{},
	}
}

// Lift renders code as a standalone Lua chunk.
func Lift(code ir.Code) string {
	l := New()
	l.Run(code)
	return l.out.String()
}

func (l *Lifter) writeLine(format string, args ...any) {
	w := &l.out
	if l.sink != nil {
		w = l.sink
	}
	w.WriteString(strings.Repeat("  ", l.indent))
	fmt.Fprintf(w, format, args...)
	w.WriteString("\n")
}

func (l *Lifter) localName(id uint32) string {
	if name, ok := l.locals[id]; ok {
		return name
	}
	name := fmt.Sprintf("v%d", id)
	l.locals[id] = name
	return name
}

func (l *Lifter) globalName(id uint32) string {
	return strcase.ToSnake(fmt.Sprintf("g_%d", id))
}

// expr returns the Lua expression text for v. A pure pending
// expression is returned verbatim and may be read again later (safe,
// since it has no observable side effect); an effectful one is
// materialized into a local on its first use, along with every other
// effectful expression still pending ahead of it, to preserve
// left-to-right evaluation order.
func (l *Lifter) expr(v ir.Variable) string {
	if v.IsGlobal() {
		return l.globalName(v.ID())
	}
	if p, ok := l.pending[v.ID()]; ok {
		if p.pure {
			return p.text
		}
		l.flushPending()
		return l.localName(v.ID())
	}
	return l.localName(v.ID())
}

// setResult records instr's single output as a candidate for inlining:
// pure expressions stay inlinable forever; an effectful one flushes
// whatever is already pending (to keep prior side effects in order)
// before becoming the new pending expression itself.
func (l *Lifter) setResult(v ir.Variable, text string, pure bool) {
	if v.IsGlobal() {
		l.writeLine("%s = %s", l.globalName(v.ID()), text)
		return
	}
	if pure {
		l.pending[v.ID()] = &pendingExpr{text: text, pure: true}
		return
	}
	if len(l.pendingOrder) > 0 {
		l.flushPending()
	}
	l.pending[v.ID()] = &pendingExpr{text: text, pure: false}
	l.pendingOrder = append(l.pendingOrder, v.ID())
}

// flushPending materializes every still-pending effectful expression
// as a `local vN = expr` statement, in the order they were produced.
func (l *Lifter) flushPending() {
	for _, id := range l.pendingOrder {
		p, ok := l.pending[id]
		if !ok || p.pure {
			continue
		}
		l.writeLine("local %s = %s", l.localName(id), p.text)
		delete(l.pending, id)
	}
	l.pendingOrder = nil
}

// Run lifts a full Code sequence, leaving any still-pending pure
// expressions un-flushed (a pure value never used has no observable
// effect, so it is simply dropped rather than emitted dead).
func (l *Lifter) Run(code ir.Code) {
	for i := 0; i < len(code); i++ {
		l.step(code, i)
	}
	l.flushPending()
}
