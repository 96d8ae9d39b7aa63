package lift

import "strings"

// forLoopFrame tracks the two Lua blocks ("do" and "while true do")
// opened while lifting a BeginForLoopInitializer/.../EndForLoop chain,
// and buffers the afterthought segment so it can be re-emitted after
// the body (the IR visits afterthought before body, but it must run
// after the body on every iteration).
type forLoopFrame struct {
	afterthought *strings.Builder
}

// tableFrame remembers the local a BeginTable opened, so
// TableAddProperty/TableAddElement/BeginTableMethod know which
// variable to qualify.
type tableFrame struct {
	name string
}
