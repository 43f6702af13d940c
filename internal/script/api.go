package script

import (
	"encoding/binary"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/bytestorm/internal/engine"
	"github.com/dshills/bytestorm/internal/engine/piece"
)

const markTypeName = "bytestorm.mark"

// api binds buffer operations to one Lua state.
type api struct {
	buf   *engine.Buffer
	marks []piece.MarkID
}

func (a *api) install(L *lua.LState) {
	mt := L.NewTypeMetatable(markTypeName)
	L.SetField(mt, "__tostring", L.NewFunction(a.markString))
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"pos":     a.pos,
		"set":     a.setMark,
		"destroy": a.destroyMark,
	}))

	L.SetGlobal("START", a.newMark(L, piece.Start))
	L.SetGlobal("INSERT", a.newMark(L, piece.Insert))
	L.SetGlobal("END", a.newMark(L, piece.End))

	for name, fn := range map[string]lua.LGFunction{
		"len":          a.len,
		"read":         a.read,
		"uint":         a.uint,
		"insert":       a.insert,
		"insert_byte":  a.insertByte,
		"insert_uint":  a.insertUint,
		"fill":         a.fill,
		"remove":       a.remove,
		"replace":      a.replace,
		"overwrite":    a.overwrite,
		"copy":         a.copy,
		"move":         a.move,
		"transform":    a.transform,
		"undo":         a.undo,
		"redo":         a.redo,
		"group":        a.group,
		"mark":         a.mark,
		"set_mark":     a.setMark,
		"pos":          a.pos,
		"destroy_mark": a.destroyMark,
		"save":         a.save,
	} {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

// cleanup destroys marks the script created and left behind.
func (a *api) cleanup() {
	for _, id := range a.marks {
		_ = a.buf.DestroyMark(id)
	}
	a.marks = nil
}

func (a *api) newMark(L *lua.LState, id piece.MarkID) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = id
	L.SetMetatable(ud, L.GetTypeMetatable(markTypeName))
	return ud
}

func checkMark(L *lua.LState, n int) piece.MarkID {
	ud := L.CheckUserData(n)
	id, ok := ud.Value.(piece.MarkID)
	if !ok {
		L.ArgError(n, "mark expected")
	}
	return id
}

// checkPos resolves argument n, an offset or a mark, to an offset.
func (a *api) checkPos(L *lua.LState, n int) int64 {
	switch v := L.Get(n).(type) {
	case lua.LNumber:
		return int64(v)
	case *lua.LUserData:
		id, ok := v.Value.(piece.MarkID)
		if !ok {
			break
		}
		pos, err := a.buf.MarkPos(id)
		if err != nil {
			L.RaiseError("%v", err)
		}
		return pos
	}
	L.ArgError(n, "position or mark expected")
	return 0
}

func checkByte(L *lua.LState, n int) byte {
	v := L.CheckInt(n)
	if v < 0 || v > 0xFF {
		L.ArgError(n, "byte out of range")
	}
	return byte(v)
}

func checkOrder(L *lua.LState, n int) binary.ByteOrder {
	switch L.OptString(n, "le") {
	case "le":
		return binary.LittleEndian
	case "be":
		return binary.BigEndian
	}
	L.ArgError(n, `order must be "le" or "be"`)
	return nil
}

func check(L *lua.LState, err error) {
	if err != nil {
		L.RaiseError("%v", err)
	}
}

func (a *api) len(L *lua.LState) int {
	L.Push(lua.LNumber(a.buf.Len()))
	return 1
}

func (a *api) read(L *lua.LState) int {
	from, to := a.checkPos(L, 1), a.checkPos(L, 2)
	s, err := a.buf.String(from, to)
	check(L, err)
	L.Push(lua.LString(s))
	return 1
}

func (a *api) uint(L *lua.LState) int {
	from, to := a.checkPos(L, 1), a.checkPos(L, 2)
	v, err := a.buf.Uint(from, to, checkOrder(L, 3))
	check(L, err)
	L.Push(lua.LNumber(v))
	return 1
}

func (a *api) insert(L *lua.LState) int {
	at := a.checkPos(L, 1)
	check(L, a.buf.InsertAt(at, []byte(L.CheckString(2))))
	return 0
}

func (a *api) insertByte(L *lua.LState) int {
	at := a.checkPos(L, 1)
	check(L, a.buf.InsertAt(at, []byte{checkByte(L, 2)}))
	return 0
}

func (a *api) insertUint(L *lua.LState) int {
	at := a.checkPos(L, 1)
	v := L.CheckInt64(2)
	size := L.CheckInt(3)
	order := checkOrder(L, 4)

	id, err := a.buf.CreateMark(at)
	check(L, err)
	defer a.buf.DestroyMark(id)
	check(L, a.buf.InsertUint(id, uint64(v), size, order))
	return 0
}

func (a *api) fill(L *lua.LState) int {
	at := a.checkPos(L, 1)
	n := L.CheckInt64(2)
	value := checkByte(L, 3)

	id, err := a.buf.CreateMark(at)
	check(L, err)
	defer a.buf.DestroyMark(id)
	check(L, a.buf.Fill(id, n, value))
	return 0
}

func (a *api) remove(L *lua.LState) int {
	from, to := a.checkPos(L, 1), a.checkPos(L, 2)
	check(L, a.buf.RemoveRange(from, to))
	return 0
}

func (a *api) replace(L *lua.LState) int {
	from, to := a.checkPos(L, 1), a.checkPos(L, 2)
	check(L, a.buf.Replace(from, to, []byte(L.CheckString(3))))
	return 0
}

func (a *api) overwrite(L *lua.LState) int {
	at := a.checkPos(L, 1)
	data := []byte(L.CheckString(2))

	id, err := a.buf.CreateMark(at)
	check(L, err)
	defer a.buf.DestroyMark(id)
	check(L, a.buf.Overwrite(id, data))
	return 0
}

func (a *api) copy(L *lua.LState) int {
	from, to, dest := a.checkPos(L, 1), a.checkPos(L, 2), a.checkPos(L, 3)
	check(L, a.buf.CopyRange(from, to, dest))
	return 0
}

func (a *api) move(L *lua.LState) int {
	from, to, dest := a.checkPos(L, 1), a.checkPos(L, 2), a.checkPos(L, 3)
	check(L, a.buf.MoveRange(from, to, dest))
	return 0
}

func (a *api) transform(L *lua.LState) int {
	from, to := a.checkPos(L, 1), a.checkPos(L, 2)

	var xf piece.Transform
	switch kind := L.CheckString(3); kind {
	case "invert":
		xf = engine.Invert
	case "reverse":
		xf = engine.Reverse
	case "xor":
		xf = engine.Xor(checkByte(L, 4))
	default:
		L.ArgError(3, `kind must be "invert", "reverse" or "xor"`)
	}
	check(L, a.buf.TransformRange(from, to, xf))
	return 0
}

func (a *api) undo(L *lua.LState) int {
	L.Push(lua.LBool(a.buf.Undo()))
	return 1
}

func (a *api) redo(L *lua.LState) int {
	L.Push(lua.LBool(a.buf.Redo()))
	return 1
}

// group runs fn between BeginGroup and EndGroup. Errors raised by fn are
// re-raised after the group is closed.
func (a *api) group(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)

	a.buf.BeginGroup(name)
	L.Push(fn)
	err := L.PCall(0, 0, nil)
	a.buf.EndGroup()
	check(L, err)
	return 0
}

func (a *api) mark(L *lua.LState) int {
	at := a.checkPos(L, 1)
	id, err := a.buf.CreateMark(at)
	check(L, err)
	a.marks = append(a.marks, id)
	L.Push(a.newMark(L, id))
	return 1
}

func (a *api) setMark(L *lua.LState) int {
	id := checkMark(L, 1)
	check(L, a.buf.SetMark(id, a.checkPos(L, 2)))
	return 0
}

func (a *api) pos(L *lua.LState) int {
	pos, err := a.buf.MarkPos(checkMark(L, 1))
	check(L, err)
	L.Push(lua.LNumber(pos))
	return 1
}

func (a *api) destroyMark(L *lua.LState) int {
	id := checkMark(L, 1)
	check(L, a.buf.DestroyMark(id))
	for i, m := range a.marks {
		if m == id {
			a.marks = append(a.marks[:i], a.marks[i+1:]...)
			break
		}
	}
	return 0
}

func (a *api) markString(L *lua.LState) int {
	id := checkMark(L, 1)
	pos, err := a.buf.MarkPos(id)
	if err != nil {
		L.Push(lua.LString("mark(destroyed)"))
		return 1
	}
	L.Push(lua.LString("mark(" + lua.LNumber(pos).String() + ")"))
	return 1
}

func (a *api) save(L *lua.LState) int {
	if path := L.OptString(1, ""); path != "" {
		check(L, a.buf.SaveAs(path))
		return 0
	}
	check(L, a.buf.Save())
	return 0
}
