package console

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/GarageGames/Torque3D-sub044/compiler"
)

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// Eval compiles and runs source. Compile errors are returned; faults
// raised while the script runs are reported on the console and execution
// continues, so the returned error is nil once the code compiled.
func (rt *Runtime) Eval(source, filename string) (string, error) {
	cb, err := rt.Compile(source, filename)
	if err != nil {
		return "", err
	}
	return rt.ExecBlock(cb), nil
}

// EvalLocal is Eval run on the innermost live frame's table, so the code
// reads and writes the caller's locals. With no live frame it is Eval.
func (rt *Runtime) EvalLocal(source, filename string) (string, error) {
	cb, err := rt.Compile(source, filename)
	if err != nil {
		return "", err
	}
	cb.IncRef()
	defer cb.DecRef()
	return rt.exec(cb, 0, nil, nil, rt.State.Depth()-1), nil
}

// ExecFile reads, compiles and runs the script at path.
func (rt *Runtime) ExecFile(path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("exec %s: %w", path, err)
	}
	return rt.Eval(string(src), path)
}

// ExecBlock runs a loaded code block from its first instruction.
func (rt *Runtime) ExecBlock(cb *CodeBlock) string {
	cb.IncRef()
	defer cb.DecRef()
	return rt.exec(cb, 0, nil, nil, -1)
}

// Call invokes a global function by name.
func (rt *Runtime) Call(name string, args ...string) (string, bool) {
	e := rt.Global.LookupString(name)
	if e == nil {
		return "", false
	}
	return rt.callEntry(e, nil, args), true
}

// CallMethod invokes method name on obj with obj's id as the first
// argument. Missing methods are silently ignored.
func (rt *Runtime) CallMethod(obj *Object, name string, args ...string) (string, bool) {
	if obj == nil || obj.Namespace == nil {
		return "", false
	}
	e := obj.Namespace.LookupString(name)
	if e == nil {
		return "", false
	}
	argv := append([]string{strconv.FormatUint(uint64(obj.ID), 10)}, args...)
	return rt.callEntry(e, obj, argv), true
}

// callEntry checks arity and dispatches on the entry kind.
func (rt *Runtime) callEntry(e *Entry, obj *Object, argv []string) string {
	if (e.MinArgs > 0 && len(argv) < e.MinArgs) || (e.MaxArgs > 0 && len(argv) > e.MaxArgs) {
		rt.Warnf("%s: wrong number of arguments.", e.QualifiedName())
		rt.Warnf("usage: %s", e.Usage)
		return ""
	}
	switch e.Kind {
	case ScriptFunction:
		if rt.callDepth >= rt.maxCallDepth {
			rt.Errorf("%s: call depth limit of %d exceeded.", e.QualifiedName(), rt.maxCallDepth)
			return ""
		}
		rt.callDepth++
		cb := e.Code
		cb.IncRef()
		defer func() {
			cb.DecRef()
			rt.callDepth--
		}()
		return rt.exec(cb, e.Offset, e, argv, -1)
	case StringCallbackKind:
		return e.stringFn(obj, argv)
	case IntCallbackKind:
		return strconv.FormatInt(e.intFn(obj, argv), 10)
	case FloatCallbackKind:
		return compiler.FormatFloat(e.floatFn(obj, argv))
	case VoidCallbackKind:
		e.voidFn(obj, argv)
	case BoolCallbackKind:
		return boolString(e.boolFn(obj, argv))
	}
	return ""
}

// ---------------------------------------------------------------------------
// machine: the per-invocation evaluation state
// ---------------------------------------------------------------------------

type machine struct {
	rt    *Runtime
	cb    *CodeBlock
	frame *Dictionary

	ints   []int64
	floats []float64
	strs   []string // the last element is the current string
	args   [][]string
	objs   []*Object

	curVar        *Variable
	curObject     *Object
	curField      string
	curFieldArray string
}

func (m *machine) pushInt(v int64) { m.ints = append(m.ints, v) }

func (m *machine) popInt() int64 {
	n := len(m.ints)
	if n == 0 {
		return 0
	}
	v := m.ints[n-1]
	m.ints = m.ints[:n-1]
	return v
}

func (m *machine) topInt() int64 {
	if len(m.ints) == 0 {
		return 0
	}
	return m.ints[len(m.ints)-1]
}

func (m *machine) pushFloat(v float64) { m.floats = append(m.floats, v) }

func (m *machine) popFloat() float64 {
	n := len(m.floats)
	if n == 0 {
		return 0
	}
	v := m.floats[n-1]
	m.floats = m.floats[:n-1]
	return v
}

func (m *machine) topFloat() float64 {
	if len(m.floats) == 0 {
		return 0
	}
	return m.floats[len(m.floats)-1]
}

func (m *machine) str() string { return m.strs[len(m.strs)-1] }

func (m *machine) setStr(s string) { m.strs[len(m.strs)-1] = s }

func (m *machine) advance() { m.strs = append(m.strs, "") }

// rewind drops the current string and returns it.
func (m *machine) rewind() string {
	n := len(m.strs)
	if n == 1 {
		s := m.strs[0]
		m.strs[0] = ""
		return s
	}
	s := m.strs[n-1]
	m.strs = m.strs[:n-1]
	return s
}

func (m *machine) popArgs() []string {
	n := len(m.args)
	if n == 0 {
		return nil
	}
	a := m.args[n-1]
	m.args = m.args[:n-1]
	return a
}

func (m *machine) topObject() *Object {
	if len(m.objs) == 0 {
		return nil
	}
	return m.objs[len(m.objs)-1]
}

// variable resolves a $global or a %local in the current frame.
func (m *machine) variable(name *Name, create bool) *Variable {
	if name == nil {
		return nil
	}
	d := m.frame
	if strings.HasPrefix(name.text, "$") {
		d = m.rt.Globals()
	}
	if create {
		return d.Add(name)
	}
	return d.Lookup(name)
}

func (m *machine) field() string {
	if m.curObject == nil {
		return ""
	}
	return m.curObject.Field(m.curField, m.curFieldArray)
}

func (m *machine) setField(v string) {
	if m.curObject != nil {
		m.curObject.SetField(m.curField, m.curFieldArray, v)
	}
}

func (m *machine) where(ip uint32) string {
	return fmt.Sprintf("%s (%d)", m.cb.Name, m.cb.Line(ip))
}

// ---------------------------------------------------------------------------
// The interpreter loop
// ---------------------------------------------------------------------------

// exec runs cb from ip. With a non-nil entry ip addresses the function's
// FUNC_DECL header and argv is bound to its parameters; otherwise the
// block's top level runs, sharing the table of frame ref when ref >= 0.
func (rt *Runtime) exec(cb *CodeBlock, ip uint32, entry *Entry, argv []string, ref int) (result string) {
	code := cb.Unit.Code
	m := &machine{rt: rt, cb: cb, strs: []string{""}}

	if entry != nil {
		argc := code[ip+6]
		hasBody := code[ip+4]&1 != 0
		m.frame = rt.State.PushFrame(entry.Name, entry.Namespace)
		defer rt.State.PopFrame()
		m.frame.Code = cb
		for i := uint32(0); i < argc; i++ {
			v := m.frame.Add(cb.ident(code[ip+7+i]))
			if int(i) < len(argv) {
				v.SetString(argv[i])
			}
		}
		if !hasBody {
			return ""
		}
		ip += 7 + argc
	} else {
		if ref >= 0 {
			m.frame = rt.State.PushFrameRef(ref)
		} else {
			m.frame = rt.State.PushFrame(nil, nil)
		}
		defer rt.State.PopFrame()
		m.frame.Code = cb
	}

	defer func() {
		if r := recover(); r != nil {
			rt.Errorf("%s: runtime fault: %v", m.where(m.frame.IP), r)
			result = ""
		}
	}()

	for {
		m.frame.IP = ip
		op := compiler.Opcode(code[ip])
		ip++
		switch op {
		case compiler.OpFuncDecl:
			name := cb.ident(code[ip])
			ns := rt.findNamespace(cb.ident(code[ip+1]), cb.ident(code[ip+2]))
			ns.AddFunction(name, cb, ip-1, code[ip+3]>>1)
			ip = code[ip+4]

		case compiler.OpCreateObject:
			copyFrom := cb.str(code[ip])
			datablock := code[ip+1] != 0
			fail := code[ip+2]
			ip += 3
			a := m.popArgs()
			for len(a) < 2 {
				a = append(a, "")
			}
			obj, err := rt.instantiate(a[0], a[1], copyFrom, datablock, a[2:])
			if err != nil {
				rt.Errorf("%s: %v", m.where(ip-4), err)
				ip = fail
				continue
			}
			m.objs = append(m.objs, obj)

		case compiler.OpAddObject:
			root := code[ip] != 0
			ip++
			obj := m.topObject()
			if obj == nil {
				continue
			}
			if !obj.registered {
				rt.registerObject(obj)
			}
			if root {
				if len(m.ints) == 0 {
					m.pushInt(0)
				}
				m.ints[len(m.ints)-1] = int64(obj.ID)
			} else {
				if group := rt.objects[uint32(m.topInt())]; group != nil && group.isSet {
					group.AddChild(obj)
				}
				m.pushInt(int64(obj.ID))
			}

		case compiler.OpEndObject:
			if code[ip] == 0 {
				m.popInt()
			}
			ip++
			if len(m.objs) > 0 {
				m.objs = m.objs[:len(m.objs)-1]
			}

		case compiler.OpFinishObject:

		case compiler.OpJmpIfFNot:
			if m.popFloat() == 0 {
				ip = code[ip]
			} else {
				ip++
			}
		case compiler.OpJmpIfNot:
			if m.popInt() == 0 {
				ip = code[ip]
			} else {
				ip++
			}
		case compiler.OpJmpIfF:
			if m.popFloat() != 0 {
				ip = code[ip]
			} else {
				ip++
			}
		case compiler.OpJmpIf:
			if m.popInt() != 0 {
				ip = code[ip]
			} else {
				ip++
			}
		case compiler.OpJmpIfNotNP:
			if m.topInt() == 0 {
				ip = code[ip]
			} else {
				m.popInt()
				ip++
			}
		case compiler.OpJmpIfNP:
			if m.topInt() != 0 {
				ip = code[ip]
			} else {
				m.popInt()
				ip++
			}
		case compiler.OpJmp:
			ip = code[ip]

		case compiler.OpReturn:
			return m.str()
		case compiler.OpReturnVoid:
			return ""

		case compiler.OpCmpEQ, compiler.OpCmpGR, compiler.OpCmpGE,
			compiler.OpCmpLT, compiler.OpCmpLE, compiler.OpCmpNE:
			a, b := m.popFloat(), m.popFloat()
			var r bool
			switch op {
			case compiler.OpCmpEQ:
				r = a == b
			case compiler.OpCmpGR:
				r = a > b
			case compiler.OpCmpGE:
				r = a >= b
			case compiler.OpCmpLT:
				r = a < b
			case compiler.OpCmpLE:
				r = a <= b
			default:
				r = a != b
			}
			m.pushInt(boolInt(r))

		case compiler.OpXor, compiler.OpMod, compiler.OpBitAnd,
			compiler.OpBitOr, compiler.OpShr, compiler.OpShl:
			a, b := m.popInt(), m.popInt()
			var r int64
			switch op {
			case compiler.OpXor:
				r = a ^ b
			case compiler.OpMod:
				if b != 0 {
					r = a % b
				}
			case compiler.OpBitAnd:
				r = a & b
			case compiler.OpBitOr:
				r = a | b
			case compiler.OpShr:
				r = a >> uint64(b&63)
			default:
				r = a << uint64(b&63)
			}
			m.pushInt(r)

		case compiler.OpNot:
			m.pushInt(boolInt(m.popInt() == 0))
		case compiler.OpNotF:
			m.pushInt(boolInt(m.popFloat() == 0))
		case compiler.OpOnesComplement:
			m.pushInt(^m.popInt())

		case compiler.OpAdd, compiler.OpSub, compiler.OpMul, compiler.OpDiv:
			a, b := m.popFloat(), m.popFloat()
			switch op {
			case compiler.OpAdd:
				m.pushFloat(a + b)
			case compiler.OpSub:
				m.pushFloat(a - b)
			case compiler.OpMul:
				m.pushFloat(a * b)
			default:
				m.pushFloat(a / b)
			}
		case compiler.OpNeg:
			m.pushFloat(-m.popFloat())

		case compiler.OpSetCurVar:
			m.curVar = m.variable(cb.ident(code[ip]), false)
			ip++
		case compiler.OpSetCurVarCreate:
			m.curVar = m.variable(cb.ident(code[ip]), true)
			ip++
		case compiler.OpSetCurVarArray:
			m.curVar = m.variable(rt.Names.Lookup(m.str()), false)
		case compiler.OpSetCurVarArrayCreate:
			m.curVar = m.variable(rt.Names.Intern(m.str()), true)

		case compiler.OpLoadVarUInt:
			var v int64
			if m.curVar != nil {
				v = m.curVar.GetInt()
			}
			m.pushInt(v)
		case compiler.OpLoadVarFlt:
			var v float64
			if m.curVar != nil {
				v = m.curVar.GetFloat()
			}
			m.pushFloat(v)
		case compiler.OpLoadVarStr:
			var v string
			if m.curVar != nil {
				v = m.curVar.GetString()
			}
			m.setStr(v)

		case compiler.OpSaveVarUInt:
			if m.curVar != nil {
				m.curVar.SetInt(m.topInt())
			}
		case compiler.OpSaveVarFlt:
			if m.curVar != nil {
				m.curVar.SetFloat(m.topFloat())
			}
		case compiler.OpSaveVarStr:
			if m.curVar != nil {
				m.curVar.SetString(m.str())
			}

		case compiler.OpSetCurObject:
			m.curObject = rt.FindObject(m.str())
		case compiler.OpSetCurObjectNew:
			m.curObject = m.topObject()
		case compiler.OpSetCurField:
			m.curField = cb.str(code[ip])
			m.curFieldArray = ""
			ip++
		case compiler.OpSetCurFieldArray:
			m.curFieldArray = m.str()

		case compiler.OpLoadFieldUInt:
			m.pushInt(int64(stringToFloat(m.field())))
		case compiler.OpLoadFieldFlt:
			m.pushFloat(stringToFloat(m.field()))
		case compiler.OpLoadFieldStr:
			m.setStr(m.field())

		case compiler.OpSaveFieldUInt:
			m.setField(strconv.FormatInt(m.topInt(), 10))
		case compiler.OpSaveFieldFlt:
			m.setField(compiler.FormatFloat(m.topFloat()))
		case compiler.OpSaveFieldStr:
			m.setField(m.str())

		case compiler.OpStrToUInt:
			m.pushInt(int64(stringToFloat(m.str())))
		case compiler.OpStrToFlt:
			m.pushFloat(stringToFloat(m.str()))
		case compiler.OpStrToNone:
		case compiler.OpFltToUInt:
			m.pushInt(int64(m.popFloat()))
		case compiler.OpFltToStr:
			m.setStr(compiler.FormatFloat(m.popFloat()))
		case compiler.OpFltToNone:
			m.popFloat()
		case compiler.OpUIntToFlt:
			m.pushFloat(float64(m.popInt()))
		case compiler.OpUIntToStr:
			m.setStr(strconv.FormatInt(m.popInt(), 10))
		case compiler.OpUIntToNone:
			m.popInt()

		case compiler.OpLoadImmedUInt:
			m.pushInt(int64(int32(code[ip])))
			ip++
		case compiler.OpLoadImmedFlt:
			m.pushFloat(cb.Unit.Floats[code[ip]])
			ip++
		case compiler.OpLoadImmedStr, compiler.OpLoadImmedIdent:
			m.setStr(cb.str(code[ip]))
			ip++

		case compiler.OpCallFunc:
			name := cb.ident(code[ip])
			ns := cb.ident(code[ip+1])
			callType := code[ip+2]
			ip += 3
			m.setStr(rt.dispatch(m, ip-4, name, ns, callType, m.popArgs()))

		case compiler.OpAdvanceStr, compiler.OpAdvanceStrNul:
			m.advance()
		case compiler.OpAdvanceStrAppendChar:
			m.setStr(m.str() + string(rune(code[ip])))
			m.advance()
			ip++
		case compiler.OpAdvanceStrComma:
			m.setStr(m.str() + "_")
			m.advance()
		case compiler.OpRewindStr:
			s := m.rewind()
			m.setStr(m.str() + s)
		case compiler.OpTerminateRewindStr:
			m.rewind()
		case compiler.OpCompareStr:
			b := m.rewind()
			m.pushInt(boolInt(strings.EqualFold(m.str(), b)))

		case compiler.OpPush:
			n := len(m.args)
			if n == 0 {
				m.args = append(m.args, nil)
				n = 1
			}
			m.args[n-1] = append(m.args[n-1], m.str())
		case compiler.OpPushFrame:
			m.args = append(m.args, make([]string, 0, 4))

		default:
			rt.Errorf("%s: invalid opcode %d at ip %d", m.where(ip-1), uint32(op), ip-1)
			return ""
		}
	}
}

// dispatch resolves a CALLFUNC target and runs it.
func (rt *Runtime) dispatch(m *machine, ip uint32, name, ns *Name, callType uint32, argv []string) string {
	var (
		e   *Entry
		obj *Object
	)
	switch callType {
	case compiler.MethodCall:
		if len(argv) == 0 {
			return ""
		}
		obj = rt.FindObject(argv[0])
		if obj == nil {
			rt.Warnf("%s: Unable to find object: '%s' attempting to call function '%s'", m.where(ip), argv[0], name)
			return ""
		}
		argv[0] = strconv.FormatUint(uint64(obj.ID), 10)
		e = obj.Namespace.Lookup(name)
	case compiler.ParentCall:
		e = rt.lookupBelow(m.frame.ScopeNamespace, name)
		if len(argv) > 0 {
			obj = rt.FindObject(argv[0])
		}
	default:
		if ns == nil {
			e = rt.Global.Lookup(name)
		} else {
			e = rt.findNamespace(ns, nil).Lookup(name)
		}
	}
	if e == nil {
		qualified := name.String()
		if ns != nil && callType == compiler.FunctionCall {
			qualified = ns.String() + "::" + qualified
		}
		rt.Warnf("%s: Unknown command %s.", m.where(ip), qualified)
		return ""
	}
	return rt.callEntry(e, obj, argv)
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
