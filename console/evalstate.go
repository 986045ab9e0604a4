package console

// ---------------------------------------------------------------------------
// EvalState: the pooled call-frame stack
// ---------------------------------------------------------------------------

// EvalState holds the global variable table and the stack of call frames.
// Frames past the current depth stay allocated and are reused.
type EvalState struct {
	names   *NameTable
	globals *Dictionary
	frames  []*Dictionary
	depth   int
	buckets int
}

// NewEvalState creates an empty frame stack whose tables start with
// buckets slots.
func NewEvalState(names *NameTable, buckets int) *EvalState {
	es := &EvalState{names: names, buckets: buckets}
	es.globals = NewDictionary(names, buckets)
	es.globals.SetState(es, nil)
	return es
}

// Globals returns the global ($) variable table.
func (es *EvalState) Globals() *Dictionary { return es.globals }

// Depth returns the number of live frames.
func (es *EvalState) Depth() int { return es.depth }

// CurrentFrame returns the innermost frame, or nil at top level.
func (es *EvalState) CurrentFrame() *Dictionary {
	if es.depth == 0 {
		return nil
	}
	return es.frames[es.depth-1]
}

// Frame returns the frame at stack index i (0 is outermost).
func (es *EvalState) Frame(i int) *Dictionary {
	if i < 0 || i >= es.depth {
		return nil
	}
	return es.frames[i]
}

func (es *EvalState) nextSlot() *Dictionary {
	if es.depth == len(es.frames) {
		es.frames = append(es.frames, NewDictionary(es.names, es.buckets))
	}
	d := es.frames[es.depth]
	es.depth++
	return d
}

// PushFrame pushes a frame with its own private table.
func (es *EvalState) PushFrame(name *Name, ns *Namespace) *Dictionary {
	d := es.nextSlot()
	d.SetState(es, nil)
	d.ScopeName = name
	d.ScopeNamespace = ns
	return d
}

// PushFrameRef pushes a frame that shares the table of the live frame at
// stackIndex, so both see and modify the same locals.
func (es *EvalState) PushFrameRef(stackIndex int) *Dictionary {
	ref := es.Frame(stackIndex)
	d := es.nextSlot()
	d.SetState(es, ref)
	if ref != nil {
		d.ScopeName = ref.ScopeName
		d.ScopeNamespace = ref.ScopeNamespace
		d.Code = ref.Code
	}
	return d
}

// PopFrame pops the innermost frame and resets it for reuse.
func (es *EvalState) PopFrame() {
	if es.depth == 0 {
		return
	}
	es.depth--
	es.frames[es.depth].Reset()
}
