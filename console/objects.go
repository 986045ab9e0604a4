package console

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Objects
// ---------------------------------------------------------------------------

// firstObjectID is the id given to the first registered object.
const firstObjectID uint32 = 1000

// Object is a script-visible object: an id, an optional name, a native
// class, dynamic fields and, for sets, an ordered child list.
type Object struct {
	ID        uint32
	Class     *Name
	Namespace *Namespace

	name       *Name
	fields     map[string]field
	children   []*Object
	group      *Object
	isSet      bool
	ownsKids   bool
	datablock  bool
	registered bool
	links      []nsLink
}

type field struct {
	name  string
	value string
}

type nsLink struct {
	child, parent *Namespace
}

// Name returns the object's name, or "".
func (o *Object) Name() string { return o.name.String() }

// ClassName returns the native class name.
func (o *Object) ClassName() string { return o.Class.String() }

// IsDatablock reports whether the object was declared with datablock.
func (o *Object) IsDatablock() bool { return o.datablock }

// IsSet reports whether the object can hold children.
func (o *Object) IsSet() bool { return o.isSet }

// Registered reports whether the object is live in its runtime.
func (o *Object) Registered() bool { return o.registered }

// Group returns the set the object belongs to, or nil.
func (o *Object) Group() *Object { return o.group }

// Children returns the object's children in insertion order.
func (o *Object) Children() []*Object {
	out := make([]*Object, len(o.children))
	copy(out, o.children)
	return out
}

func fieldKey(name, index string) string {
	return strings.ToLower(name + index)
}

// Field returns the dynamic field name[index].
func (o *Object) Field(name, index string) string {
	return o.fields[fieldKey(name, index)].value
}

// SetField assigns the dynamic field name[index]; an empty value removes it.
func (o *Object) SetField(name, index, value string) {
	key := fieldKey(name, index)
	if value == "" {
		delete(o.fields, key)
		return
	}
	if o.fields == nil {
		o.fields = make(map[string]field)
	}
	o.fields[key] = field{name: name + index, value: value}
}

// Fields returns the names of the dynamic fields, sorted.
func (o *Object) Fields() []string {
	out := make([]string, 0, len(o.fields))
	for _, f := range o.fields {
		out = append(out, f.name)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}

func (o *Object) indexOf(child *Object) int {
	for i, c := range o.children {
		if c == child {
			return i
		}
	}
	return -1
}

// AddChild appends child, moving it out of a previous owning group.
func (o *Object) AddChild(child *Object) bool {
	if !o.isSet || child == nil || child == o || o.indexOf(child) >= 0 {
		return false
	}
	if o.ownsKids && child.group != nil {
		child.group.RemoveChild(child)
	}
	o.children = append(o.children, child)
	if o.ownsKids {
		child.group = o
	}
	return true
}

// RemoveChild detaches child from the set.
func (o *Object) RemoveChild(child *Object) bool {
	i := o.indexOf(child)
	if i < 0 {
		return false
	}
	o.children = append(o.children[:i], o.children[i+1:]...)
	if child.group == o {
		child.group = nil
	}
	return true
}

// ---------------------------------------------------------------------------
// Class registry
// ---------------------------------------------------------------------------

// RegisterClass declares a native class and links its namespace to the
// parent class namespace.
func (rt *Runtime) RegisterClass(class, parent string) *Namespace {
	c := rt.Names.Intern(class)
	p := rt.Names.Intern(parent)
	rt.classes[c] = p
	ns := rt.findNamespace(c, nil)
	if p != nil {
		ns.ClassLinkTo(rt.findNamespace(p, nil))
	}
	return ns
}

// IsClass reports whether class is a registered native class.
func (rt *Runtime) IsClass(class string) bool {
	c := rt.Names.Lookup(class)
	_, ok := rt.classes[c]
	return c != nil && ok
}

// classDerivesFrom reports whether class is ancestor or inherits from it.
func (rt *Runtime) classDerivesFrom(class, ancestor *Name) bool {
	for c, n := class, 0; c != nil && n <= len(rt.classes); c, n = rt.classes[c], n+1 {
		if c == ancestor {
			return true
		}
	}
	return false
}

// Classes returns the registered class names, sorted.
func (rt *Runtime) Classes() []string {
	out := make([]string, 0, len(rt.classes))
	for c := range rt.classes {
		out = append(out, c.String())
	}
	sort.Strings(out)
	return out
}

// ---------------------------------------------------------------------------
// Object registry
// ---------------------------------------------------------------------------

var (
	errUnknownClass = errors.New("unable to instantiate non-conobject class")
	errNoCopySource = errors.New("unable to find parent object")
	errArguments    = errors.New("failed to process arguments")
)

// instantiate builds an unregistered object. A datablock redeclared under
// an existing datablock's name updates the existing one.
func (rt *Runtime) instantiate(class, name, copyFrom string, datablock bool, args []string) (*Object, error) {
	c := rt.Names.Lookup(class)
	if _, ok := rt.classes[c]; c == nil || !ok {
		return nil, fmt.Errorf("%w %s", errUnknownClass, class)
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("object %s(%s) %w", name, class, errArguments)
	}
	if datablock && name != "" {
		if old := rt.FindObject(name); old != nil && old.datablock && old.Class == c {
			return old, nil
		}
	}
	obj := &Object{
		Class:     c,
		name:      rt.Names.Intern(name),
		isSet:     rt.classDerivesFrom(c, rt.Names.Intern("SimSet")),
		ownsKids:  rt.classDerivesFrom(c, rt.Names.Intern("SimGroup")),
		datablock: datablock,
	}
	if copyFrom != "" {
		src := rt.FindObject(copyFrom)
		if src == nil {
			return nil, fmt.Errorf("%w %s", errNoCopySource, copyFrom)
		}
		for k, f := range src.fields {
			if obj.fields == nil {
				obj.fields = make(map[string]field, len(src.fields))
			}
			obj.fields[k] = f
		}
	}
	return obj, nil
}

// registerObject assigns an id, publishes the object and runs onAdd.
func (rt *Runtime) registerObject(obj *Object) {
	obj.ID = rt.nextID
	rt.nextID++
	rt.objects[obj.ID] = obj
	if obj.name != nil {
		rt.objectNames[obj.name] = obj
	}
	obj.registered = true
	rt.linkNamespaces(obj)
	rt.CallMethod(obj, "onAdd")
}

// linkNamespaces chains class <- superClass <- class field <- name and
// points the object at the most derived namespace that linked.
func (rt *Runtime) linkNamespaces(obj *Object) {
	cur := rt.findNamespace(obj.Class, nil)
	for _, n := range []string{obj.Field("superClass", ""), obj.Field("class", ""), obj.Name()} {
		if n == "" {
			continue
		}
		ns := rt.findNamespace(rt.Names.Intern(n), nil)
		if ns == cur {
			continue
		}
		if !ns.ClassLinkTo(cur) {
			break
		}
		obj.links = append(obj.links, nsLink{child: ns, parent: cur})
		cur = ns
	}
	obj.Namespace = cur
}

// NewObject creates and registers an object from Go.
func (rt *Runtime) NewObject(class, name string) (*Object, error) {
	obj, err := rt.instantiate(class, name, "", false, nil)
	if err != nil {
		return nil, err
	}
	rt.registerObject(obj)
	return obj, nil
}

// FindObject resolves a numeric id or an object name.
func (rt *Runtime) FindObject(ref string) *Object {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if id, err := strconv.ParseUint(ref, 10, 32); err == nil {
		return rt.objects[uint32(id)]
	}
	n := rt.Names.Lookup(ref)
	if n == nil {
		return nil
	}
	return rt.objectNames[n]
}

// ObjectByID returns the live object with id.
func (rt *Runtime) ObjectByID(id uint32) *Object { return rt.objects[id] }

// ObjectCount returns the number of live objects.
func (rt *Runtime) ObjectCount() int { return len(rt.objects) }

// DeleteObject runs onRemove, deletes owned children and unregisters obj.
func (rt *Runtime) DeleteObject(obj *Object) {
	if obj == nil || !obj.registered {
		return
	}
	rt.CallMethod(obj, "onRemove")
	kids := obj.children
	obj.children = nil
	for i := len(kids) - 1; i >= 0; i-- {
		if kids[i].group == obj {
			kids[i].group = nil
			rt.DeleteObject(kids[i])
		}
	}
	if obj.group != nil {
		obj.group.RemoveChild(obj)
	}
	for _, o := range rt.objects {
		if o.isSet && !o.ownsKids {
			o.RemoveChild(obj)
		}
	}
	for i := len(obj.links) - 1; i >= 0; i-- {
		obj.links[i].child.UnlinkClass(obj.links[i].parent)
	}
	obj.links = nil
	delete(rt.objects, obj.ID)
	if obj.name != nil && rt.objectNames[obj.name] == obj {
		delete(rt.objectNames, obj.name)
	}
	obj.registered = false
}

// ---------------------------------------------------------------------------
// Base classes and their methods
// ---------------------------------------------------------------------------

func (rt *Runtime) registerObjectClasses() {
	simObject := rt.RegisterClass("SimObject", "")
	rt.RegisterClass("ScriptObject", "SimObject")
	rt.RegisterClass("SimDataBlock", "SimObject")
	simSet := rt.RegisterClass("SimSet", "SimObject")
	rt.RegisterClass("SimGroup", "SimSet")
	rt.RegisterClass("ScriptGroup", "SimGroup")

	simObject.MarkGroup("Callbacks", "")
	simObject.AddScriptCallback("onAdd", "Called when the object is registered.")
	simObject.AddScriptCallback("onRemove", "Called before the object is deleted.")

	simObject.MarkGroup("Identity", "")
	simObject.AddIntCommand("getId", func(obj *Object, argv []string) int64 {
		return int64(obj.ID)
	}, "obj.getId()", 1, 1)
	simObject.AddStringCommand("getName", func(obj *Object, argv []string) string {
		return obj.Name()
	}, "obj.getName()", 1, 1)
	simObject.AddStringCommand("getClassName", func(obj *Object, argv []string) string {
		return obj.ClassName()
	}, "obj.getClassName()", 1, 1)
	simObject.AddBoolCommand("isMemberOfClass", func(obj *Object, argv []string) bool {
		return rt.classDerivesFrom(obj.Class, rt.Names.Lookup(argv[1]))
	}, "obj.isMemberOfClass(className)", 2, 2)
	simObject.AddVoidCommand("delete", func(obj *Object, argv []string) {
		rt.DeleteObject(obj)
	}, "obj.delete()", 1, 1)
	simObject.AddIntCommand("getGroup", func(obj *Object, argv []string) int64 {
		if obj.group == nil {
			return -1
		}
		return int64(obj.group.ID)
	}, "obj.getGroup()", 1, 1)

	simObject.MarkGroup("Fields", "")
	simObject.AddStringCommand("getFieldValue", func(obj *Object, argv []string) string {
		return obj.Field(argv[1], "")
	}, "obj.getFieldValue(field)", 2, 2)
	simObject.AddVoidCommand("setFieldValue", func(obj *Object, argv []string) {
		obj.SetField(argv[1], "", argv[2])
	}, "obj.setFieldValue(field, value)", 3, 3)
	simObject.AddIntCommand("getFieldCount", func(obj *Object, argv []string) int64 {
		return int64(len(obj.fields))
	}, "obj.getFieldCount()", 1, 1)

	simSet.AddVoidCommand("add", func(obj *Object, argv []string) {
		for _, ref := range argv[1:] {
			if child := rt.FindObject(ref); child != nil {
				obj.AddChild(child)
			} else {
				rt.Errorf("Set::add: Object \"%s\" doesn't exist", ref)
			}
		}
	}, "set.add(obj1, ...)", 2, 0)
	simSet.AddVoidCommand("remove", func(obj *Object, argv []string) {
		for _, ref := range argv[1:] {
			if child := rt.FindObject(ref); child == nil || !obj.RemoveChild(child) {
				rt.Errorf("Set::remove: Object \"%s\" does not exist in set", ref)
			}
		}
	}, "set.remove(obj1, ...)", 2, 0)
	simSet.AddVoidCommand("clear", func(obj *Object, argv []string) {
		for len(obj.children) > 0 {
			obj.RemoveChild(obj.children[0])
		}
	}, "set.clear()", 1, 1)
	simSet.AddIntCommand("getCount", func(obj *Object, argv []string) int64 {
		return int64(len(obj.children))
	}, "set.getCount()", 1, 1)
	simSet.AddIntCommand("getObject", func(obj *Object, argv []string) int64 {
		i, err := strconv.Atoi(strings.TrimSpace(argv[1]))
		if err != nil || i < 0 || i >= len(obj.children) {
			rt.Errorf("Set::getObject - index out of range.")
			return -1
		}
		return int64(obj.children[i].ID)
	}, "set.getObject(index)", 2, 2)
	simSet.AddBoolCommand("isMember", func(obj *Object, argv []string) bool {
		child := rt.FindObject(argv[1])
		return child != nil && obj.indexOf(child) >= 0
	}, "set.isMember(obj)", 2, 2)
}
