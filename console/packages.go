package console

// ---------------------------------------------------------------------------
// Packages: stack-ordered override layers
// ---------------------------------------------------------------------------

func (rt *Runtime) activeIndex(pkg *Name) int {
	for i, p := range rt.activePackages {
		if p == pkg {
			return i
		}
	}
	return -1
}

// layer inserts an overlay into its base twin's layer list, keeping the
// list ordered by package activation.
func (rt *Runtime) layer(ns *Namespace) {
	base := rt.findNamespace(ns.Name, nil)
	order := rt.activeIndex(ns.Package)
	pos := len(base.layers)
	for i, l := range base.layers {
		if rt.activeIndex(l.Package) > order {
			pos = i
			break
		}
	}
	base.layers = append(base.layers, nil)
	copy(base.layers[pos+1:], base.layers[pos:])
	base.layers[pos] = ns
	ns.base = base
	rt.trashCache()
}

func (rt *Runtime) unlayer(ns *Namespace) {
	base := ns.base
	if base == nil {
		return
	}
	for i, l := range base.layers {
		if l == ns {
			base.layers = append(base.layers[:i], base.layers[i+1:]...)
			break
		}
	}
	ns.base = nil
	rt.trashCache()
}

func (rt *Runtime) overlaysOf(pkg *Name) []*Namespace {
	var out []*Namespace
	for _, ns := range rt.namespaces {
		if ns.Package == pkg {
			out = append(out, ns)
		}
	}
	return out
}

func (rt *Runtime) activateOne(pkg *Name) {
	rt.activePackages = append(rt.activePackages, pkg)
	for _, ns := range rt.overlaysOf(pkg) {
		rt.layer(ns)
	}
}

func (rt *Runtime) deactivateOne(pkg *Name) {
	for _, ns := range rt.overlaysOf(pkg) {
		rt.unlayer(ns)
	}
}

// IsPackage reports whether any namespace was declared in package name.
func (rt *Runtime) IsPackage(name string) bool {
	p := rt.Names.Lookup(name)
	return p != nil && rt.packages[p]
}

// IsPackageActive reports whether package name is on the active stack.
func (rt *Runtime) IsPackageActive(name string) bool {
	p := rt.Names.Lookup(name)
	return p != nil && rt.activeIndex(p) >= 0
}

// ActivePackages returns the active package names, oldest first.
func (rt *Runtime) ActivePackages() []string {
	out := make([]string, len(rt.activePackages))
	for i, p := range rt.activePackages {
		out[i] = p.String()
	}
	return out
}

// ActivatePackage pushes package name onto the active stack so its
// functions override the base ones. Activating an active package is a
// no-op.
func (rt *Runtime) ActivatePackage(name string) bool {
	p := rt.Names.Lookup(name)
	if p == nil || !rt.packages[p] {
		log.Errorf("activatePackage() - Unable to find package '%s'.", name)
		return false
	}
	if rt.activeIndex(p) >= 0 {
		return true
	}
	rt.activateOne(p)
	log.Debugf("activated package %s", p)
	return true
}

// DeactivatePackage removes package name from the active stack. Packages
// activated after it are unwound newest first, name is removed, and the
// unwound packages are re-activated in their original order.
func (rt *Runtime) DeactivatePackage(name string) bool {
	p := rt.Names.Lookup(name)
	if p == nil {
		return false
	}
	idx := rt.activeIndex(p)
	if idx < 0 {
		return false
	}
	above := append([]*Name(nil), rt.activePackages[idx+1:]...)
	for i := len(rt.activePackages) - 1; i >= idx; i-- {
		rt.deactivateOne(rt.activePackages[i])
	}
	rt.activePackages = rt.activePackages[:idx]
	for _, q := range above {
		rt.activateOne(q)
	}
	rt.trashCache()
	log.Debugf("deactivated package %s", p)
	return true
}
