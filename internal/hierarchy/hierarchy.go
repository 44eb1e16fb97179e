/*
 * Copyright 2024 Slimdex Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package hierarchy builds the class-hierarchy and virtual-dispatch
// index over a scope. Both index structures are pure functions of the
// scope: any class addition or super/interface mutation invalidates
// the index and it must be rebuilt.
package hierarchy

import (
    `errors`

    `github.com/slimdex/slimdex/internal/dex`
)

// ErrNameCollision reports that a gated rename would collide with a
// virtually-resolvable method somewhere in the hierarchy.
var ErrNameCollision = errors.New("hierarchy: rename collides in hierarchy")

// TypeSet is an insertion-ordered set of types; iteration order is
// stable across runs given the same inputs.
type TypeSet struct {
    order []*dex.Type
    seen  map[*dex.Type]struct{}
}

func newTypeSet() *TypeSet {
    return &TypeSet { seen: make(map[*dex.Type]struct{}) }
}

func (self *TypeSet) Add(t *dex.Type) {
    if _, ok := self.seen[t]; !ok {
        self.seen[t] = struct{}{}
        self.order = append(self.order, t)
    }
}

func (self *TypeSet) Contains(t *dex.Type) bool {
    _, ok := self.seen[t]
    return ok
}

func (self *TypeSet) Types() []*dex.Type {
    return self.order
}

func (self *TypeSet) Len() int {
    return len(self.order)
}

// Index answers "who extends X", "who implements X" and "would this
// rename collide" for one optimization run.
type Index struct {
    ctx          *dex.Context
    object       *dex.Type
    children     map[*dex.Type]*TypeSet
    implementors map[*dex.Type]*TypeSet
}

// Build constructs the index by one pass over the scope plus the
// external classes registered in the context.
func Build(ctx *dex.Context, scope dex.Scope) *Index {
    ix := &Index {
        ctx          : ctx,
        object       : ctx.MakeTypeStr(dex.ObjectDescriptor),
        children     : make(map[*dex.Type]*TypeSet),
        implementors : make(map[*dex.Type]*TypeSet),
    }

    /* scope classes first, then whatever external classes are known */
    for _, cls := range scope {
        if !cls.IsInterface() {
            ix.addClass(cls)
        }
    }
    ctx.WalkTypeClass(func(_ *dex.Type, cls *dex.Class) {
        if cls.IsExternal() && !cls.IsInterface() {
            ix.addClass(cls)
        }
    })

    ix.buildInterfaceMap()
    return ix
}

/* record super → self; classes with no super that are not the object
 * root are retrofitted as children of the object root */
func (self *Index) addClass(cls *dex.Class) {
    t := cls.Type()
    if _, ok := self.children[t]; !ok {
        self.children[t] = newTypeSet()
    }
    if super := cls.Super(); super != nil {
        self.childrenOf(super).Add(t)
    } else if t != self.object {
        self.childrenOf(self.object).Add(t)
    }
}

func (self *Index) childrenOf(t *dex.Type) *TypeSet {
    s, ok := self.children[t]
    if !ok {
        s = newTypeSet()
        self.children[t] = s
    }
    return s
}

func (self *Index) buildInterfaceMap() {
    for t := range self.children {
        cls := self.ctx.TypeClass(t)
        if cls == nil || cls.IsInterface() {
            continue
        }
        impls := newTypeSet()
        self.collectChildren(t, impls)
        impls.Add(t)
        self.spreadInterfaces(cls, impls)
    }
}

/* add the implementor set to every interface the class declares, and
 * transitively to every interface those interfaces extend */
func (self *Index) spreadInterfaces(cls *dex.Class, impls *TypeSet) {
    for _, intf := range cls.Interfaces().Types() {
        s, ok := self.implementors[intf]
        if !ok {
            s = newTypeSet()
            self.implementors[intf] = s
        }
        for _, t := range impls.Types() {
            s.Add(t)
        }
        if icls := self.ctx.TypeClass(intf); icls != nil {
            self.spreadInterfaces(icls, impls)
        }
    }
}

// DirectChildren returns the immediate subclasses of t.
func (self *Index) DirectChildren(t *dex.Type) []*dex.Type {
    if s, ok := self.children[t]; ok {
        return s.Types()
    }
    return nil
}

// AllChildren returns the transitive closure of subclasses in
// depth-first preorder (each child precedes its own descendants),
// never including t itself.
func (self *Index) AllChildren(t *dex.Type) []*dex.Type {
    s := newTypeSet()
    self.collectChildren(t, s)
    return s.Types()
}

func (self *Index) collectChildren(t *dex.Type, out *TypeSet) {
    for _, child := range self.DirectChildren(t) {
        out.Add(child)
        self.collectChildren(child, out)
    }
}

// Implementors returns the classes known to implement intf, directly
// or through a supertype or extending interface.
func (self *Index) Implementors(intf *dex.Type) []*dex.Type {
    if s, ok := self.implementors[intf]; ok {
        return s.Types()
    }
    return nil
}

// AllImplementors scans a scope for every class whose class or any
// supertype declares intf, directly or through interface extension.
func AllImplementors(ctx *dex.Context, scope dex.Scope, intf *dex.Type) []*dex.Type {
    /* interfaces that extend intf, transitively */
    intfs := newTypeSet()
    intfs.Add(intf)
    for _, cls := range scope {
        gatherIntfExtenders(ctx, cls.Type(), intf, intfs)
    }

    impls := newTypeSet()
    for _, cls := range scope {
        for cur := cls; cur != nil; cur = ctx.TypeClass(cur.Super()) {
            found := false
            for _, impl := range cur.Interfaces().Types() {
                if intfs.Contains(impl) {
                    impls.Add(cls.Type())
                    found = true
                    break
                }
            }
            if found {
                break
            }
        }
    }
    return impls.Types()
}

func gatherIntfExtenders(ctx *dex.Context, extender *dex.Type, intf *dex.Type, out *TypeSet) bool {
    cls := ctx.TypeClass(extender)
    if cls == nil || !cls.IsInterface() {
        return false
    }
    extends := false
    for _, ext := range cls.Interfaces().Types() {
        if ext == intf || gatherIntfExtenders(ctx, ext, intf, out) {
            out.Add(extender)
            extends = true
        }
    }
    return extends
}
