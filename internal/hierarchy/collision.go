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

package hierarchy

import (
    `strconv`

    `github.com/bytedance/gopkg/lang/fastrand`
    `github.com/slimdex/slimdex/internal/dex`
)

func match(name *dex.String, proto *dex.Proto, m *dex.Method) bool {
    return m.Name() == name && m.Proto() == proto
}

func checkMethods(ms []*dex.Method, name *dex.String, proto *dex.Proto, except *dex.Method) *dex.Method {
    for _, m := range ms {
        if match(name, proto, m) && m != except {
            return m
        }
    }
    return nil
}

// ResolveVirtual walks the ancestor chain starting at cls looking for
// a virtual method with the given signature. A nil result means the
// call site would resolve outside the known hierarchy.
func (self *Index) ResolveVirtual(cls *dex.Class, name *dex.String, proto *dex.Proto) *dex.Method {
    for cur := cls; cur != nil; cur = self.ctx.TypeClass(cur.Super()) {
        for _, m := range cur.VirtualMethods() {
            if match(name, proto, m) {
                return m
            }
        }
    }
    return nil
}

// FindCollisionExcepting looks for any method other than except that a
// rename to (name, proto) on cls would collide with: first the class's
// own direct and virtual methods, then (for virtual renames) anything
// virtually resolvable in an ancestor, then the descendants' virtual
// methods, and their direct methods iff checkDirect.
func (self *Index) FindCollisionExcepting(except *dex.Method, name *dex.String, proto *dex.Proto,
                                          cls *dex.Class, isVirtual bool, checkDirect bool) *dex.Method {
    if m := checkMethods(cls.DirectMethods(), name, proto, except); m != nil {
        return m
    }
    if m := checkMethods(cls.VirtualMethods(), name, proto, except); m != nil {
        return m
    }
    if !isVirtual {
        return nil
    }

    if super := self.ctx.TypeClass(cls.Super()); super != nil {
        if m := self.ResolveVirtual(super, name, proto); m != nil && m != except {
            return m
        }
    }

    for _, child := range self.AllChildren(cls.Type()) {
        ccls := self.ctx.TypeClass(child)
        if ccls == nil {
            continue
        }
        if m := checkMethods(ccls.VirtualMethods(), name, proto, except); m != nil {
            return m
        }
        if checkDirect {
            if m := checkMethods(ccls.DirectMethods(), name, proto, except); m != nil {
                return m
            }
        }
    }
    return nil
}

// RenameMethod renames m within its owner, gated by the hierarchy
// collision check. Without renameOnCollision a collision is an error;
// with it, a fresh suffixed name is chosen so that neither the
// hierarchy nor the interning context objects.
func (self *Index) RenameMethod(m *dex.Method, newName *dex.String, renameOnCollision bool) error {
    cls := self.ctx.TypeClass(m.Owner())
    if cls == nil {
        panic("hierarchy: rename of a method with no resolvable class: " + m.String())
    }

    name := newName
    if self.FindCollisionExcepting(m, name, m.Proto(), cls, m.IsVirtual(), false) != nil {
        if !renameOnCollision {
            return ErrNameCollision
        }
        name = self.freshName(m, newName, cls)
    }
    return self.ctx.MutateMethod(m, m.Owner(), name, m.Proto(), renameOnCollision)
}

/* probe suffixed candidates until one is free in both the hierarchy
 * and the context */
func (self *Index) freshName(m *dex.Method, base *dex.String, cls *dex.Class) *dex.String {
    n := fastrand.Uint32n(0xffff)
    for {
        name := self.ctx.MakeString(base.Str() + "$" + strconv.FormatUint(uint64(n), 10))
        if self.FindCollisionExcepting(m, name, m.Proto(), cls, m.IsVirtual(), false) == nil {
            if self.ctx.GetMethod(m.Owner(), name, m.Proto()) == nil {
                return name
            }
        }
        n++
    }
}
