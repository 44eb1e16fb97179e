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

package dex

import (
    `errors`
    `strconv`
    `strings`
    `sync`
    `unsafe`

    `github.com/bytedance/gopkg/collection/skipmap`
    `github.com/bytedance/gopkg/lang/fastrand`
)

// ErrNameCollision is returned by the re-keying operations when the
// requested identity is already taken. Collisions are never resolved
// silently; the caller either retries with a collision-avoiding rename
// or skips the mutation.
var ErrNameCollision = errors.New("dex: name collision")

type protoKey struct {
    rtype *Type
    args  *TypeList
}

type fieldKey struct {
    owner *Type
    name  *String
    typ   *Type
}

type methodKey struct {
    owner *Type
    name  *String
    proto *Proto
}

// Context is the process-wide interning arena. It is the sole owner of
// every String, Type, TypeList, Proto, Field, Method and Class handle;
// handles are non-owning, never duplicated, and valid for the life of
// the context. All lookups are get-or-create on the Make* surface and
// nil-returning on the Get* surface.
//
// Make* and Get* are safe to call concurrently. The re-keying surface
// (AliasTypeName, MutateField, MutateMethod, EraseMethod, EraseClass)
// must only run during single-threaded driver phases; it serializes
// against itself but not against concurrent readers of the same handle.
type Context struct {
    strings *skipmap.StringMap
    types   *skipmap.StringMap

    mu        sync.Mutex
    typeLists map[string]*TypeList
    protos    map[protoKey]*Proto
    fields    map[fieldKey]*Field
    methods   map[methodKey]*Method
    classes   map[*Type]*Class
}

func NewContext() *Context {
    return &Context {
        strings   : skipmap.NewString(),
        types     : skipmap.NewString(),
        typeLists : make(map[string]*TypeList),
        protos    : make(map[protoKey]*Proto),
        fields    : make(map[fieldKey]*Field),
        methods   : make(map[methodKey]*Method),
        classes   : make(map[*Type]*Class),
    }
}

/* ---------- strings ---------- */

func (self *Context) MakeString(s string) *String {
    if v, ok := self.strings.Load(s); ok {
        return v.(*String)
    }
    v, _ := self.strings.LoadOrStoreLazy(s, func() interface{} {
        return &String { data: s, utf16: utf16Length(s) }
    })
    return v.(*String)
}

func (self *Context) GetString(s string) *String {
    if v, ok := self.strings.Load(s); ok {
        return v.(*String)
    }
    return nil
}

/* ---------- types ---------- */

func (self *Context) MakeType(name *String) *Type {
    if v, ok := self.types.Load(name.Str()); ok {
        return v.(*Type)
    }
    v, _ := self.types.LoadOrStoreLazy(name.Str(), func() interface{} {
        return &Type { name: name }
    })
    return v.(*Type)
}

func (self *Context) MakeTypeStr(desc string) *Type {
    return self.MakeType(self.MakeString(desc))
}

func (self *Context) GetType(name *String) *Type {
    if name == nil {
        return nil
    }
    if v, ok := self.types.Load(name.Str()); ok {
        return v.(*Type)
    }
    return nil
}

func (self *Context) GetTypeStr(desc string) *Type {
    if v, ok := self.types.Load(desc); ok {
        return v.(*Type)
    }
    return nil
}

// AliasTypeName re-keys an existing type handle to a new name. The
// handle itself does not move: every structure keyed by *Type stays
// valid, only the name index is rewired. Subsequent lookups under the
// old name fail, lookups under the new name yield the same handle.
func (self *Context) AliasTypeName(t *Type, newName *String) error {
    self.mu.Lock()
    defer self.mu.Unlock()

    if _, ok := self.types.Load(newName.Str()); ok {
        return ErrNameCollision
    }

    self.types.Delete(t.name.Str())
    self.types.Store(newName.Str(), t)
    t.name = newName
    return nil
}

/* ---------- type lists ---------- */

/* identity of a type list is the sequence of type handles, which is
 * stable across renames; the key is therefore built from the handle
 * addresses, never from the names */
func typeListKey(ts []*Type) string {
    var b strings.Builder
    for _, t := range ts {
        b.WriteString(strconv.FormatUint(uint64(uintptr(unsafe.Pointer(t))), 16))
        b.WriteByte(';')
    }
    return b.String()
}

func (self *Context) MakeTypeList(ts []*Type) *TypeList {
    self.mu.Lock()
    defer self.mu.Unlock()

    key := typeListKey(ts)
    if v, ok := self.typeLists[key]; ok {
        return v
    }

    v := &TypeList { list: append([]*Type(nil), ts...) }
    self.typeLists[key] = v
    return v
}

func (self *Context) GetTypeList(ts []*Type) *TypeList {
    self.mu.Lock()
    defer self.mu.Unlock()
    return self.typeLists[typeListKey(ts)]
}

/* ---------- protos ---------- */

func (self *Context) MakeProto(rtype *Type, args *TypeList) *Proto {
    self.mu.Lock()
    defer self.mu.Unlock()

    key := protoKey { rtype: rtype, args: args }
    if v, ok := self.protos[key]; ok {
        return v
    }

    v := &Proto { rtype: rtype, args: args, shorty: self.makeStringLocked(ShortyOf(rtype, args)) }
    self.protos[key] = v
    return v
}

func (self *Context) GetProto(rtype *Type, args *TypeList) *Proto {
    self.mu.Lock()
    defer self.mu.Unlock()
    return self.protos[protoKey { rtype: rtype, args: args }]
}

/* MakeString without re-taking mu; the skipmap is safe on its own */
func (self *Context) makeStringLocked(s string) *String {
    v, _ := self.strings.LoadOrStoreLazy(s, func() interface{} {
        return &String { data: s, utf16: utf16Length(s) }
    })
    return v.(*String)
}

/* ---------- fields ---------- */

func (self *Context) MakeField(owner *Type, name *String, typ *Type) *Field {
    self.mu.Lock()
    defer self.mu.Unlock()

    key := fieldKey { owner: owner, name: name, typ: typ }
    if v, ok := self.fields[key]; ok {
        return v
    }

    v := &Field { owner: owner, name: name, typ: typ }
    self.fields[key] = v
    return v
}

func (self *Context) GetField(owner *Type, name *String, typ *Type) *Field {
    self.mu.Lock()
    defer self.mu.Unlock()
    return self.fields[fieldKey { owner: owner, name: name, typ: typ }]
}

// MutateField re-keys a field to a new identity. With
// renameOnCollision set, an occupied identity is resolved by picking a
// fresh "$N" name suffix; otherwise the collision is an error.
func (self *Context) MutateField(f *Field, owner *Type, name *String, typ *Type, renameOnCollision bool) error {
    self.mu.Lock()
    defer self.mu.Unlock()

    key := fieldKey { owner: owner, name: name, typ: typ }
    if v, ok := self.fields[key]; ok && v != f {
        if !renameOnCollision {
            return ErrNameCollision
        }
        name = self.freshNameLocked(name, func(n *String) bool {
            _, used := self.fields[fieldKey { owner: owner, name: n, typ: typ }]
            return used
        })
        key = fieldKey { owner: owner, name: name, typ: typ }
    }

    delete(self.fields, fieldKey { owner: f.owner, name: f.name, typ: f.typ })
    f.owner, f.name, f.typ = owner, name, typ
    self.fields[key] = f
    return nil
}

/* ---------- methods ---------- */

func (self *Context) MakeMethod(owner *Type, name *String, proto *Proto) *Method {
    self.mu.Lock()
    defer self.mu.Unlock()

    key := methodKey { owner: owner, name: name, proto: proto }
    if v, ok := self.methods[key]; ok {
        return v
    }

    v := &Method { owner: owner, name: name, proto: proto }
    self.methods[key] = v
    return v
}

func (self *Context) GetMethod(owner *Type, name *String, proto *Proto) *Method {
    self.mu.Lock()
    defer self.mu.Unlock()
    return self.methods[methodKey { owner: owner, name: name, proto: proto }]
}

func (self *Context) MutateMethod(m *Method, owner *Type, name *String, proto *Proto, renameOnCollision bool) error {
    self.mu.Lock()
    defer self.mu.Unlock()

    key := methodKey { owner: owner, name: name, proto: proto }
    if v, ok := self.methods[key]; ok && v != m {
        if !renameOnCollision {
            return ErrNameCollision
        }
        name = self.freshNameLocked(name, func(n *String) bool {
            _, used := self.methods[methodKey { owner: owner, name: n, proto: proto }]
            return used
        })
        key = methodKey { owner: owner, name: name, proto: proto }
    }

    delete(self.methods, methodKey { owner: m.owner, name: m.name, proto: m.proto })
    m.owner, m.name, m.proto = owner, name, proto
    self.methods[key] = m
    return nil
}

// EraseMethod removes the definition from name lookup. The handle
// itself survives so existing references stay comparable, but it no
// longer resolves.
func (self *Context) EraseMethod(m *Method) {
    self.mu.Lock()
    defer self.mu.Unlock()
    delete(self.methods, methodKey { owner: m.owner, name: m.name, proto: m.proto })
}

/* pick a fresh suffixed name; the starting point is randomized so
 * repeated rename rounds don't pile up on the same probe sequence */
func (self *Context) freshNameLocked(base *String, used func(*String) bool) *String {
    n := fastrand.Uint32n(0xffff)
    for {
        name := self.makeStringLocked(base.Str() + "$" + strconv.FormatUint(uint64(n), 10))
        if !used(name) {
            return name
        }
        n++
    }
}

/* ---------- classes ---------- */

// MakeClass creates and registers the concrete class for a type.
// Creating a second class for the same type is a programmer error.
func (self *Context) MakeClass(typ *Type, super *Type, access AccessFlags, interfaces *TypeList) *Class {
    self.mu.Lock()
    defer self.mu.Unlock()

    if _, ok := self.classes[typ]; ok {
        panic("dex: duplicate class definition for " + typ.Descriptor())
    }

    cls := &Class {
        typ        : typ,
        super      : super,
        access     : access,
        interfaces : interfaces,
    }
    self.classes[typ] = cls
    return cls
}

// TypeClass is the O(1) reverse index from a type to its concrete
// class, or nil when the type has no definition in scope.
func (self *Context) TypeClass(t *Type) *Class {
    self.mu.Lock()
    defer self.mu.Unlock()
    return self.classes[t]
}

// EraseClass unregisters a class definition; its type handle and any
// method/field handles survive but stop resolving through the class.
func (self *Context) EraseClass(cls *Class) {
    self.mu.Lock()
    defer self.mu.Unlock()
    delete(self.classes, cls.typ)
}

// WalkTypeClass visits every (type, class) pair currently registered.
func (self *Context) WalkTypeClass(fn func(*Type, *Class)) {
    self.mu.Lock()
    pairs := make([]*Class, 0, len(self.classes))
    for _, cls := range self.classes {
        pairs = append(pairs, cls)
    }
    self.mu.Unlock()

    for _, cls := range pairs {
        fn(cls.typ, cls)
    }
}
