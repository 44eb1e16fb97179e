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
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`

    `github.com/slimdex/slimdex/internal/dex`
)

type fixture struct {
    ctx   *dex.Context
    scope dex.Scope
    void  *dex.Proto
}

func newFixture() *fixture {
    ctx := dex.NewContext()
    return &fixture {
        ctx  : ctx,
        void : ctx.MakeProto(ctx.MakeTypeStr("V"), ctx.MakeTypeList(nil)),
    }
}

func (self *fixture) class(desc string, super *dex.Class, intfs ...*dex.Class) *dex.Class {
    var sup *dex.Type
    if super != nil {
        sup = super.Type()
    }
    tl := make([]*dex.Type, 0, len(intfs))
    for _, i := range intfs {
        tl = append(tl, i.Type())
    }
    cls := self.ctx.MakeClass(self.ctx.MakeTypeStr(desc), sup, dex.AccPublic, self.ctx.MakeTypeList(tl))
    self.scope = append(self.scope, cls)
    return cls
}

func (self *fixture) iface(desc string, extends ...*dex.Class) *dex.Class {
    tl := make([]*dex.Type, 0, len(extends))
    for _, i := range extends {
        tl = append(tl, i.Type())
    }
    cls := self.ctx.MakeClass(self.ctx.MakeTypeStr(desc), nil, dex.AccPublic | dex.AccInterface, self.ctx.MakeTypeList(tl))
    self.scope = append(self.scope, cls)
    return cls
}

func (self *fixture) vmethod(cls *dex.Class, name string) *dex.Method {
    m := self.ctx.MakeMethod(cls.Type(), self.ctx.MakeString(name), self.void)
    m.MakeConcrete(dex.AccPublic, nil, true)
    cls.AddVirtualMethod(m)
    return m
}

func descs(ts []*dex.Type) []string {
    out := make([]string, 0, len(ts))
    for _, t := range ts {
        out = append(out, t.Descriptor())
    }
    return out
}

func TestIndex_ChildrenClosure(t *testing.T) {
    f := newFixture()
    a := f.class("La;", nil)
    b := f.class("Lb;", a)
    c := f.class("Lc;", b)
    d := f.class("Ld;", a)

    ix := Build(f.ctx, f.scope)

    assert.Equal(t, []string { "Lb;", "Ld;" }, descs(ix.DirectChildren(a.Type())))
    all := descs(ix.AllChildren(a.Type()))
    assert.Equal(t, []string { "Lb;", "Lc;", "Ld;" }, all)
    assert.NotContains(t, all, "La;", "the closure never contains the root itself")
    assert.Empty(t, ix.AllChildren(c.Type()))
    _ = d
}

func TestIndex_RootlessClassesAttachToObject(t *testing.T) {
    f := newFixture()
    a := f.class("La;", nil)

    ix := Build(f.ctx, f.scope)
    obj := f.ctx.GetTypeStr(dex.ObjectDescriptor)
    require.NotNil(t, obj)
    assert.Contains(t, descs(ix.DirectChildren(obj)), "La;")
    _ = a
}

func TestIndex_Implementors(t *testing.T) {
    f := newFixture()
    iBase := f.iface("Libase;")
    iExt := f.iface("Liext;", iBase)
    a := f.class("La;", nil, iExt)
    b := f.class("Lb;", a)
    f.class("Lc;", nil)

    ix := Build(f.ctx, f.scope)

    /* implementing the extending interface implements the base, and
     * descendants ride along */
    impls := descs(ix.Implementors(iBase.Type()))
    assert.Contains(t, impls, "La;")
    assert.Contains(t, impls, "Lb;")
    assert.NotContains(t, impls, "Lc;")

    got := descs(AllImplementors(f.ctx, f.scope, iBase.Type()))
    assert.Contains(t, got, "La;")
    assert.Contains(t, got, "Lb;")
    _ = b
}

func TestIndex_FindCollisionSymmetry(t *testing.T) {
    f := newFixture()
    a := f.class("La;", nil)
    b := f.class("Lb;", a)
    am := f.vmethod(a, "m")
    bm := f.vmethod(b, "m")

    ix := Build(f.ctx, f.scope)

    /* whatever collision comes back must genuinely collide and never
     * be the excepted method itself */
    got := ix.FindCollisionExcepting(bm, bm.Name(), bm.Proto(), b, true, false)
    require.NotNil(t, got)
    assert.True(t, got != bm)
    assert.True(t, got.Name() == bm.Name())
    assert.True(t, got.Proto() == bm.Proto())
    assert.True(t, got == am)
}

/* the rename-with-collision scenario across a two-class hierarchy */
func TestIndex_RenameWithCollision(t *testing.T) {
    f := newFixture()
    a := f.class("La;", nil)
    b := f.class("Lb;", a)
    am := f.vmethod(a, "m")
    bm := f.vmethod(b, "m")

    ix := Build(f.ctx, f.scope)
    m2 := f.ctx.MakeString("m2")

    /* renaming A.m to m2 is free of collisions */
    require.NoError(t, ix.RenameMethod(am, m2, false))
    assert.Equal(t, "m2", am.Name().Str())

    /* B.m -> m2 would now bind calls through A.m2, so it must fail */
    err := ix.RenameMethod(bm, m2, false)
    assert.ErrorIs(t, err, ErrNameCollision)
    assert.Equal(t, "m", bm.Name().Str())

    /* with collision avoidance the rename succeeds under a fresh name */
    require.NoError(t, ix.RenameMethod(bm, m2, true))
    assert.NotEqual(t, "m2", bm.Name().Str())
    assert.NotEqual(t, "m", bm.Name().Str())
    assert.True(t, f.ctx.GetMethod(b.Type(), bm.Name(), bm.Proto()) == bm)
}

func TestIndex_ResolveVirtual(t *testing.T) {
    f := newFixture()
    a := f.class("La;", nil)
    b := f.class("Lb;", a)
    am := f.vmethod(a, "m")

    ix := Build(f.ctx, f.scope)

    /* resolution walks up from the receiver class */
    got := ix.ResolveVirtual(b, am.Name(), am.Proto())
    assert.True(t, got == am)
    assert.Nil(t, ix.ResolveVirtual(b, f.ctx.MakeString("nope"), am.Proto()))
}
