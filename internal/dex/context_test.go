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
    `fmt`
    `sync`
    `testing`

    `github.com/brianvoe/gofakeit/v6`
    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

func TestContext_InternStringUnique(t *testing.T) {
    ctx := NewContext()
    faker := gofakeit.New(42)

    for i := 0; i < 1000; i++ {
        s := faker.LetterN(uint(1 + i % 40))
        a := ctx.MakeString(s)
        b := ctx.MakeString(s)
        require.True(t, a == b, "equal byte sequences must intern to the same handle")
        require.Equal(t, s, a.Str())
    }

    x := ctx.MakeString("foo")
    y := ctx.MakeString("bar")
    assert.False(t, x == y)
    assert.Nil(t, ctx.GetString("never-interned"))
}

func TestContext_InternStringConcurrent(t *testing.T) {
    ctx := NewContext()

    var wg sync.WaitGroup
    results := make([][]*String, 8)
    for w := 0; w < 8; w++ {
        wg.Add(1)
        go func(w int) {
            defer wg.Done()
            results[w] = make([]*String, 100)
            for i := 0; i < 100; i++ {
                results[w][i] = ctx.MakeString(fmt.Sprintf("str-%d", i))
            }
        }(w)
    }
    wg.Wait()

    for i := 0; i < 100; i++ {
        for w := 1; w < 8; w++ {
            require.True(t, results[w][i] == results[0][i])
        }
    }
}

func TestContext_InternTypeAndProto(t *testing.T) {
    ctx := NewContext()

    tInt := ctx.MakeTypeStr("I")
    tObj := ctx.MakeTypeStr("Ljava/lang/Object;")
    assert.True(t, tInt == ctx.MakeTypeStr("I"))

    args := ctx.MakeTypeList([]*Type { tInt, tObj })
    assert.True(t, args == ctx.MakeTypeList([]*Type { tInt, tObj }))
    assert.False(t, args == ctx.MakeTypeList([]*Type { tObj, tInt }))

    p := ctx.MakeProto(ctx.MakeTypeStr("V"), args)
    assert.True(t, p == ctx.MakeProto(ctx.MakeTypeStr("V"), args))
    assert.Equal(t, "VIL", p.Shorty().Str())
}

func TestContext_AliasTypeName(t *testing.T) {
    ctx := NewContext()
    old := ctx.MakeString("Lfoo/Old;")
    tp := ctx.MakeType(old)

    newName := ctx.MakeString("Lfoo/New;")
    require.NoError(t, ctx.AliasTypeName(tp, newName))

    assert.Nil(t, ctx.GetType(old), "old name must stop resolving")
    assert.True(t, ctx.GetType(newName) == tp, "new name must yield the same handle")
    assert.Equal(t, "Lfoo/New;", tp.Descriptor())

    /* renaming over an occupied name is an explicit failure */
    other := ctx.MakeTypeStr("Lfoo/Other;")
    assert.ErrorIs(t, ctx.AliasTypeName(other, newName), ErrNameCollision)
}

func TestContext_TypeListSurvivesRename(t *testing.T) {
    ctx := NewContext()
    tp := ctx.MakeTypeStr("Lfoo/A;")
    tl := ctx.MakeTypeList([]*Type { tp })

    require.NoError(t, ctx.AliasTypeName(tp, ctx.MakeString("Lfoo/B;")))

    /* identity is the handle sequence, not the names */
    assert.True(t, tl == ctx.MakeTypeList([]*Type { tp }))
}

func TestContext_MutateMethod(t *testing.T) {
    ctx := NewContext()
    owner := ctx.MakeTypeStr("Lfoo/A;")
    proto := ctx.MakeProto(ctx.MakeTypeStr("V"), ctx.MakeTypeList(nil))

    m := ctx.MakeMethod(owner, ctx.MakeString("run"), proto)
    other := ctx.MakeMethod(owner, ctx.MakeString("taken"), proto)

    /* plain rename rewires the lookup */
    require.NoError(t, ctx.MutateMethod(m, owner, ctx.MakeString("go"), proto, false))
    assert.Nil(t, ctx.GetMethod(owner, ctx.MakeString("run"), proto))
    assert.True(t, ctx.GetMethod(owner, ctx.MakeString("go"), proto) == m)

    /* collision without the rename flag fails */
    err := ctx.MutateMethod(m, owner, ctx.MakeString("taken"), proto, false)
    assert.ErrorIs(t, err, ErrNameCollision)
    assert.True(t, ctx.GetMethod(owner, ctx.MakeString("go"), proto) == m, "failed rename must not disturb the handle")

    /* with the flag a fresh suffix is chosen */
    require.NoError(t, ctx.MutateMethod(m, owner, ctx.MakeString("taken"), proto, true))
    assert.NotEqual(t, "taken", m.Name().Str())
    assert.True(t, ctx.GetMethod(owner, m.Name(), proto) == m)
    assert.True(t, ctx.GetMethod(owner, ctx.MakeString("taken"), proto) == other)
}

func TestContext_MutateField(t *testing.T) {
    ctx := NewContext()
    owner := ctx.MakeTypeStr("Lfoo/A;")
    ft := ctx.MakeTypeStr("I")

    f := ctx.MakeField(owner, ctx.MakeString("count"), ft)
    require.NoError(t, ctx.MutateField(f, owner, ctx.MakeString("n"), ft, false))
    assert.Nil(t, ctx.GetField(owner, ctx.MakeString("count"), ft))
    assert.True(t, ctx.GetField(owner, ctx.MakeString("n"), ft) == f)
}

func TestContext_EraseMethod(t *testing.T) {
    ctx := NewContext()
    owner := ctx.MakeTypeStr("Lfoo/A;")
    proto := ctx.MakeProto(ctx.MakeTypeStr("V"), ctx.MakeTypeList(nil))
    name := ctx.MakeString("gone")

    m := ctx.MakeMethod(owner, name, proto)
    ctx.EraseMethod(m)
    assert.Nil(t, ctx.GetMethod(owner, name, proto))

    /* the handle itself survives erasure */
    assert.Equal(t, "gone", m.Name().Str())
}

func TestContext_TypeClass(t *testing.T) {
    ctx := NewContext()
    tp := ctx.MakeTypeStr("Lfoo/A;")
    require.Nil(t, ctx.TypeClass(tp))

    cls := ctx.MakeClass(tp, nil, AccPublic, ctx.MakeTypeList(nil))
    assert.True(t, ctx.TypeClass(tp) == cls)

    seen := 0
    ctx.WalkTypeClass(func(t2 *Type, c *Class) {
        assert.True(t, t2 == tp && c == cls)
        seen++
    })
    assert.Equal(t, 1, seen)

    ctx.EraseClass(cls)
    assert.Nil(t, ctx.TypeClass(tp))
}
