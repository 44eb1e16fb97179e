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

package domain

import (
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`

    `github.com/slimdex/slimdex/internal/ptree`
)

func TestNullness_Lattice(t *testing.T) {
    assert.True(t, NullBottom.Leq(IsNull))
    assert.True(t, NullBottom.Leq(NotNull))
    assert.True(t, IsNull.Leq(Nullable))
    assert.True(t, NotNull.Leq(Nullable))
    assert.False(t, IsNull.Leq(NotNull))
    assert.False(t, NotNull.Leq(IsNull))

    assert.Equal(t, Nullable, IsNull.Join(NotNull))
    assert.Equal(t, NullBottom, IsNull.Meet(NotNull))
    assert.Equal(t, IsNull, IsNull.Join(IsNull))
    assert.Equal(t, IsNull, IsNull.Meet(Nullable))
}

func TestSimple_JoinMeet(t *testing.T) {
    a := SimpleValue(7)
    b := SimpleValue(9)

    assert.True(t, a.Join(b).IsTop())
    assert.True(t, a.Meet(b).IsBottom())
    assert.Equal(t, a, a.Join(a))
    assert.Equal(t, a, a.Join(SimpleBottom[int]()))
    assert.Equal(t, a, a.Meet(SimpleTop[int]()))
    assert.True(t, SimpleBottom[int]().Leq(a))
    assert.True(t, a.Leq(SimpleTop[int]()))
}

/* join must be an upper bound, meet a lower bound */
func TestStringSet_JoinIsLub(t *testing.T) {
    a := StringSetOf("a", "b")
    b := StringSetOf("b", "c")

    j := a.Join(b)
    assert.True(t, a.Leq(j))
    assert.True(t, b.Leq(j))

    m := a.Meet(b)
    assert.True(t, m.Leq(a))
    assert.True(t, m.Leq(b))
}

func envOf(pairs map[uint64]StringSet) Env[StringSet] {
    e := TopEnv[StringSet]()
    for k, v := range pairs {
        e = e.Set(k, v)
    }
    return e
}

func TestEnv_JoinIsLub(t *testing.T) {
    e1 := envOf(map[uint64]StringSet {
        1 : StringSetOf("a"),
        2 : StringSetOf("b"),
    })
    e2 := envOf(map[uint64]StringSet {
        2 : StringSetOf("b", "c"),
        3 : StringSetOf("d"),
    })

    j := e1.Join(e2)
    assert.True(t, e1.Leq(j))
    assert.True(t, e2.Leq(j))

    m := e1.Meet(e2)
    assert.True(t, m.Leq(e1))
    assert.True(t, m.Leq(e2))

    assert.True(t, BottomEnv[StringSet]().Leq(e1))
    assert.False(t, e1.Leq(BottomEnv[StringSet]()))
}

/* the union/intersect scenario over the hashed-set-of-string domain */
func TestMap_UnionIntersectScenario(t *testing.T) {
    var m1, m2 ptree.Map[StringSet]
    m1 = m1.InsertOrAssign(1, StringSetOf("a"))
    m1 = m1.InsertOrAssign(2, StringSetOf("b"))
    m1 = m1.InsertOrAssign(3, StringSetOf("d", "e"))

    m2 = m2.InsertOrAssign(2, StringSetOf("c"))
    m2 = m2.InsertOrAssign(3, StringSetOf("e", "f"))
    m2 = m2.InsertOrAssign(4, StringSetOf("g"))

    u := m1.UnionWith(SetUnion, m2)
    require.Equal(t, 4, u.Size())
    assert.Equal(t, []string { "a" }, u.At(1).Elements())
    assert.Equal(t, []string { "b", "c" }, u.At(2).Elements())
    assert.Equal(t, []string { "d", "e", "f" }, u.At(3).Elements())
    assert.Equal(t, []string { "g" }, u.At(4).Elements())

    /* the untouched binding keeps its subtree */
    assert.True(t, u.SharesSubtree(m1, 1), "binding for key 1 must be shared with m1")

    i := m1.IntersectWith(SetMeet, m2)
    require.Equal(t, 1, i.Size())
    assert.Equal(t, []string { "e" }, i.At(3).Elements())
    assert.True(t, i.At(2).IsTop(), "meet drained binding 2 to Top, so it must be gone")
}

func TestAliases_Basics(t *testing.T) {
    a := NewAliases()
    v1 := RegisterValue(1)
    v2 := RegisterValue(2)
    v3 := RegisterValue(3)

    a.MakeAliased(v1, v2)
    a.MakeAliased(v2, v3)

    /* closure is implicit */
    assert.True(t, a.AreAliases(v1, v3))
    assert.True(t, a.AreAliases(v3, v1))
    assert.False(t, a.AreAliases(v1, RegisterValue(9)))

    rep, ok := a.GetRepresentative(v3)
    require.True(t, ok)
    assert.Equal(t, uint32(1), rep)

    /* breaking v2 keeps nothing between v1 and v3 here, since both
     * edges went through v2 */
    a.BreakAlias(v2)
    assert.False(t, a.AreAliases(v1, v3))
}

func TestAliases_BreakPreservesOthers(t *testing.T) {
    a := NewAliases()
    v1, v2, v3 := RegisterValue(1), RegisterValue(2), RegisterValue(3)
    a.MakeAliased(v1, v2)
    a.MakeAliased(v1, v3)
    a.MakeAliased(v2, v3)

    a.BreakAlias(v1)
    assert.False(t, a.AreAliases(v1, v2))
    assert.True(t, a.AreAliases(v2, v3), "aliases among the ex-neighbours survive")
}

func TestAliases_JoinIntersects(t *testing.T) {
    a := NewAliases()
    a.MakeAliased(RegisterValue(1), RegisterValue(2))
    a.MakeAliased(RegisterValue(3), RegisterValue(4))

    b := NewAliases()
    b.MakeAliased(RegisterValue(1), RegisterValue(2))
    b.MakeAliased(RegisterValue(5), RegisterValue(6))

    save := a.Clone()
    a.JoinWith(b)
    assert.True(t, a.AreAliases(RegisterValue(1), RegisterValue(2)))
    assert.False(t, a.AreAliases(RegisterValue(3), RegisterValue(4)))

    /* both inputs are below the join result */
    assert.True(t, save.Leq(a))
    assert.True(t, b.Leq(a))
}

func TestAliases_ConstantsAreVertices(t *testing.T) {
    a := NewAliases()
    lit := LiteralValue(42)
    a.MakeAliased(RegisterValue(5), lit)
    a.MakeAliased(RegisterValue(6), lit)
    assert.True(t, a.AreAliases(RegisterValue(5), RegisterValue(6)))

    rep, ok := a.GetRepresentative(RegisterValue(6))
    require.True(t, ok)
    assert.Equal(t, uint32(5), rep)
}

func TestAliasDomain_Sentinels(t *testing.T) {
    top := TopAliases()
    assert.True(t, top.IsTop())

    d := ValueAliases(NewAliases())
    d.Update(func(a *Aliases) {
        a.MakeAliased(RegisterValue(1), RegisterValue(2))
    })
    assert.False(t, d.IsTop())
    assert.True(t, d.Leq(&top))

    bot := BottomDomain[*Aliases]()
    assert.True(t, bot.Leq(&d))
    assert.False(t, d.Leq(&bot))
}
