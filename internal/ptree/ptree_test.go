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

package ptree

import (
    `math/rand`
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

func TestSet_InsertContains(t *testing.T) {
    var s Set
    keys := []uint64 { 0, 1, 2, 16, 17, 255, 1024, 0xdeadbeef }
    for _, k := range keys {
        s = s.Insert(k)
    }
    for _, k := range keys {
        assert.True(t, s.Contains(k), "missing key %d", k)
    }
    assert.False(t, s.Contains(3))
    assert.Equal(t, len(keys), s.Size())
}

func TestSet_RemoveCollapsesBranches(t *testing.T) {
    s := SetOf(1, 2, 3)
    s = s.Remove(2)
    assert.Equal(t, []uint64 { 1, 3 }, s.Elements())
    s = s.Remove(1)
    s = s.Remove(3)
    assert.True(t, s.IsEmpty())
    assert.Nil(t, s.root)
}

func TestSet_CanonicalAcrossInsertionOrders(t *testing.T) {
    keys := make([]uint64, 64)
    for i := range keys {
        keys[i] = rand.Uint64()
    }

    a, b := Set{}, Set{}
    for _, k := range keys {
        a = a.Insert(k)
    }
    for i := len(keys) - 1; i >= 0; i-- {
        b = b.Insert(keys[i])
    }

    require.True(t, a.Equals(b))
    assert.Equal(t, a.Elements(), b.Elements())
}

func TestSet_UnionIntersectDifference(t *testing.T) {
    a := SetOf(1, 2, 3, 4)
    b := SetOf(3, 4, 5, 6)

    assert.Equal(t, []uint64 { 1, 2, 3, 4, 5, 6 }, a.Union(b).Elements())
    assert.Equal(t, []uint64 { 3, 4 }, a.Intersect(b).Elements())
    assert.Equal(t, []uint64 { 1, 2 }, a.Difference(b).Elements())
}

func TestSet_UnionPreservesSharing(t *testing.T) {
    a := SetOf(1, 2, 3)

    /* the sublinear short-circuits fire on shared structure, so a
     * subset carved out of the same tree unions back to it */
    b := a.Remove(1)
    u := a.Union(b)
    assert.True(t, u.root == a.root, "union with a shared subset must return the same tree")
}

func TestSet_Leq(t *testing.T) {
    a := SetOf(1, 2)
    b := SetOf(1, 2, 3)
    assert.True(t, a.Leq(b))
    assert.False(t, b.Leq(a))
    assert.True(t, Set{}.Leq(a))
    assert.True(t, a.Leq(a))
}

/* minimal abstract value for exercising the map shell: a saturating
 * max-counter where 0 is Top */
type minVal struct {
    v uint64
}

func (self minVal) Top() minVal             { return minVal{} }
func (self minVal) IsTop() bool             { return self.v == 0 }
func (self minVal) Leq(o minVal) bool       { return o.v == 0 || (self.v != 0 && self.v >= o.v) }
func (self minVal) Equals(o minVal) bool    { return self.v == o.v }

func maxCombine(existing minVal, incoming minVal) minVal {
    if existing.v >= incoming.v {
        return existing
    }
    return incoming
}

func TestMap_InsertAt(t *testing.T) {
    var m Map[minVal]
    m = m.InsertOrAssign(1, minVal { v: 10 })
    m = m.InsertOrAssign(2, minVal { v: 20 })

    assert.Equal(t, uint64(10), m.At(1).v)
    assert.Equal(t, uint64(20), m.At(2).v)
    assert.True(t, m.At(99).IsTop())
    assert.Equal(t, 2, m.Size())
}

func TestMap_InsertTopDeletesBinding(t *testing.T) {
    var m Map[minVal]
    m = m.InsertOrAssign(7, minVal { v: 1 })
    m = m.InsertOrAssign(7, minVal{})
    assert.False(t, m.Contains(7))
    assert.True(t, m.IsEmpty())
}

func TestMap_UpdateCombineOrder(t *testing.T) {
    var m Map[minVal]
    m = m.InsertOrAssign(3, minVal { v: 5 })

    /* the update operation sees the existing binding, never the
     * synthesized incoming value */
    m = m.Update(func(x minVal) minVal {
        assert.Equal(t, uint64(5), x.v)
        return minVal { v: x.v + 1 }
    }, 3)
    assert.Equal(t, uint64(6), m.At(3).v)
}

func TestMap_UnionSharesUntouchedSubtrees(t *testing.T) {
    var a, b Map[minVal]
    a = a.InsertOrAssign(1, minVal { v: 1 })
    a = a.InsertOrAssign(2, minVal { v: 2 })
    b = b.InsertOrAssign(2, minVal { v: 5 })

    u := a.UnionWith(maxCombine, b)
    assert.Equal(t, uint64(1), u.At(1).v)
    assert.Equal(t, uint64(5), u.At(2).v)
    assert.True(t, u.SharesSubtree(a, 1), "binding 1 must be shared with the left operand")
}

func TestMap_LeqAbsentMeansTop(t *testing.T) {
    var a, b Map[minVal]
    a = a.InsertOrAssign(1, minVal { v: 9 })

    /* b has no bindings, so everything sits at Top and a ≤ b */
    assert.True(t, a.Leq(b))
    assert.False(t, b.Leq(a))

    b = b.InsertOrAssign(1, minVal { v: 3 })
    assert.True(t, a.Leq(b))
    assert.False(t, b.Leq(a))
}

func TestMap_EqualsIsStructural(t *testing.T) {
    var a, b Map[minVal]
    for _, k := range []uint64 { 9, 5, 1, 77, 1024 } {
        a = a.InsertOrAssign(k, minVal { v: k })
    }
    for _, k := range []uint64 { 1024, 1, 77, 5, 9 } {
        b = b.InsertOrAssign(k, minVal { v: k })
    }
    assert.True(t, a.Equals(b))
}
