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

// Value is the capability set a Patricia tree map requires of its
// mapped values. Keys that are absent from the map are implicitly
// bound to Top, which is why the map needs to synthesize a Top value
// and to recognize one: bindings whose value becomes Top are removed
// rather than stored.
type Value[T any] interface {
    Top() T
    IsTop() bool
    Leq(other T) bool
    Equals(other T) bool
}

// CombiningFn merges an existing binding with an incoming value. The
// existing value is always the first argument and the incoming value
// the second; several callers rely on this order and pass functions
// that ignore the second argument entirely.
type CombiningFn[T any] func(existing T, incoming T) T

// Map is an immutable, persistent map from uint64 keys to abstract
// values, specialized the same way the set is: canonical shape,
// structural sharing, absence means Top.
type Map[V Value[V]] struct {
    root *mnode[V]
}

/* a node is a leaf iff mask == 0 */
type mnode[V Value[V]] struct {
    prefix uint64
    mask   uint64
    value  V
    left   *mnode[V]
    right  *mnode[V]
}

func mleaf[V Value[V]](key uint64, v V) *mnode[V] {
    return &mnode[V] { prefix: key, value: v }
}

func (self *mnode[V]) isLeaf() bool {
    return self.mask == 0
}

func (self *mnode[V]) key() uint64 {
    return self.prefix
}

func mjoin[V Value[V]](p0 uint64, t0 *mnode[V], p1 uint64, t1 *mnode[V]) *mnode[V] {
    m := branchingBit(p0, p1)
    if isZeroBit(p0, m) {
        return &mnode[V] { prefix: maskBits(p0, m), mask: m, left: t0, right: t1 }
    } else {
        return &mnode[V] { prefix: maskBits(p0, m), mask: m, left: t1, right: t0 }
    }
}

func mmake[V Value[V]](prefix uint64, mask uint64, left *mnode[V], right *mnode[V]) *mnode[V] {
    if left == nil {
        return right
    } else if right == nil {
        return left
    } else {
        return &mnode[V] { prefix: prefix, mask: mask, left: left, right: right }
    }
}

func mfind[V Value[V]](t *mnode[V], key uint64) (V, bool) {
    for t != nil {
        if t.isLeaf() {
            if t.key() == key {
                return t.value, true
            }
            break
        } else if isZeroBit(key, t.mask) {
            t = t.left
        } else {
            t = t.right
        }
    }
    var zero V
    return zero, false
}

/* combine the incoming value into a leaf; a combined-to-Top binding disappears */
func mcombineLeaf[V Value[V]](combine CombiningFn[V], v V, leaf *mnode[V]) *mnode[V] {
    nv := combine(leaf.value, v)
    if nv.IsTop() {
        return nil
    } else if !nv.Equals(leaf.value) {
        return mleaf(leaf.key(), nv)
    } else {
        return leaf
    }
}

/* synthesize a Top-valued leaf and combine the incoming value into it */
func mcombineNew[V Value[V]](combine CombiningFn[V], key uint64, v V) *mnode[V] {
    var zero V
    return mcombineLeaf(combine, v, mleaf(key, zero.Top()))
}

func mupdate[V Value[V]](combine CombiningFn[V], key uint64, v V, t *mnode[V]) *mnode[V] {
    if t == nil {
        return mcombineNew(combine, key, v)
    }

    /* update a leaf in place, or split away from it */
    if t.isLeaf() {
        if key == t.key() {
            return mcombineLeaf(combine, v, t)
        }
        nl := mcombineNew(combine, key, v)
        if nl == nil {
            return t
        } else {
            return mjoin(key, nl, t.key(), t)
        }
    }

    /* descend into the matching subtree, preserving sharing */
    if matchPrefix(key, t.prefix, t.mask) {
        if isZeroBit(key, t.mask) {
            if nl := mupdate(combine, key, v, t.left); nl == t.left {
                return t
            } else {
                return mmake(t.prefix, t.mask, nl, t.right)
            }
        } else {
            if nr := mupdate(combine, key, v, t.right); nr == t.right {
                return t
            } else {
                return mmake(t.prefix, t.mask, t.left, nr)
            }
        }
    }

    /* diverging prefix */
    nl := mcombineNew(combine, key, v)
    if nl == nil {
        return t
    } else {
        return mjoin(key, nl, t.prefix, t)
    }
}

func mremove[V Value[V]](t *mnode[V], key uint64) *mnode[V] {
    if t == nil {
        return nil
    }
    if t.isLeaf() {
        if t.key() == key {
            return nil
        } else {
            return t
        }
    }
    if !matchPrefix(key, t.prefix, t.mask) {
        return t
    }
    if isZeroBit(key, t.mask) {
        if nl := mremove(t.left, key); nl == t.left {
            return t
        } else {
            return mmake(t.prefix, t.mask, nl, t.right)
        }
    } else {
        if nr := mremove(t.right, key); nr == t.right {
            return t
        } else {
            return mmake(t.prefix, t.mask, t.left, nr)
        }
    }
}

func mmerge[V Value[V]](combine CombiningFn[V], s *mnode[V], t *mnode[V]) *mnode[V] {
    if s == t {
        return s
    }
    if s == nil {
        return t
    }
    if t == nil {
        return s
    }
    if s.isLeaf() {
        return mupdate(combine, s.key(), s.value, t)
    }
    if t.isLeaf() {
        return mupdate(combine, t.key(), t.value, s)
    }

    m, p := s.mask, s.prefix
    n, q := t.mask, t.prefix

    /* same prefix, merge the subtrees */
    if m == n && p == q {
        nl := mmerge(combine, s.left, t.left)
        nr := mmerge(combine, s.right, t.right)
        if nl == s.left && nr == s.right {
            return s
        } else if nl == t.left && nr == t.right {
            return t
        } else {
            return &mnode[V] { prefix: p, mask: m, left: nl, right: nr }
        }
    }

    /* q contains p, merge t with a subtree of s */
    if m < n && matchPrefix(q, p, m) {
        if isZeroBit(q, m) {
            if nl := mmerge(combine, s.left, t); nl == s.left {
                return s
            } else {
                return &mnode[V] { prefix: p, mask: m, left: nl, right: s.right }
            }
        } else {
            if nr := mmerge(combine, s.right, t); nr == s.right {
                return s
            } else {
                return &mnode[V] { prefix: p, mask: m, left: s.left, right: nr }
            }
        }
    }

    /* p contains q, merge s with a subtree of t */
    if m > n && matchPrefix(p, q, n) {
        if isZeroBit(p, n) {
            if nl := mmerge(combine, s, t.left); nl == t.left {
                return t
            } else {
                return &mnode[V] { prefix: q, mask: n, left: nl, right: t.right }
            }
        } else {
            if nr := mmerge(combine, s, t.right); nr == t.right {
                return t
            } else {
                return &mnode[V] { prefix: q, mask: n, left: t.left, right: nr }
            }
        }
    }

    /* the prefixes disagree */
    return mjoin(p, s, q, t)
}

func mintersect[V Value[V]](combine CombiningFn[V], s *mnode[V], t *mnode[V]) *mnode[V] {
    if s == t {
        return s
    }
    if s == nil || t == nil {
        return nil
    }
    if s.isLeaf() {
        if v, ok := mfind(t, s.key()); ok {
            return mcombineLeaf(combine, v, s)
        } else {
            return nil
        }
    }
    if t.isLeaf() {
        if v, ok := mfind(s, t.key()); ok {
            return mcombineLeaf(combine, v, t)
        } else {
            return nil
        }
    }

    m, p := s.mask, s.prefix
    n, q := t.mask, t.prefix

    if m == n && p == q {
        return mmake(p, m, mintersect(combine, s.left, t.left), mintersect(combine, s.right, t.right))
    }
    if m < n && matchPrefix(q, p, m) {
        if isZeroBit(q, m) {
            return mintersect(combine, s.left, t)
        } else {
            return mintersect(combine, s.right, t)
        }
    }
    if m > n && matchPrefix(p, q, n) {
        if isZeroBit(p, n) {
            return mintersect(combine, s, t.left)
        } else {
            return mintersect(combine, s, t.right)
        }
    }
    return nil
}

/* pointwise leq with the absent-means-Top convention: every explicit
 * binding in t must be covered by an explicit, smaller-or-equal
 * binding in s */
func mleq[V Value[V]](s *mnode[V], t *mnode[V]) bool {
    if s == t {
        return true
    }
    if s == nil {
        return t == nil
    }
    if t == nil {
        return true
    }
    if s.isLeaf() {
        if !t.isLeaf() {
            return false
        }
        return s.key() == t.key() && s.value.Leq(t.value)
    }
    if t.isLeaf() {
        if v, ok := mfind(s, t.key()); ok {
            return v.Leq(t.value)
        } else {
            return false
        }
    }

    m, p := s.mask, s.prefix
    n, q := t.mask, t.prefix

    if m == n && p == q {
        return mleq(s.left, t.left) && mleq(s.right, t.right)
    }
    if m < n && matchPrefix(q, p, m) {
        if isZeroBit(q, m) {
            return mleq(s.left, t)
        } else {
            return mleq(s.right, t)
        }
    }

    /* t binds keys that s leaves implicitly at Top */
    return false
}

func mequals[V Value[V]](s *mnode[V], t *mnode[V]) bool {
    if s == t {
        return true
    }
    if s == nil || t == nil {
        return false
    }
    if s.isLeaf() != t.isLeaf() {
        return false
    }
    if s.isLeaf() {
        return s.key() == t.key() && s.value.Equals(t.value)
    }
    return s.prefix == t.prefix &&
           s.mask == t.mask &&
           mequals(s.left, t.left) &&
           mequals(s.right, t.right)
}

func mvisit[V Value[V]](t *mnode[V], fn func(uint64, V) bool) bool {
    if t == nil {
        return true
    } else if t.isLeaf() {
        return fn(t.key(), t.value)
    } else {
        return mvisit(t.left, fn) && mvisit(t.right, fn)
    }
}

func msize[V Value[V]](t *mnode[V]) int {
    if t == nil {
        return 0
    } else if t.isLeaf() {
        return 1
    } else {
        return msize(t.left) + msize(t.right)
    }
}

func (self Map[V]) IsEmpty() bool {
    return self.root == nil
}

func (self Map[V]) Size() int {
    return msize(self.root)
}

// At returns the binding for key, or Top when the key is absent.
func (self Map[V]) At(key uint64) V {
    if v, ok := mfind(self.root, key); ok {
        return v
    }
    var zero V
    return zero.Top()
}

func (self Map[V]) Contains(key uint64) bool {
    _, ok := mfind(self.root, key)
    return ok
}

// InsertOrAssign binds key to v, dropping the binding when v is Top.
func (self Map[V]) InsertOrAssign(key uint64, v V) Map[V] {
    return Map[V] { root: mupdate(func(_ V, incoming V) V { return incoming }, key, v, self.root) }
}

// Update rewrites the binding at key with op(existing); an absent key
// presents as Top.
func (self Map[V]) Update(op func(V) V, key uint64) Map[V] {
    var zero V
    return Map[V] { root: mupdate(func(x V, _ V) V { return op(x) }, key, zero.Top(), self.root) }
}

func (self Map[V]) Remove(key uint64) Map[V] {
    return Map[V] { root: mremove(self.root, key) }
}

func (self Map[V]) UnionWith(combine CombiningFn[V], other Map[V]) Map[V] {
    return Map[V] { root: mmerge(combine, self.root, other.root) }
}

func (self Map[V]) IntersectWith(combine CombiningFn[V], other Map[V]) Map[V] {
    return Map[V] { root: mintersect(combine, self.root, other.root) }
}

func (self Map[V]) Leq(other Map[V]) bool {
    return mleq(self.root, other.root)
}

func (self Map[V]) Equals(other Map[V]) bool {
    return mequals(self.root, other.root)
}

// Range calls fn for every explicit binding until fn returns false.
func (self Map[V]) Range(fn func(uint64, V) bool) {
    mvisit(self.root, fn)
}

// SharesSubtree reports whether the subtree holding key is pointer-
// identical in both maps, which the persistent operations guarantee
// for untouched regions. Exposed for structural-sharing assertions.
func (self Map[V]) SharesSubtree(other Map[V], key uint64) bool {
    s, t := self.root, other.root
    for s != nil && t != nil {
        if s == t {
            return true
        }
        if s.isLeaf() || t.isLeaf() {
            return false
        }
        if s.mask != t.mask || s.prefix != t.prefix {
            /* descend the deeper side until shapes line up */
            if s.mask < t.mask {
                if isZeroBit(key, s.mask) {
                    s = s.left
                } else {
                    s = s.right
                }
            } else {
                if isZeroBit(key, t.mask) {
                    t = t.left
                } else {
                    t = t.right
                }
            }
            continue
        }
        if isZeroBit(key, s.mask) {
            s, t = s.left, t.left
        } else {
            s, t = s.right, t.right
        }
    }
    return false
}
