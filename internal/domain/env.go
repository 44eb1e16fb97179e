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
    `github.com/slimdex/slimdex/internal/ptree`
)

// EnvValue is what an environment requires of its per-variable
// domain: the Patricia map capability set plus the full lattice
// surface and a Bottom sentinel detector.
type EnvValue[V any] interface {
    ptree.Value[V]
    Bottom() V
    IsBottom() bool
    Join(V) V
    Widen(V) V
    Meet(V) V
    Narrow(V) V
}

// Env is an abstract environment from variable to domain, backed by a
// Patricia tree map. Unbound variables are implicitly Top; a binding
// that degenerates to Bottom collapses the whole environment to the
// Bottom sentinel.
type Env[V EnvValue[V]] struct {
    bottom bool
    m      ptree.Map[V]
}

func TopEnv[V EnvValue[V]]() Env[V] {
    return Env[V]{}
}

func BottomEnv[V EnvValue[V]]() Env[V] {
    return Env[V] { bottom: true }
}

func (self Env[V]) IsBottom() bool {
    return self.bottom
}

func (self Env[V]) IsTop() bool {
    return !self.bottom && self.m.IsEmpty()
}

// Map exposes the underlying Patricia map, mainly for sharing
// assertions.
func (self Env[V]) Map() ptree.Map[V] {
    return self.m
}

func (self Env[V]) Size() int {
    return self.m.Size()
}

func (self Env[V]) Get(v uint64) V {
    if self.bottom {
        var zero V
        return zero.Bottom()
    }
    return self.m.At(v)
}

func (self Env[V]) Set(key uint64, v V) Env[V] {
    if self.bottom {
        return self
    }
    if v.IsBottom() {
        return BottomEnv[V]()
    }
    return Env[V] { m: self.m.InsertOrAssign(key, v) }
}

// Update rewrites one binding through op; an op that returns Bottom
// collapses the environment.
func (self Env[V]) Update(op func(V) V, key uint64) Env[V] {
    if self.bottom {
        return self
    }

    collapsed := false
    ne := Env[V] { m: self.m.Update(func(x V) V {
        v := op(x)
        if v.IsBottom() {
            collapsed = true
        }
        return v
    }, key) }

    if collapsed {
        return BottomEnv[V]()
    }
    return ne
}

func (self Env[V]) Leq(other Env[V]) bool {
    if self.bottom {
        return true
    }
    if other.bottom {
        return false
    }
    return self.m.Leq(other.m)
}

func (self Env[V]) Equals(other Env[V]) bool {
    if self.bottom || other.bottom {
        return self.bottom == other.bottom
    }
    return self.m.Equals(other.m)
}

/* join-like operations combine pointwise over the intersection of
 * bindings; a key bound on one side only joins against implicit Top,
 * which is absorbing, so the binding simply disappears, and a
 * combined-to-Top binding is dropped by the map */
func (self Env[V]) Join(other Env[V]) Env[V] {
    if self.bottom {
        return other
    }
    if other.bottom {
        return self
    }
    return Env[V] { m: self.m.IntersectWith(func(x V, y V) V { return x.Join(y) }, other.m) }
}

func (self Env[V]) Widen(other Env[V]) Env[V] {
    if self.bottom {
        return other
    }
    if other.bottom {
        return self
    }
    return Env[V] { m: self.m.IntersectWith(func(x V, y V) V { return x.Widen(y) }, other.m) }
}

/* meet-like operations also combine over the union of bindings, since
 * meet against implicit Top keeps the explicit side; a Bottom result
 * collapses the environment */
func (self Env[V]) Meet(other Env[V]) Env[V] {
    return self.meetLike(other, func(x V, y V) V { return x.Meet(y) })
}

func (self Env[V]) Narrow(other Env[V]) Env[V] {
    return self.meetLike(other, func(x V, y V) V { return x.Narrow(y) })
}

func (self Env[V]) meetLike(other Env[V], combine ptree.CombiningFn[V]) Env[V] {
    if self.bottom || other.bottom {
        return BottomEnv[V]()
    }

    collapsed := false
    ne := Env[V] { m: self.m.UnionWith(func(x V, y V) V {
        v := combine(x, y)
        if v.IsBottom() {
            collapsed = true
        }
        return v
    }, other.m) }

    if collapsed {
        return BottomEnv[V]()
    }
    return ne
}
