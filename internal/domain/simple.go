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
    `fmt`
)

// Simple is the flat constant lattice: Top over all concrete values
// of T over Bottom. It is the shape constant propagation builds on.
type Simple[T comparable] struct {
    kind Kind
    val  T
}

func SimpleTop[T comparable]() Simple[T] {
    return Simple[T] { kind: KindTop }
}

func SimpleBottom[T comparable]() Simple[T] {
    return Simple[T] { kind: KindBottom }
}

func SimpleValue[T comparable](v T) Simple[T] {
    return Simple[T] { kind: KindValue, val: v }
}

func (self Simple[T]) Top() Simple[T] { return Simple[T] { kind: KindTop } }
func (self Simple[T]) Bottom() Simple[T] { return Simple[T] { kind: KindBottom } }
func (self Simple[T]) IsTop() bool    { return self.kind == KindTop }
func (self Simple[T]) IsBottom() bool { return self.kind == KindBottom }

// Value returns the concrete constant; only meaningful in the value
// state.
func (self Simple[T]) Value() T {
    if self.kind != KindValue {
        panic("domain: value of a sentinel")
    }
    return self.val
}

func (self Simple[T]) Equals(other Simple[T]) bool {
    return self == other
}

func (self Simple[T]) Leq(other Simple[T]) bool {
    switch {
        case self.kind == KindBottom : return true
        case other.kind == KindBottom: return false
        case other.kind == KindTop   : return true
        case self.kind == KindTop    : return false
        default                      : return self.val == other.val
    }
}

func (self Simple[T]) Join(other Simple[T]) Simple[T] {
    switch {
        case self.kind == KindBottom : return other
        case other.kind == KindBottom: return self
        case self == other           : return self
        default                      : return SimpleTop[T]()
    }
}

func (self Simple[T]) Widen(other Simple[T]) Simple[T] {
    return self.Join(other)
}

func (self Simple[T]) Meet(other Simple[T]) Simple[T] {
    switch {
        case self.kind == KindTop : return other
        case other.kind == KindTop: return self
        case self == other        : return self
        default                   : return SimpleBottom[T]()
    }
}

func (self Simple[T]) Narrow(other Simple[T]) Simple[T] {
    return self.Meet(other)
}

func (self Simple[T]) String() string {
    switch self.kind {
        case KindBottom : return "_|_"
        case KindTop    : return "T"
        default         : return fmt.Sprint(self.val)
    }
}
