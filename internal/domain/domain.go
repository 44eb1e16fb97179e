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

// Package domain provides the abstract-value scaffolding every
// analysis is built on: a sum-of-states wrapper around arbitrary
// abstract values, plus the concrete domains the optimizer ships.
package domain

// Kind is the state of an abstract value after an operation: a
// concrete value, or one of the two collapsing sentinels.
type Kind uint8

const (
    KindBottom Kind = iota
    KindValue
    KindTop
)

func (self Kind) String() string {
    switch self {
        case KindBottom : return "_|_"
        case KindValue  : return "value"
        case KindTop    : return "T"
        default         : return "?"
    }
}

// AbstractValue is the capability set of a mutable abstract value.
// The *_With operations fold the other value into the receiver and
// report the kind the result collapsed to, so the wrapping Domain can
// normalize "value that is effectively top/bottom" back to a sentinel.
type AbstractValue[T any] interface {
    Clear()
    Kind() Kind
    Clone() T
    Leq(other T) bool
    Equals(other T) bool
    JoinWith(other T) Kind
    WidenWith(other T) Kind
    MeetWith(other T) Kind
    NarrowWith(other T) Kind
}

// Domain wraps an abstract value with the Bottom/Top sentinels. Top
// and Bottom are distinguished states that collapse every operation
// accordingly; Normalize canonicalizes after any mutation.
type Domain[T AbstractValue[T]] struct {
    kind Kind
    val  T
}

func TopDomain[T AbstractValue[T]]() Domain[T] {
    return Domain[T] { kind: KindTop }
}

func BottomDomain[T AbstractValue[T]]() Domain[T] {
    return Domain[T] { kind: KindBottom }
}

func ValueDomain[T AbstractValue[T]](v T) Domain[T] {
    d := Domain[T] { kind: KindValue, val: v }
    d.Normalize()
    return d
}

func (self *Domain[T]) IsTop() bool    { return self.kind == KindTop }
func (self *Domain[T]) IsBottom() bool { return self.kind == KindBottom }
func (self *Domain[T]) Kind() Kind     { return self.kind }

// Value returns the wrapped abstract value; only meaningful when the
// domain is in the value state.
func (self *Domain[T]) Value() T {
    if self.kind != KindValue {
        panic("domain: value of a sentinel domain")
    }
    return self.val
}

func (self *Domain[T]) SetToTop() {
    var zero T
    self.kind, self.val = KindTop, zero
}

func (self *Domain[T]) SetToBottom() {
    var zero T
    self.kind, self.val = KindBottom, zero
}

func (self *Domain[T]) SetToValue(v T) {
    self.kind, self.val = KindValue, v
    self.Normalize()
}

// Normalize folds a value that degenerated into a sentinel back into
// the sentinel representation.
func (self *Domain[T]) Normalize() {
    if self.kind == KindValue {
        if k := self.val.Kind(); k != KindValue {
            self.kind = k
            var zero T
            self.val = zero
        }
    }
}

// Clone deep-copies the domain so that mutating one copy never leaks
// into the other.
func (self *Domain[T]) Clone() Domain[T] {
    if self.kind != KindValue {
        return Domain[T] { kind: self.kind }
    }
    return Domain[T] { kind: KindValue, val: self.val.Clone() }
}

// Update applies op to the wrapped value and normalizes the result.
// A domain at either sentinel is left unchanged and op is not called.
func (self *Domain[T]) Update(op func(T)) {
    if self.kind != KindValue {
        return
    }
    op(self.val)
    self.Normalize()
}

func (self *Domain[T]) Leq(other *Domain[T]) bool {
    switch {
        case self.kind == KindBottom : return true
        case other.kind == KindBottom: return false
        case other.kind == KindTop   : return true
        case self.kind == KindTop    : return false
        default                      : return self.val.Leq(other.val)
    }
}

func (self *Domain[T]) Equals(other *Domain[T]) bool {
    if self.kind != other.kind {
        return false
    }
    if self.kind != KindValue {
        return true
    }
    return self.val.Equals(other.val)
}

func (self *Domain[T]) JoinWith(other *Domain[T]) {
    self.combine(other, KindTop, func(v T, o T) Kind { return v.JoinWith(o) })
}

func (self *Domain[T]) WidenWith(other *Domain[T]) {
    self.combine(other, KindTop, func(v T, o T) Kind { return v.WidenWith(o) })
}

func (self *Domain[T]) MeetWith(other *Domain[T]) {
    self.combine(other, KindBottom, func(v T, o T) Kind { return v.MeetWith(o) })
}

func (self *Domain[T]) NarrowWith(other *Domain[T]) {
    self.combine(other, KindBottom, func(v T, o T) Kind { return v.NarrowWith(o) })
}

/* sentinel handling shared by all four lattice operations; absorbing
 * is the sentinel that dominates the operation (Top for join/widen,
 * Bottom for meet/narrow) */
func (self *Domain[T]) combine(other *Domain[T], absorbing Kind, op func(T, T) Kind) {
    neutral := KindBottom
    if absorbing == KindBottom {
        neutral = KindTop
    }

    switch {
        case self.kind == absorbing:
            return
        case other.kind == absorbing:
            var zero T
            self.kind, self.val = absorbing, zero
        case self.kind == neutral:
            *self = other.Clone()
        case other.kind == neutral:
            return
        default:
            self.kind = op(self.val, other.val)
            if self.kind != KindValue {
                var zero T
                self.val = zero
            }
    }
}
