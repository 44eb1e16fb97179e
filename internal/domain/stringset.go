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
    `sort`
    `strings`
)

// StringSet is the hashed-set domain over strings, ordered by reverse
// inclusion: the empty set constrains nothing and is therefore Top,
// bigger sets sit lower. A dedicated Bottom sentinel marks the
// infeasible state. Values are immutable; operations return new sets.
type StringSet struct {
    bottom bool
    elems  map[string]struct{}
}

func StringSetOf(ss ...string) StringSet {
    m := make(map[string]struct{}, len(ss))
    for _, s := range ss {
        m[s] = struct{}{}
    }
    return StringSet { elems: m }
}

func StringSetBottom() StringSet {
    return StringSet { bottom: true }
}

func (self StringSet) Top() StringSet {
    return StringSet{}
}

func (self StringSet) Bottom() StringSet {
    return StringSetBottom()
}

func (self StringSet) IsTop() bool {
    return !self.bottom && len(self.elems) == 0
}

func (self StringSet) IsBottom() bool {
    return self.bottom
}

func (self StringSet) Contains(s string) bool {
    _, ok := self.elems[s]
    return ok
}

func (self StringSet) Size() int {
    return len(self.elems)
}

func (self StringSet) Elements() []string {
    rr := make([]string, 0, len(self.elems))
    for s := range self.elems {
        rr = append(rr, s)
    }
    sort.Strings(rr)
    return rr
}

// Leq is reverse inclusion: self ≤ other iff self ⊇ other.
func (self StringSet) Leq(other StringSet) bool {
    if self.bottom {
        return true
    }
    if other.bottom {
        return false
    }
    for s := range other.elems {
        if _, ok := self.elems[s]; !ok {
            return false
        }
    }
    return true
}

func (self StringSet) Equals(other StringSet) bool {
    if self.bottom != other.bottom {
        return false
    }
    if len(self.elems) != len(other.elems) {
        return false
    }
    for s := range self.elems {
        if _, ok := other.elems[s]; !ok {
            return false
        }
    }
    return true
}

// Join is the least upper bound under reverse inclusion, i.e. set
// intersection.
func (self StringSet) Join(other StringSet) StringSet {
    if self.bottom {
        return other
    }
    if other.bottom {
        return self
    }
    return self.intersect(other)
}

func (self StringSet) Widen(other StringSet) StringSet {
    return self.Join(other)
}

// Meet is the greatest lower bound, i.e. set union.
func (self StringSet) Meet(other StringSet) StringSet {
    if self.bottom || other.bottom {
        return StringSetBottom()
    }
    return self.union(other)
}

func (self StringSet) Narrow(other StringSet) StringSet {
    return self.Meet(other)
}

func (self StringSet) union(other StringSet) StringSet {
    m := make(map[string]struct{}, len(self.elems) + len(other.elems))
    for s := range self.elems {
        m[s] = struct{}{}
    }
    for s := range other.elems {
        m[s] = struct{}{}
    }
    return StringSet { elems: m }
}

func (self StringSet) intersect(other StringSet) StringSet {
    m := make(map[string]struct{})
    for s := range self.elems {
        if _, ok := other.elems[s]; ok {
            m[s] = struct{}{}
        }
    }
    return StringSet { elems: m }
}

func (self StringSet) String() string {
    if self.bottom {
        return "_|_"
    }
    return "{" + strings.Join(self.Elements(), ",") + "}"
}

// SetUnion is the combining function computing the element union of
// two bindings; the existing binding is the first argument.
func SetUnion(existing StringSet, incoming StringSet) StringSet {
    if existing.bottom || incoming.bottom {
        return StringSetBottom()
    }
    return existing.union(incoming)
}

// SetMeet computes the element intersection; a result that drains to
// the empty set is Top and disappears from the enclosing map.
func SetMeet(existing StringSet, incoming StringSet) StringSet {
    if existing.bottom || incoming.bottom {
        return StringSetBottom()
    }
    return existing.intersect(incoming)
}
