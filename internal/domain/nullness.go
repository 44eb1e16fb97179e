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

// Nullness is the 4-element lattice tracking whether a reference
// value can be null:
//
//	        Nullable
//	       /        \
//	    IsNull    NotNull
//	       \        /
//	       NullBottom
type Nullness uint8

const (
    NullBottom Nullness = iota
    IsNull
    NotNull
    Nullable
)

var nullnessLattice = NewLattice(4, uint8(NullBottom), uint8(Nullable), [][2]uint8 {
    { uint8(NullBottom), uint8(IsNull) },
    { uint8(NullBottom), uint8(NotNull) },
    { uint8(IsNull), uint8(Nullable) },
    { uint8(NotNull), uint8(Nullable) },
})

func (self Nullness) Top() Nullness    { return Nullable }
func (self Nullness) IsTop() bool      { return self == Nullable }
func (self Nullness) Bottom() Nullness { return NullBottom }
func (self Nullness) IsBottom() bool   { return self == NullBottom }

func (self Nullness) Leq(other Nullness) bool {
    return nullnessLattice.Leq(uint8(self), uint8(other))
}

func (self Nullness) Equals(other Nullness) bool {
    return self == other
}

func (self Nullness) Join(other Nullness) Nullness {
    return Nullness(nullnessLattice.Join(uint8(self), uint8(other)))
}

func (self Nullness) Widen(other Nullness) Nullness {
    return self.Join(other)
}

func (self Nullness) Meet(other Nullness) Nullness {
    return Nullness(nullnessLattice.Meet(uint8(self), uint8(other)))
}

func (self Nullness) Narrow(other Nullness) Nullness {
    return self.Meet(other)
}

func (self Nullness) String() string {
    switch self {
        case NullBottom : return "_|_"
        case IsNull     : return "null"
        case NotNull    : return "not-null"
        case Nullable   : return "nullable"
        default         : return "?"
    }
}
