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

// Type is an interned type descriptor (e.g. "Lfoo/Bar;", "I", "[J").
// The name pointer is rewired by Context.AliasTypeName; the Type
// handle itself never moves.
type Type struct {
    name *String
}

func (self *Type) Name() *String {
    return self.name
}

func (self *Type) Descriptor() string {
    return self.name.Str()
}

func (self *Type) String() string {
    return self.name.Str()
}

// TypeList is an interned ordered sequence of types.
type TypeList struct {
    list []*Type
}

func (self *TypeList) Types() []*Type {
    return self.list
}

func (self *TypeList) Len() int {
    return len(self.list)
}

func (self *TypeList) At(i int) *Type {
    return self.list[i]
}

// Proto is an interned method prototype: return type, argument list
// and the one-character-per-slot shorty summary.
type Proto struct {
    rtype  *Type
    args   *TypeList
    shorty *String
}

func (self *Proto) ReturnType() *Type {
    return self.rtype
}

func (self *Proto) Args() *TypeList {
    return self.args
}

func (self *Proto) Shorty() *String {
    return self.shorty
}

func (self *Proto) IsVoid() bool {
    return self.rtype.Descriptor() == "V"
}

func (self *Proto) String() string {
    ret := "("
    for i, t := range self.args.Types() {
        if i != 0 {
            ret += ", "
        }
        ret += t.Descriptor()
    }
    return ret + ")" + self.rtype.Descriptor()
}
