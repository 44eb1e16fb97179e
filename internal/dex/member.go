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

// Field is an interned field reference that may or may not have become
// concrete. Identity is (container type, name, field type); the handle
// is unique per identity and survives re-keying.
type Field struct {
    owner *Type
    name  *String
    typ   *Type

    concrete bool
    external bool
    access   AccessFlags
}

func (self *Field) Owner() *Type           { return self.owner }
func (self *Field) Name() *String          { return self.name }
func (self *Field) Type() *Type            { return self.typ }
func (self *Field) IsConcrete() bool       { return self.concrete }
func (self *Field) IsExternal() bool       { return self.external }
func (self *Field) Access() AccessFlags    { return self.access }

// MakeConcrete attaches a definition to the reference. A concrete
// field belongs to exactly one class.
func (self *Field) MakeConcrete(access AccessFlags) {
    if self.concrete {
        panic("dex: field made concrete twice: " + self.String())
    }
    self.access = access
    self.concrete = true
}

func (self *Field) SetExternal() {
    self.external = true
}

func (self *Field) String() string {
    return self.owner.Descriptor() + "." + self.name.Str() + ":" + self.typ.Descriptor()
}

// Method is an interned method reference that may have become concrete
// (i.e. carries access flags and possibly a body). Identity is
// (container type, name, proto).
type Method struct {
    owner *Type
    name  *String
    proto *Proto

    concrete bool
    external bool
    virtual  bool
    access   AccessFlags
    code     *Code
}

func (self *Method) Owner() *Type        { return self.owner }
func (self *Method) Name() *String       { return self.name }
func (self *Method) Proto() *Proto       { return self.proto }
func (self *Method) IsConcrete() bool    { return self.concrete }
func (self *Method) IsExternal() bool    { return self.external }
func (self *Method) IsVirtual() bool     { return self.virtual }
func (self *Method) Access() AccessFlags { return self.access }
func (self *Method) Code() *Code         { return self.code }

func (self *Method) MakeConcrete(access AccessFlags, code *Code, virtual bool) {
    if self.concrete {
        panic("dex: method made concrete twice: " + self.String())
    }
    self.access = access
    self.code = code
    self.virtual = virtual
    self.concrete = true
}

func (self *Method) SetExternal() {
    self.external = true
}

func (self *Method) SetCode(code *Code) {
    self.code = code
}

func (self *Method) String() string {
    return self.owner.Descriptor() + "." + self.name.Str() + ":" + self.proto.String()
}
