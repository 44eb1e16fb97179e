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

// Class is the concrete definition attached to a type. Direct methods
// are constructors, private and static methods; everything else is
// virtual. External classes are declared elsewhere and must be treated
// as read-only by every pass.
type Class struct {
    typ        *Type
    super      *Type
    access     AccessFlags
    interfaces *TypeList
    dmethods   []*Method
    vmethods   []*Method
    sfields    []*Field
    ifields    []*Field
    anno       *AnnotationSet
    sourceFile *String
    external   bool
}

// AnnotationSet is the minimal annotation payload the optimizer needs
// to carry through unchanged.
type AnnotationSet struct {
    Visible   []*Type
    Invisible []*Type
}

func (self *Class) Type() *Type             { return self.typ }
func (self *Class) Super() *Type            { return self.super }
func (self *Class) Access() AccessFlags     { return self.access }
func (self *Class) Interfaces() *TypeList   { return self.interfaces }
func (self *Class) DirectMethods() []*Method   { return self.dmethods }
func (self *Class) VirtualMethods() []*Method  { return self.vmethods }
func (self *Class) StaticFields() []*Field     { return self.sfields }
func (self *Class) InstanceFields() []*Field   { return self.ifields }
func (self *Class) Annotations() *AnnotationSet { return self.anno }
func (self *Class) SourceFile() *String        { return self.sourceFile }
func (self *Class) IsExternal() bool           { return self.external }
func (self *Class) IsInterface() bool          { return self.access.IsInterface() }

func (self *Class) SetSuper(t *Type)            { self.super = t }
func (self *Class) SetInterfaces(tl *TypeList)  { self.interfaces = tl }
func (self *Class) SetSourceFile(s *String)     { self.sourceFile = s }
func (self *Class) SetAnnotations(a *AnnotationSet) { self.anno = a }
func (self *Class) SetExternal()                { self.external = true }

func (self *Class) AddDirectMethod(m *Method) {
    self.dmethods = append(self.dmethods, m)
}

func (self *Class) AddVirtualMethod(m *Method) {
    self.vmethods = append(self.vmethods, m)
}

func (self *Class) AddStaticField(f *Field) {
    self.sfields = append(self.sfields, f)
}

func (self *Class) AddInstanceField(f *Field) {
    self.ifields = append(self.ifields, f)
}

func (self *Class) RemoveMethod(m *Method) {
    self.dmethods = removeMethod(self.dmethods, m)
    self.vmethods = removeMethod(self.vmethods, m)
}

// AllMethods visits direct methods before virtual methods, each group
// in insertion order. This is the canonical walk order for passes.
func (self *Class) AllMethods(fn func(*Method)) {
    for _, m := range self.dmethods {
        fn(m)
    }
    for _, m := range self.vmethods {
        fn(m)
    }
}

func (self *Class) String() string {
    return self.typ.Descriptor()
}

func removeMethod(ms []*Method, m *Method) []*Method {
    for i, v := range ms {
        if v == m {
            return append(ms[:i:i], ms[i + 1:]...)
        }
    }
    return ms
}

// Scope is the ordered sequence of classes a pass is allowed to see.
// External classes are visible but read-only.
type Scope []*Class
