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

// AccessFlags mirror the container format's access_flags encoding.
type AccessFlags uint32

const (
    AccPublic       AccessFlags = 0x0001
    AccPrivate      AccessFlags = 0x0002
    AccProtected    AccessFlags = 0x0004
    AccStatic       AccessFlags = 0x0008
    AccFinal        AccessFlags = 0x0010
    AccSynchronized AccessFlags = 0x0020
    AccVolatile     AccessFlags = 0x0040
    AccBridge       AccessFlags = 0x0040
    AccTransient    AccessFlags = 0x0080
    AccVarargs      AccessFlags = 0x0080
    AccNative       AccessFlags = 0x0100
    AccInterface    AccessFlags = 0x0200
    AccAbstract     AccessFlags = 0x0400
    AccStrict       AccessFlags = 0x0800
    AccSynthetic    AccessFlags = 0x1000
    AccAnnotation   AccessFlags = 0x2000
    AccEnum         AccessFlags = 0x4000
    AccConstructor  AccessFlags = 0x10000
)

func (self AccessFlags) IsPublic() bool      { return self & AccPublic != 0 }
func (self AccessFlags) IsPrivate() bool     { return self & AccPrivate != 0 }
func (self AccessFlags) IsProtected() bool   { return self & AccProtected != 0 }
func (self AccessFlags) IsStatic() bool      { return self & AccStatic != 0 }
func (self AccessFlags) IsFinal() bool       { return self & AccFinal != 0 }
func (self AccessFlags) IsNative() bool      { return self & AccNative != 0 }
func (self AccessFlags) IsInterface() bool   { return self & AccInterface != 0 }
func (self AccessFlags) IsAbstract() bool    { return self & AccAbstract != 0 }
func (self AccessFlags) IsSynthetic() bool   { return self & AccSynthetic != 0 }
func (self AccessFlags) IsConstructor() bool { return self & AccConstructor != 0 }
