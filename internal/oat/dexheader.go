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

package oat

import (
    `encoding/binary`
)

// DexHeaderSize is the fixed size of an input container header.
const DexHeaderSize = 112

// DexFileHeader is the header of one input class container, as far as
// the AOT builder needs to read it.
type DexFileHeader struct {
    Magic        uint32
    Version      uint32
    Checksum     uint32
    Signature    [20]byte
    FileSize     uint32
    HeaderSize   uint32
    EndianTag    uint32
    LinkSize     uint32
    LinkOff      uint32
    MapOff       uint32
    StringIdsSize uint32
    StringIdsOff  uint32
    TypeIdsSize   uint32
    TypeIdsOff    uint32
    ProtoIdsSize  uint32
    ProtoIdsOff   uint32
    FieldIdsSize  uint32
    FieldIdsOff   uint32
    MethodIdsSize uint32
    MethodIdsOff  uint32
    ClassDefsSize uint32
    ClassDefsOff  uint32
    DataSize      uint32
    DataOff       uint32
}

// DexClassDef is one class_defs entry; only class_idx matters here.
type DexClassDef struct {
    ClassIdx      uint16
    AccessFlags   uint32
    SuperclassIdx uint16
    InterfacesOff uint32
    SourceFileIdx uint32
    AnnotationsOff uint32
    ClassDataOff  uint32
    StaticValuesOff uint32
}

const dexClassDefSize = 32

func u32(b []byte, off uint32) uint32 {
    return binary.LittleEndian.Uint32(b[off:])
}

func u16(b []byte, off uint32) uint16 {
    return binary.LittleEndian.Uint16(b[off:])
}

// ParseDexHeader reads an input container header.
func ParseDexHeader(b []byte) (*DexFileHeader, error) {
    if len(b) < DexHeaderSize {
        return nil, ErrTruncated
    }

    h := &DexFileHeader {
        Magic    : u32(b, 0),
        Version  : u32(b, 4),
        Checksum : u32(b, 8),
    }
    copy(h.Signature[:], b[12:32])

    h.FileSize = u32(b, 32)
    h.HeaderSize = u32(b, 36)
    h.EndianTag = u32(b, 40)
    h.LinkSize = u32(b, 44)
    h.LinkOff = u32(b, 48)
    h.MapOff = u32(b, 52)
    h.StringIdsSize = u32(b, 56)
    h.StringIdsOff = u32(b, 60)
    h.TypeIdsSize = u32(b, 64)
    h.TypeIdsOff = u32(b, 68)
    h.ProtoIdsSize = u32(b, 72)
    h.ProtoIdsOff = u32(b, 76)
    h.FieldIdsSize = u32(b, 80)
    h.FieldIdsOff = u32(b, 84)
    h.MethodIdsSize = u32(b, 88)
    h.MethodIdsOff = u32(b, 92)
    h.ClassDefsSize = u32(b, 96)
    h.ClassDefsOff = u32(b, 100)
    h.DataSize = u32(b, 104)
    h.DataOff = u32(b, 108)
    return h, nil
}

/* uleb128 string length prefix */
func readUleb128(b []byte) (uint32, uint32) {
    v := uint32(0)
    shift := uint(0)
    n := uint32(0)
    for {
        c := b[n]
        n++
        v |= uint32(c & 0x7f) << shift
        if c & 0x80 == 0 {
            return v, n
        }
        shift += 7
    }
}

// dexIDs resolves class names inside one embedded dex blob.
type dexIDs struct {
    blob   []byte
    header *DexFileHeader
}

func newDexIDs(blob []byte, header *DexFileHeader) *dexIDs {
    return &dexIDs { blob: blob, header: header }
}

func (self *dexIDs) classDef(i uint32) DexClassDef {
    off := self.header.ClassDefsOff + i * dexClassDefSize
    return DexClassDef {
        ClassIdx      : u16(self.blob, off),
        AccessFlags   : u32(self.blob, off + 4),
        SuperclassIdx : u16(self.blob, off + 8),
        InterfacesOff : u32(self.blob, off + 12),
        SourceFileIdx : u32(self.blob, off + 16),
        AnnotationsOff: u32(self.blob, off + 20),
        ClassDataOff  : u32(self.blob, off + 24),
        StaticValuesOff: u32(self.blob, off + 28),
    }
}

/* the descriptor string offset of class def i, relative to the blob */
func (self *dexIDs) classNameOffset(i uint32) uint32 {
    classIdx := uint32(self.classDef(i).ClassIdx)
    stringID := u32(self.blob, self.header.TypeIdsOff + classIdx * 4)
    return u32(self.blob, self.header.StringIdsOff + stringID * 4)
}

func (self *dexIDs) className(i uint32) string {
    off := self.classNameOffset(i)
    size, n := readUleb128(self.blob[off:])
    start := off + n
    return string(self.blob[start : start + size])
}
