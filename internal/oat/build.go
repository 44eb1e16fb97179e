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
    `fmt`
    `hash/adler32`

    `fortio.org/safecast`
)

// ImageInfo carries the boot-image fields the 064 header embeds.
type ImageInfo struct {
    PatchDelta  int32
    OatChecksum uint32
    DataBegin   uint32
}

// ReadImageInfo extracts the image info from an art image header.
func ReadImageInfo(b []byte) (*ImageInfo, error) {
    /* magic(4) version(4) image_begin image_size oat_checksum
     * oat_file_begin oat_data_begin oat_data_end oat_file_end
     * patch_delta ... */
    if len(b) < 44 {
        return nil, ErrTruncated
    }
    return &ImageInfo {
        PatchDelta  : int32(u32(b, 36)),
        OatChecksum : u32(b, 16),
        DataBegin   : u32(b, 24),
    }, nil
}

/* append-only little-endian emitter */
type writer struct {
    buf []byte
}

func (self *writer) pos() uint32 {
    return uint32(len(self.buf))
}

func (self *writer) word(v uint32) {
    self.buf = binary.LittleEndian.AppendUint32(self.buf, v)
}

func (self *writer) half(v uint16) {
    self.buf = binary.LittleEndian.AppendUint16(self.buf, v)
}

func (self *writer) raw(b []byte) {
    self.buf = append(self.buf, b...)
}

func (self *writer) cstring(s string) {
    self.buf = append(self.buf, s...)
    self.buf = append(self.buf, 0)
}

/* zero padding up to the absolute position */
func (self *writer) padTo(pos uint32) {
    for self.pos() < pos {
        self.buf = append(self.buf, 0)
    }
}

func defaultKeyValues(artImageLocation string) []KeyValue {
    return []KeyValue {
        { "classpath", "" },
        { "compiler-filter", "verify-none" },
        { "debuggable", "false" },
        { "dex2oat-cmdline", "--oat-file=/dev/null --dex-file=/dev/null" },
        { "dex2oat-host", "X86" },
        { "has-patch-info", "false" },
        { "native-debuggable", "false" },
        { "image-location", artImageLocation },
        { "pic", "false" },
    }
}

func keyValueSize(kv []KeyValue) uint32 {
    n := uint32(0)
    for _, e := range kv {
        n += uint32(len(e.Key)) + 1 + uint32(len(e.Value)) + 1
    }
    return n
}

/* per-input layout decisions for one build */
type buildEntry struct {
    input      DexInput
    header     *DexFileHeader
    paddedSize uint32
    fileOffset uint32

    /* 079 */
    classesOffset     uint32
    lookupTableOffset uint32

    /* 064 */
    classOffsets []uint32
}

func prepare(inputs []DexInput) ([]*buildEntry, error) {
    entries := make([]*buildEntry, 0, len(inputs))
    for _, in := range inputs {
        h, err := ParseDexHeader(in.Data)
        if err != nil {
            return nil, err
        }
        size, err := safecast.Conv[uint32](len(in.Data))
        if err != nil {
            return nil, fmt.Errorf("oat: dex input too large: %w", err)
        }
        entries = append(entries, &buildEntry {
            input      : in,
            header     : h,
            paddedSize : align4(size),
        })
    }
    return entries, nil
}

func listingSize079(entries []*buildEntry) uint32 {
    n := uint32(0)
    for _, e := range entries {
        n += uint32(len(e.input.Location)) + 5 * 4
    }
    return n
}

func listingSize064(entries []*buildEntry) uint32 {
    n := uint32(0)
    for _, e := range entries {
        n += uint32(len(e.input.Location)) + 3 * 4 + e.header.ClassDefsSize * 4
    }
    return n
}

// Build produces the container bytes for the requested version. With
// writeElf the payload is placed at 0x1000 behind a minimal ELF
// header, and all internal offsets stay relative to the payload.
func Build(inputs []DexInput, version Version, isa InstructionSet, writeElf bool,
           artImageLocation string, imageInfo *ImageInfo) ([]byte, error) {
    switch version {
        case V079, V088:
            return buildImpl(inputs, version, isa, writeElf, artImageLocation, imageInfo, true)
        case V045, V064:
            return buildImpl(inputs, version, isa, writeElf, artImageLocation, imageInfo, false)
        default:
            return nil, ErrUnknownVersion
    }
}

func buildImpl(inputs []DexInput, version Version, isa InstructionSet, writeElf bool,
               artImageLocation string, imageInfo *ImageInfo, indirectClasses bool) ([]byte, error) {
    entries, err := prepare(inputs)
    if err != nil {
        return nil, err
    }

    kv := defaultKeyValues(artImageLocation)
    kvSize := keyValueSize(kv)

    var listingSize uint32
    if indirectClasses {
        listingSize = listingSize079(entries)
    } else {
        listingSize = listingSize064(entries)
    }

    /* neither the key-value store nor the listing needs alignment,
     * but the first dex blob does */
    nextOffset := align4(headerSize(version) + kvSize + listingSize)

    /* dex blobs first */
    totalDex := uint32(0)
    for _, e := range entries {
        e.fileOffset = nextOffset + totalDex
        totalDex += e.paddedSize
    }
    nextOffset += totalDex

    if indirectClasses {
        /* class tables, then lookup tables, each 4-byte aligned */
        for _, e := range entries {
            n := e.header.ClassDefsSize
            e.classesOffset = nextOffset
            nextOffset += n * 4 + n * 4
        }
        for _, e := range entries {
            e.lookupTableOffset = nextOffset
            nextOffset += LookupEntries(e.header.ClassDefsSize) * lookupEntrySize
        }
    } else {
        /* inline class-offset tables point straight at ClassInfo */
        infoOffset := nextOffset
        for _, e := range entries {
            for i := uint32(0); i < e.header.ClassDefsSize; i++ {
                e.classOffsets = append(e.classOffsets, infoOffset)
                infoOffset += 4
            }
        }
        nextOffset = infoOffset
    }

    oatSize := alignUp(nextOffset, 0x1000)

    w := &writer{}

    /* header; the checksum is patched in last */
    w.word(Magic)
    w.word(uint32(version))
    w.word(0)

    w.word(uint32(isa))
    w.word(1) // instruction set features bitmap
    w.word(uint32(len(entries)))
    w.word(oatSize) // executable offset
    w.word(0)       // interpreter-to-interpreter bridge
    w.word(0)       // interpreter-to-compiled-code bridge
    w.word(0)       // jni dlsym lookup
    if version == V045 {
        w.word(0) // portable imt conflict trampoline
        w.word(0) // portable resolution trampoline
        w.word(0) // portable-to-interpreter bridge
    }
    w.word(0) // quick generic jni trampoline
    w.word(0) // quick imt conflict trampoline
    w.word(0) // quick resolution trampoline
    w.word(0) // quick-to-interpreter bridge

    if imageInfo != nil {
        w.word(uint32(imageInfo.PatchDelta))
        w.word(imageInfo.OatChecksum)
        w.word(imageInfo.DataBegin)
    } else {
        w.word(0)
        w.word(0)
        w.word(0)
    }
    w.word(kvSize)

    /* key-value store, in the order given */
    for _, e := range kv {
        w.cstring(e.Key)
        w.cstring(e.Value)
    }

    /* dex file listing */
    for _, e := range entries {
        w.word(uint32(len(e.input.Location)))
        w.raw([]byte(e.input.Location))
        w.word(e.header.Checksum)
        w.word(e.fileOffset)
        if indirectClasses {
            w.word(e.classesOffset)
            w.word(e.lookupTableOffset)
        } else {
            for _, off := range e.classOffsets {
                w.word(off)
            }
        }
    }

    /* padding, then the raw blobs at their promised offsets */
    w.padTo(align4(w.pos()))
    for _, e := range entries {
        if w.pos() != e.fileOffset {
            panic(fmt.Sprintf("oat: dex offset drift: at 0x%x, expected 0x%x", w.pos(), e.fileOffset))
        }
        w.raw(e.input.Data)
        w.padTo(e.fileOffset + e.paddedSize)
    }

    info := ClassInfo { Status: StatusVerified, Type: NoneCompiled }
    if indirectClasses {
        /* pointer array then ClassInfo records, per dex */
        for _, e := range entries {
            if w.pos() != e.classesOffset {
                panic("oat: class table offset drift")
            }
            n := e.header.ClassDefsSize
            tableOffset := e.classesOffset + n * 4
            for i := uint32(0); i < n; i++ {
                w.word(tableOffset + i * 4)
            }
            for i := uint32(0); i < n; i++ {
                w.half(uint16(info.Status))
                w.half(uint16(info.Type))
            }
        }

        /* type lookup tables */
        for _, e := range entries {
            if w.pos() != e.lookupTableOffset {
                panic("oat: lookup table offset drift")
            }
            for _, le := range buildLookupTable(e.input.Data, LookupEntries(e.header.ClassDefsSize)) {
                w.word(le.StrOffset)
                w.half(le.Data)
                w.half(le.NextPosDelta)
            }
        }
    } else {
        /* bare ClassInfo records at the offsets promised inline */
        for _, e := range entries {
            if len(e.classOffsets) != 0 && e.classOffsets[0] != w.pos() {
                panic("oat: class info offset drift")
            }
            for range e.classOffsets {
                w.half(uint16(info.Status))
                w.half(uint16(info.Type))
            }
        }
    }

    /* zero padding to the final size, then the checksum over every
     * byte after the common header */
    w.padTo(oatSize)
    binary.LittleEndian.PutUint32(w.buf[8:], adler32.Checksum(w.buf[12:]))

    if !writeElf {
        return w.buf, nil
    }
    return wrapElf(w.buf), nil
}
