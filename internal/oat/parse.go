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
    `hash/adler32`

    `go.uber.org/zap`

    `github.com/slimdex/slimdex/internal/log`
)

// Status is the coarse outcome the CLI keys its exit code on.
type Status int

const (
    ParseSuccess Status = iota
    ParseBadMagic
    ParseUnknownVersion
    ParseError
)

// DumpOptions selects the optional dump sections.
type DumpOptions struct {
    Classes     bool
    Tables      bool
    MemoryUsage bool
    Unverified  bool
}

// File is one parsed AOT container; the concrete type is per version
// family.
type File interface {
    Status() Status
    Header() *Header
    KeyValues() []KeyValue
    DexFiles() []OatDexFile
    OatOffset() uint32
    Accounter() *Accounter
}

// DexFileEntry is one listing record; the classes/lookup fields exist
// on 079/088, the inline class-offset table on 045/064.
type DexFileEntry struct {
    Location         string
    LocationChecksum uint32
    FileOffset       uint32

    NumClasses        uint32
    ClassesOffset     uint32
    LookupTableOffset uint32

    ClassOffsets []uint32
}

// DexClasses is the class metadata recovered for one dex.
type DexClasses struct {
    DexFile    string
    ClassInfo  []ClassInfo
    ClassNames []string
}

/* byte cursor that feeds the accounter as it reads */
type reader struct {
    buf []byte
    pos uint32
    ma  *Accounter
}

func (self *reader) word() (uint32, error) {
    if self.pos + 4 > uint32(len(self.buf)) {
        return 0, ErrTruncated
    }
    v := u32(self.buf, self.pos)
    self.ma.MarkRange(self.pos, 4)
    self.pos += 4
    return v, nil
}

func (self *reader) bytes(n uint32) ([]byte, error) {
    if self.pos + n > uint32(len(self.buf)) {
        return nil, ErrTruncated
    }
    b := self.buf[self.pos : self.pos + n]
    self.ma.MarkRange(self.pos, n)
    self.pos += n
    return b, nil
}

/* ---------- common header ---------- */

func parseHeader(buf []byte, ma *Accounter) (*Header, error) {
    if len(buf) < 12 {
        return nil, ErrTruncated
    }

    h := &Header {
        Version  : Version(u32(buf, 4)),
        Checksum : u32(buf, 8),
    }
    ma.MarkRange(0, 12)

    r := &reader { buf: buf, pos: 12, ma: ma }
    read := func(dst *uint32) error {
        v, err := r.word()
        *dst = v
        return err
    }

    fields := []*uint32 {
        (*uint32)(&h.InstructionSet),
        &h.InstructionSetFeatures,
        &h.DexFileCount,
        &h.ExecutableOffset,
        &h.I2IBridgeOffset,
        &h.I2CBridgeOffset,
        &h.JniDlsymLookupOffset,
    }
    for _, f := range fields {
        if err := read(f); err != nil {
            return nil, err
        }
    }

    /* the three portable trampoline words only exist on 045 */
    if h.Version == V045 {
        for _, f := range []*uint32 {
            &h.PortableImtConflictTrampolineOffset,
            &h.PortableResolutionTrampolineOffset,
            &h.PortableToInterpreterBridgeOffset,
        } {
            if err := read(f); err != nil {
                return nil, err
            }
        }
    }

    for _, f := range []*uint32 {
        &h.QuickGenericJniTrampolineOffset,
        &h.QuickImtConflictTrampolineOffset,
        &h.QuickResolutionTrampolineOffset,
        &h.QuickToInterpreterBridgeOffset,
    } {
        if err := read(f); err != nil {
            return nil, err
        }
    }

    var patch uint32
    if err := read(&patch); err != nil {
        return nil, err
    }
    h.ImagePatchDelta = int32(patch)

    for _, f := range []*uint32 {
        &h.ImageFileLocationOatChecksum,
        &h.ImageFileLocationOatDataBegin,
        &h.KeyValueStoreSize,
    } {
        if err := read(f); err != nil {
            return nil, err
        }
    }
    return h, nil
}

/* pairs of NUL-terminated strings until the store size runs out */
func parseKeyValueStore(b []byte) []KeyValue {
    var out []KeyValue
    pos := 0
    next := func() (string, bool) {
        if pos >= len(b) {
            return "", false
        }
        start := pos
        for pos < len(b) && b[pos] != 0 {
            pos++
        }
        s := string(b[start:pos])
        pos++
        return s, true
    }
    for {
        k, ok := next()
        if !ok {
            return out
        }
        v, ok := next()
        if !ok {
            return out
        }
        out = append(out, KeyValue { Key: k, Value: v })
    }
}

func verifyChecksum(buf []byte, stored uint32) {
    if uint32(len(buf)) <= 12 {
        return
    }
    actual := adler32.Checksum(buf[12:])
    if actual != stored {
        /* other producers compute this over a different byte order,
         * so a mismatch is informational only */
        log.L().Warn("oat: checksum mismatch",
            zap.Uint32("stored", stored),
            zap.Uint32("computed", actual))
    }
}

/* ---------- parse dispatch ---------- */

// Parse reads a full container; ParseDexFilesOnly stops after the
// headers and the dex listing.
func Parse(buf []byte) (File, error) {
    return parseImpl(false, buf)
}

func ParseDexFilesOnly(buf []byte) (File, error) {
    return parseImpl(true, buf)
}

func parseImpl(dexFilesOnly bool, buf []byte) (File, error) {
    oatOffset := uint32(0)

    /* ELF wrapper: the payload sits at 0x1000 */
    if len(buf) >= 4 && buf[0] == 0x7f && buf[1] == 'E' && buf[2] == 'L' && buf[3] == 'F' {
        if len(buf) < PayloadOffset {
            return nil, ErrTruncated
        }
        oatOffset = PayloadOffset
        buf = buf[PayloadOffset:]
    }

    if len(buf) < 4 {
        return nil, ErrTruncated
    }
    if u32(buf, 0) != Magic {
        return &FileBad { checksum: safeChecksum(buf), version: safeVersion(buf) }, ErrBadMagic
    }

    version := Version(u32(buf, 4))
    switch version {
        case V045, V064:
            return parse064(dexFilesOnly, buf, oatOffset)
        case V079, V088:
            return parse079(dexFilesOnly, buf, oatOffset)
        default:
            ma := NewAccounter(buf)
            h, err := parseHeader(buf, ma)
            if err != nil {
                return nil, err
            }
            return &FileUnknown { header: h, ma: ma }, ErrUnknownVersion
    }
}

func safeVersion(buf []byte) Version {
    if len(buf) >= 8 {
        return Version(u32(buf, 4))
    }
    return VersionUnknown
}

func safeChecksum(buf []byte) uint32 {
    if len(buf) >= 12 {
        return u32(buf, 8)
    }
    return 0
}

/* ---------- version 079/088 ---------- */

// File079 is a parsed 079/088 container: the class listing is doubly
// indirect (classes_offset points to an offset array whose entries
// point to ClassInfo records) and each dex carries a type lookup
// table.
type File079 struct {
    header    *Header
    kv        []KeyValue
    listing   []DexFileEntry
    dexHdrs   []*DexFileHeader
    classes   []DexClasses
    tables    []LookupTable
    oatOffset uint32
    ma        *Accounter
}

func (self *File079) Status() Status          { return ParseSuccess }
func (self *File079) Header() *Header         { return self.header }
func (self *File079) KeyValues() []KeyValue   { return self.kv }
func (self *File079) OatOffset() uint32       { return self.oatOffset }
func (self *File079) Accounter() *Accounter   { return self.ma }
func (self *File079) Listing() []DexFileEntry { return self.listing }
func (self *File079) DexHeaders() []*DexFileHeader { return self.dexHdrs }
func (self *File079) Classes() []DexClasses   { return self.classes }
func (self *File079) Tables() []LookupTable   { return self.tables }

func (self *File079) DexFiles() []OatDexFile {
    out := make([]OatDexFile, 0, len(self.listing))
    for _, e := range self.listing {
        out = append(out, OatDexFile { Location: e.Location, Checksum: e.LocationChecksum, FileOffset: e.FileOffset })
    }
    return out
}

func parse079(dexFilesOnly bool, buf []byte, oatOffset uint32) (File, error) {
    ma := NewAccounter(buf)
    h, err := parseHeader(buf, ma)
    if err != nil {
        return nil, err
    }
    verifyChecksum(buf, h.Checksum)

    hsize := headerSize(h.Version)
    if uint32(len(buf)) < hsize + h.KeyValueStoreSize {
        return nil, ErrTruncated
    }
    kv := parseKeyValueStore(buf[hsize : hsize + h.KeyValueStoreSize])
    ma.MarkRange(hsize, h.KeyValueStoreSize)

    r := &reader { buf: buf, pos: hsize + h.KeyValueStoreSize, ma: ma }
    f := &File079 { header: h, kv: kv, oatOffset: oatOffset, ma: ma }

    for i := uint32(0); i < h.DexFileCount; i++ {
        var e DexFileEntry
        n, err := r.word()
        if err != nil {
            return nil, err
        }
        loc, err := r.bytes(n)
        if err != nil {
            return nil, err
        }
        e.Location = string(loc)

        for _, dst := range []*uint32 { &e.LocationChecksum, &e.FileOffset, &e.ClassesOffset, &e.LookupTableOffset } {
            if *dst, err = r.word(); err != nil {
                return nil, err
            }
        }
        if e.FileOffset % 4 != 0 {
            return nil, ErrMisaligned
        }

        dh, err := ParseDexHeader(buf[e.FileOffset:])
        if err != nil {
            return nil, err
        }
        e.NumClasses = dh.ClassDefsSize
        ma.MarkRange(e.FileOffset, dh.FileSize)

        f.listing = append(f.listing, e)
        f.dexHdrs = append(f.dexHdrs, dh)
    }

    if dexFilesOnly {
        return f, nil
    }

    /* class metadata: per dex, an array of offsets to ClassInfo */
    for i, e := range f.listing {
        dh := f.dexHdrs[i]
        ids := newDexIDs(buf[e.FileOffset:], dh)
        dc := DexClasses { DexFile: e.Location }

        for c := uint32(0); c < dh.ClassDefsSize; c++ {
            off := e.ClassesOffset + c * 4
            if off + 4 > uint32(len(buf)) {
                return nil, ErrTruncated
            }
            infoOff := u32(buf, off)
            ma.MarkRange(off, 4)

            if infoOff + 4 > uint32(len(buf)) {
                return nil, ErrTruncated
            }
            info := ClassInfo {
                Status : ClassStatus(int16(u16(buf, infoOff))),
                Type   : ClassType(u16(buf, infoOff + 2)),
            }
            ma.MarkRange(infoOff, 4)

            dc.ClassInfo = append(dc.ClassInfo, info)
            dc.ClassNames = append(dc.ClassNames, ids.className(c))
        }
        f.classes = append(f.classes, dc)
    }

    /* type lookup tables */
    for i, e := range f.listing {
        dh := f.dexHdrs[i]
        n := LookupEntries(dh.ClassDefsSize)
        t := LookupTable { DexFileOffset: e.FileOffset, DexLocation: e.Location }

        if e.LookupTableOffset + n * lookupEntrySize > uint32(len(buf)) {
            return nil, ErrTruncated
        }
        for j := uint32(0); j < n; j++ {
            off := e.LookupTableOffset + j * lookupEntrySize
            t.Entries = append(t.Entries, LookupTableEntry {
                StrOffset    : u32(buf, off),
                Data         : u16(buf, off + 4),
                NextPosDelta : u16(buf, off + 6),
            })
        }
        ma.MarkRange(e.LookupTableOffset, n * lookupEntrySize)
        f.tables = append(f.tables, t)
    }
    return f, nil
}

/* ---------- version 045/064 ---------- */

// File064 is a parsed 045/064 container: the class-offset table lives
// inline in the dex listing, and there are no lookup tables.
type File064 struct {
    header    *Header
    kv        []KeyValue
    listing   []DexFileEntry
    dexHdrs   []*DexFileHeader
    classes   []DexClasses
    oatOffset uint32
    ma        *Accounter
}

func (self *File064) Status() Status          { return ParseSuccess }
func (self *File064) Header() *Header         { return self.header }
func (self *File064) KeyValues() []KeyValue   { return self.kv }
func (self *File064) OatOffset() uint32       { return self.oatOffset }
func (self *File064) Accounter() *Accounter   { return self.ma }
func (self *File064) Listing() []DexFileEntry { return self.listing }
func (self *File064) Classes() []DexClasses   { return self.classes }

func (self *File064) DexFiles() []OatDexFile {
    out := make([]OatDexFile, 0, len(self.listing))
    for _, e := range self.listing {
        out = append(out, OatDexFile { Location: e.Location, Checksum: e.LocationChecksum, FileOffset: e.FileOffset })
    }
    return out
}

func parse064(dexFilesOnly bool, buf []byte, oatOffset uint32) (File, error) {
    ma := NewAccounter(buf)
    h, err := parseHeader(buf, ma)
    if err != nil {
        return nil, err
    }
    verifyChecksum(buf, h.Checksum)

    hsize := headerSize(h.Version)
    if uint32(len(buf)) < hsize + h.KeyValueStoreSize {
        return nil, ErrTruncated
    }
    kv := parseKeyValueStore(buf[hsize : hsize + h.KeyValueStoreSize])
    ma.MarkRange(hsize, h.KeyValueStoreSize)

    r := &reader { buf: buf, pos: hsize + h.KeyValueStoreSize, ma: ma }
    f := &File064 { header: h, kv: kv, oatOffset: oatOffset, ma: ma }

    for i := uint32(0); i < h.DexFileCount; i++ {
        var e DexFileEntry
        n, err := r.word()
        if err != nil {
            return nil, err
        }
        loc, err := r.bytes(n)
        if err != nil {
            return nil, err
        }
        e.Location = string(loc)

        for _, dst := range []*uint32 { &e.LocationChecksum, &e.FileOffset } {
            if *dst, err = r.word(); err != nil {
                return nil, err
            }
        }
        if e.FileOffset % 4 != 0 {
            return nil, ErrMisaligned
        }

        dh, err := ParseDexHeader(buf[e.FileOffset:])
        if err != nil {
            return nil, err
        }
        e.NumClasses = dh.ClassDefsSize
        ma.MarkRange(e.FileOffset, dh.FileSize)

        dc := DexClasses { DexFile: e.Location }
        ids := newDexIDs(buf[e.FileOffset:], dh)

        /* the listing carries one class-info offset per class def */
        for c := uint32(0); c < dh.ClassDefsSize; c++ {
            infoOff, err := r.word()
            if err != nil {
                return nil, err
            }
            e.ClassOffsets = append(e.ClassOffsets, infoOff)

            if dexFilesOnly {
                continue
            }
            if infoOff + 4 > uint32(len(buf)) {
                return nil, ErrTruncated
            }
            info := ClassInfo {
                Status : ClassStatus(int16(u16(buf, infoOff))),
                Type   : ClassType(u16(buf, infoOff + 2)),
            }
            ma.MarkRange(infoOff, 4)

            /* compiled classes append a method bitmap or pointers */
            if info.Type == SomeCompiled {
                if infoOff + 8 > uint32(len(buf)) {
                    return nil, ErrTruncated
                }
                bitmapSize := u32(buf, infoOff + 4)
                ma.MarkRange(infoOff + 4, 4 + bitmapSize)

                methods := uint32(0)
                for w := uint32(0); w + 4 <= bitmapSize; w += 4 {
                    methods += popcount(u32(buf, infoOff + 8 + w))
                }
                ma.MarkRange(infoOff + 8 + bitmapSize, methods * 4)
            }

            dc.ClassInfo = append(dc.ClassInfo, info)
            dc.ClassNames = append(dc.ClassNames, ids.className(c))
        }

        f.listing = append(f.listing, e)
        f.dexHdrs = append(f.dexHdrs, dh)
        if !dexFilesOnly {
            f.classes = append(f.classes, dc)
        }
    }
    return f, nil
}

func popcount(v uint32) uint32 {
    n := uint32(0)
    for ; v != 0; v &= v - 1 {
        n++
    }
    return n
}

/* ---------- unknown / bad ---------- */

// FileUnknown still exposes the common header for inspection.
type FileUnknown struct {
    header *Header
    ma     *Accounter
}

func (self *FileUnknown) Status() Status        { return ParseUnknownVersion }
func (self *FileUnknown) Header() *Header       { return self.header }
func (self *FileUnknown) KeyValues() []KeyValue { return nil }
func (self *FileUnknown) DexFiles() []OatDexFile { return nil }
func (self *FileUnknown) OatOffset() uint32     { return 0 }
func (self *FileUnknown) Accounter() *Accounter { return self.ma }

// FileBad is the bad-magic outcome; nothing beyond the first words
// was read.
type FileBad struct {
    version  Version
    checksum uint32
}

func (self *FileBad) Status() Status        { return ParseBadMagic }
func (self *FileBad) Header() *Header       { return &Header { Version: self.version, Checksum: self.checksum } }
func (self *FileBad) KeyValues() []KeyValue { return nil }
func (self *FileBad) DexFiles() []OatDexFile { return nil }
func (self *FileBad) OatOffset() uint32     { return 0 }
func (self *FileBad) Accounter() *Accounter { return nil }
