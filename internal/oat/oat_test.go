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
    `bytes`
    `encoding/binary`
    `hash/adler32`
    `testing`

    `github.com/brianvoe/gofakeit/v6`
    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

/*
 * Synthetic dex blob: a real header followed by string ids, type ids,
 * class defs and uleb-prefixed descriptor strings, just enough for
 * the builder's class-name and class-count reads.
 */
func synthDex(t *testing.T, checksum uint32, classNames ...string) []byte {
    n := uint32(len(classNames))

    stringIdsOff := uint32(DexHeaderSize)
    typeIdsOff := stringIdsOff + n * 4
    classDefsOff := typeIdsOff + n * 4
    dataOff := classDefsOff + n * dexClassDefSize

    var data bytes.Buffer
    stringOffsets := make([]uint32, n)
    for i, name := range classNames {
        stringOffsets[i] = dataOff + uint32(data.Len())
        require.Less(t, len(name), 128, "single-byte uleb only")
        data.WriteByte(byte(len(name)))
        data.WriteString(name)
        data.WriteByte(0)
    }

    total := dataOff + uint32(data.Len())
    buf := make([]byte, 0, total)
    w := func(v uint32) { buf = binary.LittleEndian.AppendUint32(buf, v) }

    /* header */
    w(0x0A786564) // "dex\n"
    w(0x00353330) // "035\0"
    w(checksum)
    buf = append(buf, make([]byte, 20)...) // signature
    w(total)
    w(DexHeaderSize)
    w(0x12345678) // endian tag
    w(0)          // link size
    w(0)          // link off
    w(0)          // map off
    w(n)          // string ids
    w(stringIdsOff)
    w(n) // type ids
    w(typeIdsOff)
    w(0) // proto ids
    w(0)
    w(0) // field ids
    w(0)
    w(0) // method ids
    w(0)
    w(n) // class defs
    w(classDefsOff)
    w(uint32(data.Len()))
    w(dataOff)
    require.Equal(t, int(stringIdsOff), len(buf))

    /* string ids point into the data section */
    for _, off := range stringOffsets {
        w(off)
    }
    /* type ids index the string ids one to one */
    for i := uint32(0); i < n; i++ {
        w(i)
    }
    /* class defs */
    for i := uint32(0); i < n; i++ {
        half := func(v uint16) { buf = binary.LittleEndian.AppendUint16(buf, v) }
        half(uint16(i)) // class idx
        half(0)
        w(0) // access flags
        half(0xffff)
        half(0)
        w(0) // interfaces
        w(0) // source file
        w(0) // annotations
        w(0) // class data
        w(0) // static values
    }
    buf = append(buf, data.Bytes()...)
    require.Equal(t, int(total), len(buf))
    return buf
}

func TestBuildParse_V079RoundTrip(t *testing.T) {
    dexA := synthDex(t, 0x1111, "LA;", "LB;")
    dexB := synthDex(t, 0x2222, "LC;", "LD;", "LE;")

    out, err := Build([]DexInput {
        { Data: dexA, Location: "classes.dex" },
        { Data: dexB, Location: "classes2.dex" },
    }, V079, IsaX86, false, "/system/framework/boot.art", nil)
    require.NoError(t, err)

    /* magic and version bytes are fixed by the format */
    assert.Equal(t, []byte { 'o', 'a', 't', '\n' }, out[0:4])
    assert.Equal(t, []byte { '0', '7', '9', 0 }, out[4:8])
    assert.Equal(t, uint32(0), uint32(len(out)) % 0x1000)

    f, err := Parse(out)
    require.NoError(t, err)
    of, ok := f.(*File079)
    require.True(t, ok)

    require.Equal(t, ParseSuccess, of.Status())
    assert.Equal(t, V079, of.Header().Version)
    require.Len(t, of.Listing(), 2)

    /* each listed file offset points at the first byte of its blob */
    for i, blob := range [][]byte { dexA, dexB } {
        e := of.Listing()[i]
        assert.Equal(t, blob, out[e.FileOffset : e.FileOffset + uint32(len(blob))])
        assert.Equal(t, uint32(0), e.FileOffset % 4)
    }
    assert.Equal(t, uint32(0x1111), of.Listing()[0].LocationChecksum)

    /* every class parses as Verified/NoneCompiled */
    require.Len(t, of.Classes(), 2)
    names := []string{}
    for _, dc := range of.Classes() {
        for i, info := range dc.ClassInfo {
            assert.Equal(t, StatusVerified, info.Status)
            assert.Equal(t, NoneCompiled, info.Type)
            names = append(names, dc.ClassNames[i])
        }
    }
    assert.Equal(t, []string { "LA;", "LB;", "LC;", "LD;", "LE;" }, names)

    /* lookup tables sized to the next power of two */
    require.Len(t, of.Tables(), 2)
    assert.Len(t, of.Tables()[0].Entries, 2)
    assert.Len(t, of.Tables()[1].Entries, 4)

    /* stored checksum covers every byte after the common header */
    assert.Equal(t, adler32.Checksum(out[12:]), of.Header().Checksum)

    /* the key-value store survives in order */
    kv := of.KeyValues()
    require.NotEmpty(t, kv)
    assert.Equal(t, "classpath", kv[0].Key)
    found := false
    for _, e := range kv {
        if e.Key == "image-location" {
            assert.Equal(t, "/system/framework/boot.art", e.Value)
            found = true
        }
    }
    assert.True(t, found)
}

func TestLookupTable_FindsEveryClass(t *testing.T) {
    faker := gofakeit.New(7)
    names := make([]string, 9)
    for i := range names {
        names[i] = "L" + faker.LetterN(8) + ";"
    }
    blob := synthDex(t, 0, names...)

    size := LookupEntries(uint32(len(names)))
    assert.Equal(t, uint32(16), size)
    table := buildLookupTable(blob, size)

    /* every class is reachable from its primary slot through the
     * next_pos_delta chain */
    mask := size - 1
    for _, name := range names {
        hash := hashStr(name)
        pos := hash & mask
        found := false
        for {
            e := table[pos]
            if e.StrOffset != 0 {
                strOff := e.StrOffset
                _, n := readUleb128(blob[strOff:])
                got := string(blob[strOff + n : strOff + n + uint32(len(name))])
                if got == name {
                    found = true
                    break
                }
            }
            if e.NextPosDelta == 0 {
                break
            }
            pos = (pos + uint32(e.NextPosDelta)) & mask
        }
        assert.True(t, found, "class %s not reachable in lookup table", name)
    }
}

func TestBuildParse_V064(t *testing.T) {
    dexA := synthDex(t, 0xabcd, "LA;", "LB;", "LC;")

    out, err := Build([]DexInput {{ Data: dexA, Location: "classes.dex" }},
        V064, IsaArm, false, "", nil)
    require.NoError(t, err)
    assert.Equal(t, []byte { '0', '6', '4', 0 }, out[4:8])

    f, err := Parse(out)
    require.NoError(t, err)
    of, ok := f.(*File064)
    require.True(t, ok)

    require.Len(t, of.Listing(), 1)
    assert.Len(t, of.Listing()[0].ClassOffsets, 3)
    require.Len(t, of.Classes(), 1)
    for _, info := range of.Classes()[0].ClassInfo {
        assert.Equal(t, StatusVerified, info.Status)
        assert.Equal(t, NoneCompiled, info.Type)
    }
}

func TestBuildParse_V045HasTrampolineFields(t *testing.T) {
    dexA := synthDex(t, 1, "LA;")

    out45, err := Build([]DexInput {{ Data: dexA, Location: "a.dex" }}, V045, IsaArm, false, "", nil)
    require.NoError(t, err)
    out64, err := Build([]DexInput {{ Data: dexA, Location: "a.dex" }}, V064, IsaArm, false, "", nil)
    require.NoError(t, err)

    /* the 045 header carries three extra words */
    assert.Equal(t, headerSize(V064) + 12, headerSize(V045))

    f45, err := Parse(out45)
    require.NoError(t, err)
    assert.Equal(t, V045, f45.Header().Version)
    f64, err := Parse(out64)
    require.NoError(t, err)
    assert.Equal(t, V064, f64.Header().Version)
}

func TestParse_DexFilesOnly(t *testing.T) {
    dexA := synthDex(t, 5, "LA;", "LB;")
    out, err := Build([]DexInput {{ Data: dexA, Location: "classes.dex" }},
        V079, IsaNone, false, "", nil)
    require.NoError(t, err)

    f, err := ParseDexFilesOnly(out)
    require.NoError(t, err)
    of := f.(*File079)
    assert.Len(t, of.DexFiles(), 1)
    assert.Empty(t, of.Classes())
    assert.Empty(t, of.Tables())
}

func TestParse_BadMagic(t *testing.T) {
    buf := []byte { 0xDE, 0xAD, 0xBE, 0xEF }
    f, err := Parse(buf)
    assert.ErrorIs(t, err, ErrBadMagic)
    require.NotNil(t, f)
    assert.Equal(t, ParseBadMagic, f.Status())
}

func TestParse_UnknownVersion(t *testing.T) {
    dexA := synthDex(t, 1, "LA;")
    out, err := Build([]DexInput {{ Data: dexA, Location: "a.dex" }}, V079, IsaNone, false, "", nil)
    require.NoError(t, err)

    /* clobber the version field */
    copy(out[4:8], []byte { '9', '9', '9', 0 })
    f, err := Parse(out)
    assert.ErrorIs(t, err, ErrUnknownVersion)
    require.NotNil(t, f)
    assert.Equal(t, ParseUnknownVersion, f.Status())
    assert.NotNil(t, f.Header())
}

func TestParse_Truncated(t *testing.T) {
    dexA := synthDex(t, 1, "LA;")
    out, err := Build([]DexInput {{ Data: dexA, Location: "a.dex" }}, V079, IsaNone, false, "", nil)
    require.NoError(t, err)

    _, err = Parse(out[:40])
    assert.ErrorIs(t, err, ErrTruncated)
}

func TestBuild_ElfWrapper(t *testing.T) {
    dexA := synthDex(t, 1, "LA;")
    out, err := Build([]DexInput {{ Data: dexA, Location: "a.dex" }}, V079, IsaX86, true, "", nil)
    require.NoError(t, err)

    assert.Equal(t, []byte { 0x7f, 'E', 'L', 'F' }, out[0:4])
    assert.Equal(t, []byte { 'o', 'a', 't', '\n' }, out[PayloadOffset : PayloadOffset + 4])

    f, err := Parse(out)
    require.NoError(t, err)
    assert.Equal(t, uint32(PayloadOffset), f.OatOffset())
    assert.Len(t, f.DexFiles(), 1)
}

func TestAccounter_ReportsUntouched(t *testing.T) {
    ma := NewAccounter(make([]byte, 16))
    ma.MarkRange(0, 4)
    ma.MarkRange(8, 4)
    ma.MarkRange(8, 4)

    var sb bytes.Buffer
    ma.Print(&sb)
    s := sb.String()
    assert.Contains(t, s, "unconsumed: [0x00000004, 0x00000008)")
    assert.Contains(t, s, "unconsumed: [0x0000000c, 0x00000010)")
    assert.Contains(t, s, "multiply consumed: [0x00000008, 0x0000000c)")
}

func TestDump_Smoke(t *testing.T) {
    dexA := synthDex(t, 9, "LA;", "LB;")
    out, err := Build([]DexInput {{ Data: dexA, Location: "classes.dex" }}, V079, IsaX86, false, "", nil)
    require.NoError(t, err)

    f, err := Parse(out)
    require.NoError(t, err)

    var sb bytes.Buffer
    Dump(&sb, f, DumpOptions { Classes: true, Tables: true, MemoryUsage: true, Unverified: true })
    s := sb.String()
    assert.Contains(t, s, "Header:")
    assert.Contains(t, s, "classes.dex")
    assert.Contains(t, s, "Vn")
}
