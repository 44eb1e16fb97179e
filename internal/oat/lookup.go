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

// The type lookup table is an open-addressed hash over the dex's
// class definitions: entry count is the next power of two at or above
// class_defs_size, each slot is 8 bytes, and collisions chain through
// next_pos_delta into the next free slot found by linear probe.

const lookupEntrySize = 8

// LookupTableEntry is exactly the on-disk slot layout.
type LookupTableEntry struct {
    StrOffset    uint32
    Data         uint16
    NextPosDelta uint16
}

// LookupTable is the materialized view for one dex file.
type LookupTable struct {
    DexFileOffset uint32
    DexLocation   string
    Entries       []LookupTableEntry
}

func nextPowerOfTwo(n uint32) uint32 {
    v := uint32(1)
    for v < n {
        v <<= 1
    }
    return v
}

/* tables are only emitted for dex files with a representable count */
func lookupSupported(numClassDefs uint32) bool {
    return numClassDefs != 0 && numClassDefs <= 0xffff
}

// LookupEntries is the slot count of the table for a dex with the
// given number of class definitions.
func LookupEntries(numClassDefs uint32) uint32 {
    if !lookupSupported(numClassDefs) {
        return 0
    }
    return nextPowerOfTwo(numClassDefs)
}

/* the same multiplicative string hash the runtime uses */
func hashStr(s string) uint32 {
    h := uint32(0)
    for i := 0; i < len(s); i++ {
        if s[i] == 0 {
            break
        }
        h = h * 31 + uint32(s[i])
    }
    return h
}

/* the data word packs the class_def index under the hash's high bits */
func makeLookupData(classDefIdx uint16, hash uint32, mask uint32) uint16 {
    hashMask := uint16(^mask)
    return uint16(hash) & hashMask | classDefIdx
}

func insertNoProbe(table []LookupTableEntry, e LookupTableEntry, hash uint32, mask uint32) bool {
    pos := hash & mask
    if table[pos].StrOffset != 0 {
        return false
    }
    table[pos] = e
    table[pos].NextPosDelta = 0
    return true
}

func insertProbe(table []LookupTableEntry, e LookupTableEntry, hash uint32, mask uint32) {
    /* find the end of the collision chain */
    pos := hash & mask
    for table[pos].NextPosDelta != 0 {
        pos = (pos + uint32(table[pos].NextPosDelta)) & mask
    }

    /* then the next free slot */
    delta := uint32(1)
    for table[(pos + delta) & mask].StrOffset != 0 {
        delta++
    }

    next := (pos + delta) & mask
    table[pos].NextPosDelta = uint16(delta)
    table[next] = e
    table[next].NextPosDelta = 0
}

// buildLookupTable hashes every class descriptor of the dex into the
// open-addressed table. First pass fills unoccupied primary slots;
// whatever collided goes through the probing insert afterwards.
func buildLookupTable(blob []byte, size uint32) []LookupTableEntry {
    table := make([]LookupTableEntry, size)
    header, err := ParseDexHeader(blob)
    if err != nil {
        panic("oat: unparseable dex blob while building lookup table")
    }

    ids := newDexIDs(blob, header)
    mask := size - 1

    type retry struct {
        strOffset uint32
        data      uint16
        hash      uint32
    }
    var retries []retry

    for i := uint32(0); i < header.ClassDefsSize; i++ {
        strOffset := ids.classNameOffset(i)
        name := ids.className(i)
        hash := hashStr(name)
        data := makeLookupData(uint16(i), hash, mask)

        if !insertNoProbe(table, LookupTableEntry { StrOffset: strOffset, Data: data }, hash, mask) {
            retries = append(retries, retry { strOffset: strOffset, data: data, hash: hash })
        }
    }
    for _, r := range retries {
        insertProbe(table, LookupTableEntry { StrOffset: r.strOffset, Data: r.data }, r.hash, mask)
    }
    return table
}
