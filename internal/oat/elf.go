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

/* ELF32 header constants for the wrapper */
const (
    elfClass32    = 1
    elfData2LSB   = 1
    elfVersion    = 1
    elfTypeDyn    = 3
    elfMachine386 = 3
)

// wrapElf places the payload at file offset 0x1000 behind a minimal
// ELF32 header; the rodata segment is where the runtime expects the
// AOT data.
func wrapElf(payload []byte) []byte {
    out := make([]byte, 0, PayloadOffset + len(payload))

    ehdr := make([]byte, 52)
    ehdr[0] = 0x7f
    ehdr[1] = 'E'
    ehdr[2] = 'L'
    ehdr[3] = 'F'
    ehdr[4] = elfClass32
    ehdr[5] = elfData2LSB
    ehdr[6] = elfVersion

    binary.LittleEndian.PutUint16(ehdr[16:], elfTypeDyn)
    binary.LittleEndian.PutUint16(ehdr[18:], elfMachine386)
    binary.LittleEndian.PutUint32(ehdr[20:], elfVersion)
    binary.LittleEndian.PutUint32(ehdr[32:], 0)                    // e_shoff
    binary.LittleEndian.PutUint16(ehdr[40:], 52)                   // e_ehsize
    binary.LittleEndian.PutUint16(ehdr[42:], 32)                   // e_phentsize
    binary.LittleEndian.PutUint16(ehdr[46:], 40)                   // e_shentsize

    out = append(out, ehdr...)
    for len(out) < PayloadOffset {
        out = append(out, 0)
    }
    out = append(out, payload...)
    return out
}
