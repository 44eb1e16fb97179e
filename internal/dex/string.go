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

import (
    `unicode/utf16`
    `unicode/utf8`
)

// String is an interned string. Identity is the raw byte sequence plus
// its UTF-16 code-unit count, which is what the container format keys
// strings by. Two equal byte sequences always intern to the same
// *String, so pointer comparison is value comparison.
type String struct {
    data  string
    utf16 uint32
}

func (self *String) Str() string {
    return self.data
}

func (self *String) Bytes() []byte {
    return []byte(self.data)
}

// Utf16Size is the number of UTF-16 code units the string occupies.
func (self *String) Utf16Size() uint32 {
    return self.utf16
}

func (self *String) String() string {
    return self.data
}

/* count of UTF-16 code units, surrogate pairs included */
func utf16Length(s string) uint32 {
    n := uint32(0)
    for _, r := range s {
        if r >= 0x10000 && utf8.RuneLen(r) > 0 {
            n += uint32(len(utf16.Encode([]rune { r })))
        } else {
            n++
        }
    }
    return n
}
