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
    `fmt`
    `io`
)

// Accounter tracks which byte ranges of the input buffer the parser
// actually consumed, so a dump can report the regions nothing claimed
// and the regions claimed more than once.
type Accounter struct {
    buf   []byte
    marks []uint8
}

func NewAccounter(buf []byte) *Accounter {
    return &Accounter { buf: buf, marks: make([]uint8, len(buf)) }
}

func (self *Accounter) MarkRange(off uint32, n uint32) {
    end := off + n
    if end > uint32(len(self.marks)) {
        end = uint32(len(self.marks))
    }
    for i := off; i < end; i++ {
        if self.marks[i] < 0xff {
            self.marks[i]++
        }
    }
}

/* contiguous runs of positions matching the predicate */
func (self *Accounter) runs(match func(uint8) bool) [][2]uint32 {
    var out [][2]uint32
    start, active := uint32(0), false
    for i, m := range self.marks {
        if match(m) {
            if !active {
                start, active = uint32(i), true
            }
        } else if active {
            out = append(out, [2]uint32 { start, uint32(i) })
            active = false
        }
    }
    if active {
        out = append(out, [2]uint32 { start, uint32(len(self.marks)) })
    }
    return out
}

// Print reports untouched and multiply-consumed regions.
func (self *Accounter) Print(w io.Writer) {
    fmt.Fprintf(w, "Memory accounting:\n")
    fmt.Fprintf(w, "  file size: %d\n", len(self.buf))

    untouched := self.runs(func(m uint8) bool { return m == 0 })
    if len(untouched) == 0 {
        fmt.Fprintf(w, "  all bytes consumed\n")
    }
    for _, r := range untouched {
        fmt.Fprintf(w, "  unconsumed: [0x%08x, 0x%08x)\n", r[0], r[1])
    }
    for _, r := range self.runs(func(m uint8) bool { return m > 1 }) {
        fmt.Fprintf(w, "  multiply consumed: [0x%08x, 0x%08x)\n", r[0], r[1])
    }
}
