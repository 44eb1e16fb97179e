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

// ObjectDescriptor is the root of the reference type hierarchy.
const ObjectDescriptor = "Ljava/lang/Object;"

func IsPrimitiveDesc(desc string) bool {
    if len(desc) != 1 {
        return false
    }
    switch desc[0] {
        case 'Z', 'B', 'S', 'C', 'I', 'J', 'F', 'D', 'V': return true
        default: return false
    }
}

func IsWideDesc(desc string) bool {
    return desc == "J" || desc == "D"
}

func IsArrayDesc(desc string) bool {
    return len(desc) > 0 && desc[0] == '['
}

func IsReferenceDesc(desc string) bool {
    return len(desc) > 0 && (desc[0] == 'L' || desc[0] == '[')
}

// IsWideType reports whether values of the type occupy two registers.
func IsWideType(t *Type) bool {
    return IsWideDesc(t.Descriptor())
}

func IsReferenceType(t *Type) bool {
    return IsReferenceDesc(t.Descriptor())
}

// TypeWidth is the number of register slots a value of the type needs.
func TypeWidth(t *Type) uint32 {
    if IsWideType(t) {
        return 2
    }
    return 1
}

/* one character per prototype slot; all references collapse to 'L' */
func shortyChar(t *Type) byte {
    d := t.Descriptor()
    if IsReferenceDesc(d) {
        return 'L'
    }
    return d[0]
}

// ShortyOf computes the shorty summary string of a prototype: the
// return slot first, then one slot per argument.
func ShortyOf(rtype *Type, args *TypeList) string {
    buf := make([]byte, 0, args.Len() + 1)
    buf = append(buf, shortyChar(rtype))
    for _, t := range args.Types() {
        buf = append(buf, shortyChar(t))
    }
    return string(buf)
}
