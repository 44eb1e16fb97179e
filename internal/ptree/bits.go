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

package ptree

// Little-endian Patricia tries branch on the lowest bit at which two
// prefixes disagree, following:
//
//   C. Okasaki, A. Gill. Fast Mergeable Integer Maps. In Workshop on ML (1998).

func lowestBit(x uint64) uint64 {
    return x & (-x)
}

func branchingBit(p0 uint64, p1 uint64) uint64 {
    return lowestBit(p0 ^ p1)
}

/* keep the bits strictly below the branching bit */
func maskBits(x uint64, m uint64) uint64 {
    return x & (m - 1)
}

func isZeroBit(x uint64, m uint64) bool {
    return x & m == 0
}

func matchPrefix(key uint64, prefix uint64, m uint64) bool {
    return maskBits(key, m) == prefix
}
