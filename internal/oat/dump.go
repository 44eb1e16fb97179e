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

func shortStatus(s ClassStatus) string {
    switch s {
        case StatusRetired   : return "O"
        case StatusError     : return "E"
        case StatusNotReady  : return "N"
        case StatusIdx       : return "I"
        case StatusLoaded    : return "L"
        case StatusResolving : return "r"
        case StatusResolved  : return "R"
        case StatusVerifying, StatusRetryVerificationAtRuntime, StatusVerifyingAtRuntime:
            return "v"
        case StatusVerified     : return "V"
        case StatusInitializing : return "i"
        case StatusInitialized  : return "I"
        default                 : return "?"
    }
}

func shortType(t ClassType) string {
    switch t {
        case AllCompiled  : return "C"
        case SomeCompiled : return "c"
        case NoneCompiled : return "n"
        default           : return "?"
    }
}

func printHeader(w io.Writer, h *Header) {
    fmt.Fprintf(w, "Header:\n")
    fmt.Fprintf(w, "  magic:   0x%08x 'oat'\n", Magic)
    fmt.Fprintf(w, "  version: 0x%08x '%s'\n", uint32(h.Version), h.Version)
    fmt.Fprintf(w, "  checksum: 0x%08x\n", h.Checksum)
    fmt.Fprintf(w, "  isa: %s\n", h.InstructionSet)
    fmt.Fprintf(w, "  isa features bitmap: 0x%08x\n", h.InstructionSetFeatures)
    fmt.Fprintf(w, "  dex_file_count: 0x%08x\n", h.DexFileCount)
    fmt.Fprintf(w, "  executable_offset: 0x%08x\n", h.ExecutableOffset)
    if h.Version == V045 {
        fmt.Fprintf(w, "  portable_imt_conflict_trampoline_offset: 0x%08x\n", h.PortableImtConflictTrampolineOffset)
        fmt.Fprintf(w, "  portable_resolution_trampoline_offset: 0x%08x\n", h.PortableResolutionTrampolineOffset)
        fmt.Fprintf(w, "  portable_to_interpreter_bridge_offset: 0x%08x\n", h.PortableToInterpreterBridgeOffset)
    }
    fmt.Fprintf(w, "  image_patch_delta: 0x%08x\n", uint32(h.ImagePatchDelta))
    fmt.Fprintf(w, "  image_file_location_oat_checksum: 0x%08x\n", h.ImageFileLocationOatChecksum)
    fmt.Fprintf(w, "  image_file_location_oat_data_begin: 0x%08x\n", h.ImageFileLocationOatDataBegin)
    fmt.Fprintf(w, "  key_value_store_size: 0x%08x\n", h.KeyValueStoreSize)
}

func printKeyValues(w io.Writer, kv []KeyValue) {
    fmt.Fprintf(w, "Key/Value store:\n")
    for _, e := range kv {
        fmt.Fprintf(w, "  %s: %s\n", e.Key, e.Value)
    }
}

func printListing(w io.Writer, listing []DexFileEntry, indirect bool) {
    fmt.Fprintf(w, "Dex File Listing:\n")
    for _, e := range listing {
        fmt.Fprintf(w, "  {\n")
        fmt.Fprintf(w, "    location: %s\n", e.Location)
        fmt.Fprintf(w, "    location_checksum: 0x%08x\n", e.LocationChecksum)
        fmt.Fprintf(w, "    file_offset: 0x%08x\n", e.FileOffset)
        if indirect {
            fmt.Fprintf(w, "    classes_offset: 0x%08x\n", e.ClassesOffset)
            fmt.Fprintf(w, "    lookup_table_offset: 0x%08x\n", e.LookupTableOffset)
        }
        fmt.Fprintf(w, "  }\n")
    }
}

func printClasses(w io.Writer, classes []DexClasses) {
    fmt.Fprintf(w, "Classes:\n")
    for _, dc := range classes {
        fmt.Fprintf(w, "  { Classes for dex %s\n", dc.DexFile)
        count := 0
        for _, info := range dc.ClassInfo {
            if count == 0 {
                fmt.Fprintf(w, "    ")
            }
            fmt.Fprintf(w, "%s%s ", shortStatus(info.Status), shortType(info.Type))
            count++
            if count >= 32 {
                fmt.Fprintf(w, "\n")
                count = 0
            }
        }
        if count != 0 {
            fmt.Fprintf(w, "\n")
        }
        fmt.Fprintf(w, "  }\n")
    }
}

func printUnverified(w io.Writer, classes []DexClasses) {
    fmt.Fprintf(w, "unverified classes:\n")
    for _, dc := range classes {
        fmt.Fprintf(w, "  %s\n", dc.DexFile)
        for i, info := range dc.ClassInfo {
            if info.Status < StatusVerified {
                fmt.Fprintf(w, "    %s unverified (status: %s)\n", dc.ClassNames[i], info.Status)
            }
        }
    }
}

func printTables(w io.Writer, tables []LookupTable) {
    fmt.Fprintf(w, "LookupTables:\n")
    for _, t := range tables {
        fmt.Fprintf(w, "  { Type lookup table %s\n", t.DexLocation)
        fmt.Fprintf(w, "    num_entries: %d\n", len(t.Entries))
        for _, e := range t.Entries {
            if e.StrOffset != 0 {
                fmt.Fprintf(w, "    { str offset: 0x%08x }\n", e.StrOffset)
            }
        }
        fmt.Fprintf(w, "  }\n")
    }
}

// Dump renders a parsed file the way the dump CLI shows it.
func Dump(w io.Writer, f File, opts DumpOptions) {
    switch v := f.(type) {
        case *File079:
            printHeader(w, v.header)
            printKeyValues(w, v.kv)
            printListing(w, v.listing, true)
            if opts.Tables {
                printTables(w, v.tables)
            }
            if opts.Classes {
                printClasses(w, v.classes)
            }
            if opts.Unverified {
                printUnverified(w, v.classes)
            }
            if opts.MemoryUsage && v.ma != nil {
                v.ma.Print(w)
            }

        case *File064:
            printHeader(w, v.header)
            printKeyValues(w, v.kv)
            printListing(w, v.listing, false)
            if opts.Classes {
                printClasses(w, v.classes)
            }
            if opts.Unverified {
                printUnverified(w, v.classes)
            }
            if opts.MemoryUsage && v.ma != nil {
                v.ma.Print(w)
            }

        case *FileUnknown:
            fmt.Fprintf(w, "Unknown OAT file version!\n")
            printHeader(w, v.header)

        case *FileBad:
            fmt.Fprintf(w, "Bad magic number:\n")
            fmt.Fprintf(w, "  version: 0x%08x\n", uint32(v.version))
            fmt.Fprintf(w, "  checksum: 0x%08x\n", v.checksum)
    }
}
