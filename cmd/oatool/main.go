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

// oatool builds and dumps AOT containers.
package main

import (
    "fmt"
    "os"

    "github.com/spf13/cobra"

    "github.com/slimdex/slimdex/internal/log"
    "github.com/slimdex/slimdex/internal/oat"
)

type arguments struct {
    dump  bool
    build bool

    oatFile      string
    dexFiles     []string
    dexLocations []string
    oatVersion   string
    arch         string
    writeElf     bool

    artImageLocation string

    dumpClasses     bool
    dumpTables      bool
    dumpMemoryUsage bool
    printUnverified bool
}

func fail(format string, v ...interface{}) error {
    return fmt.Errorf(format, v...)
}

func runDump(args *arguments) error {
    if args.oatFile == "" {
        return fail("--oat required")
    }

    buf, err := os.ReadFile(args.oatFile)
    if err != nil {
        return fail("failed to open file %s: %v", args.oatFile, err)
    }

    f, err := oat.Parse(buf)
    if f == nil {
        return err
    }

    oat.Dump(os.Stdout, f, oat.DumpOptions {
        Classes     : args.dumpClasses,
        Tables      : args.dumpTables,
        MemoryUsage : args.dumpMemoryUsage,
        Unverified  : args.printUnverified,
    })

    if f.Status() != oat.ParseSuccess {
        return err
    }
    return nil
}

func runBuild(args *arguments) error {
    if args.oatFile == "" {
        return fail("--oat required")
    }
    if len(args.dexFiles) == 0 {
        return fail("one or more --dex args required")
    }
    if args.oatVersion == "" {
        return fail("--oat-version is required, valid versions: 045 064 079 088")
    }

    version := oat.VersionFromString(args.oatVersion)
    if version == oat.VersionUnknown {
        return fail("bad version %s", args.oatVersion)
    }

    arch := args.arch
    if arch == "" {
        arch = "none"
    }
    isa, ok := oat.InstructionSetFromString(arch)
    if !ok {
        return fail("unknown arch %s", args.arch)
    }

    if len(args.dexLocations) != 0 && len(args.dexLocations) != len(args.dexFiles) {
        return fail("number of --dex-location arguments must match number of --dex arguments")
    }

    inputs := make([]oat.DexInput, 0, len(args.dexFiles))
    for i, path := range args.dexFiles {
        data, err := os.ReadFile(path)
        if err != nil {
            return fail("failed to read dex file %s: %v", path, err)
        }
        location := path
        if len(args.dexLocations) != 0 {
            location = args.dexLocations[i]
        }
        inputs = append(inputs, oat.DexInput { Data: data, Location: location })
    }

    /* boot image info only matters for the 064 header */
    var imageInfo *oat.ImageInfo
    if version == oat.V064 && args.artImageLocation != "" {
        if data, err := os.ReadFile(args.artImageLocation); err == nil {
            imageInfo, _ = oat.ReadImageInfo(data)
        }
    }

    out, err := oat.Build(inputs, version, isa, args.writeElf, args.artImageLocation, imageInfo)
    if err != nil {
        return err
    }
    return os.WriteFile(args.oatFile, out, 0644)
}

func main() {
    args := &arguments{}

    root := &cobra.Command {
        Use           : "oatool",
        Short         : "build and dump AOT containers",
        SilenceUsage  : true,
        SilenceErrors : true,
        RunE: func(_ *cobra.Command, _ []string) error {
            if args.dump == args.build {
                return fail("exactly one of --dump, --build must be set")
            }
            if args.printUnverified && !args.dump {
                return fail("--print-unverified-classes can only be used with --dump")
            }
            if args.dump {
                return runDump(args)
            }
            return runBuild(args)
        },
    }

    fs := root.Flags()
    fs.BoolVar(&args.dump, "dump", false, "dump an existing oat file")
    fs.BoolVar(&args.build, "build", false, "build a new oat file")
    fs.StringVar(&args.oatFile, "oat", "", "oat file path (output when building, input when dumping)")
    fs.StringArrayVar(&args.dexFiles, "dex", nil, "input dex file (repeatable)")
    fs.StringArrayVar(&args.dexLocations, "dex-location", nil, "location string for the matching --dex (repeatable)")
    fs.StringVar(&args.oatVersion, "oat-version", "", "oat version to build: 045|064|079|088")
    fs.StringVar(&args.arch, "arch", "none", "target architecture")
    fs.BoolVar(&args.writeElf, "write-elf", false, "wrap the oat payload in an ELF container")
    fs.StringVar(&args.artImageLocation, "art-image-location", "", "boot image location")
    fs.BoolVar(&args.dumpClasses, "dump-classes", false, "dump class metadata")
    fs.BoolVar(&args.dumpTables, "dump-tables", false, "dump type lookup tables")
    fs.BoolVar(&args.dumpMemoryUsage, "dump-memory-usage", false, "report parser byte accounting")
    fs.BoolVar(&args.printUnverified, "print-unverified-classes", false, "list classes below verified status")

    log.Development()
    if err := root.Execute(); err != nil {
        fmt.Fprintln(os.Stderr, err)
        os.Exit(1)
    }
}
