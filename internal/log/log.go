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

// Package log holds the process-wide structured logger. Library use
// stays silent by default; the CLI swaps in a development logger.
package log

import (
    `go.uber.org/zap`
)

var logger = zap.NewNop()

// L returns the current logger.
func L() *zap.Logger {
    return logger
}

// SetLogger replaces the process logger; pass nil to silence.
func SetLogger(l *zap.Logger) {
    if l == nil {
        l = zap.NewNop()
    }
    logger = l
}

// Development switches to a human-readable development logger.
func Development() {
    l, err := zap.NewDevelopment()
    if err != nil {
        panic("log: cannot build development logger: " + err.Error())
    }
    logger = l
}
