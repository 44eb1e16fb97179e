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

package opts

import (
    `os`

    `github.com/pelletier/go-toml/v2`
)

// Config is the pipeline configuration: the ordered pass list plus a
// named-option table per pass.
type Config struct {
    Passes  []string                          `toml:"passes"`
    Threads int                               `toml:"threads"`
    Options map[string]map[string]interface{} `toml:"options"`
}

// LoadConfig reads a TOML pipeline config from disk.
func LoadConfig(path string) (*Config, error) {
    data, err := os.ReadFile(path)
    if err != nil {
        return nil, err
    }
    return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
    cfg := &Config{}
    if err := toml.Unmarshal(data, cfg); err != nil {
        return nil, err
    }
    return cfg, nil
}

// PassOptions returns the named options of one pass; missing passes
// read as an empty option set.
func (self *Config) PassOptions(pass string) Options {
    if self == nil || self.Options == nil {
        return Options(nil)
    }
    return Options(self.Options[pass])
}

// Options reads named values with defaults.
type Options map[string]interface{}

func (self Options) GetBool(name string, def bool) bool {
    if v, ok := self[name].(bool); ok {
        return v
    }
    return def
}

func (self Options) GetInt(name string, def int64) int64 {
    if v, ok := self[name].(int64); ok {
        return v
    }
    return def
}

func (self Options) GetString(name string, def string) string {
    if v, ok := self[name].(string); ok {
        return v
    }
    return def
}
