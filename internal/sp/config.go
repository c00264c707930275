/*
 * Copyright 2022 CloudWeGo Authors
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

package sp

import (
    `github.com/t-crest/singlepath/internal/opts`
    `github.com/t-crest/singlepath/mir`
)

// Config is the process-wide single-path configuration: the names of the
// functions designated as single-path roots. It is immutable.
type Config struct {
    roots []string
}

// NewConfig creates a configuration from a list of root names. Empty names
// are ignored.
func NewConfig(roots []string) *Config {
    ret := new(Config)
    for _, v := range roots {
        if v != "" {
            ret.roots = append(ret.roots, v)
        }
    }
    return ret
}

// ParseRootList creates a configuration from a comma separated list of
// root names, such as "main,task,,isr".
func ParseRootList(list string) *Config {
    return NewConfig(opts.SplitList(list))
}

// Roots returns a copy of the configured root names.
func (self *Config) Roots() []string {
    return append([]string(nil), self.roots...)
}

// Enabled reports whether any root is configured. Without roots the whole
// transformation is disabled.
func (self *Config) Enabled() bool {
    return self != nil && len(self.roots) != 0
}

// IsRootName reports whether name is one of the configured roots.
func (self *Config) IsRootName(name string) bool {
    if self != nil {
        for _, v := range self.roots {
            if v == name {
                return true
            }
        }
    }
    return false
}

func IsRoot(fn *mir.Func) bool       { return fn.Root }
func IsReachable(fn *mir.Func) bool  { return fn.Reachable }
func IsMaybe(fn *mir.Func) bool      { return fn.Maybe }
func IsConverting(fn *mir.Func) bool { return fn.SinglePath }

// IsEnabled reports whether single-path analysis applies to fn at all.
func IsEnabled(fn *mir.Func) bool {
    return fn.Root || fn.Reachable || fn.Maybe
}
