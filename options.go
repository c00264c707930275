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

package singlepath

import (
	"fmt"

	"github.com/t-crest/singlepath/internal/opts"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

// WithRoots sets the names of the single-path root functions. An empty list
// disables the transformation.
//
// The default value can be configured with the `SP_ROOTS` environment
// variable, as a comma separated list.
func WithRoots(names ...string) Option {
	return func(o *opts.Options) { o.Roots = append([]string(nil), names...) }
}

// WithRootList is like WithRoots but takes a comma separated list, such as
// "main,task". Empty entries are ignored.
func WithRootList(list string) Option {
	return WithRoots(opts.SplitList(list)...)
}

// WithDebug sets the level of diagnostics written to stderr during analysis.
//
// Level 1 dumps the scope tree of every analyzed function, level 2 adds the
// definitions of all predicate registers, level 3 traces every pass.
//
// The default value of this option is "0", and can be configured with the
// `SP_DEBUG` environment variable.
func WithDebug(level int) Option {
	if level < 0 {
		panic(fmt.Sprintf("singlepath: invalid debug level: %d", level))
	} else {
		return func(o *opts.Options) { o.Debug = level }
	}
}

// WithVerify enables structural verification of every function before it is
// analyzed.
//
// The default value can be configured with the `SP_VERIFY` environment
// variable.
func WithVerify(v bool) Option {
	return func(o *opts.Options) { o.Verify = v }
}

// SetDefaultRoots sets the default root names for all analyses from now on.
//
// Returns the old root names.
func SetDefaultRoots(names []string) []string {
	names, opts.Roots = opts.Roots, append([]string(nil), names...)
	return names
}

// SetDebug sets the default debug level for all analyses from now on.
//
// Returns the old debug level.
func SetDebug(level int) int {
	level, opts.Debug = opts.Debug, level
	return level
}

func resolve(o []Option) opts.Options {
	ret := opts.GetDefaultOptions()
	for _, fn := range o {
		fn(&ret)
	}
	return ret
}
