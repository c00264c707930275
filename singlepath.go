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
    `github.com/t-crest/singlepath/internal/instrinfo`
    `github.com/t-crest/singlepath/internal/sp`
    `github.com/t-crest/singlepath/mir`
)

type (
    Info       = sp.Info
    Scope      = sp.Scope
    Walker     = sp.Walker
    WalkerFunc = sp.WalkerFunc
    PredDef    = sp.PredDef
    Cond       = instrinfo.Cond
)

// Enabled reports whether any single-path root is configured.
func Enabled(options ...Option) bool {
    return sp.NewConfig(resolve(options).Roots).Enabled()
}

// MarkRoots marks the configured root functions of mod, and every function
// called from them, for single-path conversion.
func MarkRoots(mod *mir.Module, options ...Option) error {
    return sp.MarkRoots(mod, sp.NewConfig(resolve(options).Roots))
}

// Analyze computes the scope tree and the predicate information of fn. It
// returns a nil Info if single-path conversion does not apply to fn.
func Analyze(fn *mir.Func, options ...Option) (*Info, error) {
    o := resolve(options)
    return sp.Analyze(fn, sp.NewConfig(o.Roots), o)
}

// AnalyzeModule marks the roots of mod and analyzes every function marked,
// one at a time, in module order. It stops at the first function failing.
func AnalyzeModule(mod *mir.Module, options ...Option) (map[*mir.Func]*Info, error) {
    o := resolve(options)
    cfg := sp.NewConfig(o.Roots)
    ret := make(map[*mir.Func]*Info)

    /* nothing to do without roots */
    if !cfg.Enabled() {
        return ret, nil
    }

    /* mark all the functions reachable from the roots */
    if err := sp.MarkRoots(mod, cfg); err != nil {
        return nil, err
    }

    /* analyze every function */
    for _, fn := range mod.Funcs {
        if info, err := sp.Analyze(fn, cfg, o); err != nil {
            return nil, err
        } else if info != nil {
            ret[fn] = info
        }
    }
    return ret, nil
}

// Layout returns the blocks of an analyzed function in single-path order:
// the blocks of every scope are contiguous and topologically sorted.
func Layout(info *Info) []*mir.BasicBlock {
    return sp.NewLayout(info).Blocks
}

// Expand replaces every pair of scope markers in fn by guarded instructions.
// It returns the number of pairs expanded.
func Expand(fn *mir.Func) (int, error) {
    return instrinfo.ExpandPostRAPseudos(fn)
}
