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
    `fmt`
    `io`
    `os`
    `strings`
    `sync/atomic`

    `github.com/davecgh/go-spew/spew`
    `github.com/t-crest/singlepath/internal/loops`
    `github.com/t-crest/singlepath/internal/opts`
    `github.com/t-crest/singlepath/mir`
)

// Info is the single-path analysis state of one function. It is built from
// scratch by Analyze and shares nothing with other functions.
type Info struct {
    Func  *mir.Func
    Root  *Scope
    Dom   *mir.DominatorTree
    Loops *loops.Info
    owner map[*mir.BasicBlock]*Scope
    opts  opts.Options
}

// ScopeFor returns the scope owning bb directly. It panics if bb is not a
// block of the analyzed function.
func (self *Info) ScopeFor(bb *mir.BasicBlock) *Scope {
    if sc, ok := self.owner[bb]; !ok {
        panic(fmt.Sprintf("no scope for %s in function %s", bb, self.Func.Name))
    } else {
        return sc
    }
}

// Walk visits the scope tree depth-first, starting from the root scope.
func (self *Info) Walk(w Walker) {
    if self.Root != nil {
        self.Root.Walk(w)
    }
}

// Depth returns the nesting depth of the scope tree, 0 for a function
// without loops.
func (self *Info) Depth() int {
    ret := 0
    for _, sc := range self.owner {
        if sc.Depth > ret {
            ret = sc.Depth
        }
    }
    return ret
}

func (self *Info) scopes() (r []*Scope) {
    self.Walk(WalkerFunc(func(sc *Scope) { r = append(r, sc) }))
    return
}

// NumPreds returns the number of virtual predicate registers needed by the
// whole function.
func (self *Info) NumPreds() int {
    ret := 0
    self.Walk(WalkerFunc(func(sc *Scope) {
        if n := sc.PredBase + sc.NumPreds; n > ret {
            ret = n
        }
    }))
    return ret
}

// Dump writes the scope tree of the function.
func (self *Info) Dump(w io.Writer) {
    fmt.Fprintf(w, "single-path info for %s:\n", self.Func.Name)
    if self.Root != nil {
        self.Root.Dump(w)
    }
}

func (self *Info) String() string {
    var sb strings.Builder
    self.Dump(&sb)
    return sb.String()
}

// WalkerFunc adapts a function to a Walker that is only interested in
// entering scopes.
type WalkerFunc func(sc *Scope)

func (self WalkerFunc) Enter(sc *Scope) { self(sc) }
func (self WalkerFunc) Exit(_ *Scope)   {}

type Pass interface {
    Apply(*Info) error
}

type PassDescriptor struct {
    Pass Pass
    Name string
}

var Passes = [...]PassDescriptor {
    { Name: "IR Verification"     , Pass: new(Verification) },
    { Name: "Dominator Tree"      , Pass: new(Dominance) },
    { Name: "Reducibility Check"  , Pass: new(Reducibility) },
    { Name: "Loop Nesting Forest" , Pass: new(LoopForest) },
    { Name: "Scope Tree"          , Pass: new(ScopeTree) },
    { Name: "Predicate Info"      , Pass: new(PredInfo) },
}

// Verification checks the structure of the function, if enabled.
type Verification struct{}

func (Verification) Apply(info *Info) error {
    if !info.opts.Verify {
        return nil
    } else {
        return mir.Verify(info.Func)
    }
}

type Dominance struct{}

func (Dominance) Apply(info *Info) error {
    info.Dom = mir.BuildDominatorTree(info.Func)
    return nil
}

type Reducibility struct{}

func (Reducibility) Apply(info *Info) error {
    return CheckIrreducibility(info.Func, info.Dom)
}

type LoopForest struct{}

func (LoopForest) Apply(info *Info) error {
    info.Loops = loops.Build(info.Func, info.Dom)
    return nil
}

type ScopeTree struct{}

func (ScopeTree) Apply(info *Info) error {
    info.Root, info.owner = BuildScopeTree(info.Func, info.Loops)
    return nil
}

// PredInfo computes the predicate information of every scope, parents
// before children. Sibling scopes share register numbers.
type PredInfo struct{}

func (PredInfo) Apply(info *Info) error {
    var err error
    var fn func(sc *Scope, base int)

    /* preorder, a scope's registers come after its parent's */
    fn = func(sc *Scope, base int) {
        if err == nil {
            if err = sc.ComputePredInfos(base); err == nil {
                for _, c := range sc.Children {
                    fn(c, sc.PredBase + sc.NumPreds)
                }
            }
        }
    }

    /* start from the root scope */
    fn(info.Root, 0)
    return err
}

var (
    FuncCount  uint64 = 0
    FailCount  uint64 = 0
    ScopeCount uint64 = 0
    PredCount  uint64 = 0
)

// Analyze runs the single-path analysis on fn. It returns a nil Info when
// the transformation is disabled or does not apply to fn. The analysis of
// fn stops at the first error and nothing of it is kept.
func Analyze(fn *mir.Func, cfg *Config, o opts.Options) (*Info, error) {
    if !cfg.Enabled() || !IsEnabled(fn) {
        return nil, nil
    }

    /* fresh state for every function */
    info := &Info {
        Func : fn,
        opts : o,
    }

    /* the input function, at the highest level */
    if o.CanDump(3) {
        mir.Fprint(os.Stderr, fn)
    }

    /* run every pass */
    for _, p := range Passes {
        if err := p.Pass.Apply(info); err != nil {
            atomic.AddUint64(&FailCount, 1)
            return nil, err
        }
        if o.CanDump(3) {
            fmt.Fprintf(os.Stderr, "; %s: %s done\n", fn.Name, p.Name)
        }
    }

    /* update the statistics */
    atomic.AddUint64(&FuncCount, 1)
    atomic.AddUint64(&PredCount, uint64(info.NumPreds()))
    atomic.AddUint64(&ScopeCount, uint64(len(info.scopes())))

    /* diagnostics */
    if o.CanDump(1) {
        info.Dump(os.Stderr)
    }
    if o.CanDump(2) {
        info.dumpDefs(os.Stderr)
    }
    return info, nil
}

type _DefDump struct {
    Scope string
    Reg   string
    Def   string
}

func (self *Info) dumpDefs(w io.Writer) {
    var defs []_DefDump
    self.Walk(WalkerFunc(func(sc *Scope) {
        for _, d := range sc.Defs {
            defs = append(defs, _DefDump {
                Scope : sc.String(),
                Reg   : d.Reg.String(),
                Def   : d.String(),
            })
        }
    }))
    cfg := spew.ConfigState { Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true }
    cfg.Fdump(w, defs)
}
