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
    `bytes`
    `testing`

    `github.com/stretchr/testify/require`
    `github.com/t-crest/singlepath/internal/instrinfo`
    `github.com/t-crest/singlepath/internal/opts`
    `github.com/t-crest/singlepath/mir`
)

func blocks(fn *mir.Func) map[string]*mir.BasicBlock {
    ret := make(map[string]*mir.BasicBlock, len(fn.Blocks))
    for _, bb := range fn.Blocks {
        ret[bb.Name] = bb
    }
    return ret
}

func analyze(t *testing.T, fn *mir.Func) *Info {
    fn.Root = true
    info, err := Analyze(fn, NewConfig([]string { fn.Name }), opts.Options { Verify: true })
    require.NoError(t, err)
    require.NotNil(t, info)
    return info
}

// if/else inside a single top-level loop
func buildLoopIfElse() *mir.Func {
    b := mir.NewBuilder("ifelse")
    b.AddI(mir.R(1), mir.R(0), 0)
    b.Label("header")
    b.Cmp(mir.CMPLT, mir.P1, mir.R(1), mir.R(2))
    b.Branch(mir.P1, false, "b2")
    b.Label("b1")
    b.AddI(mir.R(3), mir.R(3), 1)
    b.Jump("b3")
    b.Label("b2")
    b.AddI(mir.R(3), mir.R(3), 2)
    b.Label("b3")
    b.AddI(mir.R(1), mir.R(1), 1)
    b.Cmp(mir.CMPLT, mir.P2, mir.R(1), mir.R(4))
    b.Branch(mir.P2, false, "header")
    b.Label("exit")
    b.Ret()
    return b.Build()
}

// a loop nested in another one, the inner one being a self loop
func buildNested() *mir.Func {
    b := mir.NewBuilder("nested")
    b.Nop()
    b.Label("outer")
    b.Branch(mir.P1, false, "exit")
    b.Label("inner")
    b.AddI(mir.R(2), mir.R(2), 1)
    b.Branch(mir.P2, false, "inner")
    b.Label("latch")
    b.Jump("outer")
    b.Label("exit")
    b.Ret()
    return b.Build()
}

// loop-free nest of conditionals with shared joins and two returns
func buildConditionals() *mir.Func {
    b := mir.NewBuilder("conds")
    b.Branch(mir.P1, false, "else")
    b.Label("then")
    b.AddI(mir.R(1), mir.R(1), 1)
    b.Branch(mir.P2, true, "join")
    b.Label("t2")
    b.AddI(mir.R(1), mir.R(1), 2)
    b.Jump("join")
    b.Label("else")
    b.AddI(mir.R(1), mir.R(1), 3)
    b.Branch(mir.P3, false, "out")
    b.Label("join")
    b.AddI(mir.R(1), mir.R(1), 4)
    b.Branch(mir.P4, false, "out")
    b.Label("tail")
    b.Ret()
    b.Label("out")
    b.Ret()
    return b.Build()
}

func TestScopeTree_LoopIfElse(t *testing.T) {
    fn := buildLoopIfElse()
    bbs := blocks(fn)
    info := analyze(t, fn)

    /* exactly two scopes */
    require.Len(t, info.Root.Children, 1)
    loop := info.Root.Children[0]
    require.Empty(t, loop.Children)
    require.Equal(t, 1, info.Depth())
    require.True(t, info.Root.IsRootTopLevel)
    require.True(t, loop.IsTopLevel())

    /* membership */
    require.Equal(t, []*mir.BasicBlock { bbs["header"], bbs["b1"], bbs["b2"], bbs["b3"] }, loop.Blocks)
    require.Equal(t, []*mir.BasicBlock { bbs["entry"], bbs["exit"] }, info.Root.Blocks)
    require.Equal(t, []*mir.BasicBlock { bbs["b3"] }, loop.Latches)
    require.Equal(t, []Edge {{ From: bbs["b3"], To: bbs["exit"] }}, loop.Exits)
    require.Equal(t, loop, info.ScopeFor(bbs["b2"]))

    /* complementary guards over the same register, the join is always executed */
    g1, g2 := loop.Guard(bbs["b1"]), loop.Guard(bbs["b2"])
    require.Equal(t, g1.Reg, g2.Reg)
    require.True(t, g1.Reg.IsVirtual())
    require.Equal(t, instrinfo.ReverseCondition(g1), g2)
    require.True(t, loop.Guard(bbs["b3"]).IsTrue())
    require.True(t, loop.Guard(bbs["header"]).IsTrue())

    /* b2 is the taken side of the header branch */
    require.False(t, g2.Negate)
    require.Len(t, loop.Defs, 1)
    require.Equal(t, DefDecision, loop.Defs[0].Kind)
    require.Equal(t, instrinfo.Cond { Reg: mir.P1 }, *loop.Defs[0].Cond)
    require.Equal(t, bbs["header"], loop.Defs[0].Block)
}

func TestScopeTree_Nested(t *testing.T) {
    fn := buildNested()
    bbs := blocks(fn)
    info := analyze(t, fn)

    /* shape follows the loop forest */
    require.Equal(t, info.Loops.MaxDepth(), info.Depth())
    require.Equal(t, 2, info.Depth())
    outer := info.Root.Children[0]
    inner := outer.Children[0]
    require.Equal(t, bbs["outer"], outer.Header)
    require.Equal(t, bbs["inner"], inner.Header)
    require.Equal(t, []*mir.BasicBlock { bbs["outer"], bbs["latch"] }, outer.Blocks)
    require.Equal(t, []*mir.BasicBlock { bbs["inner"] }, inner.Blocks)
    require.Equal(t, 2, inner.Depth)
    require.False(t, outer.IsRoot())
    require.False(t, inner.IsTopLevel())

    /* every block is a direct member of exactly one scope */
    seen := make(map[*mir.BasicBlock]int)
    info.Walk(WalkerFunc(func(sc *Scope) {
        for _, bb := range sc.Blocks {
            seen[bb]++
            require.True(t, sc.Has(bb))
        }
    }))
    for _, bb := range fn.Blocks {
        require.Equal(t, 1, seen[bb], bb.String())
        require.True(t, info.Root.Contains(bb))
    }
    require.Equal(t, fn.Blocks, info.Root.AllBlocks())
    require.False(t, inner.Contains(bbs["latch"]))

    /* the inner loop runs when the outer header does not exit */
    gi := outer.Guard(bbs["inner"])
    require.Equal(t, gi, outer.Guard(bbs["latch"]))
    require.Equal(t, instrinfo.Cond { Reg: mir.VP(0), Negate: true }, gi)
    require.Equal(t, 1, outer.NumPreds)
    require.Equal(t, 1, inner.PredBase)
    require.True(t, inner.Guard(bbs["inner"]).IsTrue())
    require.Equal(t, []*mir.BasicBlock { bbs["inner"] }, inner.Latches)
    require.Equal(t, []*mir.BasicBlock { bbs["latch"] }, outer.Latches)
    require.Equal(t, 1, info.NumPreds())
}

func TestScopeTree_NoLoops(t *testing.T) {
    fn := buildConditionals()
    info := analyze(t, fn)
    require.Empty(t, info.Root.Children)
    require.Equal(t, 0, info.Depth())
    require.Equal(t, fn.Blocks, info.Root.Blocks)
}

func TestScopeFor_Unknown(t *testing.T) {
    info := analyze(t, buildNested())
    other := buildLoopIfElse()
    require.Panics(t, func() { info.ScopeFor(other.Entry()) })
    require.Panics(t, func() { info.Root.Guard(other.Entry()) })
}

// Runs every assignment of the branch predicates through the function and
// checks that exactly the executed blocks have a true guard.
func TestPredInfo_Paths(t *testing.T) {
    fn := buildConditionals()
    info := analyze(t, fn)
    sc := info.Root
    preds := []mir.Reg { mir.P1, mir.P2, mir.P3, mir.P4 }

    for m := 0; m < 1 << len(preds); m++ {
        val := make(map[mir.Reg]bool)
        for i, p := range preds {
            val[p] = m & (1 << i) != 0
        }

        /* evaluates a condition */
        var eval func(c instrinfo.Cond) bool
        eval = func(c instrinfo.Cond) bool {
            if c.Reg == mir.NoReg || c.Reg == mir.P0 {
                return !c.Negate
            } else {
                return val[c.Reg] != c.Negate
            }
        }

        /* execute the function */
        run := make(map[*mir.BasicBlock]bool)
        for bb := fn.Entry(); bb != nil; {
            run[bb] = true
            br, err := instrinfo.AnalyzeBranch(bb, false)
            if len(bb.Succ) == 0 {
                require.Error(t, err)
                break
            }
            require.NoError(t, err)
            if br.Cond == nil || eval(*br.Cond) {
                if br.TBB != nil {
                    bb = br.TBB
                    continue
                }
            }
            if br.FBB != nil {
                bb = br.FBB
                continue
            }
            for _, p := range bb.Succ {
                if p != br.TBB {
                    bb = p
                    break
                }
            }
        }

        /* compute the virtual predicates in definition order */
        for _, d := range sc.Defs {
            switch d.Kind {
                case DefDecision : val[d.Reg] = eval(*d.Cond)
                case DefEdge     : val[d.Reg] = eval(d.Guard) && eval(*d.Cond)
                case DefUnion    : {
                    val[d.Reg] = false
                    for _, c := range d.Terms {
                        val[d.Reg] = val[d.Reg] || eval(c)
                    }
                }
            }
        }

        /* compare */
        for _, bb := range fn.Blocks {
            require.Equalf(t, run[bb], eval(sc.Guard(bb)), "block %s, mask %04b, guard %s", bb, m, sc.Guard(bb))
        }
    }
}

func TestPredInfo_Idempotent(t *testing.T) {
    fn := buildConditionals()
    info := analyze(t, fn)
    before := info.String()
    guards := make(map[*mir.BasicBlock]instrinfo.Cond)
    for k, v := range info.Root.Guards {
        guards[k] = v
    }
    require.NoError(t, info.Root.ComputePredInfos(0))
    require.Equal(t, guards, info.Root.Guards)
    require.Equal(t, before, info.String())
    again := analyze(t, fn)
    require.Equal(t, before, again.String())
}

func TestPredInfo_Unreachable(t *testing.T) {
    b := mir.NewBuilder("dead")
    b.Jump("end")
    b.Label("dead")
    b.AddI(mir.R(1), mir.R(1), 1)
    b.Label("end")
    b.Ret()
    fn := b.Build()
    info := analyze(t, fn)
    require.True(t, info.Root.Guard(blocks(fn)["dead"]).IsFalse())
    require.True(t, info.Root.Guard(blocks(fn)["end"]).IsTrue())
}

func TestPredInfo_UnsupportedBranch(t *testing.T) {
    b := mir.NewBuilder("indirect")
    b.Branch(mir.P1, false, "end")
    b.Label("mid")
    b.AddI(mir.R(1), mir.R(1), 1)
    b.Label("end")
    b.Ret()
    fn := b.Build()
    bbs := blocks(fn)
    bbs["entry"].Ins = append(bbs["entry"].Ins, mir.NewPred(mir.BRRu, mir.Use(mir.R(5))))
    fn.Root = true
    info, err := Analyze(fn, NewConfig([]string { fn.Name }), opts.Options{})
    require.Nil(t, info)
    require.IsType(t, &instrinfo.BranchError{}, err)
}

func TestAnalyze_Irreducible(t *testing.T) {
    b := mir.NewBuilder("irreducible")
    b.Branch(mir.P1, false, "b")
    b.Label("a")
    b.Jump("b")
    b.Label("b")
    b.Branch(mir.P2, false, "a")
    b.Label("exit")
    b.Ret()
    fn := b.Build()
    bbs := blocks(fn)

    /* directly */
    err := CheckIrreducibility(fn, mir.BuildDominatorTree(fn))
    require.Error(t, err)
    ie, ok := err.(*IrreducibleError)
    require.True(t, ok)
    require.Equal(t, "irreducible", ie.Func)
    require.Equal(t, bbs["a"], ie.From)
    require.Equal(t, bbs["b"], ie.To)
    require.Contains(t, err.Error(), "irreducible CFG in 'irreducible'")

    /* through the pipeline */
    fn.Root = true
    info, err := Analyze(fn, NewConfig([]string { fn.Name }), opts.Options{})
    require.Nil(t, info)
    require.IsType(t, &IrreducibleError{}, err)
}

func TestAnalyze_Reducible(t *testing.T) {
    for _, fn := range []*mir.Func { buildNested(), buildLoopIfElse(), buildConditionals() } {
        info := analyze(t, fn)
        require.NoError(t, CheckIrreducibility(fn, info.Dom))

        /* every edge into a loop header from inside the loop comes from a dominated block */
        for _, bb := range fn.Blocks {
            for _, p := range bb.Succ {
                if lp := info.Loops.LoopFor(p); lp != nil && lp.Header == p && lp.Contains(bb) {
                    require.True(t, info.Dom.Dominates(p, bb))
                }
            }
        }
    }
}

func TestAnalyze_Disabled(t *testing.T) {
    fn := buildNested()
    info, err := Analyze(fn, NewConfig(nil), opts.Options{})
    require.NoError(t, err)
    require.Nil(t, info)
    info, err = Analyze(fn, ParseRootList("main"), opts.Options{})
    require.NoError(t, err)
    require.Nil(t, info)
    fn.Maybe = true
    info, err = Analyze(fn, ParseRootList("main"), opts.Options{})
    require.NoError(t, err)
    require.NotNil(t, info)
}

type _Trace []string

func (self *_Trace) Enter(sc *Scope) { *self = append(*self, "enter " + sc.Header.Name) }
func (self *_Trace) Exit(sc *Scope)  { *self = append(*self, "exit " + sc.Header.Name) }

func TestWalk_Order(t *testing.T) {
    var tr _Trace
    analyze(t, buildNested()).Walk(&tr)
    require.Equal(t, _Trace {
        "enter entry",
        "enter outer",
        "enter inner",
        "exit inner",
        "exit outer",
        "exit entry",
    }, tr)
}

func TestLayout_Contiguous(t *testing.T) {
    fn := buildNested()
    bbs := blocks(fn)
    info := analyze(t, fn)
    lay := NewLayout(info)
    require.Equal(t, []*mir.BasicBlock { bbs["entry"], bbs["outer"], bbs["inner"], bbs["latch"], bbs["exit"] }, lay.Blocks)

    /* every scope occupies one contiguous range */
    info.Walk(WalkerFunc(func(sc *Scope) {
        all := sc.AllBlocks()
        pos := lay.Start[sc]
        set := make(map[*mir.BasicBlock]bool)
        for _, bb := range lay.Blocks[pos:pos + len(all)] {
            set[bb] = true
        }
        for _, bb := range all {
            require.True(t, set[bb], "%s not in the range of %s", bb, sc)
        }
    }))
}

func TestLayout_IfElse(t *testing.T) {
    fn := buildLoopIfElse()
    lay := NewLayout(analyze(t, fn))
    require.Len(t, lay.Blocks, len(fn.Blocks))
    require.Equal(t, fn.Entry(), lay.Blocks[0])
    require.Equal(t, blocks(fn)["exit"], lay.Blocks[len(lay.Blocks) - 1])
}

func TestDump(t *testing.T) {
    info := analyze(t, buildLoopIfElse())
    s := info.String()
    require.Contains(t, s, "single-path info for ifelse:")
    require.Contains(t, s, "[bb_0.entry] depth=0 (root, sp-root)")
    require.Contains(t, s, "  [bb_1.header] depth=1")
    require.Contains(t, s, "%vp0 = p1 @ bb_1.header")
    var buf bytes.Buffer
    info.dumpDefs(&buf)
    require.Contains(t, buf.String(), "%vp0")
}

func TestWriteDOT(t *testing.T) {
    var buf bytes.Buffer
    info := analyze(t, buildNested())
    require.NoError(t, info.WriteDOT(&buf))
    s := buf.String()
    require.Contains(t, s, "digraph nested {")
    require.Contains(t, s, `"bb_1.outer"`)
    require.Contains(t, s, "style=dashed")
    require.Contains(t, s, "style=bold")
    require.NotContains(t, s, `"bb_2.inner" -> "bb_2.inner"`)
}
