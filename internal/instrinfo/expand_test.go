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

package instrinfo

import (
    `testing`

    `github.com/stretchr/testify/require`
    `github.com/t-crest/singlepath/mir`
)

func countKills(bb *mir.BasicBlock, r mir.Reg) (n int) {
    for _, ins := range bb.Ins {
        for _, op := range ins.Ops {
            if op.IsReg() && !op.Def && op.Reg == r && op.Kill {
                n++
            }
        }
    }
    return
}

func TestExpand_GuardsRun(t *testing.T) {
    bbs := newBlocks(1)
    pre := addr()
    SetGuard(pre, Cond { Reg: mir.P3 })
    bbs[0].Append(
        NewScopeBegin(mir.P2),
        addr(),
        pre,
        mir.New(mir.DBG_VALUE),
        mir.NewPred(mir.MOV, mir.Def(mir.R(4)), mir.Use(mir.R(5))),
        NewScopeEnd(mir.P2, true),
        mir.NewPred(mir.NOP),
    )
    n, err := ExpandScopeMarkers(bbs[0], 5)
    require.NoError(t, err)
    require.Equal(t, 2, n)
    require.Len(t, bbs[0].Ins, 5)

    /* K guarded, the pre-guarded one untouched */
    c0, _ := Guard(bbs[0].Ins[0])
    c1, _ := Guard(bbs[0].Ins[1])
    c3, _ := Guard(bbs[0].Ins[3])
    c4, _ := Guard(bbs[0].Ins[4])
    require.Equal(t, Cond { Reg: mir.P2 }, c0)
    require.Equal(t, Cond { Reg: mir.P3 }, c1)
    require.Equal(t, Cond { Reg: mir.P2 }, c3)
    require.True(t, c4.IsTrue())

    /* no markers, one kill on the nearest reader */
    for _, ins := range bbs[0].Ins {
        require.False(t, ins.Op == mir.PSEUDO_SP_PRED_BBBEGIN || ins.Op == mir.PSEUDO_SP_PRED_BBEND)
    }
    require.Equal(t, 1, countKills(bbs[0], mir.P2))
    require.True(t, bbs[0].Ins[3].Ops[1].Kill)
}

func TestExpand_NoKill(t *testing.T) {
    bbs := newBlocks(1)
    bbs[0].Append(NewScopeBegin(mir.P1), addr(), NewScopeEnd(mir.P1, false))
    n, err := ExpandScopeMarkers(bbs[0], 2)
    require.NoError(t, err)
    require.Equal(t, 1, n)
    require.Equal(t, 0, countKills(bbs[0], mir.P1))
}

func TestExpand_Nesting(t *testing.T) {
    bbs := newBlocks(1)
    bbs[0].Append(
        NewScopeBegin(mir.P1),
        NewScopeBegin(mir.P2),
        addr(),
        NewScopeEnd(mir.P2, false),
        addr(),
        NewScopeEnd(mir.P1, false),
    )
    _, err := ExpandScopeMarkers(bbs[0], 5)
    require.Error(t, err)
    require.IsType(t, &NestingError{}, err)
    require.Len(t, bbs[0].Ins, 6)
    require.False(t, IsPredicated(bbs[0].Ins[4]))
}

func TestExpand_NestedRuns(t *testing.T) {
    fn := mir.NewFunc("nested")
    bb := fn.NewBlock("entry")
    bb.Append(
        NewScopeBegin(mir.P1),
        NewScopeBegin(mir.P2),
        addr(),
        NewScopeEnd(mir.P2, false),
        addr(),
        NewScopeEnd(mir.P1, false),
    )
    n, err := ExpandPostRAPseudos(fn)
    require.Equal(t, 0, n)
    require.IsType(t, &NestingError{}, err)
    require.Equal(t, 0, err.(*NestingError).Index)
    require.Len(t, bb.Ins, 6)
    require.False(t, IsPredicated(bb.Ins[2]))
    require.False(t, IsPredicated(bb.Ins[4]))

    /* inner run without an outer end */
    bb.Ins = bb.Ins[:4]
    _, err = ExpandPostRAPseudos(fn)
    require.IsType(t, &NestingError{}, err)
    require.Len(t, bb.Ins, 4)
}

func TestExpand_MissingEnd(t *testing.T) {
    fn := mir.NewFunc("open")
    bb := fn.NewBlock("entry")
    bb.Append(NewScopeBegin(mir.P1), addr(), NewScopeEnd(mir.P1, false), NewScopeBegin(mir.P2), addr())
    n, err := ExpandPostRAPseudos(fn)
    require.Equal(t, 1, n)
    require.IsType(t, &NestingError{}, err)
    require.Equal(t, 1, err.(*NestingError).Index)
    require.Contains(t, err.Error(), "missing scope-end marker")
}

func TestExpand_MissingBegin(t *testing.T) {
    bbs := newBlocks(1)
    bbs[0].Append(addr(), NewScopeEnd(mir.P1, false))
    _, err := ExpandScopeMarkers(bbs[0], 1)
    require.IsType(t, &NestingError{}, err)
    require.Panics(t, func() { _, _ = ExpandScopeMarkers(bbs[0], 0) })
}

func TestExpand_SpillCode(t *testing.T) {
    fn := mir.NewFunc("spill")
    bb := fn.NewBlock("entry")
    bb.Append(NewScopeBegin(mir.P1), addr(), NewScopeEnd(mir.P1, true), NewScopeBegin(mir.P2), NewScopeEnd(mir.P2, false))
    bb.Append(mir.NewPred(mir.RET))

    /* allocator-inserted code lands inside the first run */
    StoreRegToStackSlot(bb, 2, mir.R(1), true, 0)
    LoadRegFromStackSlot(bb, 2, mir.R(6), 1)
    CopyPhysReg(bb, 1, mir.R(7), mir.R(8), false)
    StoreRegToStackSlot(bb, 1, mir.P5, false, 2)
    InsertNoop(bb, 1)

    /* and some into the second, empty one */
    LoadRegFromStackSlot(bb, 9, mir.P6, 2)
    CopyPhysReg(bb, 10, mir.S(2), mir.R(1), false)

    n, err := ExpandPostRAPseudos(fn)
    require.NoError(t, err)
    require.Equal(t, 2, n)
    require.Len(t, bb.Ins, 9)

    /* everything is guarded, predicate spill code included */
    want := []struct {
        op mir.Opcode
        cc Cond
    } {
        { mir.NOP               , Cond { Reg: mir.P1 } },
        { mir.PSEUDO_PREG_SPILL , Cond { Reg: mir.P1 } },
        { mir.MOV               , Cond { Reg: mir.P1 } },
        { mir.ADDr              , Cond { Reg: mir.P1 } },
        { mir.LWC               , Cond { Reg: mir.P1 } },
        { mir.SWC               , Cond { Reg: mir.P1 } },
        { mir.PSEUDO_PREG_RELOAD, Cond { Reg: mir.P2 } },
        { mir.MTS               , Cond { Reg: mir.P2 } },
        { mir.RET               , True()               },
    }
    for i, w := range want {
        require.Equal(t, w.op, bb.Ins[i].Op, "instruction %d", i)
        c, _ := Guard(bb.Ins[i])
        require.Equal(t, w.cc, c, "instruction %d", i)
    }
    require.Equal(t, 1, countKills(bb, mir.P1))
    require.True(t, bb.Ins[5].Ops[0].Kill)
}

func TestSpill_Helpers(t *testing.T) {
    bb := newBlocks(1)[0]
    require.Panics(t, func() { CopyPhysReg(bb, 0, mir.P1, mir.R(1), false) })
    require.Panics(t, func() { StoreRegToStackSlot(bb, 0, mir.S(1), false, 0) })
    require.Panics(t, func() { LoadRegFromStackSlot(bb, 0, mir.S(1), 0) })
    CopyPhysReg(bb, 0, mir.R(1), mir.S(3), true)
    CopyPhysReg(bb, 0, mir.P1, mir.P2, false)
    require.Equal(t, mir.PMOV, bb.Ins[0].Op)
    require.Equal(t, []mir.Reg { mir.P1 }, DefinesPredicate(bb.Ins[0]))
    require.Equal(t, mir.MFS, bb.Ins[1].Op)
    require.True(t, bb.Ins[1].Ops[3].Kill)
    require.True(t, IsStackControl(mir.NewPred(mir.SRES, mir.Imm(4))))
    require.False(t, IsStackControl(mir.NewPred(mir.NOP)))
    require.Equal(t, mir.MemS, MemType(mir.NewPred(mir.LWS, mir.Def(mir.R(1)), mir.Use(mir.R(2)), mir.Imm(0))))
    require.Equal(t, mir.MemM, MemType(mir.NewPred(mir.SBM, mir.Use(mir.R(1)), mir.Imm(0), mir.Use(mir.R(2)))))
    require.Panics(t, func() { MemType(mir.NewPred(mir.NOP)) })
}
