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
    `fmt`

    `github.com/t-crest/singlepath/mir`
)

// NestingError is returned when a scope-end marker does not pair up with
// a scope-begin marker in the same block.
type NestingError struct {
    Block  *mir.BasicBlock
    Index  int
    Reason string
}

func (self *NestingError) Error() string {
    return fmt.Sprintf("bad scope markers in %s at %d: %s", self.Block, self.Index, self.Reason)
}

// NewScopeBegin creates the marker opening a run guarded by p.
func NewScopeBegin(p mir.Reg) *mir.Instr {
    return mir.New(mir.PSEUDO_SP_PRED_BBBEGIN, mir.Use(p))
}

// NewScopeEnd creates the marker closing a run guarded by p. With kill set,
// the marker is the last use of p.
func NewScopeEnd(p mir.Reg, kill bool) *mir.Instr {
    if kill {
        return mir.New(mir.PSEUDO_SP_PRED_BBEND, mir.Kill(p))
    } else {
        return mir.New(mir.PSEUDO_SP_PRED_BBEND, mir.Use(p))
    }
}

func markerreg(ins *mir.Instr) mir.Operand {
    if len(ins.Ops) != 1 || !ins.Ops[0].IsReg() {
        panic("malformed scope marker: " + ins.String())
    } else {
        return ins.Ops[0]
    }
}

// ExpandScopeMarkers expands the scope-end marker at index end of bb. All
// unguarded predicable instructions between it and the matching begin
// marker are guarded by the marker register, a kill flag on the marker
// moves to the nearest earlier reader, and both markers are removed. It
// returns the number of instructions that received a guard.
func ExpandScopeMarkers(bb *mir.BasicBlock, end int) (int, error) {
    if end < 0 || end >= len(bb.Ins) || bb.Ins[end].Op != mir.PSEUDO_SP_PRED_BBEND {
        panic(fmt.Sprintf("no scope-end marker at %s:%d", bb, end))
    }

    /* the guard register */
    mo := markerreg(bb.Ins[end])
    cc := Cond { Reg: mo.Reg }

    /* find the begin marker first, nothing is touched on failure */
    begin := -1
    for j := end - 1; begin < 0 && j >= 0; j-- {
        switch bb.Ins[j].Op {
            case mir.PSEUDO_SP_PRED_BBBEGIN : begin = j
            case mir.PSEUDO_SP_PRED_BBEND   : return 0, &NestingError { bb, end, "nested scope-end marker" }
        }
    }

    /* must be paired */
    if begin < 0 {
        return 0, &NestingError { bb, end, "missing scope-begin marker" }
    }

    /* and must not be inside another run */
    for j := begin - 1; j >= 0 && bb.Ins[j].Op != mir.PSEUDO_SP_PRED_BBEND; j-- {
        if bb.Ins[j].Op == mir.PSEUDO_SP_PRED_BBBEGIN {
            return 0, &NestingError { bb, j, "nested scope-begin marker" }
        }
    }

    /* guard everything in between, backwards */
    n := 0
    kill := mo.Kill
    for j := end - 1; j > begin; j-- {
        ins := bb.Ins[j]

        /* unguarded instructions get the scope guard */
        if ins.IsPredicable() && !IsPredicated(ins) {
            SetGuard(ins, cc)
            n++
        }

        /* the marker was the last use, move the kill up */
        if kill && ins.ReadsReg(mo.Reg) {
            ins.AddRegisterKilled(mo.Reg)
            kill = false
        }
    }

    /* remove both markers */
    bb.Erase(end)
    bb.Erase(begin)
    return n, nil
}

// ExpandPostRAPseudos expands every scope marker pair of fn and returns the
// number of pairs expanded. No marker is left on success.
func ExpandPostRAPseudos(fn *mir.Func) (int, error) {
    n := 0
    for _, bb := range fn.Blocks {
        for i := 0; i < len(bb.Ins); i++ {
            if bb.Ins[i].Op == mir.PSEUDO_SP_PRED_BBEND {
                if _, err := ExpandScopeMarkers(bb, i); err != nil {
                    return n, err
                }
                n++
                i -= 2
            }
        }

        /* a begin marker without an end */
        for i, ins := range bb.Ins {
            if ins.Op == mir.PSEUDO_SP_PRED_BBBEGIN {
                return n, &NestingError { bb, i, "missing scope-end marker" }
            }
        }
    }
    return n, nil
}
