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

// BranchError is returned when the terminators of a block do not form a
// supported pattern.
type BranchError struct {
    Block  *mir.BasicBlock
    Reason string
}

func (self *BranchError) Error() string {
    return fmt.Sprintf("cannot analyze branch in %s: %s", self.Block, self.Reason)
}

// Branch describes the terminators of a block. TBB is nil when the block
// falls through. With a non-nil Cond, TBB is taken if Cond holds, FBB
// otherwise (nil means fall through to the layout successor).
type Branch struct {
    TBB  *mir.BasicBlock
    FBB  *mir.BasicBlock
    Cond *Cond
}

func (self Branch) String() string {
    switch {
        case self.TBB == nil  : return "fallthrough"
        case self.Cond == nil : return fmt.Sprintf("goto %s", self.TBB)
        case self.FBB == nil  : return fmt.Sprintf("if %s goto %s", self.Cond, self.TBB)
        default               : return fmt.Sprintf("if %s goto %s else %s", self.Cond, self.TBB, self.FBB)
    }
}

// BranchTarget returns the direct target of a branch instruction, or nil.
func BranchTarget(ins *mir.Instr) *mir.BasicBlock {
    for _, op := range ins.Ops {
        if op.Kind == mir.OpBlock {
            return op.Block
        }
    }
    return nil
}

func skipped(ins *mir.Instr) bool {
    return ins.IsDebugValue() || ins.IsPseudo()
}

// AnalyzeBranch scans the terminators of bb backwards. At most one
// conditional branch optionally followed by one unconditional branch is
// understood. Opcodes are fixed to match their guards along the way. With
// allowModify, instructions following an unconditional branch are removed.
func AnalyzeBranch(bb *mir.BasicBlock, allowModify bool) (Branch, error) {
    var ret Branch
    var cond Cond

    /* scan from the end of the block */
    for i := len(bb.Ins) - 1; i >= 0; i-- {
        ins := bb.Ins[i]

        /* debug values and pseudos carry no control flow */
        if skipped(ins) {
            continue
        }

        /* end of the terminator sequence */
        if !IsUnpredicatedTerminator(ins) {
            break
        }

        /* returns and friends cannot be analyzed */
        if !ins.IsBranch() {
            return Branch{}, &BranchError { bb, fmt.Sprintf("non-branch terminator %s", ins.Op) }
        }

        /* so do indirect branches */
        if ins.IsIndirectBranch() {
            return Branch{}, &BranchError { bb, fmt.Sprintf("indirect branch %s", ins.Op) }
        }

        /* the guard decides the opcode */
        FixOpcodeForGuard(ins)
        tgt := BranchTarget(ins)

        /* must have a direct target */
        if tgt == nil {
            return Branch{}, &BranchError { bb, fmt.Sprintf("branch without target: %s", ins) }
        }

        /* unconditional branch, everything after it is dead */
        if !IsPredicated(ins) {
            if ret.TBB != nil {
                if !allowModify {
                    return Branch{}, &BranchError { bb, "instructions after an unconditional branch" }
                }
                for len(bb.Ins) > i + 1 {
                    bb.Erase(i + 1)
                }
            }
            ret = Branch { TBB: tgt }
            continue
        }

        /* only a single conditional branch is supported */
        if ret.Cond != nil {
            return Branch{}, &BranchError { bb, "multiple conditional branches" }
        }

        /* conditional branch, possibly followed by an unconditional one */
        cond, _ = Guard(ins)
        ret.FBB = ret.TBB
        ret.TBB = tgt
        ret.Cond = &cond
    }

    /* all done */
    return ret, nil
}

// RemoveBranch deletes the trailing branches of bb and returns how many
// instructions were removed.
func RemoveBranch(bb *mir.BasicBlock) int {
    n := 0
    i := len(bb.Ins) - 1

    /* walk backwards over branches and debug values */
    for i >= 0 {
        if ins := bb.Ins[i]; ins.IsDebugValue() {
            i--
        } else if !ins.IsBranch() {
            break
        } else {
            bb.Erase(i)
            i--
            n++
        }
    }
    return n
}

// InsertBranch appends branch code to bb and returns the number of
// instructions inserted. With a nil cond, a single unconditional branch to
// tbb is emitted. Otherwise a branch to tbb guarded by cond is emitted,
// followed by an unconditional branch to fbb when fbb is not nil. A two-way
// branch needs a non-trivial cond. Successor lists are left untouched.
func InsertBranch(bb *mir.BasicBlock, tbb *mir.BasicBlock, fbb *mir.BasicBlock, cond *Cond) int {
    if tbb == nil {
        panic("InsertBranch: no target block")
    }

    /* unconditional branch */
    if cond == nil {
        if fbb != nil {
            panic("InsertBranch: two-way branch without condition")
        }
        bb.Append(mir.NewPred(mir.BRu, mir.Target(tbb)))
        return 1
    }

    /* the second branch would never be reached */
    if fbb != nil && cond.IsTrue() {
        panic("InsertBranch: two-way branch on an always-true condition")
    }

    /* conditional branch */
    br := mir.NewPred(mir.BRu, mir.Target(tbb))
    SetGuard(br, *cond)
    bb.Append(br)

    /* two-way conditional branch */
    if fbb == nil {
        return 1
    } else {
        bb.Append(mir.NewPred(mir.BRu, mir.Target(fbb)))
        return 2
    }
}
