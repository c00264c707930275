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
    `github.com/t-crest/singlepath/mir`
)

func use(r mir.Reg, kill bool) mir.Operand {
    if kill {
        return mir.Kill(r)
    } else {
        return mir.Use(r)
    }
}

// CopyPhysReg inserts a register copy dst <- src before index i of bb. The
// copy is unguarded.
func CopyPhysReg(bb *mir.BasicBlock, i int, dst mir.Reg, src mir.Reg, kill bool) {
    var op mir.Opcode

    /* select the move by register class */
    switch {
        case dst.IsGeneral()   && src.IsGeneral()   : op = mir.MOV
        case dst.IsPredicate() && src.IsPredicate() : op = mir.PMOV
        case dst.IsSpecial()   && src.IsGeneral()   : op = mir.MTS
        case dst.IsGeneral()   && src.IsSpecial()   : op = mir.MFS
        default                                     : panic("impossible reg-to-reg copy: " + dst.String() + " <- " + src.String())
    }

    /* insert the move */
    bb.Insert(i, mir.NewPred(op, mir.Def(dst), use(src, kill)))
}

// StoreRegToStackSlot inserts an unguarded spill of src to frame slot fi
// before index i of bb. Predicate registers are spilled with a pseudo.
func StoreRegToStackSlot(bb *mir.BasicBlock, i int, src mir.Reg, kill bool, fi int) {
    switch {
        case src.IsGeneral()   : bb.Insert(i, mir.NewPred(mir.SWC, mir.Frame(fi), mir.Imm(0), use(src, kill)))
        case src.IsPredicate() : bb.Insert(i, mir.NewPred(mir.PSEUDO_PREG_SPILL, mir.Frame(fi), mir.Imm(0), use(src, kill)))
        default                : panic("register class not handled: " + src.String())
    }
}

// LoadRegFromStackSlot inserts an unguarded reload of dst from frame slot
// fi before index i of bb.
func LoadRegFromStackSlot(bb *mir.BasicBlock, i int, dst mir.Reg, fi int) {
    switch {
        case dst.IsGeneral()   : bb.Insert(i, mir.NewPred(mir.LWC, mir.Def(dst), mir.Frame(fi), mir.Imm(0)))
        case dst.IsPredicate() : bb.Insert(i, mir.NewPred(mir.PSEUDO_PREG_RELOAD, mir.Def(dst), mir.Frame(fi), mir.Imm(0)))
        default                : panic("register class not handled: " + dst.String())
    }
}

// InsertNoop inserts an unguarded NOP before index i of bb.
func InsertNoop(bb *mir.BasicBlock, i int) {
    bb.Insert(i, mir.NewPred(mir.NOP))
}

// IsStackControl reports whether ins manipulates the stack cache.
func IsStackControl(ins *mir.Instr) bool {
    switch ins.Op {
        case mir.SENS  : return true
        case mir.SRES  : return true
        case mir.SFREE : return true
        default        : return false
    }
}

// MemType returns the memory area accessed by a load or store.
func MemType(ins *mir.Instr) mir.MemType {
    if !ins.MayLoad() && !ins.MayStore() {
        panic("not a memory access: " + ins.String())
    } else if mt := ins.Desc().Mem; mt == mir.MemNone {
        panic("unexpected memory access instruction: " + ins.String())
    } else {
        return mt
    }
}
