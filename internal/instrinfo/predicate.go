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
    `errors`
    `fmt`

    `github.com/t-crest/singlepath/mir`
)

// ErrNotPredicable is returned when predicating an instruction that cannot
// carry a guard.
var ErrNotPredicable = errors.New("instruction is not predicable")

var _CondOf = map[mir.Opcode]mir.Opcode {
    mir.BRu    : mir.BR,
    mir.BRRu   : mir.BRR,
    mir.BRTu   : mir.BRT,
    mir.BRCFu  : mir.BRCF,
    mir.BRCFRu : mir.BRCFR,
    mir.BRCFTu : mir.BRCFT,
}

var _UncondOf = map[mir.Opcode]mir.Opcode {
    mir.BR    : mir.BRu,
    mir.BRR   : mir.BRRu,
    mir.BRT   : mir.BRTu,
    mir.BRCF  : mir.BRCFu,
    mir.BRCFR : mir.BRCFRu,
    mir.BRCFT : mir.BRCFTu,
}

func guardops(ins *mir.Instr) (*mir.Operand, *mir.Operand) {
    i := ins.PredIdx()

    /* no guard operands at all */
    if i < 0 {
        return nil, nil
    }

    /* must be exactly a register followed by a flag */
    if i + 1 >= len(ins.Ops) || !ins.Ops[i].IsReg() || !ins.Ops[i + 1].IsImm() {
        panic(fmt.Sprintf("unexpected predicate operands: %s", ins.Op))
    }
    return &ins.Ops[i], &ins.Ops[i + 1]
}

// Guard returns the guard of ins. The second result is false if the
// instruction has no guard operands, the guard is True() in that case.
func Guard(ins *mir.Instr) (Cond, bool) {
    if reg, flag := guardops(ins); reg == nil {
        return True(), false
    } else {
        return Cond { Reg: reg.Reg, Negate: flag.Imm != 0 }, true
    }
}

// IsPredicated reports whether the guard of ins is anything but always-true.
func IsPredicated(ins *mir.Instr) bool {
    c, _ := Guard(ins)
    return !c.IsTrue()
}

// IsUnpredicatedTerminator reports whether ins ends the straight-line part
// of a block for branch analysis. Conditional branches always count.
func IsUnpredicatedTerminator(ins *mir.Instr) bool {
    if !ins.IsTerminator() {
        return false
    } else if ins.IsBranch() && IsPredicated(ins) {
        return true
    } else {
        return !IsPredicated(ins)
    }
}

// FixOpcodeForGuard switches a branch between its conditional and
// unconditional form to match its guard. It reports whether the opcode
// was rewritten.
func FixOpcodeForGuard(ins *mir.Instr) bool {
    var ok bool
    var op mir.Opcode

    /* only branches have two forms */
    if !ins.IsBranch() {
        return false
    }

    /* unconditional -> conditional, or vice versa */
    if IsPredicated(ins) {
        if op, ok = _CondOf[ins.Op]; !ok && !ins.IsCondBranch() {
            panic("no conditional form for " + ins.Op.String())
        }
    } else {
        if op, ok = _UncondOf[ins.Op]; !ok && !ins.IsUncondBranch() {
            panic("no unconditional form for " + ins.Op.String())
        }
    }

    /* we have something to rewrite */
    if ok {
        ins.Op = op
    }
    return ok
}

// SetGuard sets the guard of ins to c and fixes the opcode accordingly.
func SetGuard(ins *mir.Instr, c Cond) {
    if reg, flag := guardops(ins); reg == nil {
        panic("instruction has no guard: " + ins.Op.String())
    } else {
        reg.Reg = c.Reg
        flag.Imm = c.flag()
        FixOpcodeForGuard(ins)
    }
}

// PredicateInstruction guards an unpredicated instruction with c. It
// returns ErrNotPredicable if the instruction cannot carry a guard.
func PredicateInstruction(ins *mir.Instr, c Cond) error {
    if !ins.IsPredicable() {
        return ErrNotPredicable
    }
    if IsPredicated(ins) {
        panic("cannot predicate an instruction already predicated: " + ins.String())
    }
    SetGuard(ins, c)
    return nil
}

// DefinesPredicate returns every predicate register written by ins.
func DefinesPredicate(ins *mir.Instr) (r []mir.Reg) {
    for _, op := range ins.Ops {
        if op.IsReg() && op.Def && op.Reg.IsPredicate() {
            r = append(r, op.Reg)
        }
    }
    return
}
