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

package mir

import (
    `fmt`
    `strings`
)

type OperandKind uint8

const (
    OpReg OperandKind = iota
    OpImm
    OpBlock
    OpFrameIndex
    OpSymbol
)

// Operand is a tagged instruction operand. Only the field selected by Kind
// is meaningful, Def and Kill apply to register operands.
type Operand struct {
    Kind  OperandKind
    Reg   Reg
    Imm   int64
    Block *BasicBlock
    Sym   string
    Def   bool
    Kill  bool
}

func Use(r Reg) Operand             { return Operand { Kind: OpReg, Reg: r } }
func Kill(r Reg) Operand            { return Operand { Kind: OpReg, Reg: r, Kill: true } }
func Def(r Reg) Operand             { return Operand { Kind: OpReg, Reg: r, Def: true } }
func Imm(v int64) Operand           { return Operand { Kind: OpImm, Imm: v } }
func Target(bb *BasicBlock) Operand { return Operand { Kind: OpBlock, Block: bb } }
func Frame(fi int) Operand          { return Operand { Kind: OpFrameIndex, Imm: int64(fi) } }
func Sym(name string) Operand       { return Operand { Kind: OpSymbol, Sym: name } }

func (self Operand) IsReg() bool {
    return self.Kind == OpReg
}

func (self Operand) IsImm() bool {
    return self.Kind == OpImm
}

func (self Operand) String() string {
    switch self.Kind {
        case OpReg: {
            if self.Kill {
                return self.Reg.String() + "<kill>"
            } else {
                return self.Reg.String()
            }
        }
        case OpImm        : return fmt.Sprintf("%d", self.Imm)
        case OpBlock      : return self.Block.String()
        case OpFrameIndex : return fmt.Sprintf("fi#%d", self.Imm)
        case OpSymbol     : return self.Sym
        default           : panic("unreachable")
    }
}

// DefaultPred returns the guard operands of an unpredicated instruction.
func DefaultPred() []Operand {
    return []Operand { Use(NoReg), Imm(0) }
}

// Instr is a machine instruction: an opcode plus its operand list. The
// guard of a predicable instruction is the register and flag operand pair
// starting at Desc().PredIdx.
type Instr struct {
    Op  Opcode
    Ops []Operand
}

// New creates a new instruction.
func New(op Opcode, ops ...Operand) *Instr {
    return &Instr {
        Op  : op,
        Ops : ops,
    }
}

// NewPred creates a new instruction with the default guard inserted after
// the leading defined registers, at the position the descriptor expects.
func NewPred(op Opcode, ops ...Operand) *Instr {
    idx := op.Desc().PredIdx
    ret := make([]Operand, 0, len(ops) + 2)

    /* no guard operands for this opcode */
    if idx < 0 {
        return New(op, ops...)
    }

    /* must have enough leading operands */
    if idx > len(ops) {
        panic(fmt.Sprintf("%s: not enough operands before the guard", op))
    }

    /* splice the default guard into the operand list */
    ret = append(ret, ops[:idx]...)
    ret = append(ret, DefaultPred()...)
    ret = append(ret, ops[idx:]...)
    return New(op, ret...)
}

func (self *Instr) Desc() *Desc            { return self.Op.Desc() }
func (self *Instr) IsBranch() bool         { return self.Desc().IsBranch() }
func (self *Instr) IsCondBranch() bool     { return self.Desc().IsCondBranch() }
func (self *Instr) IsUncondBranch() bool   { return self.Desc().IsUncondBranch() }
func (self *Instr) IsIndirectBranch() bool { return self.Desc().IsIndirectBranch() }
func (self *Instr) IsTerminator() bool     { return self.Desc().IsTerminator() }
func (self *Instr) IsReturn() bool         { return self.Desc().IsReturn() }
func (self *Instr) IsCall() bool           { return self.Desc().IsCall() }
func (self *Instr) IsPredicable() bool     { return self.Desc().IsPredicable() }
func (self *Instr) IsPseudo() bool         { return self.Desc().IsPseudo() }
func (self *Instr) IsDebugValue() bool     { return self.Desc().IsDebugValue() }
func (self *Instr) MayLoad() bool          { return self.Desc().MayLoad() }
func (self *Instr) MayStore() bool         { return self.Desc().MayStore() }

// PredIdx returns the index of the first guard operand, or -1 if the
// instruction does not carry a guard.
func (self *Instr) PredIdx() int {
    return self.Desc().PredIdx
}

// Defs returns all registers written by the instruction.
func (self *Instr) Defs() (r []Reg) {
    for _, op := range self.Ops {
        if op.IsReg() && op.Def && op.Reg != NoReg {
            r = append(r, op.Reg)
        }
    }
    return
}

// ReadsReg reports whether any use operand reads the register.
func (self *Instr) ReadsReg(reg Reg) bool {
    for _, op := range self.Ops {
        if op.IsReg() && !op.Def && op.Reg == reg {
            return true
        }
    }
    return false
}

// AddRegisterKilled marks the first use of reg as its last use. It returns
// false if the instruction does not read reg.
func (self *Instr) AddRegisterKilled(reg Reg) bool {
    for i := range self.Ops {
        if op := &self.Ops[i]; op.IsReg() && !op.Def && op.Reg == reg {
            op.Kill = true
            return true
        }
    }
    return false
}

// Callee returns the symbol called by a CALL instruction.
func (self *Instr) Callee() (string, bool) {
    if self.IsCall() {
        for _, op := range self.Ops {
            if op.Kind == OpSymbol {
                return op.Sym, true
            }
        }
    }
    return "", false
}

func (self *Instr) String() string {
    var pred string
    var defs []string
    var uses []string

    /* guard prefix, if the instruction is predicated */
    i := self.PredIdx()
    if i >= 0 && i + 1 < len(self.Ops) {
        reg, flag := self.Ops[i].Reg, self.Ops[i + 1].Imm
        if flag != 0 {
            pred = fmt.Sprintf("(!%s) ", reg)
        } else if reg != NoReg && reg != P0 {
            pred = fmt.Sprintf("(%s) ", reg)
        }
    }

    /* dump all the other operands */
    for j, op := range self.Ops {
        if i >= 0 && (j == i || j == i + 1) {
            continue
        } else if op.IsReg() && op.Def {
            defs = append(defs, op.String())
        } else {
            uses = append(uses, op.String())
        }
    }

    /* join them together */
    switch {
        case len(defs) != 0 : return fmt.Sprintf("%s%s %s = %s", pred, self.Op, strings.Join(defs, ", "), strings.Join(uses, ", "))
        case len(uses) != 0 : return fmt.Sprintf("%s%s %s", pred, self.Op, strings.Join(uses, ", "))
        default             : return pred + self.Op.String()
    }
}
