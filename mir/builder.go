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
)

// Builder constructs a function from a linear, label based instruction
// stream. Blocks fall through to the next label unless they end with an
// unpredicated jump or return.
type Builder struct {
    fn    *Func
    bb    *BasicBlock
    refs  map[string]*BasicBlock
    place map[string]bool
}

// NewBuilder creates a builder for a new function, positioned at its entry
// block labelled "entry".
func NewBuilder(name string) *Builder {
    ret := &Builder {
        fn    : NewFunc(name),
        refs  : make(map[string]*BasicBlock),
        place : make(map[string]bool),
    }
    ret.Label("entry")
    return ret
}

// Func returns the function under construction.
func (self *Builder) Func() *Func {
    return self.fn
}

func (self *Builder) ref(name string) *BasicBlock {
    if bb, ok := self.refs[name]; ok {
        return bb
    } else {
        bb = &BasicBlock { Name: name }
        self.refs[name] = bb
        return bb
    }
}

// Label starts a new block with the given name and returns it.
func (self *Builder) Label(name string) *BasicBlock {
    if self.place[name] {
        panic("label " + name + " has already been linked")
    }

    /* place the (possibly forward-referenced) block */
    bb := self.ref(name)
    bb.Id = self.fn.MaxBlock() + 1
    bb.Func = self.fn

    /* add to the function */
    self.bb = bb
    self.place[name] = true
    self.fn.Blocks = append(self.fn.Blocks, bb)
    return bb
}

// Block returns the block labelled name, which must be placed already.
func (self *Builder) Block(name string) *BasicBlock {
    if !self.place[name] {
        panic("label " + name + " is not placed yet")
    } else {
        return self.refs[name]
    }
}

// Emit adds an instruction to the current block.
func (self *Builder) Emit(ins *Instr) *Instr {
    if isterminal(self.current()) {
        self.Label(fmt.Sprintf("_dead_%d", self.fn.MaxBlock() + 1))
    }
    self.bb.Ins = append(self.bb.Ins, ins)
    return ins
}

func (self *Builder) current() *Instr {
    if n := len(self.bb.Ins); n == 0 {
        return nil
    } else {
        return self.bb.Ins[n - 1]
    }
}

func (self *Builder) Nop()                       { self.Emit(NewPred(NOP)) }
func (self *Builder) Add(rd, rs1, rs2 Reg)       { self.Emit(NewPred(ADDr, Def(rd), Use(rs1), Use(rs2))) }
func (self *Builder) AddI(rd, rs Reg, imm int64) { self.Emit(NewPred(ADDi, Def(rd), Use(rs), Imm(imm))) }
func (self *Builder) Sub(rd, rs1, rs2 Reg)       { self.Emit(NewPred(SUBr, Def(rd), Use(rs1), Use(rs2))) }
func (self *Builder) Mov(rd, rs Reg)             { self.Emit(NewPred(MOV, Def(rd), Use(rs))) }
func (self *Builder) Cmp(op Opcode, pd, rs1, rs2 Reg) { self.Emit(NewPred(op, Def(pd), Use(rs1), Use(rs2))) }
func (self *Builder) Load(rd, base Reg, off int64)    { self.Emit(NewPred(LWC, Def(rd), Use(base), Imm(off))) }
func (self *Builder) Store(base Reg, off int64, rs Reg) { self.Emit(NewPred(SWC, Use(base), Imm(off), Use(rs))) }
func (self *Builder) Call(fn string)             { self.Emit(NewPred(CALL, Sym(fn))) }
func (self *Builder) Ret()                       { self.Emit(NewPred(RET)) }

// Jump emits an unconditional branch to label.
func (self *Builder) Jump(label string) {
    self.Emit(NewPred(BRu, Target(self.ref(label))))
}

// Branch emits a conditional branch to label, guarded by p (or !p if neg
// is set). The block falls through to the next label otherwise.
func (self *Builder) Branch(p Reg, neg bool, label string) {
    self.Emit(New(BR, Use(p), Imm(predflag(neg)), Target(self.ref(label))))
}

// BranchElse emits a two-way branch: to t if the guard holds, to f otherwise.
func (self *Builder) BranchElse(p Reg, neg bool, t string, f string) {
    self.Branch(p, neg, t)
    self.Jump(f)
}

// Build resolves all labels and block edges and returns the function.
func (self *Builder) Build() *Func {
    for name := range self.refs {
        if !self.place[name] {
            panic("labels are not fully resolved: " + name)
        }
    }

    /* compute all the edges */
    for i, bb := range self.fn.Blocks {
        var fall bool
        var last *Instr

        /* branch targets become successors */
        for _, ins := range bb.Ins {
            if !ins.IsDebugValue() {
                last = ins
            }
            for _, op := range ins.Ops {
                if op.Kind == OpBlock && !bb.IsSucc(op.Block) {
                    bb.AddSucc(op.Block)
                }
            }
        }

        /* falls through to the next block, unless it ends unconditionally */
        if fall = !isterminal(last); fall && i + 1 < len(self.fn.Blocks) {
            if nx := self.fn.Blocks[i + 1]; !bb.IsSucc(nx) {
                bb.AddSucc(nx)
            }
        } else if fall {
            panic(fmt.Sprintf("block %s falls off the end of function %s", bb, self.fn.Name))
        }
    }
    return self.fn
}

func predflag(neg bool) int64 {
    if neg {
        return -1
    } else {
        return 0
    }
}

func isterminal(ins *Instr) bool {
    if ins == nil || !(ins.IsUncondBranch() || ins.IsReturn()) {
        return false
    }

    /* only unpredicated jumps and returns end a block */
    i := ins.PredIdx()
    return i < 0 || ((ins.Ops[i].Reg == NoReg || ins.Ops[i].Reg == P0) && ins.Ops[i + 1].Imm == 0)
}
