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

type BasicBlock struct {
    Id   int
    Name string
    Ins  []*Instr
    Succ []*BasicBlock
    Pred []*BasicBlock
    Func *Func
}

func (self *BasicBlock) String() string {
    if self.Name == "" {
        return fmt.Sprintf("bb_%d", self.Id)
    } else {
        return fmt.Sprintf("bb_%d.%s", self.Id, self.Name)
    }
}

// AddSucc adds an edge from this block to the block "to".
func (self *BasicBlock) AddSucc(to *BasicBlock) {
    self.Succ = append(self.Succ, to)
    to.Pred = append(to.Pred, self)
}

// RemoveSucc removes the edge from this block to the block "to", if any.
func (self *BasicBlock) RemoveSucc(to *BasicBlock) bool {
    for i, p := range self.Succ {
        if p == to {
            self.Succ = append(self.Succ[:i], self.Succ[i + 1:]...)
            to.Pred = blockremove(to.Pred, self)
            return true
        }
    }
    return false
}

// IsSucc reports whether "to" is a successor of this block.
func (self *BasicBlock) IsSucc(to *BasicBlock) bool {
    for _, p := range self.Succ {
        if p == to {
            return true
        }
    }
    return false
}

// Append adds instructions to the end of the block.
func (self *BasicBlock) Append(ins ...*Instr) {
    self.Ins = append(self.Ins, ins...)
}

// Insert inserts an instruction before index i.
func (self *BasicBlock) Insert(i int, ins *Instr) {
    self.Ins = append(self.Ins, nil)
    copy(self.Ins[i + 1:], self.Ins[i:])
    self.Ins[i] = ins
}

// Erase removes the instruction at index i.
func (self *BasicBlock) Erase(i int) {
    copy(self.Ins[i:], self.Ins[i + 1:])
    self.Ins[len(self.Ins) - 1] = nil
    self.Ins = self.Ins[:len(self.Ins) - 1]
}

func blockremove(bbs []*BasicBlock, bb *BasicBlock) []*BasicBlock {
    for i, p := range bbs {
        if p == bb {
            return append(bbs[:i], bbs[i + 1:]...)
        }
    }
    return bbs
}

func blockreverse(bbs []*BasicBlock) {
    for i, j := 0, len(bbs) - 1; i < j; i, j = i + 1, j - 1 {
        bbs[i], bbs[j] = bbs[j], bbs[i]
    }
}

// Func is a machine function. The first block is the entry block.
//
// Root, Reachable and Maybe are markings set by the driver before analysis:
// the function is a single-path root, is reachable from a root, or may be
// called from a root conditionally. SinglePath tells whether the function is
// actually being converted.
type Func struct {
    Name       string
    Blocks     []*BasicBlock
    Root       bool
    Reachable  bool
    Maybe      bool
    SinglePath bool
}

func NewFunc(name string) *Func {
    return &Func { Name: name }
}

// Entry returns the entry block, or nil for an empty function.
func (self *Func) Entry() *BasicBlock {
    if len(self.Blocks) == 0 {
        return nil
    } else {
        return self.Blocks[0]
    }
}

// NewBlock creates a new block at the end of the function.
func (self *Func) NewBlock(name string) *BasicBlock {
    bb := &BasicBlock {
        Id   : self.MaxBlock() + 1,
        Name : name,
        Func : self,
    }
    self.Blocks = append(self.Blocks, bb)
    return bb
}

// MaxBlock returns the largest block ID, or -1 for an empty function.
func (self *Func) MaxBlock() int {
    ret := -1
    for _, bb := range self.Blocks {
        if bb.Id > ret {
            ret = bb.Id
        }
    }
    return ret
}

// Callees returns the names of all functions directly called, in order of
// first appearance.
func (self *Func) Callees() []string {
    var ret []string
    var vis = make(map[string]bool)

    /* scan every instruction for calls */
    for _, bb := range self.Blocks {
        for _, ins := range bb.Ins {
            if fn, ok := ins.Callee(); ok && !vis[fn] {
                vis[fn] = true
                ret = append(ret, fn)
            }
        }
    }
    return ret
}

func (self *Func) String() string {
    return Sprint(self)
}

// Module is an ordered set of functions.
type Module struct {
    Funcs []*Func
}

// Lookup returns the function with the given name, or nil.
func (self *Module) Lookup(name string) *Func {
    for _, fn := range self.Funcs {
        if fn.Name == name {
            return fn
        }
    }
    return nil
}
