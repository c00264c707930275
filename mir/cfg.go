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
    `github.com/oleiade/lane`
)

// BasicBlockIter iterates the blocks reachable from the entry block of a
// function in depth-first post-order.
type BasicBlockIter struct {
    b *BasicBlock
    s *lane.Stack
    v map[*BasicBlock]struct{}
}

func newBasicBlockIter(fn *Func) *BasicBlockIter {
    ret := &BasicBlockIter {
        s: lane.NewStack(),
        v: make(map[*BasicBlock]struct{}, len(fn.Blocks)),
    }

    /* start from the entry block, if any */
    if bb := fn.Entry(); bb != nil {
        ret.s.Push(bb)
        ret.v[bb] = struct{}{}
    }
    return ret
}

func (self *BasicBlockIter) Next() bool {
    var tail bool
    var this *BasicBlock

    /* scan until the stack is empty */
    for !self.s.Empty() {
        tail = true
        this = self.s.Head().(*BasicBlock)

        /* add the first successor that is not visited yet */
        for _, p := range this.Succ {
            if _, ok := self.v[p]; !ok {
                tail = false
                self.v[p] = struct{}{}
                self.s.Push(p)
                break
            }
        }

        /* all the successors are visited, pop the current node */
        if tail {
            self.b = self.s.Pop().(*BasicBlock)
            return true
        }
    }

    /* clear the basic block pointer to indicate no more blocks */
    self.b = nil
    return false
}

func (self *BasicBlockIter) Block() *BasicBlock {
    return self.b
}

func (self *BasicBlockIter) ForEach(action func(bb *BasicBlock)) {
    for self.Next() {
        action(self.b)
    }
}

// PostOrder returns an iterator over the reachable blocks of fn in post-order.
func PostOrder(fn *Func) *BasicBlockIter {
    return newBasicBlockIter(fn)
}

// ReversePostOrder returns the reachable blocks of fn in reverse post-order.
func ReversePostOrder(fn *Func) []*BasicBlock {
    ret := make([]*BasicBlock, 0, len(fn.Blocks))

    /* dump all the blocks */
    PostOrder(fn).ForEach(func(bb *BasicBlock) {
        ret = append(ret, bb)
    })

    /* reverse the order */
    blockreverse(ret)
    return ret
}
