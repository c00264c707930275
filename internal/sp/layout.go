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
    `github.com/t-crest/singlepath/mir`
)

// Layout orders the blocks of a function for linearisation: the blocks of
// every scope are contiguous, and within a scope they follow the topological
// order of the scope graph, a nested loop taking the place of its header.
// Blocks that can never execute come last in their scope.
type Layout struct {
    Blocks []*mir.BasicBlock
    Start  map[*Scope]int
    vis    map[*mir.BasicBlock]bool
}

// NewLayout computes the layout of an analyzed function.
func NewLayout(info *Info) *Layout {
    ret := &Layout {
        Start : make(map[*Scope]int),
        vis   : make(map[*mir.BasicBlock]bool, len(info.Func.Blocks)),
    }
    if info.Root != nil {
        ret.flatten(info.Root)
    }
    return ret
}

func (self *Layout) add(bb *mir.BasicBlock) {
    if !self.vis[bb] {
        self.vis[bb] = true
        self.Blocks = append(self.Blocks, bb)
    }
}

func (self *Layout) flatten(sc *Scope) {
    self.Start[sc] = len(self.Blocks)

    /* reachable blocks and nested loops, in topological order */
    for _, bb := range sc.Order() {
        if c := sc.ChildFor(bb); c == nil {
            self.add(bb)
        } else if _, ok := self.Start[c]; !ok {
            self.flatten(c)
        }
    }

    /* unreachable blocks */
    for _, bb := range sc.Blocks {
        self.add(bb)
    }

    /* unreachable loops */
    for _, c := range sc.Children {
        if _, ok := self.Start[c]; !ok {
            self.flatten(c)
        }
    }
}
