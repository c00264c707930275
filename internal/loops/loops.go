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

package loops

import (
    `fmt`
    `sort`
    `strings`

    `github.com/oleiade/lane`
    `github.com/t-crest/singlepath/mir`
)

// Loop is a natural loop: a header dominating every block of the loop
// and the union of the bodies of all back edges targeting it.
type Loop struct {
    Header   *mir.BasicBlock
    Parent   *Loop
    Children []*Loop
    Blocks   []*mir.BasicBlock
    Depth    int
    set      map[*mir.BasicBlock]struct{}
}

// Contains reports whether bb belongs to the loop or any nested loop.
func (self *Loop) Contains(bb *mir.BasicBlock) bool {
    _, ok := self.set[bb]
    return ok
}

func (self *Loop) String() string {
    return fmt.Sprintf("loop(%s)", self.Header)
}

// Info is the loop nesting forest of a function.
type Info struct {
    top []*Loop
    b2l map[*mir.BasicBlock]*Loop
}

// TopLevel returns the outermost loops in reverse post-order of their headers.
func (self *Info) TopLevel() []*Loop {
    return self.top
}

// LoopFor returns the innermost loop containing bb, or nil.
func (self *Info) LoopFor(bb *mir.BasicBlock) *Loop {
    return self.b2l[bb]
}

// Depth returns the loop nesting depth of bb, 0 outside of any loop.
func (self *Info) Depth(bb *mir.BasicBlock) int {
    if lp := self.b2l[bb]; lp == nil {
        return 0
    } else {
        return lp.Depth
    }
}

// MaxDepth returns the deepest loop nesting of the function.
func (self *Info) MaxDepth() int {
    ret := 0
    for _, lp := range self.b2l {
        if lp.Depth > ret {
            ret = lp.Depth
        }
    }
    return ret
}

func (self *Info) String() string {
    var buf []string
    var dump func(lp *Loop)

    /* dump the forest with indentation */
    dump = func(lp *Loop) {
        names := make([]string, 0, len(lp.Blocks))
        for _, bb := range lp.Blocks {
            names = append(names, bb.String())
        }
        buf = append(buf, fmt.Sprintf("%s%s: {%s}", strings.Repeat("  ", lp.Depth - 1), lp, strings.Join(names, ", ")))
        for _, p := range lp.Children {
            dump(p)
        }
    }

    /* every top-level loop */
    for _, lp := range self.top {
        dump(lp)
    }
    return strings.Join(buf, "\n")
}

// Build computes the loop nesting forest of fn. Back edges whose target does
// not dominate the source are ignored, so the result is only meaningful for
// reducible functions.
func Build(fn *mir.Func, dom *mir.DominatorTree) *Info {
    var loops []*Loop
    var order = make(map[*mir.BasicBlock]int, len(fn.Blocks))

    /* function order of every block */
    for i, bb := range fn.Blocks {
        order[bb] = i
    }

    /* headers are visited before the blocks they dominate */
    for _, h := range mir.ReversePostOrder(fn) {
        var src []*mir.BasicBlock

        /* collect all the back edges to this block */
        for _, p := range h.Pred {
            if dom.Dominates(h, p) {
                src = append(src, p)
            }
        }

        /* not a loop header */
        if len(src) != 0 {
            loops = append(loops, body(h, src, dom, order))
        }
    }

    /* establish the nesting */
    ret := &Info { b2l: make(map[*mir.BasicBlock]*Loop) }
    for i, lp := range loops {
        for _, p := range loops[:i] {
            if p.Contains(lp.Header) && (lp.Parent == nil || len(p.Blocks) < len(lp.Parent.Blocks)) {
                lp.Parent = p
            }
        }
        if lp.Parent == nil {
            lp.Depth = 1
            ret.top = append(ret.top, lp)
        } else {
            lp.Depth = lp.Parent.Depth + 1
            lp.Parent.Children = append(lp.Parent.Children, lp)
        }
    }

    /* map every block to its innermost loop */
    for _, lp := range loops {
        for _, bb := range lp.Blocks {
            if p := ret.b2l[bb]; p == nil || len(lp.Blocks) < len(p.Blocks) {
                ret.b2l[bb] = lp
            }
        }
    }
    return ret
}

func body(h *mir.BasicBlock, src []*mir.BasicBlock, dom *mir.DominatorTree, order map[*mir.BasicBlock]int) *Loop {
    st := lane.NewStack()
    lp := &Loop {
        Header : h,
        set    : map[*mir.BasicBlock]struct{}{ h: {} },
    }

    /* walk backwards from every back edge source up to the header */
    for _, p := range src {
        if _, ok := lp.set[p]; !ok {
            lp.set[p] = struct{}{}
            st.Push(p)
        }
    }

    /* add all the predecessors */
    for !st.Empty() {
        bb := st.Pop().(*mir.BasicBlock)
        for _, p := range bb.Pred {
            if _, ok := lp.set[p]; !ok && dom.Reachable(p) {
                lp.set[p] = struct{}{}
                st.Push(p)
            }
        }
    }

    /* list the blocks in function order */
    lp.Blocks = make([]*mir.BasicBlock, 0, len(lp.set))
    for bb := range lp.set {
        lp.Blocks = append(lp.Blocks, bb)
    }
    sort.Slice(lp.Blocks, func(i int, j int) bool {
        return order[lp.Blocks[i]] < order[lp.Blocks[j]]
    })
    return lp
}
