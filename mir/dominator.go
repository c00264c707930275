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

/** This is an implementation of the Lengauer-Tarjan algorithm described in
 *  https://doi.org/10.1145%2F357062.357071
 */

package mir

// Graph is the minimal view of a directed graph needed to compute
// dominators. Nodes are numbered from 0 to NumNodes() - 1.
type Graph interface {
    NumNodes() int
    Succs(i int) []int
}

type _LtNode struct {
    semi     int
    node     int
    dom      *_LtNode
    label    *_LtNode
    parent   *_LtNode
    ancestor *_LtNode
    pred     []*_LtNode
    bucket   map[*_LtNode]struct{}
}

type _LengauerTarjan struct {
    g      Graph
    nodes  []*_LtNode
    vertex []int
}

func newLengauerTarjan(g Graph) *_LengauerTarjan {
    ret := &_LengauerTarjan {
        g      : g,
        vertex : make([]int, g.NumNodes()),
    }

    /* mark all the nodes as not visited */
    for i := range ret.vertex {
        ret.vertex[i] = -1
    }
    return ret
}

func (self *_LengauerTarjan) dfs(v int) {
    i := len(self.nodes)
    self.vertex[v] = i

    /* create a new node */
    p := &_LtNode {
        semi   : i,
        node   : v,
        bucket : make(map[*_LtNode]struct{}),
    }

    /* add to node list */
    p.label = p
    self.nodes = append(self.nodes, p)

    /* traverse the successors */
    for _, w := range self.g.Succs(v) {
        idx := self.vertex[w]

        /* not visited yet */
        if idx < 0 {
            self.dfs(w)
            idx = self.vertex[w]
            self.nodes[idx].parent = p
        }

        /* add predecessors */
        q := self.nodes[idx]
        q.pred = append(q.pred, p)
    }
}

func (self *_LengauerTarjan) eval(p *_LtNode) *_LtNode {
    if p.ancestor == nil {
        return p
    } else {
        self.compress(p)
        return p.label
    }
}

func (self *_LengauerTarjan) link(p *_LtNode, q *_LtNode) {
    q.ancestor = p
}

func (self *_LengauerTarjan) compress(p *_LtNode) {
    if p.ancestor.ancestor != nil {
        self.compress(p.ancestor)
        if p.label.semi > p.ancestor.label.semi { p.label = p.ancestor.label }
        p.ancestor = p.ancestor.ancestor
    }
}

// Dominators computes the immediate dominator of every node of g reachable
// from entry. The result is indexed by node, the entry and all unreachable
// nodes have -1 as their immediate dominator.
func Dominators(g Graph, entry int) []int {
    ret := make([]int, g.NumNodes())
    for i := range ret {
        ret[i] = -1
    }

    /* Step 1: Carry out a depth-first search of the problem graph. Number the vertices
     * from 1 to n as they are reached during the search. Initialize the variables used
     * in succeeding steps. */
    lt := newLengauerTarjan(g)
    lt.dfs(entry)

    /* perform Step 2 and Step 3 simultaneously */
    for i := len(lt.nodes) - 1; i > 0; i-- {
        p := lt.nodes[i]
        q := (*_LtNode)(nil)

        /* Step 2: Compute the semidominators of all vertices by applying Theorem 4.
         * Carry out the computation vertex by vertex in decreasing order by number. */
        for _, v := range p.pred {
            q = lt.eval(v)
            p.semi = minint(p.semi, q.semi)
        }

        /* link the ancestor */
        lt.link(p.parent, p)
        lt.nodes[p.semi].bucket[p] = struct{}{}

        /* Step 3: Implicitly define the immediate dominator of each vertex by applying Corollary 1 */
        for v := range p.parent.bucket {
            if q = lt.eval(v); q.semi < v.semi {
                v.dom = q
            } else {
                v.dom = p.parent
            }
        }

        /* clear the bucket */
        for v := range p.parent.bucket {
            delete(p.parent.bucket, v)
        }
    }

    /* Step 4: Explicitly define the immediate dominator of each vertex, carrying out the
     * computation vertex by vertex in increasing order by number. */
    for _, p := range lt.nodes[1:] {
        if p.dom.node != lt.nodes[p.semi].node {
            p.dom = p.dom.dom
        }
    }

    /* map the dominator relations */
    for _, p := range lt.nodes[1:] {
        ret[p.node] = p.dom.node
    }
    return ret
}

func minint(a int, b int) int {
    if a < b {
        return a
    } else {
        return b
    }
}

type _FuncGraph struct {
    fn  *Func
    idx map[*BasicBlock]int
}

func newFuncGraph(fn *Func) *_FuncGraph {
    ret := &_FuncGraph {
        fn  : fn,
        idx : make(map[*BasicBlock]int, len(fn.Blocks)),
    }

    /* number the blocks in function order */
    for i, bb := range fn.Blocks {
        ret.idx[bb] = i
    }
    return ret
}

func (self *_FuncGraph) NumNodes() int {
    return len(self.fn.Blocks)
}

func (self *_FuncGraph) Succs(i int) []int {
    ret := make([]int, 0, len(self.fn.Blocks[i].Succ))
    for _, p := range self.fn.Blocks[i].Succ {
        ret = append(ret, self.idx[p])
    }
    return ret
}

// DominatorTree is the dominator relation of a function.
type DominatorTree struct {
    Root        *BasicBlock
    DominatedBy map[*BasicBlock]*BasicBlock
    DominatorOf map[*BasicBlock][]*BasicBlock
    pre         map[*BasicBlock]int
    post        map[*BasicBlock]int
}

// BuildDominatorTree computes the dominator tree of fn, rooted at its entry block.
func BuildDominatorTree(fn *Func) *DominatorTree {
    g := newFuncGraph(fn)
    ret := &DominatorTree {
        Root        : fn.Entry(),
        DominatedBy : make(map[*BasicBlock]*BasicBlock),
        DominatorOf : make(map[*BasicBlock][]*BasicBlock),
        pre         : make(map[*BasicBlock]int),
        post        : make(map[*BasicBlock]int),
    }

    /* empty function */
    if ret.Root == nil {
        return ret
    }

    /* map the dominator relations */
    for i, d := range Dominators(g, 0) {
        if d >= 0 {
            bb, dom := fn.Blocks[i], fn.Blocks[d]
            ret.DominatedBy[bb] = dom
            ret.DominatorOf[dom] = append(ret.DominatorOf[dom], bb)
        }
    }

    /* number the tree for constant time dominance queries */
    ret.number(ret.Root, new(int))
    return ret
}

func (self *DominatorTree) number(bb *BasicBlock, n *int) {
    *n++
    self.pre[bb] = *n

    /* visit all the dominated blocks */
    for _, p := range self.DominatorOf[bb] {
        self.number(p, n)
    }

    /* assign the post-order number */
    *n++
    self.post[bb] = *n
}

// IDom returns the immediate dominator of bb, or nil for the root and
// unreachable blocks.
func (self *DominatorTree) IDom(bb *BasicBlock) *BasicBlock {
    return self.DominatedBy[bb]
}

// Reachable reports whether bb is reachable from the root.
func (self *DominatorTree) Reachable(bb *BasicBlock) bool {
    _, ok := self.pre[bb]
    return ok
}

// Dominates reports whether a dominates b. Every reachable block dominates
// itself, unreachable blocks neither dominate nor are dominated.
func (self *DominatorTree) Dominates(a *BasicBlock, b *BasicBlock) bool {
    pa, ok1 := self.pre[a]
    pb, ok2 := self.pre[b]
    return ok1 && ok2 && pa <= pb && self.post[b] <= self.post[a]
}
