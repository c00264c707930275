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
    `fmt`
    `strings`

    `github.com/oleiade/lane`
    `github.com/t-crest/singlepath/internal/instrinfo`
    `github.com/t-crest/singlepath/mir`
)

// DefKind tells how a virtual predicate register is computed.
type DefKind uint8

const (
    // DefDecision is the branch condition of a block whose own guard is
    // always true. Both outgoing edges use the register, one of them negated.
    DefDecision DefKind = iota

    // DefEdge is the guard of Block combined with the condition of its edge
    // to Succ. When Block is the header of a nested loop, the edge leaves
    // that loop: it is evaluated once the loop is done, and Cond is the
    // DefExit register of the nested loop for Succ.
    DefEdge

    // DefUnion is the disjunction of Terms.
    DefUnion

    // DefExit tells that the loop headed by Block was left towards Succ. It
    // is cleared when the loop is entered, and at the end of every iteration
    // the disjunction of Terms is added to it.
    DefExit
)

// PredDef is the definition of one virtual predicate register.
type PredDef struct {
    Reg   mir.Reg
    Kind  DefKind
    Block *mir.BasicBlock
    Succ  *mir.BasicBlock
    Cond  *instrinfo.Cond
    Guard instrinfo.Cond
    Terms []instrinfo.Cond
}

func (self *PredDef) String() string {
    switch self.Kind {
        case DefDecision : return fmt.Sprintf("%s = %s @ %s", self.Reg, self.Cond, self.Block)
        case DefEdge     : return fmt.Sprintf("%s = %s & %s @ %s -> %s", self.Reg, self.Guard, condname(self.Cond), self.Block, blockname(self.Succ))
        case DefUnion    : return fmt.Sprintf("%s = %s", self.Reg, joinconds(self.Terms))
        case DefExit     : return fmt.Sprintf("%s |= %s @ %s -> %s", self.Reg, joinconds(self.Terms), self.Block, blockname(self.Succ))
        default          : panic("unreachable")
    }
}

func condname(c *instrinfo.Cond) string {
    if c == nil {
        return "leave"
    } else {
        return c.String()
    }
}

func blockname(bb *mir.BasicBlock) string {
    if bb == nil {
        return "exit"
    } else {
        return bb.String()
    }
}

func joinconds(cc []instrinfo.Cond) string {
    ret := make([]string, len(cc))
    for i, c := range cc {
        ret[i] = c.String()
    }
    return strings.Join(ret, " | ")
}

type _ScopeEdge struct {
    from  int
    to    int
    dst   *mir.BasicBlock
    cond  *instrinfo.Cond
    taken bool
}

// _ScopeGraph is the forward graph of a scope: one node per direct member,
// one node per child scope (standing for the whole nested loop), and a
// virtual exit node collecting back edges, scope exits and returns. It is
// acyclic for reducible functions.
type _ScopeGraph struct {
    sc    *Scope
    units []*mir.BasicBlock
    child []*Scope
    index map[*mir.BasicBlock]int
    edges []_ScopeEdge
    out   [][]int
    pred  [][]int
    reach []bool
}

func newScopeGraph(sc *Scope) *_ScopeGraph {
    ret := &_ScopeGraph {
        sc    : sc,
        index : make(map[*mir.BasicBlock]int),
    }

    /* direct members first, then the nested loops */
    for _, bb := range sc.Blocks {
        ret.add(bb, nil)
    }
    for _, c := range sc.Children {
        ret.add(c.Header, c)
    }

    /* adjacency, including the exit node */
    ret.clear()
    return ret
}

func (self *_ScopeGraph) clear() {
    self.edges = nil
    self.out = make([][]int, len(self.units) + 1)
    self.pred = make([][]int, len(self.units) + 1)
    self.sc.Latches = nil
    self.sc.Exits = nil
}

func (self *_ScopeGraph) add(bb *mir.BasicBlock, c *Scope) {
    self.index[bb] = len(self.units)
    self.units = append(self.units, bb)
    self.child = append(self.child, c)
}

func (self *_ScopeGraph) exit() int {
    return len(self.units)
}

func (self *_ScopeGraph) NumNodes() int {
    return len(self.units) + 1
}

// Succs walks the graph backwards, so that dominators of this view are
// post-dominators of the scope graph.
func (self *_ScopeGraph) Succs(i int) []int {
    return self.pred[i]
}

func (self *_ScopeGraph) unitOf(bb *mir.BasicBlock) int {
    s := self.sc.owner[bb]

    /* direct member */
    if s == self.sc {
        return self.index[bb]
    }

    /* find the child scope containing the block */
    for s != nil && s.Parent != self.sc {
        s = s.Parent
    }

    /* not in this scope at all */
    if s == nil {
        return -1
    } else {
        return self.index[s.Header]
    }
}

func (self *_ScopeGraph) target(bb *mir.BasicBlock) int {
    if self.sc.Loop != nil && bb == self.sc.Header {
        return self.exit()
    } else if u := self.unitOf(bb); u < 0 {
        return self.exit()
    } else {
        return u
    }
}

func (self *_ScopeGraph) link(from int, to int, dst *mir.BasicBlock) {
    for _, e := range self.out[from] {
        if self.edges[e].to == to {
            return
        }
    }

    /* add a new edge */
    self.out[from] = append(self.out[from], len(self.edges))
    self.pred[to] = append(self.pred[to], from)
    self.edges = append(self.edges, _ScopeEdge { from: from, to: to, dst: dst })
}

func (self *_ScopeGraph) scan() {
    for i, u := range self.units {
        src := []*mir.BasicBlock { u }

        /* edges of blocks that never execute decide nothing */
        if self.reach != nil && !self.reach[i] {
            continue
        }

        /* a nested loop leaves through any of its blocks */
        if self.child[i] != nil {
            src = self.child[i].AllBlocks()
        }

        /* add all the edges */
        for _, bb := range src {
            if len(bb.Succ) == 0 {
                self.link(i, self.exit(), nil)
                continue
            }

            /* classify every successor */
            for _, to := range bb.Succ {
                t := self.target(to)

                /* back edge, edge leaving the scope, or edge inside the child */
                if self.sc.Loop != nil && to == self.sc.Header {
                    if !hasblock(self.sc.Latches, bb) {
                        self.sc.Latches = append(self.sc.Latches, bb)
                    }
                } else if t == self.exit() {
                    self.sc.Exits = append(self.sc.Exits, Edge { From: bb, To: to })
                } else if t == i {
                    continue
                }

                /* link the nodes */
                self.link(i, t, to)
            }
        }
    }
}

// prune drops the edges of every node that cannot be reached from src.
func (self *_ScopeGraph) prune(src int) {
    n := 0
    vis := make([]bool, len(self.units))

    /* mark the reachable nodes */
    for _, v := range self.reversePostOrder(src) {
        if v != self.exit() {
            vis[v] = true
            n++
        }
    }

    /* scan again without the unreachable ones */
    if n != len(self.units) {
        self.reach = vis
        self.clear()
        self.scan()
    }
}

func (self *_ScopeGraph) decide() error {
    for i, bb := range self.units {
        if self.child[i] != nil || len(self.out[i]) < 2 {
            continue
        }

        /* the block must end with a supported branch */
        br, err := instrinfo.AnalyzeBranch(bb, false)
        if err != nil {
            return err
        }

        /* must be a conditional one */
        if br.Cond == nil {
            return &instrinfo.BranchError { Block: bb, Reason: "two successors without a branch condition" }
        }

        /* the edge to the taken target carries the condition */
        tt := self.target(br.TBB)
        for _, e := range self.out[i] {
            cc := *br.Cond
            ep := &self.edges[e]

            /* the other edge has it reversed */
            if ep.taken = ep.to == tt; !ep.taken {
                cc = instrinfo.ReverseCondition(cc)
            }

            /* assign the edge condition */
            ep.cond = &cc
        }
    }
    return nil
}

type _NodeFrame struct {
    id int
    nx int
}

func (self *_ScopeGraph) reversePostOrder(src int) []int {
    var ret []int
    var vis = make([]bool, self.NumNodes())

    /* start from the source node */
    st := lane.NewStack()
    st.Push(&_NodeFrame { id: src })
    vis[src] = true

    /* iterative DFS */
    for !st.Empty() {
        fp := st.Head().(*_NodeFrame)

        /* all successors visited */
        if fp.nx >= len(self.out[fp.id]) {
            ret = append(ret, fp.id)
            st.Pop()
            continue
        }

        /* visit the next successor */
        to := self.edges[self.out[fp.id][fp.nx]].to
        fp.nx++

        /* push it if not visited yet */
        if !vis[to] {
            vis[to] = true
            st.Push(&_NodeFrame { id: to })
        }
    }

    /* reverse the post-order */
    for i, j := 0, len(ret) - 1; i < j; i, j = i + 1, j - 1 {
        ret[i], ret[j] = ret[j], ret[i]
    }
    return ret
}

// controlDeps lists, for every node, the edges it is control dependent on.
// An edge a -> b controls every node on the post-dominator tree path from b
// up to, but excluding, the immediate post-dominator of a.
func (self *_ScopeGraph) controlDeps(ipdom []int) [][]int {
    ex := self.exit()
    ret := make([][]int, self.NumNodes())

    /* walk up the post-dominator tree for every edge */
    for e, ep := range self.edges {
        for r := ep.to; r >= 0 && r != ex && r != ipdom[ep.from]; r = ipdom[r] {
            ret[r] = append(ret[r], e)
        }
    }
    return ret
}

type _PredState struct {
    sc       *Scope
    g        *_ScopeGraph
    guards   []instrinfo.Cond
    decision map[int]mir.Reg
    edge     map[int]mir.Reg
    union    map[string]mir.Reg
}

func (self *_PredState) define(d *PredDef) mir.Reg {
    d.Reg = mir.VP(self.sc.PredBase + len(self.sc.Defs))
    self.sc.Defs = append(self.sc.Defs, d)
    return d.Reg
}

func (self *_PredState) edgeGuard(e int) instrinfo.Cond {
    ep := &self.g.edges[e]
    x := ep.from

    /* a two-way branch in an always executed block needs a single register */
    if self.g.child[x] == nil && ep.cond != nil && len(self.g.out[x]) == 2 && self.guards[x].IsTrue() {
        r, ok := self.decision[x]

        /* allocate one if not done yet */
        if !ok {
            cc := *ep.cond
            if !ep.taken {
                cc = instrinfo.ReverseCondition(cc)
            }
            r = self.define(&PredDef {
                Kind  : DefDecision,
                Block : self.g.units[x],
                Cond  : &cc,
            })
            self.decision[x] = r
        }

        /* the other edge uses the complement */
        return instrinfo.Cond {
            Reg    : r,
            Negate : !ep.taken,
        }
    }

    /* otherwise one register per edge */
    r, ok := self.edge[e]
    if !ok {
        r = self.define(&PredDef {
            Kind  : DefEdge,
            Block : self.g.units[x],
            Succ  : ep.dst,
            Cond  : ep.cond,
            Guard : self.guards[x],
        })
        self.edge[e] = r
    }
    return instrinfo.Cond { Reg: r }
}

func (self *_PredState) guardOf(deps []int) instrinfo.Cond {
    switch len(deps) {
        case 0  : return instrinfo.True()
        case 1  : return self.edgeGuard(deps[0])
        default : break
    }

    /* blocks with the same dependences share the register */
    key := fmt.Sprint(deps)
    if r, ok := self.union[key]; ok {
        return instrinfo.Cond { Reg: r }
    }

    /* build the disjunction */
    terms := make([]instrinfo.Cond, len(deps))
    for i, e := range deps {
        terms[i] = self.edgeGuard(e)
    }

    /* define the union register */
    r := self.define(&PredDef { Kind: DefUnion, Terms: terms })
    self.union[key] = r
    return instrinfo.Cond { Reg: r }
}

func (self *Scope) reset(base int) {
    self.Guards = make(map[*mir.BasicBlock]instrinfo.Cond, len(self.Blocks) + len(self.Children))
    self.Defs = nil
    self.PredBase = base
    self.NumPreds = 0
    self.Latches = nil
    self.Exits = nil
    self.order = nil
}

// ComputePredInfos computes the guard of every direct member of the scope,
// and of the header of every child scope, relative to the scope's header.
// Virtual predicate registers are numbered from base. Guards of blocks that
// cannot execute are always false. Any previous result is discarded, so
// running it again on an unchanged function gives the same result. Edges
// leaving a child loop are completed by the child, which must be computed
// after its parent.
func (self *Scope) ComputePredInfos(base int) error {
    self.reset(base)

    /* empty function */
    if self.Header == nil {
        return nil
    }

    /* build the scope graph */
    g := newScopeGraph(self)
    src := g.unitOf(self.Header)
    g.scan()
    g.prune(src)

    /* fetch the branch conditions */
    if err := g.decide(); err != nil {
        return err
    }

    /* control dependences from post-dominators */
    ipdom := mir.Dominators(g, g.exit())
    deps := g.controlDeps(ipdom)

    /* nodes not reachable from the header never execute */
    ps := &_PredState {
        sc       : self,
        g        : g,
        guards   : make([]instrinfo.Cond, g.NumNodes()),
        decision : make(map[int]mir.Reg),
        edge     : make(map[int]mir.Reg),
        union    : make(map[string]mir.Reg),
    }
    for i := range ps.guards {
        ps.guards[i] = instrinfo.False()
    }

    /* deciding blocks come before the blocks they control */
    for _, v := range g.reversePostOrder(src) {
        if v != g.exit() {
            ps.guards[v] = ps.guardOf(deps[v])
            self.order = append(self.order, g.units[v])
        }
    }

    /* publish the guards */
    for i, bb := range g.units {
        self.Guards[bb] = ps.guards[i]
    }

    /* complete the loop-exit registers the parent asked for */
    if err := ps.leave(); err != nil {
        return err
    }

    /* all done */
    self.NumPreds = len(self.Defs)
    return nil
}

// pending returns the definition of the edge leaving the child loop headed
// by h towards t, or nil if nothing depends on it.
func (self *Scope) pending(h *mir.BasicBlock, t *mir.BasicBlock) *PredDef {
    for _, d := range self.Defs {
        if d.Kind == DefEdge && d.Block == h && d.Succ == t {
            return d
        }
    }
    return nil
}

// leave defines a DefExit register for every target the parent scope needs
// to know about, and links it into the parent's edge definition.
func (self *_PredState) leave() error {
    var tt []*mir.BasicBlock
    var pp = self.sc.Parent

    /* the root scope is never left */
    if pp == nil {
        return nil
    }

    /* distinct targets, in edge order */
    for _, e := range self.sc.Exits {
        if !hasblock(tt, e.To) {
            tt = append(tt, e.To)
        }
    }

    /* one register per target */
    for _, t := range tt {
        if d := pp.pending(self.sc.Header, t); d != nil {
            terms, err := self.exitTerms(t)
            if err != nil {
                return err
            }
            r := self.define(&PredDef {
                Kind  : DefExit,
                Block : self.sc.Header,
                Succ  : t,
                Terms : terms,
            })
            d.Cond = &instrinfo.Cond { Reg: r }
        }
    }
    return nil
}

// exitTerms lists the conditions under which one iteration of the scope
// leaves it towards t.
func (self *_PredState) exitTerms(t *mir.BasicBlock) ([]instrinfo.Cond, error) {
    var ret []instrinfo.Cond
    var kids []*Scope

    /* every edge towards t */
    for _, e := range self.sc.Exits {
        if e.To != t {
            continue
        }

        /* edge from a direct member */
        if self.sc.owner[e.From] == self.sc {
            g := self.guards[self.g.index[e.From]]
            if g.IsFalse() {
                continue
            }

            /* the condition of this very edge */
            cc, err := edgecond(e.From, t)
            if err != nil {
                return nil, err
            }

            /* an unconditional edge is taken whenever the block runs */
            if cc == nil {
                ret = append(ret, g)
                continue
            }

            /* otherwise evaluated right in the exiting block */
            ret = append(ret, instrinfo.Cond { Reg: self.define(&PredDef {
                Kind  : DefEdge,
                Block : e.From,
                Succ  : t,
                Cond  : cc,
                Guard : g,
            })})
            continue
        }

        /* edge from a nested loop, once per loop */
        u := self.g.unitOf(e.From)
        c := self.g.child[u]
        g := self.guards[u]

        /* the nested loop completes the definition */
        if !g.IsFalse() && !scopein(kids, c) {
            kids = append(kids, c)
            ret = append(ret, instrinfo.Cond { Reg: self.define(&PredDef {
                Kind  : DefEdge,
                Block : c.Header,
                Succ  : t,
                Guard : g,
            })})
        }
    }
    return ret, nil
}

func edgecond(bb *mir.BasicBlock, to *mir.BasicBlock) (*instrinfo.Cond, error) {
    if len(bb.Succ) < 2 {
        return nil, nil
    }

    /* must be a conditional branch */
    br, err := instrinfo.AnalyzeBranch(bb, false)
    if err != nil {
        return nil, err
    } else if br.Cond == nil {
        return nil, &instrinfo.BranchError { Block: bb, Reason: "two successors without a branch condition" }
    }

    /* the not-taken edge has it reversed */
    cc := *br.Cond
    if br.TBB != to {
        cc = instrinfo.ReverseCondition(cc)
    }
    return &cc, nil
}

func scopein(ss []*Scope, sc *Scope) bool {
    for _, v := range ss {
        if v == sc {
            return true
        }
    }
    return false
}

func hasblock(bbs []*mir.BasicBlock, bb *mir.BasicBlock) bool {
    for _, v := range bbs {
        if v == bb {
            return true
        }
    }
    return false
}
