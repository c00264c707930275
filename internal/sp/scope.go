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
    `io`
    `sort`
    `strings`

    `github.com/t-crest/singlepath/internal/instrinfo`
    `github.com/t-crest/singlepath/internal/loops`
    `github.com/t-crest/singlepath/mir`
)

// Edge is a CFG edge.
type Edge struct {
    From *mir.BasicBlock
    To   *mir.BasicBlock
}

func (self Edge) String() string {
    return fmt.Sprintf("%s -> %s", self.From, self.To)
}

// Scope is a node of the single-path scope tree: the function itself at the
// root, one node per loop below it. Blocks lists the blocks owned directly
// by the scope, blocks of nested loops belong to the child scopes.
type Scope struct {
    Parent         *Scope
    Header         *mir.BasicBlock
    Blocks         []*mir.BasicBlock
    Children       []*Scope
    IsRootTopLevel bool
    Loop           *loops.Loop
    Depth          int

    /* predicate information, see ComputePredInfos */
    Guards   map[*mir.BasicBlock]instrinfo.Cond
    Defs     []*PredDef
    PredBase int
    NumPreds int
    Latches  []*mir.BasicBlock
    Exits    []Edge

    order []*mir.BasicBlock
    owner map[*mir.BasicBlock]*Scope
}

// Walker receives the scopes of a tree in depth-first order. Exit is called
// once all the children of a scope have been visited.
type Walker interface {
    Enter(s *Scope)
    Exit(s *Scope)
}

// IsRoot reports whether the scope is the root scope of the function.
func (self *Scope) IsRoot() bool {
    return self.Parent == nil
}

// IsTopLevel reports whether the scope is an outermost loop.
func (self *Scope) IsTopLevel() bool {
    return self.Parent != nil && self.Parent.IsRoot()
}

// Has reports whether bb is owned directly by the scope.
func (self *Scope) Has(bb *mir.BasicBlock) bool {
    return self.owner[bb] == self
}

// Contains reports whether bb is owned by the scope or any nested scope.
func (self *Scope) Contains(bb *mir.BasicBlock) bool {
    for s := self.owner[bb]; s != nil; s = s.Parent {
        if s == self {
            return true
        }
    }
    return false
}

// Guard returns the condition guarding bb inside the scope. bb must be a
// direct member or the header of a child scope.
func (self *Scope) Guard(bb *mir.BasicBlock) instrinfo.Cond {
    if c, ok := self.Guards[bb]; !ok {
        panic(fmt.Sprintf("no guard for %s in scope %s", bb, self))
    } else {
        return c
    }
}

// Order returns the direct members and child headers in topological order
// of the scope's forward graph, as computed by ComputePredInfos.
func (self *Scope) Order() []*mir.BasicBlock {
    return self.order
}

// ChildFor returns the child scope whose header is bb, or nil.
func (self *Scope) ChildFor(bb *mir.BasicBlock) *Scope {
    for _, c := range self.Children {
        if c.Header == bb {
            return c
        }
    }
    return nil
}

// AllBlocks returns every block of the scope and its nested scopes, in
// function order.
func (self *Scope) AllBlocks() []*mir.BasicBlock {
    var ret []*mir.BasicBlock
    var add func(s *Scope)

    /* collect recursively */
    add = func(s *Scope) {
        ret = append(ret, s.Blocks...)
        for _, c := range s.Children {
            add(c)
        }
    }

    /* sort by position within the function */
    add(self)
    if self.Header != nil && self.Header.Func != nil {
        fn := self.Header.Func
        pos := make(map[*mir.BasicBlock]int, len(fn.Blocks))
        for i, bb := range fn.Blocks {
            pos[bb] = i
        }
        sort.Slice(ret, func(i int, j int) bool {
            return pos[ret[i]] < pos[ret[j]]
        })
    }
    return ret
}

// Walk visits the scope and all nested scopes depth-first.
func (self *Scope) Walk(w Walker) {
    w.Enter(self)
    for _, c := range self.Children {
        c.Walk(w)
    }
    w.Exit(self)
}

func (self *Scope) String() string {
    if self.IsRoot() {
        return fmt.Sprintf("scope(%s, root)", self.Header)
    } else {
        return fmt.Sprintf("scope(%s)", self.Header)
    }
}

// Dump writes a human readable description of the scope subtree.
func (self *Scope) Dump(w io.Writer) {
    self.Walk(&_Dumper { w: w })
}

type _Dumper struct {
    w io.Writer
}

func (self *_Dumper) Enter(s *Scope) {
    var tags []string
    var ind = strings.Repeat("  ", s.Depth)

    /* scope header line */
    if s.IsRoot() { tags = append(tags, "root") }
    if s.IsRootTopLevel { tags = append(tags, "sp-root") }
    fmt.Fprintf(self.w, "%s[%s] depth=%d", ind, s.Header, s.Depth)
    if len(tags) != 0 {
        fmt.Fprintf(self.w, " (%s)", strings.Join(tags, ", "))
    }
    fmt.Fprintln(self.w)

    /* member blocks with their guards */
    for _, bb := range s.Blocks {
        if c, ok := s.Guards[bb]; ok {
            fmt.Fprintf(self.w, "%s  %s: %s\n", ind, bb, c)
        } else {
            fmt.Fprintf(self.w, "%s  %s\n", ind, bb)
        }
    }

    /* nested loops, as seen from this scope */
    for _, c := range s.Children {
        if g, ok := s.Guards[c.Header]; ok {
            fmt.Fprintf(self.w, "%s  %s: %s\n", ind, c, g)
        }
    }

    /* predicate definitions */
    for _, d := range s.Defs {
        fmt.Fprintf(self.w, "%s  %s\n", ind, d)
    }
}

func (self *_Dumper) Exit(_ *Scope) {}
