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

    `github.com/t-crest/singlepath/mir`
    `gonum.org/v1/gonum/graph`
    `gonum.org/v1/gonum/graph/encoding`
    `gonum.org/v1/gonum/graph/encoding/dot`
    `gonum.org/v1/gonum/graph/simple`
)

type _DotNode struct {
    id    int64
    bb    *mir.BasicBlock
    label string
    head  bool
    depth int
}

func (self *_DotNode) ID() int64 {
    return self.id
}

func (self *_DotNode) DOTID() string {
    return self.bb.String()
}

func (self *_DotNode) Attributes() []encoding.Attribute {
    ret := []encoding.Attribute {
        { Key: "shape", Value: "box" },
        { Key: "label", Value: self.label },
        { Key: "group", Value: fmt.Sprintf("scope%d", self.depth) },
    }
    if self.head {
        ret = append(ret, encoding.Attribute { Key: "style", Value: "bold" })
    }
    return ret
}

type _DotEdge struct {
    f    *_DotNode
    t    *_DotNode
    back bool
}

func (self _DotEdge) From() graph.Node         { return self.f }
func (self _DotEdge) To() graph.Node           { return self.t }
func (self _DotEdge) ReversedEdge() graph.Edge { return _DotEdge { f: self.t, t: self.f, back: self.back } }

func (self _DotEdge) Attributes() []encoding.Attribute {
    if self.back {
        return []encoding.Attribute {{ Key: "style", Value: "dashed" }}
    } else {
        return nil
    }
}

// WriteDOT writes the CFG of the function in Graphviz format. Every block is
// labelled with its guard inside its scope, scope headers are drawn bold and
// back edges dashed. Self loops are left out.
func (self *Info) WriteDOT(w io.Writer) error {
    g := simple.NewDirectedGraph()
    nodes := make(map[*mir.BasicBlock]*_DotNode, len(self.Func.Blocks))

    /* one node per block */
    for i, bb := range self.Func.Blocks {
        sc := self.ScopeFor(bb)
        nd := &_DotNode { id: int64(i), bb: bb, depth: sc.Depth, head: bb == sc.Header }

        /* guard inside the owning scope */
        if c, ok := sc.Guards[bb]; ok {
            nd.label = fmt.Sprintf("%s\n%s", bb, c)
        } else {
            nd.label = bb.String()
        }

        /* add to graph */
        nodes[bb] = nd
        g.AddNode(nd)
    }

    /* all the edges */
    for _, bb := range self.Func.Blocks {
        for _, to := range bb.Succ {
            if to != bb {
                g.SetEdge(_DotEdge {
                    f    : nodes[bb],
                    t    : nodes[to],
                    back : self.Dom.Dominates(to, bb),
                })
            }
        }
    }

    /* encode the graph */
    buf, err := dot.Marshal(g, self.Func.Name, "", "  ")
    if err != nil {
        return err
    }

    /* write to output */
    _, err = w.Write(buf)
    return err
}
