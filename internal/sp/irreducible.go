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

    `github.com/oleiade/lane`
    `github.com/t-crest/singlepath/mir`
)

// IrreducibleError is returned when a function has a back edge whose
// target does not dominate its source.
type IrreducibleError struct {
    Func string
    From *mir.BasicBlock
    To   *mir.BasicBlock
}

func (self *IrreducibleError) Error() string {
    return fmt.Sprintf(
        "single-path code generation failed due to irreducible CFG in '%s' (edge %s -> %s)",
        self.Func,
        self.From,
        self.To,
    )
}

const (
    _S_visiting = iota + 1
    _S_finished
)

type _DfsFrame struct {
    bb *mir.BasicBlock
    nx int
}

// CheckIrreducibility walks fn depth-first from its entry block. Every edge
// to a block still on the DFS stack is a back edge, and its target must
// dominate its source.
func CheckIrreducibility(fn *mir.Func, dom *mir.DominatorTree) error {
    st := lane.NewStack()
    vis := make(map[*mir.BasicBlock]int, len(fn.Blocks))

    /* empty function */
    if fn.Entry() == nil {
        return nil
    }

    /* start from the entry block */
    vis[fn.Entry()] = _S_visiting
    st.Push(&_DfsFrame { bb: fn.Entry() })

    /* iterative DFS */
    for !st.Empty() {
        fp := st.Head().(*_DfsFrame)

        /* all successors done, the block is finished */
        if fp.nx >= len(fp.bb.Succ) {
            vis[fp.bb] = _S_finished
            st.Pop()
            continue
        }

        /* next successor */
        to := fp.bb.Succ[fp.nx]
        fp.nx++

        /* forward and cross edges are fine, back edges must go to a dominator */
        if sv := vis[to]; sv == _S_visiting {
            if !dom.Dominates(to, fp.bb) {
                return &IrreducibleError { Func: fn.Name, From: fp.bb, To: to }
            }
        } else if sv != _S_finished {
            vis[to] = _S_visiting
            st.Push(&_DfsFrame { bb: to })
        }
    }
    return nil
}
