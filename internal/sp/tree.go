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
    `github.com/oleiade/lane`
    `github.com/t-crest/singlepath/internal/loops`
    `github.com/t-crest/singlepath/mir`
)

// BuildScopeTree mirrors the loop forest of fn as a scope tree. The root
// scope is headed by the entry block, every loop gets a scope headed by its
// header. Each block is then assigned to the scope of its innermost loop,
// or to the root scope when it is in no loop. The returned table maps every
// block of fn to its owning scope.
func BuildScopeTree(fn *mir.Func, li *loops.Info) (*Scope, map[*mir.BasicBlock]*Scope) {
    st := lane.NewStack()
    b2s := make(map[*mir.BasicBlock]*Scope, len(fn.Blocks))
    l2s := make(map[*loops.Loop]*Scope)

    /* the root scope */
    root := &Scope {
        Header         : fn.Entry(),
        IsRootTopLevel : fn.Root,
        owner          : b2s,
    }

    /* top-level loops, pushed backwards to visit them in order */
    top := li.TopLevel()
    for i := len(top) - 1; i >= 0; i-- {
        st.Push(top[i])
    }

    /* preorder over the loop forest */
    for !st.Empty() {
        lp := st.Pop().(*loops.Loop)
        ps := root

        /* find the parent scope */
        if lp.Parent != nil {
            ps = l2s[lp.Parent]
        }

        /* create the scope */
        sc := &Scope {
            Parent : ps,
            Header : lp.Header,
            Loop   : lp,
            Depth  : ps.Depth + 1,
            owner  : b2s,
        }

        /* link with the parent */
        l2s[lp] = sc
        ps.Children = append(ps.Children, sc)

        /* visit nested loops */
        for i := len(lp.Children) - 1; i >= 0; i-- {
            st.Push(lp.Children[i])
        }
    }

    /* assign every block to its innermost scope */
    for _, bb := range fn.Blocks {
        sc := root
        if lp := li.LoopFor(bb); lp != nil {
            sc = l2s[lp]
        }
        b2s[bb] = sc
        sc.Blocks = append(sc.Blocks, bb)
    }
    return root, b2s
}
