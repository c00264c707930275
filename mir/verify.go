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
    `errors`
    `fmt`
    `strings`
)

// Verify checks the structural integrity of fn. It returns an error
// describing all violations found, or nil if fn is well formed.
func Verify(fn *Func) error {
    var errs []string
    var blocks = make(map[*BasicBlock]bool, len(fn.Blocks))

    add := func(format string, args ...interface{}) {
        errs = append(errs, fmt.Sprintf(format, args...))
    }

    /* must have an entry block */
    if len(fn.Blocks) == 0 {
        return fmt.Errorf("func %s: no blocks", fn.Name)
    }

    /* the entry block has no predecessors */
    if bb := fn.Entry(); len(bb.Pred) != 0 {
        add("func %s: entry block %s has %d predecessors", fn.Name, bb, len(bb.Pred))
    }

    /* build a set of all blocks for membership checks */
    for _, bb := range fn.Blocks {
        blocks[bb] = true
    }

    /* check every block */
    for _, bb := range fn.Blocks {
        if bb.Func != fn {
            add("func %s, %s: block does not belong to the function", fn.Name, bb)
        }

        /* edges must be symmetric and stay inside the function */
        for _, p := range bb.Succ {
            if !blocks[p] {
                add("func %s, %s: successor %s is not in the function", fn.Name, bb, p)
            } else if !hasblock(p.Pred, bb) {
                add("func %s, %s: successor %s does not list it as predecessor", fn.Name, bb, p)
            }
        }
        for _, p := range bb.Pred {
            if !hasblock(p.Succ, bb) {
                add("func %s, %s: predecessor %s does not list it as successor", fn.Name, bb, p)
            }
        }

        /* check every instruction */
        for i, ins := range bb.Ins {
            if idx := ins.PredIdx(); idx >= 0 {
                if idx + 1 >= len(ins.Ops) || !ins.Ops[idx].IsReg() || !ins.Ops[idx + 1].IsImm() {
                    add("func %s, %s, #%d: malformed guard operands: %s", fn.Name, bb, i, ins.Op)
                } else if r := ins.Ops[idx].Reg; r != NoReg && !r.IsPredicate() {
                    add("func %s, %s, #%d: guard %s is not a predicate register", fn.Name, bb, i, r)
                }
            }
            if ins.IsBranch() && !ins.IsIndirectBranch() {
                for _, op := range ins.Ops {
                    if op.Kind == OpBlock && !bb.IsSucc(op.Block) {
                        add("func %s, %s, #%d: branch target %s is not a successor", fn.Name, bb, i, op.Block)
                    }
                }
            }
        }
    }

    /* combine all the errors */
    if len(errs) == 0 {
        return nil
    } else {
        return errors.New(strings.Join(errs, "\n"))
    }
}

func hasblock(bbs []*BasicBlock, bb *BasicBlock) bool {
    for _, p := range bbs {
        if p == bb {
            return true
        }
    }
    return false
}
