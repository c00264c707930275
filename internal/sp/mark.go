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
    `github.com/t-crest/singlepath/mir`
)

// RootError is returned when configured root functions do not exist.
type RootError struct {
    Names []string
}

func (self *RootError) Error() string {
    return fmt.Sprintf("single-path root function(s) not found: %s", strings.Join(self.Names, ", "))
}

// MarkRoots marks the configured root functions of mod as single-path roots,
// and every function they call, directly or not, as reachable from a root.
// All marked functions are to be converted. Calls to functions outside of
// mod are ignored, missing roots are reported once all others are marked.
func MarkRoots(mod *mir.Module, cfg *Config) error {
    var miss []string
    var q = lane.NewQueue()
    var vis = make(map[*mir.Func]bool)

    /* mark the roots */
    for _, name := range cfg.Roots() {
        if fn := mod.Lookup(name); fn == nil {
            miss = append(miss, name)
        } else if !vis[fn] {
            vis[fn] = true
            fn.Root = true
            fn.SinglePath = true
            q.Enqueue(fn)
        }
    }

    /* everything called from a root */
    for !q.Empty() {
        fn := q.Dequeue().(*mir.Func)
        for _, name := range fn.Callees() {
            if p := mod.Lookup(name); p != nil && !vis[p] {
                vis[p] = true
                p.Reachable = true
                p.SinglePath = true
                q.Enqueue(p)
            }
        }
    }

    /* check for missing roots */
    if len(miss) == 0 {
        return nil
    } else {
        return &RootError { Names: miss }
    }
}
