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
    `fmt`
    `io`
    `strings`
)

// Fprint writes a textual dump of fn to w.
func Fprint(w io.Writer, fn *Func) {
    io.WriteString(w, Sprint(fn))
}

// Sprint returns a textual dump of fn.
func Sprint(fn *Func) string {
    var attrs []string
    var buf []string

    /* function markings */
    if fn.Root       { attrs = append(attrs, "sp-root") }
    if fn.Reachable  { attrs = append(attrs, "sp-reachable") }
    if fn.Maybe      { attrs = append(attrs, "sp-maybe") }
    if fn.SinglePath { attrs = append(attrs, "single-path") }

    /* function header */
    if len(attrs) == 0 {
        buf = append(buf, fmt.Sprintf("func %s {", fn.Name))
    } else {
        buf = append(buf, fmt.Sprintf("func %s [%s] {", fn.Name, strings.Join(attrs, ", ")))
    }

    /* every block and instruction */
    for _, bb := range fn.Blocks {
        succ := make([]string, 0, len(bb.Succ))
        for _, p := range bb.Succ {
            succ = append(succ, p.String())
        }
        buf = append(buf, fmt.Sprintf("%s:    # succ = {%s}", bb, strings.Join(succ, ", ")))
        for _, ins := range bb.Ins {
            buf = append(buf, "    " + ins.String())
        }
    }

    /* join them together */
    buf = append(buf, "}", "")
    return strings.Join(buf, "\n")
}
