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

package instrinfo

import (
    `fmt`

    `github.com/t-crest/singlepath/mir`
)

// Cond is a predicate condition: a predicate register and a negate flag.
// NoReg and P0 both denote the hard-wired true predicate.
type Cond struct {
    Reg    mir.Reg
    Negate bool
}

// True returns the always-true condition.
func True() Cond {
    return Cond { Reg: mir.P0 }
}

// False returns the always-false condition.
func False() Cond {
    return Cond { Reg: mir.P0, Negate: true }
}

func (self Cond) trivial() bool {
    return self.Reg == mir.NoReg || self.Reg == mir.P0
}

// IsTrue reports whether the condition always holds.
func (self Cond) IsTrue() bool {
    return self.trivial() && !self.Negate
}

// IsFalse reports whether the condition never holds.
func (self Cond) IsFalse() bool {
    return self.trivial() && self.Negate
}

func (self Cond) flag() int64 {
    if self.Negate {
        return -1
    } else {
        return 0
    }
}

func (self Cond) String() string {
    switch {
        case self.IsTrue()  : return "true"
        case self.IsFalse() : return "false"
        case self.Negate    : return fmt.Sprintf("!%s", self.Reg)
        default             : return self.Reg.String()
    }
}

// ReverseCondition toggles the negate flag of c.
func ReverseCondition(c Cond) Cond {
    return Cond {
        Reg    : c.Reg,
        Negate : !c.Negate,
    }
}

// Subsumes reports whether a holding is guaranteed whenever b holds, as far
// as it can be decided syntactically. True subsumes everything, an equal
// condition subsumes itself. False subsumes nothing, not even itself.
func Subsumes(a Cond, b Cond) bool {
    switch {
        case a.IsTrue()  : return true
        case a.IsFalse() : return false
        default          : return a == b
    }
}
