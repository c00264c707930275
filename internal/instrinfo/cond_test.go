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
    `testing`

    `github.com/stretchr/testify/require`
    `github.com/t-crest/singlepath/mir`
)

var testConds = []Cond {
    True(),
    False(),
    { Reg: mir.NoReg },
    { Reg: mir.P1 },
    { Reg: mir.P1, Negate: true },
    { Reg: mir.P2 },
    { Reg: mir.VP(3), Negate: true },
}

func TestCond_Subsumes(t *testing.T) {
    for _, c := range testConds {
        require.Truef(t, Subsumes(True(), c), "true must subsume %s", c)
        require.Falsef(t, Subsumes(False(), c), "false must not subsume %s", c)
        if !c.IsFalse() {
            require.Truef(t, Subsumes(c, c), "%s must subsume itself", c)
        }
    }
    require.False(t, Subsumes(Cond { Reg: mir.P1 }, Cond { Reg: mir.P1, Negate: true }))
    require.False(t, Subsumes(Cond { Reg: mir.P1 }, Cond { Reg: mir.P2 }))
    require.False(t, Subsumes(Cond { Reg: mir.P1 }, True()))
}

// The always-false condition is not reflexive under subsumption. This is
// deliberate and pinned here so that a change shows up as a failure.
func TestCond_FalseDoesNotSubsumeItself(t *testing.T) {
    require.False(t, Subsumes(False(), False()))
}

func TestCond_Reverse(t *testing.T) {
    for _, c := range testConds {
        require.Equal(t, c, ReverseCondition(ReverseCondition(c)))
        require.NotEqual(t, c, ReverseCondition(c))
    }
    require.Equal(t, False(), ReverseCondition(True()))
    require.True(t, ReverseCondition(False()).IsTrue())
}

func TestCond_String(t *testing.T) {
    require.Equal(t, "true", True().String())
    require.Equal(t, "false", False().String())
    require.Equal(t, "p1", Cond { Reg: mir.P1 }.String())
    require.Equal(t, "!p1", Cond { Reg: mir.P1, Negate: true }.String())
}

func TestPredicate_Guard(t *testing.T) {
    ins := mir.NewPred(mir.ADDr, mir.Def(mir.R(1)), mir.Use(mir.R(2)), mir.Use(mir.R(3)))
    c, ok := Guard(ins)
    require.True(t, ok)
    require.True(t, c.IsTrue())
    require.False(t, IsPredicated(ins))
    SetGuard(ins, Cond { Reg: mir.P3, Negate: true })
    c, _ = Guard(ins)
    require.Equal(t, Cond { Reg: mir.P3, Negate: true }, c)
    require.True(t, IsPredicated(ins))
    require.Equal(t, "(!p3) add r1 = r2, r3", ins.String())
    _, ok = Guard(NewScopeBegin(mir.P1))
    require.False(t, ok)
}

func TestPredicate_MalformedGuard(t *testing.T) {
    ins := mir.New(mir.ADDr, mir.Def(mir.R(1)), mir.Use(mir.R(2)))
    require.Panics(t, func() { Guard(ins) })
    require.Panics(t, func() { SetGuard(NewScopeBegin(mir.P1), True()) })
}

func TestPredicate_Instruction(t *testing.T) {
    ins := mir.NewPred(mir.MOV, mir.Def(mir.R(1)), mir.Use(mir.R(2)))
    require.NoError(t, PredicateInstruction(ins, Cond { Reg: mir.P1 }))
    require.True(t, IsPredicated(ins))
    require.Panics(t, func() { _ = PredicateInstruction(ins, Cond { Reg: mir.P2 }) })
    require.Equal(t, ErrNotPredicable, PredicateInstruction(NewScopeEnd(mir.P1, false), Cond { Reg: mir.P1 }))
}

func TestPredicate_OpcodeFollowsGuard(t *testing.T) {
    pairs := [][2]mir.Opcode {
        { mir.BR    , mir.BRu    },
        { mir.BRR   , mir.BRRu   },
        { mir.BRT   , mir.BRTu   },
        { mir.BRCF  , mir.BRCFu  },
        { mir.BRCFR , mir.BRCFRu },
        { mir.BRCFT , mir.BRCFTu },
    }
    for _, p := range pairs {
        t.Run(p[0].String(), func(t *testing.T) {
            ins := mir.NewPred(p[1], mir.Use(mir.R(1)))
            SetGuard(ins, Cond { Reg: mir.P4 })
            require.Equal(t, p[0], ins.Op)
            require.True(t, ins.IsCondBranch())
            SetGuard(ins, True())
            require.Equal(t, p[1], ins.Op)
            require.True(t, ins.IsUncondBranch())
            SetGuard(ins, False())
            require.Equal(t, p[0], ins.Op)
            require.False(t, FixOpcodeForGuard(ins))
        })
    }
    require.False(t, FixOpcodeForGuard(mir.NewPred(mir.NOP)))
}

func TestPredicate_UnpredicatedTerminator(t *testing.T) {
    ret := mir.NewPred(mir.RET)
    require.True(t, IsUnpredicatedTerminator(ret))
    SetGuard(ret, Cond { Reg: mir.P1 })
    require.False(t, IsUnpredicatedTerminator(ret))
    br := mir.NewPred(mir.BRu, mir.Target(nil))
    require.True(t, IsUnpredicatedTerminator(br))
    SetGuard(br, Cond { Reg: mir.P1 })
    require.True(t, IsUnpredicatedTerminator(br))
    require.False(t, IsUnpredicatedTerminator(mir.NewPred(mir.NOP)))
}

func TestPredicate_Defines(t *testing.T) {
    cmp := mir.NewPred(mir.CMPLT, mir.Def(mir.P2), mir.Use(mir.R(1)), mir.Use(mir.R(2)))
    require.Equal(t, []mir.Reg { mir.P2 }, DefinesPredicate(cmp))
    add := mir.NewPred(mir.ADDr, mir.Def(mir.R(1)), mir.Use(mir.R(2)), mir.Use(mir.R(3)))
    SetGuard(add, Cond { Reg: mir.P2 })
    require.Empty(t, DefinesPredicate(add))
}
