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
)

// Reg is a machine register, encoded as a register class in the upper bits
// and an index in the lower bits. The zero value is NoReg.
type Reg uint32

const (
    _B_kind  = 24
    _R_index = (1 << _B_kind) - 1
)

const (
    _K_none uint32 = iota
    _K_gpr
    _K_spr
    _K_pred
    _K_vpred
)

const (
    NumGeneralRegs   = 32
    NumSpecialRegs   = 16
    NumPredicateRegs = 8
)

// NoReg denotes the absence of a register.
const NoReg Reg = 0

// P0 is hard-wired to true.
const (
    P0 Reg = Reg(_K_pred << _B_kind) + iota
    P1
    P2
    P3
    P4
    P5
    P6
    P7
)

func mkreg(kind uint32, i int, max int) Reg {
    if i < 0 || (max > 0 && i >= max) || i > _R_index {
        panic(fmt.Sprintf("mkreg: register index out of range: %d", i))
    } else {
        return Reg((kind << _B_kind) | uint32(i))
    }
}

// R returns the i-th general purpose register.
func R(i int) Reg { return mkreg(_K_gpr, i, NumGeneralRegs) }

// S returns the i-th special register.
func S(i int) Reg { return mkreg(_K_spr, i, NumSpecialRegs) }

// P returns the i-th physical predicate register.
func P(i int) Reg { return mkreg(_K_pred, i, NumPredicateRegs) }

// VP returns the i-th virtual predicate register.
func VP(i int) Reg { return mkreg(_K_vpred, i, 0) }

func (self Reg) kind() uint32 {
    return uint32(self) >> _B_kind
}

func (self Reg) Index() int {
    return int(uint32(self) & _R_index)
}

func (self Reg) IsGeneral() bool {
    return self.kind() == _K_gpr
}

func (self Reg) IsSpecial() bool {
    return self.kind() == _K_spr
}

// IsPredicate reports whether the register belongs to the predicate
// register class, physical or virtual.
func (self Reg) IsPredicate() bool {
    return self.kind() == _K_pred || self.kind() == _K_vpred
}

func (self Reg) IsVirtual() bool {
    return self.kind() == _K_vpred
}

func (self Reg) String() string {
    switch self.kind() {
        case _K_none  : return "-"
        case _K_gpr   : return fmt.Sprintf("r%d", self.Index())
        case _K_spr   : return fmt.Sprintf("s%d", self.Index())
        case _K_pred  : return fmt.Sprintf("p%d", self.Index())
        case _K_vpred : return fmt.Sprintf("%%vp%d", self.Index())
        default       : panic("unreachable")
    }
}
