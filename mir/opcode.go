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

// Opcode identifies an instruction. Properties of every opcode live in a
// static descriptor table, see Desc.
type Opcode uint16

const (
    NOP Opcode = iota

    /* arithmetic and logic */
    ADDr
    ADDi
    SUBr
    ORr
    ANDr
    XORr
    NORr
    MUL
    MULU
    MOV

    /* compares, writing a predicate register */
    CMPEQ
    CMPNEQ
    CMPLT
    CMPLE
    CMPULT
    CMPULE

    /* predicate logic */
    PAND
    POR
    PXOR
    PMOV

    /* special register moves */
    MTS
    MFS

    /* memory accesses */
    LWS
    LWL
    LWC
    LWM
    LHC
    LBC
    LHM
    LBM
    SWS
    SWL
    SWC
    SWM
    SHC
    SBC
    SHM
    SBM

    /* stack cache control */
    SENS
    SRES
    SFREE

    /* branches, predicated and unpredicated forms */
    BR
    BRu
    BRR
    BRRu
    BRT
    BRTu
    BRCF
    BRCFu
    BRCFR
    BRCFRu
    BRCFT
    BRCFTu

    /* calls and returns */
    CALL
    RET

    /* pseudo instructions */
    PSEUDO_SP_PRED_BBBEGIN
    PSEUDO_SP_PRED_BBEND
    PSEUDO_PREG_SPILL
    PSEUDO_PREG_RELOAD
    DBG_VALUE

    _OpcodeCount
)

// MemType is the memory area accessed by a load or store.
type MemType uint8

const (
    MemNone MemType = iota
    MemS            // stack cache
    MemL            // local scratchpad
    MemC            // data cache
    MemM            // main memory, bypassing caches
)

const (
    _F_branch uint32 = 1 << iota
    _F_condbr
    _F_uncondbr
    _F_indirect
    _F_terminator
    _F_return
    _F_call
    _F_predicable
    _F_pseudo
    _F_debug
    _F_load
    _F_store
)

const (
    _F_alu    = _F_predicable
    _F_ld     = _F_predicable | _F_load
    _F_st     = _F_predicable | _F_store
    _F_br     = _F_predicable | _F_branch | _F_terminator
    _F_brc    = _F_br | _F_condbr
    _F_bru    = _F_br | _F_uncondbr
    _F_brci   = _F_brc | _F_indirect
    _F_brui   = _F_bru | _F_indirect
)

// Desc describes the static properties of an opcode.
type Desc struct {
    Name    string
    Flags   uint32
    PredIdx int
    Mem     MemType
}

var _Descs = [_OpcodeCount]Desc {
    NOP    : { Name: "nop"   , Flags: _F_alu, PredIdx: 0 },
    ADDr   : { Name: "add"   , Flags: _F_alu, PredIdx: 1 },
    ADDi   : { Name: "addi"  , Flags: _F_alu, PredIdx: 1 },
    SUBr   : { Name: "sub"   , Flags: _F_alu, PredIdx: 1 },
    ORr    : { Name: "or"    , Flags: _F_alu, PredIdx: 1 },
    ANDr   : { Name: "and"   , Flags: _F_alu, PredIdx: 1 },
    XORr   : { Name: "xor"   , Flags: _F_alu, PredIdx: 1 },
    NORr   : { Name: "nor"   , Flags: _F_alu, PredIdx: 1 },
    MUL    : { Name: "mul"   , Flags: _F_alu, PredIdx: 0 },
    MULU   : { Name: "mulu"  , Flags: _F_alu, PredIdx: 0 },
    MOV    : { Name: "mov"   , Flags: _F_alu, PredIdx: 1 },
    CMPEQ  : { Name: "cmpeq" , Flags: _F_alu, PredIdx: 1 },
    CMPNEQ : { Name: "cmpneq", Flags: _F_alu, PredIdx: 1 },
    CMPLT  : { Name: "cmplt" , Flags: _F_alu, PredIdx: 1 },
    CMPLE  : { Name: "cmple" , Flags: _F_alu, PredIdx: 1 },
    CMPULT : { Name: "cmpult", Flags: _F_alu, PredIdx: 1 },
    CMPULE : { Name: "cmpule", Flags: _F_alu, PredIdx: 1 },
    PAND   : { Name: "pand"  , Flags: _F_alu, PredIdx: 1 },
    POR    : { Name: "por"   , Flags: _F_alu, PredIdx: 1 },
    PXOR   : { Name: "pxor"  , Flags: _F_alu, PredIdx: 1 },
    PMOV   : { Name: "pmov"  , Flags: _F_alu, PredIdx: 1 },
    MTS    : { Name: "mts"   , Flags: _F_alu, PredIdx: 1 },
    MFS    : { Name: "mfs"   , Flags: _F_alu, PredIdx: 1 },
    LWS    : { Name: "lws"   , Flags: _F_ld , PredIdx: 1, Mem: MemS },
    LWL    : { Name: "lwl"   , Flags: _F_ld , PredIdx: 1, Mem: MemL },
    LWC    : { Name: "lwc"   , Flags: _F_ld , PredIdx: 1, Mem: MemC },
    LWM    : { Name: "lwm"   , Flags: _F_ld , PredIdx: 1, Mem: MemM },
    LHC    : { Name: "lhc"   , Flags: _F_ld , PredIdx: 1, Mem: MemC },
    LBC    : { Name: "lbc"   , Flags: _F_ld , PredIdx: 1, Mem: MemC },
    LHM    : { Name: "lhm"   , Flags: _F_ld , PredIdx: 1, Mem: MemM },
    LBM    : { Name: "lbm"   , Flags: _F_ld , PredIdx: 1, Mem: MemM },
    SWS    : { Name: "sws"   , Flags: _F_st , PredIdx: 0, Mem: MemS },
    SWL    : { Name: "swl"   , Flags: _F_st , PredIdx: 0, Mem: MemL },
    SWC    : { Name: "swc"   , Flags: _F_st , PredIdx: 0, Mem: MemC },
    SWM    : { Name: "swm"   , Flags: _F_st , PredIdx: 0, Mem: MemM },
    SHC    : { Name: "shc"   , Flags: _F_st , PredIdx: 0, Mem: MemC },
    SBC    : { Name: "sbc"   , Flags: _F_st , PredIdx: 0, Mem: MemC },
    SHM    : { Name: "shm"   , Flags: _F_st , PredIdx: 0, Mem: MemM },
    SBM    : { Name: "sbm"   , Flags: _F_st , PredIdx: 0, Mem: MemM },
    SENS   : { Name: "sens"  , Flags: _F_alu, PredIdx: 0 },
    SRES   : { Name: "sres"  , Flags: _F_alu, PredIdx: 0 },
    SFREE  : { Name: "sfree" , Flags: _F_alu, PredIdx: 0 },
    BR     : { Name: "br"    , Flags: _F_brc , PredIdx: 0 },
    BRu    : { Name: "br"    , Flags: _F_bru , PredIdx: 0 },
    BRR    : { Name: "brr"   , Flags: _F_brci, PredIdx: 0 },
    BRRu   : { Name: "brr"   , Flags: _F_brui, PredIdx: 0 },
    BRT    : { Name: "brt"   , Flags: _F_brci, PredIdx: 0 },
    BRTu   : { Name: "brt"   , Flags: _F_brui, PredIdx: 0 },
    BRCF   : { Name: "brcf"  , Flags: _F_brc , PredIdx: 0 },
    BRCFu  : { Name: "brcf"  , Flags: _F_bru , PredIdx: 0 },
    BRCFR  : { Name: "brcfr" , Flags: _F_brci, PredIdx: 0 },
    BRCFRu : { Name: "brcfr" , Flags: _F_brui, PredIdx: 0 },
    BRCFT  : { Name: "brcft" , Flags: _F_brci, PredIdx: 0 },
    BRCFTu : { Name: "brcft" , Flags: _F_brui, PredIdx: 0 },
    CALL   : { Name: "call"  , Flags: _F_alu | _F_call, PredIdx: 0 },
    RET    : { Name: "ret"   , Flags: _F_alu | _F_terminator | _F_return, PredIdx: 0 },

    PSEUDO_SP_PRED_BBBEGIN : { Name: "SP_PRED_BBBEGIN", Flags: _F_pseudo, PredIdx: -1 },
    PSEUDO_SP_PRED_BBEND   : { Name: "SP_PRED_BBEND"  , Flags: _F_pseudo, PredIdx: -1 },
    PSEUDO_PREG_SPILL      : { Name: "PREG_SPILL"     , Flags: _F_pseudo | _F_st   , PredIdx: 0 },
    PSEUDO_PREG_RELOAD     : { Name: "PREG_RELOAD"    , Flags: _F_pseudo | _F_ld   , PredIdx: 1 },
    DBG_VALUE              : { Name: "DBG_VALUE"      , Flags: _F_pseudo | _F_debug, PredIdx: -1 },
}

// Desc returns the descriptor of the opcode.
func (self Opcode) Desc() *Desc {
    if self >= _OpcodeCount {
        panic("invalid opcode")
    } else {
        return &_Descs[self]
    }
}

func (self Opcode) String() string {
    return self.Desc().Name
}

func (self *Desc) has(f uint32) bool {
    return self.Flags & f == f
}

func (self *Desc) IsBranch()         bool { return self.has(_F_branch) }
func (self *Desc) IsCondBranch()     bool { return self.has(_F_condbr) }
func (self *Desc) IsUncondBranch()   bool { return self.has(_F_uncondbr) }
func (self *Desc) IsIndirectBranch() bool { return self.has(_F_indirect) }
func (self *Desc) IsTerminator()     bool { return self.has(_F_terminator) }
func (self *Desc) IsReturn()         bool { return self.has(_F_return) }
func (self *Desc) IsCall()           bool { return self.has(_F_call) }
func (self *Desc) IsPredicable()     bool { return self.has(_F_predicable) }
func (self *Desc) IsPseudo()         bool { return self.has(_F_pseudo) }
func (self *Desc) IsDebugValue()     bool { return self.has(_F_debug) }
func (self *Desc) MayLoad()          bool { return self.has(_F_load) }
func (self *Desc) MayStore()         bool { return self.has(_F_store) }
