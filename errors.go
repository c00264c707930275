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

package singlepath

import (
    `github.com/t-crest/singlepath/internal/instrinfo`
    `github.com/t-crest/singlepath/internal/sp`
)

// IrreducibleError occurs when a function to be converted has an irreducible
// CFG. Single-path code cannot be generated for such functions.
type IrreducibleError = sp.IrreducibleError

// BranchError occurs when the terminators of a block do not form a supported
// branch pattern, such as indirect or multiple conditional branches.
type BranchError = instrinfo.BranchError

// NestingError occurs when scope markers in a block are nested or unpaired.
type NestingError = instrinfo.NestingError

// RootError occurs when configured root functions do not exist in a module.
type RootError = sp.RootError

// ErrNotPredicable is returned when guarding an instruction that cannot
// carry a guard.
var ErrNotPredicable = instrinfo.ErrNotPredicable
