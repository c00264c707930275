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

package opts

import (
	"os"
	"strconv"
	"strings"
)

const (
	_DefaultDebug  = 0 // no diagnostics
	_DefaultVerify = 0 // no IR verification
)

var (
	Roots  = parseListOrDefault("SP_ROOTS", nil)
	Debug  = parseOrDefault("SP_DEBUG", _DefaultDebug, 0)
	Verify = parseOrDefault("SP_VERIFY", _DefaultVerify, 0) != 0
)

func parseOrDefault(key string, def int, min int) int {
	if env := os.Getenv(key); env == "" {
		return def
	} else if val, err := strconv.ParseUint(env, 0, 64); err != nil {
		panic("singlepath: invalid value for " + key)
	} else if ret := int(val); ret < min {
		panic("singlepath: value too small for " + key)
	} else {
		return ret
	}
}

func parseListOrDefault(key string, def []string) []string {
	if env := os.Getenv(key); env == "" {
		return def
	} else {
		return SplitList(env)
	}
}

// SplitList splits a comma separated list of names, dropping empty entries
// and surrounding blanks.
func SplitList(s string) []string {
	var ret []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			ret = append(ret, v)
		}
	}
	return ret
}
