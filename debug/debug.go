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

package debug

import (
	"sync/atomic"

	"github.com/t-crest/singlepath/internal/sp"
)

// A Stats records statistics about the single-path analysis.
type Stats struct {
	Funcs  FuncStats
	Scopes int
	Preds  int
}

// A FuncStats records how many functions were analyzed.
type FuncStats struct {
	Done   int
	Failed int
}

// GetStats returns statistics of the single-path analysis since the
// program started.
func GetStats() Stats {
	return Stats{
		Funcs: FuncStats{
			Done:   int(atomic.LoadUint64(&sp.FuncCount)),
			Failed: int(atomic.LoadUint64(&sp.FailCount)),
		},
		Scopes: int(atomic.LoadUint64(&sp.ScopeCount)),
		Preds:  int(atomic.LoadUint64(&sp.PredCount)),
	}
}
