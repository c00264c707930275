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
    `testing`

    `github.com/stretchr/testify/require`
    `github.com/t-crest/singlepath/mir`
)

func leaf(name string, callees ...string) *mir.Func {
    b := mir.NewBuilder(name)
    for _, c := range callees {
        b.Call(c)
    }
    b.Ret()
    return b.Build()
}

func TestConfig(t *testing.T) {
    cfg := ParseRootList("main,,task, ")
    require.True(t, cfg.Enabled())
    require.Equal(t, []string { "main", "task" }, cfg.Roots())
    require.True(t, cfg.IsRootName("task"))
    require.False(t, cfg.IsRootName(""))
    require.False(t, ParseRootList(",").Enabled())
    require.False(t, (*Config)(nil).Enabled())
    require.Equal(t, []string { "a" }, NewConfig([]string { "", "a" }).Roots())

    /* function markings */
    fn := mir.NewFunc("f")
    require.False(t, IsEnabled(fn))
    fn.Reachable = true
    require.True(t, IsEnabled(fn))
    require.True(t, IsReachable(fn))
    require.False(t, IsRoot(fn))
    require.False(t, IsMaybe(fn))
    require.False(t, IsConverting(fn))
}

func TestMarkRoots(t *testing.T) {
    mod := &mir.Module { Funcs: []*mir.Func {
        leaf("main", "foo", "printf"),
        leaf("foo", "bar", "main"),
        leaf("bar", "foo"),
        leaf("baz", "bar"),
    }}
    err := MarkRoots(mod, ParseRootList("main,missing"))
    require.Error(t, err)
    require.Equal(t, []string { "missing" }, err.(*RootError).Names)
    require.Contains(t, err.Error(), "missing")

    /* roots and everything they call */
    main, foo, bar, baz := mod.Funcs[0], mod.Funcs[1], mod.Funcs[2], mod.Funcs[3]
    require.True(t, main.Root && main.SinglePath && !main.Reachable)
    require.True(t, foo.Reachable && foo.SinglePath && !foo.Root)
    require.True(t, bar.Reachable && IsConverting(bar))
    require.False(t, baz.Reachable || baz.SinglePath || baz.Root)
    require.NoError(t, MarkRoots(mod, ParseRootList("baz")))
    require.True(t, baz.Root)
}
