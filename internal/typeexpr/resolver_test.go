package typeexpr

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	entityLua = "{ uuid: string, name: string|nil }"
	vectorLua = "{ x: number, y: number, z: number }"
	playerLua = "{ isPlayer: true, uuid: string, name: string }"
)

// newTestResolver returns a resolver over the default tables whose tracker
// writes into the returned buffer.
func newTestResolver(t *testing.T) (*Resolver, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := log.New(&buf)
	return New(DefaultTables(), NewTracker(logger)), &buf
}

func TestResolve_EndToEnd(t *testing.T) {
	r, _ := newTestResolver(t)

	tests := []struct {
		input string
		want  string
	}{
		{"entity", entityLua},
		{"num", "number"},
		{"entity?", entityLua + " | nil"},
		{"[num]", "number[]"},
		{"(entity, num)", "[" + entityLua + ", number]"},
		{"list of vec", "(" + vectorLua + ")[]"},
		{"player entity/number", "(" + playerLua + " | number)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.input))
		})
	}
}

func TestResolve_Grammar(t *testing.T) {
	r, _ := newTestResolver(t)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "any"},
		{"whitespace", "   ", "any"},
		{"special literal", "[complicated!]", "[[HexItemT, number][], [HexItemT, number]]"},
		{"special literal mixed case", "[Complicated!]", "[[HexItemT, number][], [HexItemT, number]]"},
		{"empty array", "[]", "any[]"},
		{"empty group", "()", "any"},
		{"nested array", "[[num]]", "number[][]"},
		{"nested structural array", "[[entity]]", "((" + entityLua + ")[])[]"},
		{"three tuple", "[entity, number, vec]", "[" + entityLua + ", number, " + vectorLua + "]"},
		{"grouping only", "(num)", "number"},
		{"group with nested array", "(num, [entity])", "[number, (" + entityLua + ")[]]"},
		{"union of compounds", "[entity]|number", "((" + entityLua + ")[] | number)"},
		{"union inside array", "[entity|number]", "(" + entityLua + " | number)[]"},
		{"union inside list", "list of (num|str)", "(number | string)[]"},
		{"optional union", "num|str?", "(number | string) | nil"},
		{"optional of group", "(num|str)?", "(number | string) | nil"},
		{"or null", "entity or null", entityLua + " | nil"},
		{"list of case-insensitive", "List of num", "number[]"},
		{"list of list", "list of list of num", "number[][]"},
		{"annotation", "num <0-20>", "number"},
		{"canonical name", "HexVector", vectorLua},
		{"native canonical", "boolean", "boolean"},
		{"opaque canonical", "HexComplex", "userdata"},
		{"opaque alias", "complex", "userdata"},
		{"inline alias", "itemtypable", "(HexEntity|HexVector)"},
		{"inline alias array", "list", "any[]"},
		{"multi-word alias", "item stack", "userdata"},
		{"null alias", "null", "nil"},
		{"mixed case alias", "Entity", entityLua},
		{"padded", "  num  ", "number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.input))
		})
	}
}

func TestResolve_CanonicalTable(t *testing.T) {
	r, _ := newTestResolver(t)
	tables := r.Tables()

	for _, name := range tables.CanonicalNames() {
		value := tables.Canonical[name]
		want := value
		if tables.IsNative(value) {
			want = name
		}
		assert.Equal(t, want, r.Resolve(name), "canonical %s", name)
	}
}

func TestResolve_AliasMatchesCanonical(t *testing.T) {
	r, _ := newTestResolver(t)
	tables := r.Tables()

	for alias, target := range tables.Aliases {
		if _, ok := tables.Canonical[target]; !ok {
			continue
		}
		assert.Equal(t, r.Resolve(target), r.Resolve(alias), "alias %q", alias)
	}
}

func TestResolve_Plurals(t *testing.T) {
	r, buf := newTestResolver(t)

	assert.Equal(t, r.Resolve("entity"), r.Resolve("entities"))
	assert.Equal(t, r.Resolve("key"), r.Resolve("keys"))
	assert.Equal(t, r.Resolve("vec"), r.Resolve("vectors"))
	assert.Equal(t, "number", r.Resolve("numbers"))
	assert.Equal(t, "[number, "+vectorLua+"]", r.Resolve("(nums, vecs)"))
	assert.Empty(t, buf.String())

	// "bodies" tries "body" then "bodie"; neither exists
	assert.Equal(t, "bodies", r.Resolve("bodies"))
	assert.Equal(t, []string{"bodies"}, r.Tracker().Reported())
}

func TestResolve_OptionalSuffix(t *testing.T) {
	r, _ := newTestResolver(t)

	for _, input := range []string{"entity", "num", "vec", "[num]", "player"} {
		assert.Equal(t, r.Resolve(input)+" | nil", r.Resolve(input+"?"), input)
	}

	out := r.Resolve("entity?")
	assert.Contains(t, out, entityLua)
	assert.Contains(t, out, "nil")
}

func TestResolve_UnionCollapse(t *testing.T) {
	r, _ := newTestResolver(t)

	assert.Equal(t, entityLua, r.Resolve("entity/entity"))
	assert.Equal(t, "number", r.Resolve("number/number"))
	assert.Equal(t, "number", r.Resolve("num | int"))
	assert.Equal(t, "number", r.Resolve("number"))
	assert.Equal(t, "number", r.Resolve("num|"))
}

func TestResolve_BracketForms(t *testing.T) {
	r, _ := newTestResolver(t)

	array := r.Resolve("[entity]")
	tuple := r.Resolve("[entity, number]")

	assert.Equal(t, "("+entityLua+")[]", array)
	assert.Equal(t, "["+entityLua+", number]", tuple)
	assert.NotEqual(t, array, tuple)
	assert.Equal(t, tuple, r.Resolve("(entity, number)"))
}

func TestResolve_UnknownToken(t *testing.T) {
	r, buf := newTestResolver(t)

	for i := 0; i < 3; i++ {
		assert.Equal(t, "totally_unknown_xyz", r.Resolve("totally_unknown_xyz"))
	}
	assert.Equal(t, 1, strings.Count(buf.String(), "unknown type"))
	assert.Contains(t, buf.String(), "totally_unknown_xyz")

	// unknown leaves inside compounds degrade without breaking the rest
	assert.Equal(t, "[mystery, number]", r.Resolve("(mystery, num)"))
	assert.Equal(t, 2, r.Tracker().Len())
}

func TestResolve_Malformed(t *testing.T) {
	r, _ := newTestResolver(t)

	assert.Equal(t, "[entity", r.Resolve("[entity"))
	assert.Equal(t, "entity]", r.Resolve("entity]"))
	assert.Equal(t, "(a]", r.Resolve("(a]"))
	assert.ElementsMatch(t, []string{"[entity", "entity]", "(a]"}, r.Tracker().Reported())
}

func TestResolve_IndependentTrackers(t *testing.T) {
	first, firstBuf := newTestResolver(t)
	second, secondBuf := newTestResolver(t)

	first.Resolve("ghost")
	second.Resolve("ghost")

	assert.Contains(t, firstBuf.String(), "ghost")
	assert.Contains(t, secondBuf.String(), "ghost")
}

func TestResolve_InjectedTables(t *testing.T) {
	tables := &Tables{
		Canonical: map[string]string{
			"int":   NativeSentinel,
			"Point": "{ x: int, y: int }",
		},
		Aliases: map[string]string{
			"pt":     "Point",
			"pair":   "[int, int]",
			"whole":  "int",
			"zombie": "Point",
			"puppy":  "int",
		},
		CatchAll: "unknown",
		Null:     "null",
	}
	r := New(tables, NewTracker(log.New(&bytes.Buffer{})))

	assert.Equal(t, "{ x: int, y: int }", r.Resolve("pt"))
	assert.Equal(t, "[int, int]", r.Resolve("pair"))
	assert.Equal(t, "int", r.Resolve("wholes"))
	// "ies" tokens try the "y" form first, then drop only the "s"
	assert.Equal(t, "int", r.Resolve("puppies"))
	assert.Equal(t, "{ x: int, y: int }", r.Resolve("zombies"))
	assert.Equal(t, []string{"zomby", "zombie"}, singulars("zombies"))
	assert.Equal(t, "unknown", r.Resolve(""))
	assert.Equal(t, "unknown[]", r.Resolve("[]"))
	assert.Equal(t, "int | null", r.Resolve("whole?"))
	assert.Equal(t, "entity", r.Resolve("entity"))
}

func TestResolveList(t *testing.T) {
	r, _ := newTestResolver(t)

	inputs := "entity, [num], vec <position>"
	assert.Equal(t, []string{entityLua, "number[]", vectorLua}, r.ResolveList(&inputs))

	assert.Nil(t, r.ResolveList(nil))

	empty := ""
	assert.Empty(t, r.ResolveList(&empty))
}

func TestIsNative(t *testing.T) {
	r, _ := newTestResolver(t)

	assert.True(t, r.IsNative(NativeSentinel))
	assert.False(t, r.IsNative("number"))
	assert.False(t, r.IsNative(OpaqueRendering))
	assert.False(t, r.IsNative(entityLua))
}

func TestRules_Isolated(t *testing.T) {
	r, _ := newTestResolver(t)

	byName := make(map[string]rule)
	for _, rl := range rules {
		byName[rl.name] = rl
	}
	require.Len(t, byName, len(rules))

	tests := []struct {
		rule  string
		input string
		match bool
		want  string
	}{
		{"special", "[complicated!]", true, "[[HexItemT, number][], [HexItemT, number]]"},
		{"special", "[entity]", false, ""},
		{"empty", "", true, "any"},
		{"empty", "x", false, ""},
		{"malformed", "[x", true, "[x"},
		{"malformed", "[x]", false, ""},
		{"optional", "num?", true, "number | nil"},
		{"optional", "num", false, ""},
		{"union", "num/str", true, "(number | string)"},
		{"union", "[num/str]", false, ""},
		{"array", "[num]", true, "number[]"},
		{"array", "[num] [str]", false, ""},
		{"group", "(num)", true, "number"},
		{"group", "(num, str)", true, "[number, string]"},
		{"group", "[num]", false, ""},
		{"list-of", "list of num", true, "number[]"},
		{"list-of", "listof num", false, ""},
		{"or-null", "num or null", true, "number | nil"},
		{"or-null", "null", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.rule+"/"+tt.input, func(t *testing.T) {
			rl, ok := byName[tt.rule]
			require.True(t, ok)
			got, matched := rl.apply(r, tt.input)
			assert.Equal(t, tt.match, matched)
			if tt.match {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRules_Order(t *testing.T) {
	names := make([]string, len(rules))
	for i, rl := range rules {
		names[i] = rl.name
	}
	assert.Equal(t, []string{
		"special", "empty", "malformed", "optional", "union",
		"array", "group", "list-of", "or-null",
	}, names)
}

func TestTracker_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	var bufMu sync.Mutex
	logger := log.New(&lockedWriter{w: &buf, mu: &bufMu})
	r := New(DefaultTables(), NewTracker(logger))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Resolve("(phantom, num)")
			}
		}()
	}
	wg.Wait()

	bufMu.Lock()
	defer bufMu.Unlock()
	assert.Equal(t, 1, strings.Count(buf.String(), "unknown type"))
	assert.Equal(t, []string{"phantom"}, r.Tracker().Reported())
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
