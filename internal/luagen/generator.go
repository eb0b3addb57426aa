package luagen

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dshills/hexlua/internal/registry"
	"github.com/dshills/hexlua/internal/typeexpr"
	"github.com/dshills/hexlua/pkg/types"
)

// DefaultNamespace is the global table the generated functions live on
const DefaultNamespace = "Hex"

// Generator writes LuaLS definition files for a pattern registry
type Generator struct {
	resolver  *typeexpr.Resolver
	logger    *log.Logger
	namespace string
}

// Stats summarizes a generation run
type Stats struct {
	Patterns        int
	Operators       int
	Aliases         int
	UnresolvedTypes []string
}

// NewGenerator creates a generator that resolves operator types with resolver
func NewGenerator(resolver *typeexpr.Resolver, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{
		resolver:  resolver,
		logger:    logger,
		namespace: DefaultNamespace,
	}
}

// WithNamespace sets the global table name used for generated functions
func (g *Generator) WithNamespace(ns string) *Generator {
	if ns != "" {
		g.namespace = ns
	}
	return g
}

// Generate writes the definition file for reg to w
func (g *Generator) Generate(w io.Writer, reg *types.Registry) (*Stats, error) {
	bw := bufio.NewWriter(w)
	stats := &Stats{}

	fmt.Fprintln(bw, "---@meta")
	fmt.Fprintln(bw, "-- Generated by hexlua from the Hex Casting pattern registry. Do not edit.")
	fmt.Fprintln(bw)

	stats.Aliases = g.writeAliases(bw)

	fmt.Fprintf(bw, "---@class %s\n", g.namespace)
	fmt.Fprintf(bw, "%s = {}\n", g.namespace)

	names := newNameSet()
	patterns := registry.Sorted(reg)
	for i := range patterns {
		p := &patterns[i]
		if len(p.Operators) == 0 {
			g.logger.Debug("skipping pattern without operators", "pattern", p.ID)
			continue
		}
		fmt.Fprintln(bw)
		g.writePattern(bw, p, names.function(p))
		stats.Patterns++
		stats.Operators += len(p.Operators)
	}

	fmt.Fprintln(bw)
	g.writePatternTable(bw, patterns)

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write lua definitions: %w", err)
	}

	stats.UnresolvedTypes = g.resolver.Tracker().Reported()
	g.logger.Info("generated lua definitions",
		"patterns", stats.Patterns,
		"operators", stats.Operators,
		"unresolved", len(stats.UnresolvedTypes))
	return stats, nil
}

// writeAliases declares every non-native canonical type so inline
// renderings that mention canonical names stay valid
func (g *Generator) writeAliases(w io.Writer) int {
	tables := g.resolver.Tables()
	count := 0
	for _, name := range tables.CanonicalNames() {
		value := tables.Canonical[name]
		if tables.IsNative(value) {
			continue
		}
		fmt.Fprintf(w, "---@alias %s %s\n", name, value)
		count++
	}
	if count > 0 {
		fmt.Fprintln(w)
	}
	return count
}

func (g *Generator) writePattern(w io.Writer, p *types.Pattern, fn string) {
	first := p.Operators[0]

	fmt.Fprintf(w, "---**%s** (`%s`)\n", p.Name, p.ID)
	if first.Description != "" {
		fmt.Fprintln(w, "---")
		for _, line := range strings.Split(strings.TrimSpace(first.Description), "\n") {
			fmt.Fprintf(w, "---%s\n", docLine(line))
		}
	}
	if first.BookURL != "" {
		fmt.Fprintln(w, "---")
		fmt.Fprintf(w, "---[%s](%s)\n", first.ModID, first.BookURL)
	}

	params := g.params(first)
	for _, param := range params {
		fmt.Fprintf(w, "---@param %s %s\n", param.name, param.luaType)
	}
	for _, ret := range g.resolver.ResolveList(first.Outputs) {
		fmt.Fprintf(w, "---@return %s\n", ret)
	}
	for _, op := range p.Operators[1:] {
		fmt.Fprintf(w, "---@overload %s\n", g.overload(op))
	}

	paramNames := make([]string, len(params))
	for i, param := range params {
		paramNames[i] = param.name
	}
	args := strings.Join(paramNames, ", ")

	if IsKeyword(fn) {
		fmt.Fprintf(w, "%s[%s] = function(%s) end\n", g.namespace, Quote(fn), args)
		return
	}
	fmt.Fprintf(w, "function %s.%s(%s) end\n", g.namespace, fn, args)
}

func (g *Generator) overload(op types.Operator) string {
	params := g.params(op)
	parts := make([]string, len(params))
	for i, param := range params {
		parts[i] = param.name + ": " + param.luaType
	}
	sig := "fun(" + strings.Join(parts, ", ") + ")"
	if returns := g.resolver.ResolveList(op.Outputs); len(returns) > 0 {
		sig += ": " + strings.Join(returns, ", ")
	}
	return sig
}

func (g *Generator) writePatternTable(w io.Writer, patterns []types.Pattern) {
	fmt.Fprintf(w, "---@type table<string, { id: string, name: string, direction: string, signature: string, isPerWorld: boolean }>\n")
	fmt.Fprintf(w, "%s.patterns = {\n", g.namespace)
	for _, p := range patterns {
		fmt.Fprintf(w, "\t[%s] = { id = %s, name = %s, direction = %s, signature = %s, isPerWorld = %t },\n",
			Quote(p.ID), Quote(p.ID), Quote(p.Name), Quote(string(p.Direction)), Quote(p.Signature), p.IsPerWorld)
	}
	fmt.Fprintln(w, "}")
}

type param struct {
	name    string
	luaType string
}

// params names and resolves each input segment of op
func (g *Generator) params(op types.Operator) []param {
	if op.Inputs == nil {
		return nil
	}
	segments := typeexpr.Split(*op.Inputs)
	out := make([]param, 0, len(segments))
	used := make(map[string]bool)
	for i, segment := range segments {
		base := Camel(identifier(segment))
		if base == "" {
			base = "arg" + strconv.Itoa(i+1)
		}
		if IsKeyword(base) {
			base = "_" + base
		}
		name := base
		for n := 2; used[name]; n++ {
			name = base + strconv.Itoa(n)
		}
		used[name] = true
		out = append(out, param{name: name, luaType: g.resolver.Resolve(segment)})
	}
	return out
}

// docLine keeps a description line from being read as an annotation
func docLine(line string) string {
	if strings.HasPrefix(strings.TrimLeft(line, " \t"), "@") {
		return `\` + strings.TrimLeft(line, " \t")
	}
	return line
}

// nameSet hands out unique function names for patterns
type nameSet struct {
	used map[string]bool
}

func newNameSet() *nameSet {
	return &nameSet{used: make(map[string]bool)}
}

// function derives a name from the pattern path, qualifying it with the
// namespace when two mods define the same path
func (n *nameSet) function(p *types.Pattern) string {
	candidates := []string{Camel(identifier(p.Path()))}
	if ns := p.Namespace(); ns != "" {
		candidates = append(candidates, Camel(identifier(ns+"_"+p.Path())))
	}
	for _, c := range candidates {
		if c != "" && !n.used[c] {
			n.used[c] = true
			return c
		}
	}

	base := candidates[len(candidates)-1]
	if base == "" {
		base = "pattern"
	}
	for i := 2; ; i++ {
		c := base + strconv.Itoa(i)
		if !n.used[c] {
			n.used[c] = true
			return c
		}
	}
}
