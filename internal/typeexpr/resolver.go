package typeexpr

import (
	"regexp"
	"strings"
)

// Resolver converts free-form type descriptions into LuaLS annotations.
// Resolve is safe for concurrent use when the tracker is shared.
type Resolver struct {
	tables  *Tables
	tracker *Tracker
}

// New creates a resolver. Nil tables use DefaultTables and a nil tracker
// gets a fresh one logging to the default logger.
func New(tables *Tables, tracker *Tracker) *Resolver {
	if tables == nil {
		tables = DefaultTables()
	}
	if tracker == nil {
		tracker = NewTracker(nil)
	}
	return &Resolver{
		tables:  tables,
		tracker: tracker,
	}
}

// Tables returns the symbol tables the resolver reads from
func (r *Resolver) Tables() *Tables {
	return r.tables
}

// Tracker returns the missing-type tracker
func (r *Resolver) Tracker() *Tracker {
	return r.tracker
}

// IsNative reports whether s is the native sentinel
func (r *Resolver) IsNative(s string) bool {
	return r.tables.IsNative(s)
}

// rule is one grammar form. apply returns ok=false when expr does not have
// the rule's shape, leaving it to the next rule.
type rule struct {
	name  string
	apply func(r *Resolver, expr string) (string, bool)
}

// rules are evaluated in order; the first match wins. Anything left over is
// a leaf. They are assigned in init because several rules recurse through
// Resolve, which reads rules.
var rules []rule

func init() {
	rules = []rule{
		{name: "special", apply: (*Resolver).special},
		{name: "empty", apply: (*Resolver).empty},
		{name: "malformed", apply: (*Resolver).malformed},
		{name: "optional", apply: (*Resolver).optional},
		{name: "union", apply: (*Resolver).union},
		{name: "array", apply: (*Resolver).array},
		{name: "group", apply: (*Resolver).group},
		{name: "list-of", apply: (*Resolver).listOf},
		{name: "or-null", apply: (*Resolver).orNull},
	}
}

// Resolve renders raw as a LuaLS type. It never fails: unknown tokens are
// reported once to the tracker and passed through unchanged.
func (r *Resolver) Resolve(raw string) string {
	expr := StripAnnotations(raw)
	for _, rl := range rules {
		if out, ok := rl.apply(r, expr); ok {
			return out
		}
	}
	return r.leaf(expr)
}

// ResolveList resolves each top-level comma segment of an operator's
// inputs or outputs. A nil description yields nil.
func (r *Resolver) ResolveList(raw *string) []string {
	if raw == nil {
		return nil
	}
	parts := Split(*raw)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, r.Resolve(part))
	}
	return out
}

func (r *Resolver) special(expr string) (string, bool) {
	out, ok := r.tables.Specials[strings.ToLower(expr)]
	return out, ok
}

func (r *Resolver) empty(expr string) (string, bool) {
	if expr != "" {
		return "", false
	}
	return r.tables.catchAll(), true
}

// malformed sends unbalanced input straight to the leaf fallback
func (r *Resolver) malformed(expr string) (string, bool) {
	if balanced(expr) {
		return "", false
	}
	return r.leaf(expr), true
}

func (r *Resolver) optional(expr string) (string, bool) {
	inner, ok := strings.CutSuffix(expr, "?")
	if !ok {
		return "", false
	}
	return r.nullable(r.Resolve(inner)), true
}

func (r *Resolver) union(expr string) (string, bool) {
	if !hasTopLevel(expr, isUnionMarker) {
		return "", false
	}

	var branches []string
	seen := make(map[string]bool)
	for _, part := range splitTopLevel(expr, isUnionMarker) {
		branch := r.Resolve(part)
		if seen[branch] {
			continue
		}
		seen[branch] = true
		branches = append(branches, branch)
	}

	switch len(branches) {
	case 0:
		return r.tables.catchAll(), true
	case 1:
		return branches[0], true
	}
	return "(" + strings.Join(branches, " | ") + ")", true
}

func (r *Resolver) array(expr string) (string, bool) {
	if !enclosedBy(expr, '[', ']') {
		return "", false
	}
	parts := Split(expr[1 : len(expr)-1])
	switch len(parts) {
	case 0:
		return r.arrayOf(r.tables.catchAll()), true
	case 1:
		return r.arrayOf(r.Resolve(parts[0])), true
	}
	return r.tuple(parts), true
}

func (r *Resolver) group(expr string) (string, bool) {
	if !enclosedBy(expr, '(', ')') {
		return "", false
	}
	inner := strings.TrimSpace(expr[1 : len(expr)-1])
	if hasTopLevel(inner, isComma) {
		return r.tuple(Split(inner)), true
	}
	return r.Resolve(inner), true
}

func (r *Resolver) listOf(expr string) (string, bool) {
	const prefix = "list of "
	if len(expr) < len(prefix) || !strings.EqualFold(expr[:len(prefix)], prefix) {
		return "", false
	}
	return r.arrayOf(r.Resolve(expr[len(prefix):])), true
}

func (r *Resolver) orNull(expr string) (string, bool) {
	const suffix = " or null"
	if len(expr) < len(suffix) || !strings.EqualFold(expr[len(expr)-len(suffix):], suffix) {
		return "", false
	}
	return r.nullable(r.Resolve(expr[:len(expr)-len(suffix)])), true
}

// leaf looks token up in the tables, then tries singular forms, and
// finally reports it as unknown and returns it verbatim.
func (r *Resolver) leaf(token string) string {
	if out, ok := r.tables.Lookup(token); ok {
		return out
	}
	for _, singular := range singulars(token) {
		if out, ok := r.tables.Lookup(singular); ok {
			return out
		}
	}
	r.tracker.ReportOnce(token)
	return token
}

// singulars lists the singular candidates for a plural token, in the
// order they should be tried. An "ies" token yields both the "y" form and
// the plain "s"-dropped form, so "zombies" can still find "zombie".
func singulars(token string) []string {
	lower := strings.ToLower(token)
	var out []string
	if strings.HasSuffix(lower, "ies") && len(lower) > 3 {
		out = append(out, lower[:len(lower)-3]+"y")
	}
	if strings.HasSuffix(lower, "s") && len(lower) > 1 {
		out = append(out, lower[:len(lower)-1])
	}
	return out
}

func (r *Resolver) nullable(t string) string {
	return t + " | " + r.tables.null()
}

// simpleType matches renderings that can take a "[]" suffix unparenthesized
var simpleType = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*(\[\])*$`)

func (r *Resolver) arrayOf(elem string) string {
	if simpleType.MatchString(elem) || enclosedBy(elem, '(', ')') {
		return elem + "[]"
	}
	return "(" + elem + ")[]"
}

func (r *Resolver) tuple(parts []string) string {
	elems := make([]string, len(parts))
	for i, part := range parts {
		elems[i] = r.Resolve(part)
	}
	return "[" + strings.Join(elems, ", ") + "]"
}
