// internal/template/render.go
package template

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
)

// Deliberately a data-substitution language, not a scripting language:
// no expressions, no conditionals. Member-authored templates stay safe to
// render server-side.

const dateLayout = "January 2, 2006"

var (
	tokenRe = regexp.MustCompile(`\{\{([@A-Za-z_][A-Za-z0-9_.@]*)\}\}`)
	eachRe  = regexp.MustCompile(`(?s)\{\{#each ([A-Za-z_][A-Za-z0-9_.]*)\}\}(.*?)\{\{/each\}\}`)
)

// Render merges ctx into tpl. Tokens look like {{path.to.value}} and are
// resolved by walking ctx key by key; a token whose path does not resolve
// is left in the output untouched so authors can preview partially filled
// templates. Repeated blocks use {{#each name}}...{{/each}} with
// {{this.field}} bound to the current element and {{@index}} to its
// 1-based position. Same input always produces the same output.
//
// Everything is rendered in a single pass over the template text:
// substituted values are never rescanned, so data that happens to contain
// token syntax comes out literally instead of pulling other context values
// into the output.
func Render(tpl string, ctx map[string]any) string {
	var b strings.Builder
	last := 0
	for _, loc := range eachRe.FindAllStringSubmatchIndex(tpl, -1) {
		b.WriteString(substitute(tpl[last:loc[0]], ctx))
		b.WriteString(renderEach(tpl[loc[2]:loc[3]], tpl[loc[4]:loc[5]], ctx))
		last = loc[1]
	}
	b.WriteString(substitute(tpl[last:], ctx))
	return b.String()
}

// renderEach expands one block body per sequence element. The element and
// index are layered over the outer context, outer keys still visible.
func renderEach(name, body string, ctx map[string]any) string {
	val, ok := lookup(ctx, name)
	if !ok {
		return ""
	}
	seq := asSequence(val)
	if seq == nil {
		return ""
	}
	var b strings.Builder
	for i, item := range seq {
		scope := map[string]any{"this": item, "@index": i + 1}
		for k, v := range ctx {
			if _, taken := scope[k]; !taken {
				scope[k] = v
			}
		}
		b.WriteString(substitute(body, scope))
	}
	return b.String()
}

func substitute(tpl string, ctx map[string]any) string {
	return tokenRe.ReplaceAllStringFunc(tpl, func(token string) string {
		path := token[2 : len(token)-2]
		val, ok := lookup(ctx, path)
		if !ok {
			return token
		}
		return formatValue(val)
	})
}

// lookup walks a dotted path through nested maps. Missing segments fail
// soft: the caller leaves the literal token in place.
func lookup(ctx map[string]any, path string) (any, bool) {
	var cur any = ctx
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]string:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format(dateLayout)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(dateLayout)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// asSequence normalizes any slice value to []any; non-sequences return nil
// so the each block renders empty.
func asSequence(v any) []any {
	if items, ok := v.([]any); ok {
		return items
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil
	}
	items := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items[i] = rv.Index(i).Interface()
	}
	return items
}
