// Package risk pre-screens employer messages for topics the assistant must
// never answer on its own. Matching is deterministic and needs no network.
package risk

import (
	"fmt"
	"regexp"
	"strings"
)

// Category of a detected risk.
type Category string

const (
	CategorySalary Category = "salary"
	CategoryLegal  Category = "legal"
)

// Signal describes the first pattern that matched a message.
type Signal struct {
	Category Category
	Reason   string
	Pattern  string
}

type rule struct {
	re       *regexp.Regexp
	category Category
}

// rules are checked in order; the first match wins.
var rules = compile([]struct {
	pattern  string
	category Category
}{
	{`maa[sş]`, CategorySalary},
	{`[üu]cret`, CategorySalary},
	{`br[üu]t`, CategorySalary},
	{`salary`, CategorySalary},
	{`s[öo]zle[sş]me`, CategoryLegal},
	{`contract` + wordEnd, CategoryLegal},
	{`hukuk`, CategoryLegal},
	{`avukat`, CategoryLegal},
	{`non[\s-]?compete`, CategoryLegal},
	{`non[\s-]?disclosure`, CategoryLegal},
	{`fikri m[üu]lkiyet`, CategoryLegal},
	{`tazminat`, CategoryLegal},
	{wordStart + `nda` + wordEnd, CategoryLegal},
})

// RE2's \b is ASCII-only and would split "hakkında" at the dotless ı,
// so word edges are spelled out over Unicode letters and digits.
const (
	wordStart = `(?:^|[^\p{L}\p{N}_])`
	wordEnd   = `(?:$|[^\p{L}\p{N}_])`
)

func compile(defs []struct {
	pattern  string
	category Category
}) []rule {
	out := make([]rule, len(defs))
	for i, d := range defs {
		out[i] = rule{re: regexp.MustCompile(d.pattern), category: d.category}
	}
	return out
}

// Check returns the first matching signal, or nil when the message is clean.
func Check(message string) *Signal {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return nil
	}
	for _, r := range rules {
		if r.re.MatchString(msg) {
			return &Signal{
				Category: r.category,
				Reason:   fmt.Sprintf("Anahtar kelime tespiti (%s)", r.category),
				Pattern:  r.re.String(),
			}
		}
	}
	return nil
}
