// Package wql parses the weft query language, a tiny textual form for query
// parameters: `Position & !Frozen & ANY(Cat, Dog) & ADDED(Health)`.
package wql

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/rotisserie/eris"

	"github.com/weftworks/weft/filter"
	"github.com/weftworks/weft/trait"
)

type wqlTrait struct {
	Name string `@Ident`
}

type wqlNot struct {
	Trait *wqlTrait `"!" @@`
}

type wqlAny struct {
	Traits []*wqlTrait `"ANY" "(" (@@ ",")* @@ ")"`
}

type wqlTracked struct {
	Kind  string    `@("ADDED" | "REMOVED" | "CHANGED")`
	Trait *wqlTrait `"(" @@ ")"`
}

type wqlValue struct {
	Any     *wqlAny     `@@`
	Tracked *wqlTracked `| @@`
	Not     *wqlNot     `| @@`
	Trait   *wqlTrait   `| @@`
}

type wqlTerm struct {
	Left  *wqlValue   `@@`
	Right []*wqlValue `("&" @@)*`
}

// Display

func (a *wqlAny) String() string {
	parameters := ""
	for i, t := range a.Traits {
		parameters += t.Name
		if i < len(a.Traits)-1 {
			parameters += ", "
		}
	}
	return "ANY(" + parameters + ")"
}

func (v *wqlValue) String() string {
	switch {
	case v.Any != nil:
		return v.Any.String()
	case v.Tracked != nil:
		return v.Tracked.Kind + "(" + v.Tracked.Trait.Name + ")"
	case v.Not != nil:
		return "!" + v.Not.Trait.Name
	case v.Trait != nil:
		return v.Trait.Name
	}
	panic("logic error displaying WQL ast. Check the code in wql.go")
}

func (t *wqlTerm) String() string {
	out := []string{t.Left.String()}
	for _, v := range t.Right {
		out = append(out, v.String())
	}
	return strings.Join(out, " & ")
}

var internalWQLParser = participle.MustBuild[wqlTerm]()

// Resolver maps a trait name in query text to the trait value it denotes.
type Resolver func(name string) (*trait.Trait, error)

func valueToParam(value *wqlValue, resolve Resolver) (filter.Param, error) {
	switch {
	case value.Any != nil:
		if len(value.Any.Traits) == 0 {
			return filter.Param{}, eris.New("ANY cannot have zero parameters")
		}
		traits := make([]*trait.Trait, 0, len(value.Any.Traits))
		for _, wt := range value.Any.Traits {
			t, err := resolve(wt.Name)
			if err != nil {
				return filter.Param{}, eris.Wrap(err, "")
			}
			traits = append(traits, t)
		}
		return filter.Any(traits...), nil
	case value.Tracked != nil:
		t, err := resolve(value.Tracked.Trait.Name)
		if err != nil {
			return filter.Param{}, eris.Wrap(err, "")
		}
		switch value.Tracked.Kind {
		case "ADDED":
			return filter.NewAdded().Of(t), nil
		case "REMOVED":
			return filter.NewRemoved().Of(t), nil
		case "CHANGED":
			return filter.NewChanged().Of(t), nil
		}
		return filter.Param{}, eris.Errorf("unknown tracked form %q", value.Tracked.Kind)
	case value.Not != nil:
		t, err := resolve(value.Not.Trait.Name)
		if err != nil {
			return filter.Param{}, eris.Wrap(err, "")
		}
		return filter.Not(t), nil
	case value.Trait != nil:
		t, err := resolve(value.Trait.Name)
		if err != nil {
			return filter.Param{}, eris.Wrap(err, "")
		}
		return filter.All(t), nil
	}
	return filter.Param{}, eris.New("unknown error during conversion from WQL AST to query parameters")
}

// Parse converts query text into a parameter list. Tracked forms mint a
// fresh modifier per call, so every parsed query has its own tracker state,
// which observes changes from the point the query is built onward.
func Parse(wqlText string, resolve Resolver) ([]filter.Param, error) {
	term, err := internalWQLParser.ParseString("", wqlText)
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	if term.Left == nil {
		return nil, eris.New("not enough values in expression")
	}
	params := make([]filter.Param, 0, 1+len(term.Right))
	p, err := valueToParam(term.Left, resolve)
	if err != nil {
		return nil, err
	}
	params = append(params, p)
	for _, value := range term.Right {
		p, err := valueToParam(value, resolve)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}
