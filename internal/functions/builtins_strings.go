package functions

import (
	"regexp"
	"strings"

	"github.com/funvibe/expreval/internal/values"
)

// StringOverloads returns contains, startsWith, endsWith and matches.
func StringOverloads() []*Overload {
	s := values.StringKind
	return []*Overload{
		{ID: "contains_string", Name: "contains", ReceiverStyle: true, Args: []values.Kind{s, s}, Strict: true, Impl: stringPredicate(strings.Contains)},
		{ID: "starts_with_string", Name: "startsWith", ReceiverStyle: true, Args: []values.Kind{s, s}, Strict: true, Impl: stringPredicate(strings.HasPrefix)},
		{ID: "ends_with_string", Name: "endsWith", ReceiverStyle: true, Args: []values.Kind{s, s}, Strict: true, Impl: stringPredicate(strings.HasSuffix)},
		{ID: "matches_string", Name: "matches", ReceiverStyle: true, Args: []values.Kind{s, s}, Strict: true, Impl: builtinMatches},
		{ID: "matches", Name: "matches", Args: []values.Kind{s, s}, Strict: true, Impl: builtinMatches},
	}
}

func stringPredicate(pred func(s, sub string) bool) Impl {
	return func(args ...values.Value) values.Value {
		return values.Bool(pred(string(args[0].(values.String)), string(args[1].(values.String))))
	}
}

// matches: (string, string) -> bool, RE2 syntax, unanchored.
func builtinMatches(args ...values.Value) values.Value {
	re, err := regexp.Compile(string(args[1].(values.String)))
	if err != nil {
		return values.NewError(values.ErrInvalidArgument, "invalid regular expression: %v", err)
	}
	return values.Bool(re.MatchString(string(args[0].(values.String))))
}
