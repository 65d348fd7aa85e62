package cfg

import (
	"regexp"
	"strings"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/extraction"
)

// Formal parameter names are scraped from the function signature text
// when the exporter does not supply them: a return type (possibly
// pointered), the function name, then a parenthesized argument list.
// Each argument's last whitespace-separated token, stripped of *&[],
// is the parameter name.

var signatureDecor = strings.NewReplacer("*", " ", "&", " ", "[", " ", "]", " ")

// DeriveParameters parses parameter names from a function signature.
// Returns nil and false when the signature does not match the expected
// shape; callers emit a warning and proceed with an empty list.
//
// Example:
//
//	DeriveParameters("int main(int argc, char **argv)", "main")
//	→ ["argc", "argv"], true
func DeriveParameters(signature, functionName string) ([]string, bool) {
	pattern, err := regexp.Compile(
		`[A-Za-z_]\w*[\s\*]+` + regexp.QuoteMeta(functionName) + `\s*\(`)
	if err != nil {
		return nil, false
	}
	loc := pattern.FindStringIndex(signature)
	if loc == nil {
		return nil, false
	}

	open := strings.Index(signature[loc[0]:], "(")
	if open < 0 {
		return nil, false
	}
	open += loc[0]
	closing := matchingParen(signature, open)
	if closing < 0 {
		return nil, false
	}

	argList := signature[open+1 : closing]
	trimmed := strings.TrimSpace(argList)
	if trimmed == "" || trimmed == "void" {
		return []string{}, true
	}

	var params []string
	for _, arg := range extraction.SplitArguments(argList) {
		name := lastToken(arg)
		if name != "" {
			params = append(params, name)
		}
	}
	return params, true
}

// lastToken returns the last whitespace-separated token of a parameter
// declaration, stripped of pointer/reference/array decoration.
func lastToken(arg string) string {
	cleaned := signatureDecor.Replace(arg)
	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return ""
	}
	name := fields[len(fields)-1]
	if extraction.IsReservedKeyword(name) {
		// "char *" or "void" style unnamed parameter.
		return ""
	}
	return name
}

// matchingParen returns the index of the parenthesis closing the one
// at openIdx, or -1 when unbalanced.
func matchingParen(text string, openIdx int) int {
	depth := 0
	for i := openIdx; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
