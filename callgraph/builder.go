package callgraph

import (
	"regexp"
	"strings"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/cfg"
	"github.com/shivasurya/code-pathfinder/dataflow-engine/extraction"
)

// Build constructs the call graph from the function table. Functions
// are indexed in the given order; every statement of every block is
// scanned with the call extractor, and call records are wired into the
// caller/callee indexes. Callees with no CFG become external nodes.
func Build(functions map[string]*cfg.FunctionCFG, order []string) *Graph {
	g := NewGraph()

	for _, name := range order {
		fn, ok := functions[name]
		if !ok {
			continue
		}
		params := make([]Parameter, len(fn.Parameters))
		for i, p := range fn.Parameters {
			params[i] = Parameter{Name: p, Index: i}
		}
		g.AddFunction(&FunctionNode{
			Name:       name,
			CFG:        fn,
			Parameters: params,
			ReturnType: inferReturnType(fn),
		})
	}

	for _, name := range order {
		fn, ok := functions[name]
		if !ok {
			continue
		}
		for _, block := range fn.BlocksInOrder() {
			for _, stmt := range block.Statements {
				for _, extracted := range extraction.ExtractCalls(stmt.Text) {
					if extracted.Name == fn.Name && isSignatureStatement(stmt, fn) {
						continue
					}
					if _, known := g.Functions[extracted.Name]; !known {
						g.AddFunction(&FunctionNode{
							Name:       extracted.Name,
							ReturnType: "unknown",
							IsExternal: true,
						})
					}
					g.AddCall(&Call{
						Caller:          name,
						Callee:          extracted.Name,
						BlockID:         block.ID,
						StatementID:     stmt.ID,
						StatementText:   extraction.Normalize(stmt.Text),
						Range:           stmt.Range,
						Arguments:       extracted.Arguments,
						ArgumentTypes:   inferArgumentTypes(extracted.Arguments),
						ReturnValueUsed: returnValueUsed(stmt.Text, extracted),
					})
				}
			}
		}
	}

	markRecursion(g)
	return g
}

// isSignatureStatement filters the function's own signature text,
// which some exporters place in the entry block and which would
// otherwise read as a self-call. A signature carries the function name
// but no assignment, no return and no statement terminator.
func isSignatureStatement(stmt *cfg.Statement, fn *cfg.FunctionCFG) bool {
	entry := fn.EntryBlock()
	if entry == nil || len(entry.Statements) == 0 || stmt.ID != entry.Statements[0].ID {
		return false
	}
	text := strings.TrimSpace(stmt.Text)
	if !strings.Contains(text, fn.Name) {
		return false
	}
	return !strings.HasPrefix(text, "return") &&
		!strings.Contains(text, "=") &&
		!strings.Contains(text, ";")
}

var assignPrefix = regexp.MustCompile(`^\s*(?:[A-Za-z_]\w*[\s\*]+)?[A-Za-z_]\w*\s*=[^=]`)

// returnValueUsed infers whether a call's result is consumed: the call
// appears on the right of an assignment, inside an if condition,
// inside a return, or as an operand of + or *.
func returnValueUsed(text string, call extraction.ExtractedCall) bool {
	normalized := extraction.Normalize(text)
	idx := strings.Index(normalized, call.Expression)
	if idx < 0 {
		idx = call.NameStart
	}
	prefix := normalized[:minInt(idx, len(normalized))]

	if assignPrefix.MatchString(normalized) && strings.Contains(prefix, "=") {
		return true
	}
	if strings.HasPrefix(strings.TrimSpace(normalized), "if") {
		return true
	}
	if strings.HasPrefix(strings.TrimSpace(normalized), "return") {
		return true
	}
	after := ""
	if end := idx + len(call.Expression); end <= len(normalized) {
		after = normalized[end:]
	}
	trimmedPrefix := strings.TrimSpace(prefix)
	trimmedAfter := strings.TrimSpace(after)
	if strings.HasSuffix(trimmedPrefix, "+") || strings.HasSuffix(trimmedPrefix, "*") ||
		strings.HasPrefix(trimmedAfter, "+") || strings.HasPrefix(trimmedAfter, "*") {
		return true
	}
	return false
}

// inferArgumentTypes applies a cheap lexical type guess per argument.
func inferArgumentTypes(args []string) []string {
	types := make([]string, len(args))
	for i, arg := range args {
		trimmed := strings.TrimSpace(arg)
		switch {
		case trimmed == "":
			types[i] = "unknown"
		case strings.HasPrefix(trimmed, "\""):
			types[i] = "char*"
		case strings.HasPrefix(trimmed, "'"):
			types[i] = "char"
		case strings.HasPrefix(trimmed, "&"):
			types[i] = "pointer"
		case isNumeric(trimmed):
			types[i] = "int"
		default:
			types[i] = "unknown"
		}
	}
	return types
}

func isNumeric(text string) bool {
	if text == "" {
		return false
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c >= '0' && c <= '9' || c == '.' || (i == 0 && c == '-') {
			continue
		}
		return false
	}
	return true
}

// inferReturnType guesses the return type from the signature statement
// in the entry block, defaulting to "unknown".
func inferReturnType(fn *cfg.FunctionCFG) string {
	entry := fn.EntryBlock()
	if entry == nil || len(entry.Statements) == 0 {
		return "unknown"
	}
	first := extraction.Normalize(entry.Statements[0].Text)
	nameIdx := strings.Index(first, fn.Name)
	if nameIdx <= 0 {
		return "unknown"
	}
	returnPart := strings.TrimSpace(first[:nameIdx])
	if returnPart == "" {
		return "unknown"
	}
	if strings.HasSuffix(returnPart, "*") {
		return strings.TrimSpace(strings.TrimSuffix(returnPart, "*")) + "*"
	}
	fields := strings.Fields(returnPart)
	return fields[len(fields)-1]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
