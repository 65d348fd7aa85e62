package cfg

import (
	"regexp"
	"strings"

	"github.com/shivasurya/code-pathfinder/dataflow-engine/extraction"
)

// The external CFG exporter ships statement text only; defined/used
// variable sets are derived here by a lexical pass. The pass is
// heuristic by design: it recognizes declarations, assignments, calls
// and returns in that order, and falls back to bare identifier uses.

var (
	declPattern = regexp.MustCompile(
		`^\s*(?:(?:const|static|register|unsigned|signed|struct|volatile)\s+)*` +
			`(?:int|float|double|char|void|bool|long|short|size_t|ssize_t|FILE|[A-Za-z_]\w*_t)` +
			`[\s\*]+([A-Za-z_]\w*)\s*(?:\[[^\]]*\])?\s*(?:=\s*(.+?))?;?\s*$`)

	conditionalPattern = regexp.MustCompile(`^\s*(?:if|switch)\b`)
	loopPattern        = regexp.MustCompile(`^\s*(?:for|while|do)\b`)
	returnPattern      = regexp.MustCompile(`^\s*return\b`)
)

// lexicalReserved is the filter applied to derived variable names.
// scanf and printf appear here because their bare names show up in
// exporter text where they are callees, never variables.
var lexicalReserved = map[string]bool{
	"int": true, "float": true, "double": true, "char": true, "void": true,
	"bool": true, "long": true, "short": true, "unsigned": true,
	"return": true, "if": true, "else": true, "for": true, "while": true,
	"scanf": true, "printf": true,
}

// Classify determines the StatementType of raw statement text.
// The fallback is StatementOther, which carries no special semantics.
func Classify(text string) StatementType {
	normalized := extraction.Normalize(text)
	switch {
	case conditionalPattern.MatchString(normalized):
		return StatementConditional
	case loopPattern.MatchString(normalized):
		return StatementLoop
	case returnPattern.MatchString(normalized):
		return StatementReturn
	case declPattern.MatchString(normalized):
		return StatementDeclaration
	case findTopLevelAssign(normalized) >= 0:
		return StatementAssignment
	case len(extraction.ExtractCalls(normalized)) > 0:
		return StatementFunctionCall
	default:
		return StatementOther
	}
}

// DeriveDefUse populates the Defined and Used sets of a statement from
// its text. Pre-populated sets are left untouched so the exporter (or
// a test) can override the lexical pass.
func DeriveDefUse(stmt *Statement) {
	if len(stmt.Defined) > 0 || len(stmt.Used) > 0 {
		return
	}

	text := extraction.Normalize(stmt.Text)

	// Declaration: type name [= expr]
	if m := declPattern.FindStringSubmatch(text); m != nil {
		stmt.AddDefined(m[1])
		if m[2] != "" {
			for _, name := range usedIdentifiers(m[2]) {
				stmt.AddUsed(name)
			}
		}
		return
	}

	// Assignment: lhs = rhs (comparison operators excluded).
	if idx := findTopLevelAssign(text); idx >= 0 {
		lhs := text[:idx]
		rhs := text[idx+1:]
		compound := idx > 0 && strings.ContainsRune("+-*/%&|^", rune(text[idx-1]))
		if compound {
			lhs = text[:idx-1]
		}
		lhsName := firstIdentifier(lhs)
		if lhsName != "" {
			stmt.AddDefined(lhsName)
		}
		// Compound assignment and subscripted stores read the target too.
		if compound || strings.Contains(lhs, "[") {
			stmt.AddUsed(lhsName)
		}
		for _, name := range usedIdentifiers(lhs) {
			if name != lhsName {
				stmt.AddUsed(name)
			}
		}
		for _, name := range usedIdentifiers(rhs) {
			stmt.AddUsed(name)
		}
		return
	}

	// Function call: arguments are uses, nothing is defined.
	if calls := extraction.ExtractCalls(text); len(calls) > 0 {
		for _, call := range calls {
			for _, arg := range call.Arguments {
				for _, name := range usedIdentifiers(arg) {
					stmt.AddUsed(name)
				}
			}
		}
		return
	}

	// Return: the expression is a use.
	if returnPattern.MatchString(text) {
		expr := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "return"))
		expr = strings.TrimSuffix(expr, ";")
		for _, name := range usedIdentifiers(expr) {
			stmt.AddUsed(name)
		}
		return
	}

	// Anything else: bare identifiers are uses.
	for _, name := range usedIdentifiers(text) {
		stmt.AddUsed(name)
	}
}

// DeriveDefUseAll runs DeriveDefUse over every statement of the CFG.
func (fc *FunctionCFG) DeriveDefUseAll() {
	for _, block := range fc.BlocksInOrder() {
		for _, stmt := range block.Statements {
			DeriveDefUse(stmt)
		}
	}
}

// findTopLevelAssign returns the index of the first top-level '=' that
// is an assignment operator, or -1. Comparison operators (==, !=, <=,
// >=) never count; compound assignments (+=, -=, ...) return the index
// of the '='.
func findTopLevelAssign(text string) int {
	depth := 0
	inString := byte(0)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString != 0 {
			if c == '\\' {
				i++
			} else if c == inString {
				inString = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '=':
			if depth != 0 {
				continue
			}
			if i+1 < len(text) && text[i+1] == '=' {
				i++
				continue
			}
			if i > 0 && (text[i-1] == '=' || text[i-1] == '!' || text[i-1] == '<' || text[i-1] == '>') {
				continue
			}
			return i
		}
	}
	return -1
}

// firstIdentifier returns the first identifier of text with pointer
// prefixes (*, &) stripped, or "" when none is found.
func firstIdentifier(text string) string {
	for i := 0; i < len(text); i++ {
		if text[i] == '*' || text[i] == '&' || text[i] == ' ' || text[i] == '\t' || text[i] == '(' {
			continue
		}
		if text[i] >= 'a' && text[i] <= 'z' || text[i] >= 'A' && text[i] <= 'Z' || text[i] == '_' {
			start := i
			for i < len(text) && (text[i] == '_' ||
				text[i] >= 'a' && text[i] <= 'z' ||
				text[i] >= 'A' && text[i] <= 'Z' ||
				text[i] >= '0' && text[i] <= '9') {
				i++
			}
			name := text[start:i]
			if lexicalReserved[name] {
				// Skip a leading type word and keep scanning.
				continue
			}
			return name
		}
		break
	}
	return ""
}

// usedIdentifiers collects identifier tokens from expression text,
// filtering reserved words, callee names and string literal contents,
// stripping * and &.
func usedIdentifiers(text string) []string {
	var names []string
	i := 0
	for i < len(text) {
		c := text[i]
		if c == '"' || c == '\'' {
			i = skipStringLiteral(text, i)
			continue
		}
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			i++
			continue
		}
		start := i
		for i < len(text) && (text[i] == '_' ||
			text[i] >= 'a' && text[i] <= 'z' ||
			text[i] >= 'A' && text[i] <= 'Z' ||
			text[i] >= '0' && text[i] <= '9') {
			i++
		}
		name := text[start:i]
		j := i
		for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
			j++
		}
		if j < len(text) && text[j] == '(' {
			// Callee, not a variable.
			continue
		}
		if lexicalReserved[name] || extraction.IsReservedKeyword(name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// skipStringLiteral advances past a quoted literal starting at i.
func skipStringLiteral(text string, i int) int {
	quote := text[i]
	i++
	for i < len(text) {
		if text[i] == '\\' {
			i += 2
			continue
		}
		if text[i] == quote {
			return i + 1
		}
		i++
	}
	return i
}
