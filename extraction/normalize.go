package extraction

import (
	"regexp"
	"strings"
)

// Clang CFG statement text can carry artifacts that are not part of the
// original source: recovery expression wrappers emitted for code that
// failed semantic analysis, block references, and implicit cast
// annotations. Normalize strips all of them so downstream passes see
// plain C/C++ expression text.

var (
	blockRefPattern = regexp.MustCompile(`\[B\d+\.\d+\]`)
	castPattern     = regexp.MustCompile(`\b(ImplicitCastExpr|LValueToRValue|FunctionToPointerDecay|ArrayToPointerDecay)\b\s*`)
)

// Normalize removes clang CFG artifacts from statement text.
// It strips, in order:
//   - recovery wrappers:    <recovery-expr>(F, args)  →  F(args)
//   - block references:     [B3.2](e)                 →  (e)
//   - cast annotations:     ImplicitCastExpr, LValueToRValue,
//     FunctionToPointerDecay, ArrayToPointerDecay
func Normalize(text string) string {
	text = stripRecoveryExprs(text)
	text = blockRefPattern.ReplaceAllString(text, "")
	text = castPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// stripRecoveryExprs rewrites every <recovery-expr>(F, args) wrapper
// into F(args). With a single operand, <recovery-expr>(F) becomes F.
// A wrapper with unmatched parentheses loses only its marker; its text
// is kept and scanning continues.
func stripRecoveryExprs(text string) string {
	const marker = "<recovery-expr>"
	for {
		idx := strings.Index(text, marker)
		if idx < 0 {
			return text
		}
		open := idx + len(marker)
		if open >= len(text) || text[open] != '(' {
			// Marker with no parenthesized operand: drop the marker only.
			text = text[:idx] + text[open:]
			continue
		}
		closing := matchParen(text, open)
		if closing < 0 {
			// Unbalanced wrapper, drop the marker and keep scanning.
			text = text[:idx] + text[open:]
			continue
		}
		inner := text[open+1 : closing]
		callee, args, hasArgs := splitHeadArgs(inner)
		var rewritten string
		if hasArgs {
			rewritten = callee + "(" + args + ")"
		} else {
			rewritten = callee
		}
		text = text[:idx] + rewritten + text[closing+1:]
	}
}

// splitHeadArgs splits "F, a, b" into ("F", "a, b", true) on the first
// top-level comma. Without a top-level comma it returns (inner, "", false).
func splitHeadArgs(inner string) (head, args string, hasArgs bool) {
	depth := 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				return strings.TrimSpace(inner[:i]), strings.TrimSpace(inner[i+1:]), true
			}
		}
	}
	return strings.TrimSpace(inner), "", false
}

// matchParen returns the index of the parenthesis closing the one at
// openIdx, or -1 if the text is unbalanced.
func matchParen(text string, openIdx int) int {
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

// reservedKeywords are C/C++ keywords and type names that can precede a
// parenthesis without being a function call.
var reservedKeywords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "do": true,
	"switch": true, "case": true, "return": true, "sizeof": true,
	"int": true, "float": true, "double": true, "char": true, "void": true,
	"bool": true, "long": true, "short": true, "unsigned": true,
	"signed": true, "struct": true, "union": true, "enum": true,
	"const": true, "static": true, "auto": true, "typedef": true,
	"static_cast": true, "dynamic_cast": true, "reinterpret_cast": true,
	"const_cast": true, "new": true, "delete": true, "defined": true,
	"goto": true, "break": true, "continue": true,
}

// IsReservedKeyword returns true for C/C++ keywords and builtin type
// names. Reserved words are never treated as callees or variables.
func IsReservedKeyword(name string) bool {
	return reservedKeywords[name]
}

// isIdentStart reports whether c can start a C identifier.
func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isIdentPart reports whether c can continue a C identifier.
func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
