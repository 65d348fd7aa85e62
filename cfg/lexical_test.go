package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

//
// ========== CLASSIFICATION TESTS ==========
//

func TestClassify(t *testing.T) {
	cases := []struct {
		text string
		want StatementType
	}{
		{"if (x > 0)", StatementConditional},
		{"switch (mode)", StatementConditional},
		{"while (i < n)", StatementLoop},
		{"for (i = 0; i < n; i++)", StatementLoop},
		{"return x;", StatementReturn},
		{"int x = 5;", StatementDeclaration},
		{"char *buf;", StatementDeclaration},
		{"x = y + 1;", StatementAssignment},
		{"x += 2;", StatementAssignment},
		{"printf(fmt);", StatementFunctionCall},
		{"x > y", StatementOther},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.text), "text: %s", tc.text)
	}
}

//
// ========== DEF/USE DERIVATION TESTS ==========
//

func TestDeriveDefUse_Declaration(t *testing.T) {
	stmt := &Statement{ID: "s0", Text: "int x = y + 1;"}
	DeriveDefUse(stmt)

	assert.Equal(t, []string{"x"}, stmt.Defined)
	assert.Equal(t, []string{"y"}, stmt.Used)
}

func TestDeriveDefUse_DeclarationNoInit(t *testing.T) {
	stmt := &Statement{ID: "s0", Text: "char *buf;"}
	DeriveDefUse(stmt)

	assert.Equal(t, []string{"buf"}, stmt.Defined)
	assert.Empty(t, stmt.Used)
}

func TestDeriveDefUse_Assignment(t *testing.T) {
	stmt := &Statement{ID: "s0", Text: "x = a + b;"}
	DeriveDefUse(stmt)

	assert.Equal(t, []string{"x"}, stmt.Defined)
	assert.Equal(t, []string{"a", "b"}, stmt.Used)
}

func TestDeriveDefUse_CompoundAssignment(t *testing.T) {
	stmt := &Statement{ID: "s0", Text: "i += step;"}
	DeriveDefUse(stmt)

	assert.Equal(t, []string{"i"}, stmt.Defined)
	assert.Contains(t, stmt.Used, "i")
	assert.Contains(t, stmt.Used, "step")
}

func TestDeriveDefUse_ComparisonIsNotAssignment(t *testing.T) {
	stmt := &Statement{ID: "s0", Text: "x == y"}
	DeriveDefUse(stmt)

	assert.Empty(t, stmt.Defined)
	assert.ElementsMatch(t, []string{"x", "y"}, stmt.Used)
}

func TestDeriveDefUse_FunctionCall(t *testing.T) {
	stmt := &Statement{ID: "s0", Text: `scanf("%d", &count);`}
	DeriveDefUse(stmt)

	assert.Empty(t, stmt.Defined)
	assert.Equal(t, []string{"count"}, stmt.Used)
}

func TestDeriveDefUse_AssignmentFromCall(t *testing.T) {
	stmt := &Statement{ID: "s0", Text: "n = strlen(s);"}
	DeriveDefUse(stmt)

	assert.Equal(t, []string{"n"}, stmt.Defined)
	assert.Equal(t, []string{"s"}, stmt.Used)
}

func TestDeriveDefUse_Return(t *testing.T) {
	stmt := &Statement{ID: "s0", Text: "return a * b;"}
	DeriveDefUse(stmt)

	assert.Empty(t, stmt.Defined)
	assert.ElementsMatch(t, []string{"a", "b"}, stmt.Used)
}

func TestDeriveDefUse_PointerPrefixStripped(t *testing.T) {
	stmt := &Statement{ID: "s0", Text: "*dst = *src;"}
	DeriveDefUse(stmt)

	assert.Equal(t, []string{"dst"}, stmt.Defined)
	assert.Equal(t, []string{"src"}, stmt.Used)
}

func TestDeriveDefUse_PrepopulatedSetsUntouched(t *testing.T) {
	stmt := &Statement{ID: "s0", Text: "x = y;", Defined: []string{"z"}}
	DeriveDefUse(stmt)

	assert.Equal(t, []string{"z"}, stmt.Defined)
	assert.Empty(t, stmt.Used)
}

func TestDeriveDefUse_ReservedWordsFiltered(t *testing.T) {
	stmt := &Statement{ID: "s0", Text: "return x;"}
	DeriveDefUse(stmt)
	assert.NotContains(t, stmt.Used, "return")
}

//
// ========== PARAMETER DERIVATION TESTS ==========
//

func TestDeriveParameters_Simple(t *testing.T) {
	params, ok := DeriveParameters("int main(int argc, char **argv)", "main")
	assert.True(t, ok)
	assert.Equal(t, []string{"argc", "argv"}, params)
}

func TestDeriveParameters_PointerReturn(t *testing.T) {
	params, ok := DeriveParameters("char *dup(const char *s, size_t n)", "dup")
	assert.True(t, ok)
	assert.Equal(t, []string{"s", "n"}, params)
}

func TestDeriveParameters_Void(t *testing.T) {
	params, ok := DeriveParameters("void init(void)", "init")
	assert.True(t, ok)
	assert.Empty(t, params)
}

func TestDeriveParameters_NoMatch(t *testing.T) {
	_, ok := DeriveParameters("not a signature", "main")
	assert.False(t, ok)
}

func TestDeriveParameters_ArrayParameter(t *testing.T) {
	params, ok := DeriveParameters("void fill(char buf[], int n)", "fill")
	assert.True(t, ok)
	assert.Equal(t, []string{"buf", "n"}, params)
}
