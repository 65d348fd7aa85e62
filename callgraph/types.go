// Package callgraph builds the program call graph from the function
// CFG set, including recursion detection and caller/callee indexes.
package callgraph

import (
	"github.com/shivasurya/code-pathfinder/dataflow-engine/cfg"
)

// Parameter is one formal parameter with its positional index.
type Parameter struct {
	Name  string
	Index int
}

// FunctionNode is the call-graph metadata of one function.
type FunctionNode struct {
	// Name is the function name
	Name string

	// CFG is the function's control flow graph, nil for externals
	CFG *cfg.FunctionCFG

	// Parameters holds the formal parameters with positional indexes
	Parameters []Parameter

	// ReturnType is the inferred return type, "unknown" when nothing
	// could be inferred
	ReturnType string

	// IsExternal marks callees with no CFG in the function set; they
	// are handled by library summaries downstream
	IsExternal bool

	// IsRecursive marks direct or mutual recursion
	IsRecursive bool

	// IsTailRecursive annotates functions whose recursive call is the
	// last action on some path. Informational only.
	IsTailRecursive bool

	// CallCount is the number of call sites targeting this function
	CallCount int
}

// Call is one call site record.
type Call struct {
	// Caller and Callee are function names
	Caller string
	Callee string

	// BlockID and StatementID locate the call site in the caller's CFG
	BlockID     string
	StatementID string

	// StatementText is the caller statement containing the call,
	// normalized; used for return-receiver pattern matching
	StatementText string

	// Range is the caller-side source range, if known
	Range *cfg.Range

	// Arguments holds the actual argument expressions
	Arguments []string

	// ArgumentTypes holds the inferred argument types, parallel to
	// Arguments
	ArgumentTypes []string

	// ReturnValueUsed is true when the call's result feeds an
	// assignment, condition, return or arithmetic expression
	ReturnValueUsed bool
}

// Graph is the complete call graph.
type Graph struct {
	// Functions maps function name to its node
	Functions map[string]*FunctionNode

	// FunctionOrder holds function names in insertion order, CFG
	// functions first, externals as discovered
	FunctionOrder []string

	// Calls lists every call record in discovery order
	Calls []*Call

	// CallsFrom indexes calls by caller
	CallsFrom map[string][]*Call

	// CallsTo indexes calls by callee
	CallsTo map[string][]*Call
}

// NewGraph creates an empty call graph.
func NewGraph() *Graph {
	return &Graph{
		Functions: make(map[string]*FunctionNode),
		CallsFrom: make(map[string][]*Call),
		CallsTo:   make(map[string][]*Call),
	}
}

// AddFunction registers a function node, recording insertion order.
func (g *Graph) AddFunction(node *FunctionNode) {
	if _, exists := g.Functions[node.Name]; !exists {
		g.FunctionOrder = append(g.FunctionOrder, node.Name)
	}
	g.Functions[node.Name] = node
}

// AddCall registers a call record and updates both indexes.
func (g *Graph) AddCall(call *Call) {
	g.Calls = append(g.Calls, call)
	g.CallsFrom[call.Caller] = append(g.CallsFrom[call.Caller], call)
	g.CallsTo[call.Callee] = append(g.CallsTo[call.Callee], call)
	if node, ok := g.Functions[call.Callee]; ok {
		node.CallCount++
	}
}

// Callees returns the distinct callees of a function, in call order.
func (g *Graph) Callees(caller string) []string {
	var callees []string
	seen := make(map[string]bool)
	for _, call := range g.CallsFrom[caller] {
		if !seen[call.Callee] {
			seen[call.Callee] = true
			callees = append(callees, call.Callee)
		}
	}
	return callees
}

// Callers returns the distinct callers of a function, in call order.
func (g *Graph) Callers(callee string) []string {
	var callers []string
	seen := make(map[string]bool)
	for _, call := range g.CallsTo[callee] {
		if !seen[call.Caller] {
			seen[call.Caller] = true
			callers = append(callers, call.Caller)
		}
	}
	return callers
}

// FunctionsInOrder returns the nodes in insertion order.
func (g *Graph) FunctionsInOrder() []*FunctionNode {
	nodes := make([]*FunctionNode, 0, len(g.FunctionOrder))
	for _, name := range g.FunctionOrder {
		if node, ok := g.Functions[name]; ok {
			nodes = append(nodes, node)
		}
	}
	return nodes
}
