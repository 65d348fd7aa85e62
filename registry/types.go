package registry

// TaintSourceCategory classifies where untrusted data enters the program.
type TaintSourceCategory string

const (
	CategoryUserInput     TaintSourceCategory = "user_input"
	CategoryFileIO        TaintSourceCategory = "file_io"
	CategoryNetwork       TaintSourceCategory = "network"
	CategoryEnvironment   TaintSourceCategory = "environment"
	CategoryCommandLine   TaintSourceCategory = "command_line"
	CategoryDatabase      TaintSourceCategory = "database"
	CategoryConfiguration TaintSourceCategory = "configuration"
)

// TaintSinkCategory classifies dangerous use sites.
type TaintSinkCategory string

const (
	SinkSQLQuery         TaintSinkCategory = "sql_query"
	SinkCommandExecution TaintSinkCategory = "command_execution"
	SinkFormatString     TaintSinkCategory = "format_string"
	SinkFileSystem       TaintSinkCategory = "file_system"
	SinkBufferOperation  TaintSinkCategory = "buffer_operation"
	SinkCodeEvaluation   TaintSinkCategory = "code_evaluation"
	SinkMemoryAllocation TaintSinkCategory = "memory_allocation"
)

// TaintType classifies the shape of the tainted value.
type TaintType string

const (
	TaintString  TaintType = "string"
	TaintBuffer  TaintType = "buffer"
	TaintInteger TaintType = "integer"
	TaintPointer TaintType = "pointer"
)

// SanitizationType classifies how a sanitizer declassifies data.
type SanitizationType string

const (
	SanitizeHTMLEscape    SanitizationType = "html_escape"
	SanitizeURLEncode     SanitizationType = "url_encode"
	SanitizeSQLEscape     SanitizationType = "sql_escape"
	SanitizeShellEscape   SanitizationType = "shell_escape"
	SanitizePathCanonical SanitizationType = "path_canonicalize"
	SanitizeBoundsCheck   SanitizationType = "bounds_check"
	SanitizeValidation    SanitizationType = "input_validation"
)

// Severity ranks findings.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// VulnerabilityType names the weakness class a sink maps to.
type VulnerabilityType string

const (
	VulnSQLInjection     VulnerabilityType = "sql_injection"
	VulnCommandInjection VulnerabilityType = "command_injection"
	VulnFormatString     VulnerabilityType = "format_string"
	VulnPathTraversal    VulnerabilityType = "path_traversal"
	VulnBufferOverflow   VulnerabilityType = "buffer_overflow"
	VulnCodeInjection    VulnerabilityType = "code_injection"
	VulnIntegerOverflow  VulnerabilityType = "integer_overflow"
)

// SourceMechanism describes how the tainted variable is located at a
// source call site.
type SourceMechanism string

const (
	// MechanismAddressOfArg taints the first address-of operand:
	// scanf("%d", &x) taints x.
	MechanismAddressOfArg SourceMechanism = "address_of_arg"

	// MechanismArgIndex taints the argument at a fixed index:
	// read(fd, buf, n) taints buf (index 1).
	MechanismArgIndex SourceMechanism = "arg_index"

	// MechanismReturnValue taints the left-hand side of the enclosing
	// assignment: p = getenv("X") taints p.
	MechanismReturnValue SourceMechanism = "return_value"
)

// TaintSource describes one function that introduces untrusted data.
type TaintSource struct {
	Name        string              `yaml:"name"`
	Category    TaintSourceCategory `yaml:"category"`
	TaintType   TaintType           `yaml:"taintType"`
	Mechanism   SourceMechanism     `yaml:"mechanism"`
	ArgIndex    int                 `yaml:"argIndex"`
	Description string              `yaml:"description"`
}

// TaintSink describes one function where tainted data is dangerous.
type TaintSink struct {
	Name        string            `yaml:"name"`
	Category    TaintSinkCategory `yaml:"category"`
	Severity    Severity          `yaml:"severity"`
	CWE         string            `yaml:"cwe"`
	DangerousArgs []int           `yaml:"dangerousArgs"`
	Description string            `yaml:"description"`
}

// Sanitizer describes one function that declassifies tainted data.
type Sanitizer struct {
	Name         string           `yaml:"name"`
	Type         SanitizationType `yaml:"type"`
	RemovesTaint bool             `yaml:"removesTaint"`
	InputArg     int              `yaml:"inputArg"`
	Description  string           `yaml:"description"`
}

// LibrarySummary models taint flow through an external function with
// no CFG: taint on any source parameter flows to every sink parameter
// and, optionally, to the return value.
type LibrarySummary struct {
	Name         string `yaml:"name"`
	SourceParams []int  `yaml:"sourceParams"`
	SinkParams   []int  `yaml:"sinkParams"`
	TaintsReturn bool   `yaml:"taintsReturn"`
	Description  string `yaml:"description"`
}

// VulnerabilityTypeFor maps a sink category to its weakness class.
func VulnerabilityTypeFor(category TaintSinkCategory) VulnerabilityType {
	switch category {
	case SinkSQLQuery:
		return VulnSQLInjection
	case SinkCommandExecution:
		return VulnCommandInjection
	case SinkFormatString:
		return VulnFormatString
	case SinkFileSystem:
		return VulnPathTraversal
	case SinkBufferOperation:
		return VulnBufferOverflow
	case SinkCodeEvaluation:
		return VulnCodeInjection
	case SinkMemoryAllocation:
		return VulnIntegerOverflow
	default:
		return VulnCommandInjection
	}
}

// CWEFor maps a weakness class to its CWE identifier.
func CWEFor(vulnType VulnerabilityType) string {
	switch vulnType {
	case VulnSQLInjection:
		return "CWE-89"
	case VulnCommandInjection:
		return "CWE-78"
	case VulnFormatString:
		return "CWE-134"
	case VulnPathTraversal:
		return "CWE-22"
	case VulnBufferOverflow:
		return "CWE-120"
	case VulnCodeInjection:
		return "CWE-94"
	case VulnIntegerOverflow:
		return "CWE-190"
	default:
		return ""
	}
}

// SeverityRank orders severities for sorting and filtering.
// Higher is more severe.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}
