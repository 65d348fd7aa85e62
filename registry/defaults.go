package registry

// Default tables covering stdio, POSIX, OpenSSL, SQL client libraries
// and common sanitizers. These ship with the engine; custom entries
// are layered on top via AddCustom*/overlay files.

func defaultSources() []TaintSource {
	return []TaintSource{
		// stdio
		{Name: "scanf", Category: CategoryUserInput, TaintType: TaintString, Mechanism: MechanismAddressOfArg, Description: "formatted input from stdin"},
		{Name: "fscanf", Category: CategoryFileIO, TaintType: TaintString, Mechanism: MechanismAddressOfArg, Description: "formatted input from a stream"},
		{Name: "sscanf", Category: CategoryUserInput, TaintType: TaintString, Mechanism: MechanismAddressOfArg, Description: "formatted input from a string"},
		{Name: "gets", Category: CategoryUserInput, TaintType: TaintBuffer, Mechanism: MechanismArgIndex, ArgIndex: 0, Description: "unbounded line from stdin"},
		{Name: "fgets", Category: CategoryFileIO, TaintType: TaintBuffer, Mechanism: MechanismArgIndex, ArgIndex: 0, Description: "line from a stream"},
		{Name: "fread", Category: CategoryFileIO, TaintType: TaintBuffer, Mechanism: MechanismArgIndex, ArgIndex: 0, Description: "raw bytes from a stream"},
		{Name: "getchar", Category: CategoryUserInput, TaintType: TaintInteger, Mechanism: MechanismReturnValue, Description: "single character from stdin"},
		{Name: "getline", Category: CategoryFileIO, TaintType: TaintBuffer, Mechanism: MechanismArgIndex, ArgIndex: 0, Description: "line from a stream"},

		// POSIX
		{Name: "read", Category: CategoryFileIO, TaintType: TaintBuffer, Mechanism: MechanismArgIndex, ArgIndex: 1, Description: "bytes from a file descriptor"},
		{Name: "pread", Category: CategoryFileIO, TaintType: TaintBuffer, Mechanism: MechanismArgIndex, ArgIndex: 1, Description: "positioned read from a file descriptor"},
		{Name: "recv", Category: CategoryNetwork, TaintType: TaintBuffer, Mechanism: MechanismArgIndex, ArgIndex: 1, Description: "bytes from a socket"},
		{Name: "recvfrom", Category: CategoryNetwork, TaintType: TaintBuffer, Mechanism: MechanismArgIndex, ArgIndex: 1, Description: "datagram from a socket"},
		{Name: "recvmsg", Category: CategoryNetwork, TaintType: TaintPointer, Mechanism: MechanismArgIndex, ArgIndex: 1, Description: "message from a socket"},
		{Name: "getenv", Category: CategoryEnvironment, TaintType: TaintString, Mechanism: MechanismReturnValue, Description: "environment variable"},
		{Name: "secure_getenv", Category: CategoryEnvironment, TaintType: TaintString, Mechanism: MechanismReturnValue, Description: "environment variable"},
		{Name: "readlink", Category: CategoryFileIO, TaintType: TaintBuffer, Mechanism: MechanismArgIndex, ArgIndex: 1, Description: "symbolic link target"},

		// OpenSSL
		{Name: "SSL_read", Category: CategoryNetwork, TaintType: TaintBuffer, Mechanism: MechanismArgIndex, ArgIndex: 1, Description: "bytes from a TLS connection"},
		{Name: "BIO_read", Category: CategoryNetwork, TaintType: TaintBuffer, Mechanism: MechanismArgIndex, ArgIndex: 1, Description: "bytes from an OpenSSL BIO"},

		// SQL client result sets
		{Name: "mysql_fetch_row", Category: CategoryDatabase, TaintType: TaintPointer, Mechanism: MechanismReturnValue, Description: "row from a MySQL result set"},
		{Name: "sqlite3_column_text", Category: CategoryDatabase, TaintType: TaintString, Mechanism: MechanismReturnValue, Description: "column from a SQLite row"},
		{Name: "PQgetvalue", Category: CategoryDatabase, TaintType: TaintString, Mechanism: MechanismReturnValue, Description: "field from a PostgreSQL result"},

		// Configuration
		{Name: "ini_get", Category: CategoryConfiguration, TaintType: TaintString, Mechanism: MechanismReturnValue, Description: "configuration value"},
	}
}

func defaultSinks() []TaintSink {
	return []TaintSink{
		// Command execution
		{Name: "system", Category: SinkCommandExecution, Severity: SeverityCritical, CWE: "CWE-78", DangerousArgs: []int{0}, Description: "shell command execution"},
		{Name: "popen", Category: SinkCommandExecution, Severity: SeverityCritical, CWE: "CWE-78", DangerousArgs: []int{0}, Description: "shell command with pipe"},
		{Name: "execl", Category: SinkCommandExecution, Severity: SeverityCritical, CWE: "CWE-78", DangerousArgs: []int{0, 1}, Description: "program execution"},
		{Name: "execlp", Category: SinkCommandExecution, Severity: SeverityCritical, CWE: "CWE-78", DangerousArgs: []int{0, 1}, Description: "program execution via PATH"},
		{Name: "execv", Category: SinkCommandExecution, Severity: SeverityCritical, CWE: "CWE-78", DangerousArgs: []int{0, 1}, Description: "program execution"},
		{Name: "execvp", Category: SinkCommandExecution, Severity: SeverityCritical, CWE: "CWE-78", DangerousArgs: []int{0, 1}, Description: "program execution via PATH"},

		// SQL
		{Name: "mysql_query", Category: SinkSQLQuery, Severity: SeverityCritical, CWE: "CWE-89", DangerousArgs: []int{1}, Description: "MySQL query execution"},
		{Name: "mysql_real_query", Category: SinkSQLQuery, Severity: SeverityCritical, CWE: "CWE-89", DangerousArgs: []int{1}, Description: "MySQL query execution"},
		{Name: "sqlite3_exec", Category: SinkSQLQuery, Severity: SeverityCritical, CWE: "CWE-89", DangerousArgs: []int{1}, Description: "SQLite statement execution"},
		{Name: "sqlite3_prepare_v2", Category: SinkSQLQuery, Severity: SeverityHigh, CWE: "CWE-89", DangerousArgs: []int{1}, Description: "SQLite statement preparation"},
		{Name: "PQexec", Category: SinkSQLQuery, Severity: SeverityCritical, CWE: "CWE-89", DangerousArgs: []int{1}, Description: "PostgreSQL query execution"},

		// Format strings
		{Name: "printf", Category: SinkFormatString, Severity: SeverityHigh, CWE: "CWE-134", DangerousArgs: []int{0}, Description: "formatted output"},
		{Name: "fprintf", Category: SinkFormatString, Severity: SeverityHigh, CWE: "CWE-134", DangerousArgs: []int{1}, Description: "formatted output to a stream"},
		{Name: "sprintf", Category: SinkFormatString, Severity: SeverityHigh, CWE: "CWE-134", DangerousArgs: []int{1}, Description: "formatted output to a buffer"},
		{Name: "snprintf", Category: SinkFormatString, Severity: SeverityMedium, CWE: "CWE-134", DangerousArgs: []int{2}, Description: "bounded formatted output"},
		{Name: "syslog", Category: SinkFormatString, Severity: SeverityHigh, CWE: "CWE-134", DangerousArgs: []int{1}, Description: "formatted output to syslog"},

		// File system
		{Name: "fopen", Category: SinkFileSystem, Severity: SeverityHigh, CWE: "CWE-22", DangerousArgs: []int{0}, Description: "file open by path"},
		{Name: "open", Category: SinkFileSystem, Severity: SeverityHigh, CWE: "CWE-22", DangerousArgs: []int{0}, Description: "file open by path"},
		{Name: "unlink", Category: SinkFileSystem, Severity: SeverityHigh, CWE: "CWE-22", DangerousArgs: []int{0}, Description: "file removal by path"},
		{Name: "remove", Category: SinkFileSystem, Severity: SeverityHigh, CWE: "CWE-22", DangerousArgs: []int{0}, Description: "file removal by path"},
		{Name: "rename", Category: SinkFileSystem, Severity: SeverityMedium, CWE: "CWE-22", DangerousArgs: []int{0, 1}, Description: "file rename by path"},

		// Buffer operations
		{Name: "strcpy", Category: SinkBufferOperation, Severity: SeverityHigh, CWE: "CWE-120", DangerousArgs: []int{1}, Description: "unbounded string copy"},
		{Name: "strcat", Category: SinkBufferOperation, Severity: SeverityHigh, CWE: "CWE-120", DangerousArgs: []int{1}, Description: "unbounded string append"},
		{Name: "memcpy", Category: SinkBufferOperation, Severity: SeverityMedium, CWE: "CWE-120", DangerousArgs: []int{1, 2}, Description: "raw memory copy"},
		{Name: "gets", Category: SinkBufferOperation, Severity: SeverityCritical, CWE: "CWE-242", DangerousArgs: []int{0}, Description: "unbounded line read"},

		// Code evaluation
		{Name: "dlopen", Category: SinkCodeEvaluation, Severity: SeverityHigh, CWE: "CWE-94", DangerousArgs: []int{0}, Description: "dynamic library load"},
		{Name: "dlsym", Category: SinkCodeEvaluation, Severity: SeverityHigh, CWE: "CWE-94", DangerousArgs: []int{1}, Description: "dynamic symbol lookup"},

		// Allocation sizes
		{Name: "malloc", Category: SinkMemoryAllocation, Severity: SeverityMedium, CWE: "CWE-190", DangerousArgs: []int{0}, Description: "allocation with attacker-influenced size"},
		{Name: "calloc", Category: SinkMemoryAllocation, Severity: SeverityMedium, CWE: "CWE-190", DangerousArgs: []int{0, 1}, Description: "allocation with attacker-influenced size"},
		{Name: "realloc", Category: SinkMemoryAllocation, Severity: SeverityMedium, CWE: "CWE-190", DangerousArgs: []int{1}, Description: "reallocation with attacker-influenced size"},
		{Name: "alloca", Category: SinkMemoryAllocation, Severity: SeverityHigh, CWE: "CWE-190", DangerousArgs: []int{0}, Description: "stack allocation with attacker-influenced size"},
	}
}

func defaultSanitizers() []Sanitizer {
	return []Sanitizer{
		{Name: "htmlspecialchars", Type: SanitizeHTMLEscape, RemovesTaint: true, InputArg: 0, Description: "HTML entity escaping"},
		{Name: "html_escape", Type: SanitizeHTMLEscape, RemovesTaint: true, InputArg: 0, Description: "HTML entity escaping"},
		{Name: "url_encode", Type: SanitizeURLEncode, RemovesTaint: true, InputArg: 0, Description: "URL percent-encoding"},
		{Name: "curl_easy_escape", Type: SanitizeURLEncode, RemovesTaint: true, InputArg: 1, Description: "URL percent-encoding via libcurl"},
		{Name: "sql_escape", Type: SanitizeSQLEscape, RemovesTaint: true, InputArg: 0, Description: "SQL literal escaping"},
		{Name: "mysql_real_escape_string", Type: SanitizeSQLEscape, RemovesTaint: true, InputArg: 2, Description: "MySQL literal escaping"},
		{Name: "sqlite3_mprintf", Type: SanitizeSQLEscape, RemovesTaint: true, InputArg: 1, Description: "SQLite %q formatting"},
		{Name: "PQescapeStringConn", Type: SanitizeSQLEscape, RemovesTaint: true, InputArg: 2, Description: "PostgreSQL literal escaping"},
		{Name: "escapeshellarg", Type: SanitizeShellEscape, RemovesTaint: true, InputArg: 0, Description: "shell argument quoting"},
		{Name: "escapeshellcmd", Type: SanitizeShellEscape, RemovesTaint: true, InputArg: 0, Description: "shell metacharacter escaping"},
		{Name: "realpath", Type: SanitizePathCanonical, RemovesTaint: true, InputArg: 0, Description: "path canonicalization"},
		{Name: "basename", Type: SanitizePathCanonical, RemovesTaint: false, InputArg: 0, Description: "path component extraction, traversal still possible"},
		{Name: "strtol", Type: SanitizeValidation, RemovesTaint: true, InputArg: 0, Description: "numeric conversion with validation"},
		{Name: "atoi", Type: SanitizeValidation, RemovesTaint: false, InputArg: 0, Description: "numeric conversion, no range validation"},
	}
}

func defaultSummaries() []LibrarySummary {
	return []LibrarySummary{
		{Name: "strcpy", SourceParams: []int{1}, SinkParams: []int{0}, TaintsReturn: true, Description: "copies source taint into destination"},
		{Name: "strncpy", SourceParams: []int{1}, SinkParams: []int{0}, TaintsReturn: true, Description: "copies source taint into destination"},
		{Name: "strcat", SourceParams: []int{1}, SinkParams: []int{0}, TaintsReturn: true, Description: "appends source taint onto destination"},
		{Name: "strncat", SourceParams: []int{1}, SinkParams: []int{0}, TaintsReturn: true, Description: "appends source taint onto destination"},
		{Name: "memcpy", SourceParams: []int{1}, SinkParams: []int{0}, TaintsReturn: true, Description: "copies source taint into destination"},
		{Name: "memmove", SourceParams: []int{1}, SinkParams: []int{0}, TaintsReturn: true, Description: "copies source taint into destination"},
		{Name: "sprintf", SourceParams: []int{1, 2, 3, 4}, SinkParams: []int{0}, TaintsReturn: false, Description: "formats tainted values into destination"},
		{Name: "snprintf", SourceParams: []int{2, 3, 4, 5}, SinkParams: []int{0}, TaintsReturn: false, Description: "formats tainted values into destination"},
		{Name: "strdup", SourceParams: []int{0}, SinkParams: []int{}, TaintsReturn: true, Description: "duplicates taint into the returned buffer"},
		{Name: "strndup", SourceParams: []int{0}, SinkParams: []int{}, TaintsReturn: true, Description: "duplicates taint into the returned buffer"},
		{Name: "strstr", SourceParams: []int{0}, SinkParams: []int{}, TaintsReturn: true, Description: "returns a pointer into the tainted haystack"},
		{Name: "strchr", SourceParams: []int{0}, SinkParams: []int{}, TaintsReturn: true, Description: "returns a pointer into the tainted string"},
		{Name: "strtok", SourceParams: []int{0}, SinkParams: []int{}, TaintsReturn: true, Description: "returns a token from the tainted string"},
		{Name: "atoi", SourceParams: []int{0}, SinkParams: []int{}, TaintsReturn: true, Description: "numeric value derived from tainted text"},
		{Name: "atol", SourceParams: []int{0}, SinkParams: []int{}, TaintsReturn: true, Description: "numeric value derived from tainted text"},
	}
}
