package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Catalog & problem resolution errors
// 12000-12999: Compilation errors
// 13000-13999: Execution & measurement errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalError ErrorCode = 10001
	InvalidParams ErrorCode = 10002

	// Validation errors (10100-10199)
	ValidationFailed ErrorCode = 10100

	// ========== Catalog & Resolution Errors (11000-11999) ==========

	// Metadata catalog (11000-11099)
	MetadataUnreadable ErrorCode = 11000
	ProblemNotFound    ErrorCode = 11001

	// Problem directory resolution (11100-11199)
	ProblemDirMissing ErrorCode = 11100
	SourceNotFound    ErrorCode = 11101
	SourceAmbiguous   ErrorCode = 11102

	// Test data (11200-11299)
	DataPackInvalid ErrorCode = 11200

	// ========== Compilation Errors (12000-12999) ==========

	CompilerNotFound ErrorCode = 12000
	CompileFailed    ErrorCode = 12001

	// ========== Execution & Measurement Errors (13000-13999) ==========

	JudgeSystemError ErrorCode = 13000
	RunFailed        ErrorCode = 13001
)

var errorMessages = map[ErrorCode]string{
	Success: "Success",

	InternalError: "Internal error",
	InvalidParams: "Invalid parameters",

	ValidationFailed: "Validation failed",

	MetadataUnreadable: "Problem metadata is unreadable",
	ProblemNotFound:    "Problem not found in metadata",

	ProblemDirMissing: "Problem directory not found",
	SourceNotFound:    "No source file found",
	SourceAmbiguous:   "Multiple source files found",

	DataPackInvalid: "Test data pack is invalid",

	CompilerNotFound: "Compiler executable not found",
	CompileFailed:    "Compilation failed",

	JudgeSystemError: "Judge system error",
	RunFailed:        "Program execution failed",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}
