package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 12000-12999: Task & Testcase errors
// 13000-13999: Submission & Judge errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Database errors (10100-10199)
	DatabaseError  ErrorCode = 10100
	RecordNotFound ErrorCode = 10101

	// Queue errors (10200-10299)
	QueueError    ErrorCode = 10200
	PublishFailed ErrorCode = 10201
	ConsumeFailed ErrorCode = 10202
	DecodeFailed  ErrorCode = 10203

	// Validation errors (10300-10399)
	ValidationFailed ErrorCode = 10300
	InvalidFormat    ErrorCode = 10301

	// ========== Task & Testcase Errors (12000-12999) ==========

	// Task basic (12000-12099)
	TaskNotFound     ErrorCode = 12000
	ManifestInvalid  ErrorCode = 12001
	TaskUploadFailed ErrorCode = 12002
	TaskDeleteFailed ErrorCode = 12003

	// Test cases (12100-12199)
	TestCaseNotFound     ErrorCode = 12100
	TestCaseUploadFailed ErrorCode = 12101

	// ========== Submission & Judge Errors (13000-13999) ==========

	// Submission (13000-13099)
	SubmissionNotFound   ErrorCode = 13000
	LanguageNotSupported ErrorCode = 13003

	// Judge (13100-13199)
	JudgeSystemError    ErrorCode = 13101
	CompilationError    ErrorCode = 13102
	SandboxInitFailed   ErrorCode = 13110
	SandboxRunFailed    ErrorCode = 13111
	CheckerFailed       ErrorCode = 13112
	MetaParseFailed     ErrorCode = 13113
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Database
	DatabaseError:  "Database operation failed",
	RecordNotFound: "Record not found in database",

	// Queue
	QueueError:    "Message queue operation failed",
	PublishFailed: "Failed to publish message",
	ConsumeFailed: "Failed to consume message",
	DecodeFailed:  "Failed to decode message payload",

	// Validation
	ValidationFailed: "Validation failed",
	InvalidFormat:    "Invalid format",

	// Task & Testcase
	TaskNotFound:         "Task not found",
	ManifestInvalid:      "Invalid task manifest",
	TaskUploadFailed:     "Failed to upload task",
	TaskDeleteFailed:     "Failed to delete task",
	TestCaseNotFound:     "Test case not found",
	TestCaseUploadFailed: "Failed to upload test case",

	// Submission & Judge
	SubmissionNotFound:   "Submission not found",
	LanguageNotSupported: "Programming language not supported",
	JudgeSystemError:     "Judge system error",
	CompilationError:     "Compilation error",
	SandboxInitFailed:    "Failed to initialize sandbox",
	SandboxRunFailed:     "Failed to run program in sandbox",
	CheckerFailed:        "Checker execution failed",
	MetaParseFailed:      "Failed to parse sandbox meta file",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == Unauthorized:
		return 401
	case c == NotFound, c == TaskNotFound, c == SubmissionNotFound, c == TestCaseNotFound:
		return 404
	case c == ServiceUnavailable:
		return 503
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == LanguageNotSupported, c == ManifestInvalid:
		return 400
	default:
		return 500
	}
}
