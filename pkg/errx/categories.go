package errx

// CreateByCode creates an Error for code, wrapping cause when it is non-nil.
func CreateByCode(code, description, message string, cause error) *Error {
	if cause != nil {
		return Wrap(code, description, message, cause)
	}
	return New(code, description, message)
}

// FromSentinel creates an Error whose code is looked up from sentinel and
// which matches sentinel under errors.Is. Unknown sentinels map to CodeCLI.
func FromSentinel(sentinel error, lookup func(error) (code, description string), message string, cause error) *Error {
	code, desc := lookup(sentinel)
	if code == "" {
		code, desc = CodeCLI, DescCLI
	}
	return CreateByCode(code, desc, message, cause).WithBase(sentinel)
}
