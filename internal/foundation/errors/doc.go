// Package errors provides the classified error primitives used across river.
//
// Every failure that should terminate a command is expressed as a ClassifiedError
// carrying a category (config, resolution, build, devserver, internal), a severity
// and free-form context (file, field, pass, port). The CLI adapter turns a classified
// error into a user-facing message and a process exit code.
//
// Example usage:
//
//	err := errors.ConfigError("Invalid options in river.config.yaml").
//		WithContext("field", "baseUrl").
//		WithCause(validationErr).
//		Build()
package errors
