// Copyright (c) uniconnect Authors.
// Licensed under the MIT License.

/*
Package types holds the shared error taxonomy for uniconnect.

Every call outcome is one of the ErrorKind values. In-call failures are
reported as *Error carrying the kind, the HTTP status when one was
obtained and the provider id. Configuration and credential problems are
detected before any call and surface as ErrInvalidConfig or
ErrMissingCredential.

types has no internal dependencies so every other package may import it.
*/
package types
