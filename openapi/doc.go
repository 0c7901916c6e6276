// Package openapi derives connector configs from OpenAPI 3 descriptions.
//
// The scanner ranks POST operations with keyword heuristics over the path,
// operation id, summary and request fields, then infers where the prompt
// goes, where the answer comes back and how the credential is attached.
// Only same-document $ref pointers are followed.
package openapi
