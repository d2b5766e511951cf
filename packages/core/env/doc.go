// Package env renders request templates against environment variables.
//
// It provides:
//   - {{ name }} variable interpolation, variables may reference other variables
//   - {{ fn(args) }} calls into the builtin function registry
//   - {{ $NAME }} process environment lookups
//   - dotenv and process environment loading into models.Environment
package env
