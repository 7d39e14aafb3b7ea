// Package params parses driver parameters for the CLI.
//
// Driver parameters are the KEY=VALUE pairs appended to a connection
// (DELIMIDENT, LOBCACHE, sslmode and friends). They arrive from three
// places, merged in increasing precedence:
//
//  1. the params map in ifxbridge.yaml
//  2. .env-style files passed via --param-file (later files win)
//  3. --param flags on the command line
//
// ParseKeyValuePairs handles the flag form, ParseEnvFile the file form.
// The merge itself lives in the cli package.
package params
