// Package cli implements the vq command-line client.
//
// vq sends one request per invocation through the full client pipeline
// (auth injection, encryption, error normalization) and prints the result
// as JSON or YAML, optionally narrowed with a JMESPath --query. The auth
// token, user record and session survive between invocations in a SQLite
// store under ./.vq/.
//
// Commands:
//   - request METHOD ENDPOINT, and the get/post/put/patch/delete shortcuts
//   - login, logout, whoami, authorize
//   - history, the recent --query expressions
//   - version
//
// Execute wires everything and is what cmd/vq calls.
package cli
