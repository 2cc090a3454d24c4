// Package cli implements the operator command line of the identity server:
// DSN normalization, offline password hashing and a database reachability
// check that runs the same bootstrap probe as the server.
package cli
