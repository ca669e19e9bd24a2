// Package execshell runs external tools such as git and the artifact upload command.
//
// ShellExecutor wraps a CommandRunner with structured logging, optional
// human-readable lifecycle events, and typed errors for non-zero exits.
// OSCommandRunner is the os/exec backed runner used outside tests.
package execshell
