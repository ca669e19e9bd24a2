// Package release provides the commands that stage, release, drop, and list repositories on the repository manager.
package release
