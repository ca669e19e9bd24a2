// Package ui renders external command progress for people watching a release in a terminal.
package ui
