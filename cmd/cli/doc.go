// Package cli constructs the mcrelease command-line interface. It wires the
// Cobra command hierarchy to the configuration loader and the structured
// logger, and exposes Execute for the binary entrypoint.
package cli
