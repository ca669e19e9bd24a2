// Package trigger decides whether a checkout should be released and runs the artifact upload that precedes staging.
package trigger
