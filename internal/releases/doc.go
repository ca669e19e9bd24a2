// Package releases drives a located staging repository through close and promotion.
package releases
