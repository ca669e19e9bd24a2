// Package staging locates the staging repository that belongs to the current release run.
package staging
