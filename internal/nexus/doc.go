// Package nexus provides an authenticated JSON client for the Nexus staging REST API.
//
// It defines Credentials with eager validation, the StagingRepository and
// ReleaseRequest models, and Client, which issues the profile repository
// listing and bulk close, promote, and drop requests over verified TLS. Every
// transport level failure surfaces as *TransportError; invalid configuration
// surfaces as ConfigurationError before any network call happens.
package nexus
