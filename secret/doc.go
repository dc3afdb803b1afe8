// Package secret resolves credentials inside configuration values, such as
// the connection URL of a persistence backend.
//
// Values go through strict environment expansion first. A value may then
// reference a Provider with the prefix "secretref:":
//
//	postgres://app:${PGPASSWORD}@db/cache
//	redis://:secretref:file:redis-password@cache:6379/0
//
// Resolved values must never be logged.
package secret
