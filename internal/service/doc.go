// Package service contains the application services that sit between the
// HTTP/Temporal surfaces and the repositories. Services own transaction
// boundaries: any operation that changes state and emits an event does both
// inside one transaction via the outbox pattern.
package service
