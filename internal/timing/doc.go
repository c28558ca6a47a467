// Package timing reduces browser resource-timing feeds to a ranked top-N.
//
// CollectTop is the core operation: it filters samples by a URL predicate,
// orders them slowest first and truncates the result. It is pure and never
// fails; samples whose name is not an absolute URL are dropped.
//
// RequestTracker derives samples from request/response events for drivers
// that observe the network instead of reading the performance API.
package timing
