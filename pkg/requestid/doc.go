// Package requestid correlates log records of one HTTP request.
//
// Middleware accepts a client supplied X-Request-ID made of letters, digits,
// dashes and underscores (at most 128 bytes) and otherwise generates a UUIDv7.
// The id is stored in the request context and returned in the response
// header. Register LoggerExtractor with pkg/logger to add it to every record
// logged with that context.
package requestid
