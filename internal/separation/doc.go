// Package separation talks to the remote stem-separation service.
//
// The Client submits jobs (multipart upload, server-side path, or an object
// store key), polls job status, reads upload constraints, and fetches result
// stems. Asset URLs may be relative to the service base URL, absolute HTTP(S)
// URLs, s3://bucket/key references served through the configured object
// store, or in-process blob: URLs from an objecturl.Registry.
//
// Non-2xx responses become *HTTPStatusError or *RateLimitedError, both tagged
// with services markers so callers can classify them with errors.Is.
package separation
