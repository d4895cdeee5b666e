// Package governance holds the resilience controls shared by the outbound clients
// (LLM completions and OER search). Calls are retried on transient transport
// failures and on a configurable set of HTTP status codes, with capped exponential
// backoff and optional jitter. The LLM client additionally paces requests with a
// token bucket and stops calling an endpoint that keeps failing.
package governance
