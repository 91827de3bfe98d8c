// Package retry retries transient failures with exponential backoff.
//
// [WithExponentialBackoff] runs an operation until it succeeds, the retry
// budget is spent, the context ends, or the operation returns an error that
// must not be retried: one wrapped with [Fatal], or one classified as a
// validation error. It backs chart downloads, which fail transiently on
// flaky registries.
package retry
