// Package retry provides a bounded retry loop with jittered exponential
// backoff. It is used to wait out transient CAPTCHA interstitials.
package retry
