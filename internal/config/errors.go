package config

import "errors"

// Configuration validation errors returned by Config.Validate and
// File.GetSuite. Callers can match them with errors.Is.
var (
	// ErrNoSuite is returned when no suite name was given.
	ErrNoSuite = errors.New("no suite specified: name at least one suite (see 'pageaudit list')")

	// ErrUnknownSuite is returned when a suite name is neither built in nor
	// defined in the configuration file.
	ErrUnknownSuite = errors.New("unknown suite")

	// ErrEmptySuite is returned when a suite has no pages.
	ErrEmptySuite = errors.New("suite has no pages")

	// ErrInvalidTimeout is returned when the navigation timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidTopN is returned when the resource cap is not positive.
	ErrInvalidTopN = errors.New("invalid top resource count: must be positive")

	// ErrInvalidDelay is returned when the inter-page delay is negative.
	ErrInvalidDelay = errors.New("invalid page delay: must be non-negative")

	// ErrInvalidCaptchaRetries is returned when the CAPTCHA attempt budget is below one.
	ErrInvalidCaptchaRetries = errors.New("invalid captcha retries: must be at least 1")

	// ErrInvalidCaptchaBackoff is returned when the CAPTCHA backoff is negative.
	ErrInvalidCaptchaBackoff = errors.New("invalid captcha backoff: must be non-negative")

	// ErrInvalidConcurrency is returned when suite concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrUnknownFormat is returned for an unsupported report format.
	ErrUnknownFormat = errors.New("unknown report format: use json, csv, html, markdown or text")

	// ErrUnknownDriver is returned for an unsupported browser driver.
	ErrUnknownDriver = errors.New("unknown driver: use playwright or http")

	// ErrUnknownTimingSource is returned for an unsupported timing source.
	ErrUnknownTimingSource = errors.New("unknown timing source: use performance or network")

	// ErrAmbiguousOutput is returned when one output file is given for
	// several suites without a {suite} placeholder.
	ErrAmbiguousOutput = errors.New("ambiguous output: use a {suite} placeholder when running several suites")

	// ErrInvalidViewport is returned when a viewport dimension is not positive.
	ErrInvalidViewport = errors.New("invalid viewport: width and height must be positive")
)
