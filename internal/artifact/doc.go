// Package artifact manages the files a run leaves on disk: output
// directories and screenshot paths.
package artifact
