// Package main provides the entry point for the pageaudit CLI.
//
// pageaudit visits the pages of a suite in a real browser, checks the
// main heading and common header elements, records load time and the
// slowest resources, takes screenshots, and writes a report.
//
// Usage:
//
//	pageaudit run au
//	pageaudit run au ca --format html --output reports/{suite}.html
//	pageaudit compare au
//
// See --help for all available options.
package main

func main() {
	Execute()
}
