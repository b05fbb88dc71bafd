// Package main provides the entry point for the ruthless CLI.
//
// ruthless is a breadth-biased web crawler. Pages are stored durably, so a
// crawl can be stopped and resumed at any time, and several processes can
// share one PostgreSQL store.
//
// Usage:
//
//	ruthless crawl --tag news https://example.com/
//	ruthless status
//
// See --help for all available options.
package main

func main() {
	Execute()
}
