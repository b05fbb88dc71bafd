// Package crawler implements the crawl engine: frontier selection, the
// per-page crawl unit, seeding, duplicate suppression and the crawl loop.
//
// # Frontier
//
// Pages live in a Store in one of three states: pending, fetched or failed.
// The Frontier always picks among pending pages at the smallest depth, and
// among those uniformly at random, so the crawl proceeds breadth first
// without hammering one site in document order. Links that stay on the same
// host are one level deeper than their parent, links to another host are a
// hundred levels deeper, which keeps a crawl on its seed sites long before
// it wanders off.
//
// # Units
//
// A Unit fetches one page, records the document or the failure, extracts the
// page's links and inserts the unseen ones as pending children. The store
// rejects a second (url, tag) row; the unit treats that as a duplicate and
// moves on.
//
// # Concurrency
//
// By default the Spider runs one worker. With WithWorkers(n) it runs n
// workers in an errgroup; the first store error stops all of them. Terminal
// state changes are conditional in the store, so two processes sharing a
// database never record the same page twice.
//
// # Usage
//
//	spider := crawler.NewSpider(db, fetcher.New(), crawler.WithWorkers(4))
//	stats, err := spider.Run(ctx)
package crawler
