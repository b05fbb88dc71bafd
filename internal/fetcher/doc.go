// Package fetcher retrieves HTML documents over HTTP(S).
//
// A Fetcher follows redirects itself so every hop is resolved against the
// URL that produced it, negotiates gzip and deflate encodings, converts the
// declared charset to UTF-8 and rejects anything that is not text/html.
// All failures are reported as *FetchError values whose Kind is stored
// verbatim as the failure reason of a page.
//
// Requests can optionally be routed through a SOCKS5 proxy such as a local
// Tor daemon (see NewProxyTransport).
package fetcher
