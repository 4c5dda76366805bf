// Package web provides the HTTP-facing collaborators of the ingestion
// pipeline: a Scraper that fetches the configured AMC pages, a Cleaner
// that turns HTML into plain text plus extracted facts, and a Prober that
// checks whether a source URL is still reachable.
//
// Outbound requests go through a RateLimiter so that scraping and
// validation stay polite towards the AMC, SEBI, AMFI and platform sites.
package web
