// Package downloader runs the external retrieval tool over a list of item
// URLs, strictly one at a time, with a timeout per item and a fixed pause
// between items.
package downloader
