// Package scraper runs the bookmark pipeline end to end.
//
// A Runner wires the stages together:
//
//   - acquire a browser session, restoring remembered cookies or handing
//     off to the user for login
//   - bring the page to the bookmarks listing
//   - collect item links until the listing stops growing
//   - validate and persist the links to the backup file
//   - download every valid link with the retrieval tool, one at a time
//
// The browser is always closed before a Run returns. Offline entry points
// (Extract and DownloadFromFile) skip the browser entirely.
//
// Usage:
//
//	runner := scraper.New(cfg, scraper.Deps{
//	    Launch:   scraper.LaunchBrowser(cfg.Browser, log),
//	    Sessions: sessions,
//	    Prompter: browser.NewTerminalPrompter(),
//	    History:  store,
//	})
//	result, err := runner.Run(ctx)
//
// Every stage reports through the injected logger; per-item progress is
// printed with the ui package and recorded in the history store when one
// is configured.
package scraper
