// Package fetch retrieves pages for the crawler.
//
// Two interchangeable strategies implement the Strategy interface:
//
//   - HTTPStrategy issues one GET per page with a browser-like header set.
//     No script runs, so client-rendered content is not available.
//   - BrowserStrategy drives a headless Chromium session through go-rod.
//     The session is isolated, keeps cookies and storage across pages of
//     the run, and has the run's stealth profile applied before the first
//     navigation.
//
// Every failure to produce a page is returned as a *FetchError whose Kind
// tells the orchestrator whether to skip the page or abort the run.
//
// # Usage
//
//	s := fetch.NewHTTPStrategy(fetch.WithProfile(profile))
//	if err := s.Open(ctx); err != nil {
//	    return err
//	}
//	defer s.Close()
//	page, err := s.Fetch(ctx, "https://example.com/")
package fetch
