// Package extract turns a fetched page into a model.PageRecord.
//
// Each content type has its own Extractor. All extractors read the same
// parsed Document and never modify it, so they can be enabled, disabled or
// reordered independently. The Pipeline runs the enabled extractors and
// contains their failures: an extractor that returns an error or panics
// contributes an empty section and the rest of the page is unaffected.
//
// Besides the record, the Pipeline returns every raw href on the page so
// the crawler can grow its frontier. Harvesting links for traversal does not
// depend on whether the links extractor is enabled for reporting.
package extract
