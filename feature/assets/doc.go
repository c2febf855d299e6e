// Package assets implements the maintenance jobs of the site's object store:
// merging prefixes, uploading a local directory, tuning cache headers,
// pruning a prefix and recompressing PDFs.
//
// Every job plans first. A DryRun request returns the plan without touching
// the store; destructive steps additionally require Confirmed.
package assets
