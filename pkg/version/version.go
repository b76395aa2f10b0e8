package version

// VERSION is the current release of papersearch.
const VERSION = "1.2.0"
