// Package urls holds the external addresses modelfinder talks to or points
// users at.
package urls
