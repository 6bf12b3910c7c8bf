package config

import "regexp"

// checkRegexp reports whether s compiles as a Go regular expression. It
// exists so config.Load can reject malformed user patterns at load time
// (spec §4.6) without importing the sanitizer/safety packages, which
// themselves depend on config.
func checkRegexp(s string) error {
	_, err := regexp.Compile(s)
	return err
}
