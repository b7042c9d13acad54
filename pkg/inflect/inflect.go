// Package inflect derives table names from class names the way ActiveRecord does.
package inflect

import (
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"
)

// Inflector turns a class name into a table name.
type Inflector interface {
	Tableize(className string) string
}

// Default is the ActiveSupport-compatible inflector backed by
// github.com/jinzhu/inflection.
type Default struct{}

// Tableize implements Inflector.
func (Default) Tableize(className string) string {
	return Tableize(className)
}

var (
	acronymBoundary = regexp.MustCompile(`([A-Z\d]+)([A-Z][a-z])`)
	wordBoundary    = regexp.MustCompile(`([a-z\d])([A-Z])`)
)

// Underscore converts CamelCase to snake_case; "::" becomes "/".
func Underscore(s string) string {
	s = strings.ReplaceAll(s, "::", "/")
	s = acronymBoundary.ReplaceAllString(s, "${1}_${2}")
	s = wordBoundary.ReplaceAllString(s, "${1}_${2}")
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ToLower(s)
}

// Pluralize pluralizes the last word of a snake_case name.
func Pluralize(s string) string {
	i := strings.LastIndexAny(s, "_/")
	return s[:i+1] + inflection.Plural(s[i+1:])
}

// Tableize returns the table name for a class name: "UserProfile" is
// "user_profiles" and "Admin::User" is "admin/users".
func Tableize(className string) string {
	return Pluralize(Underscore(className))
}

// Demodulize strips the namespace from a constant path.
func Demodulize(className string) string {
	if i := strings.LastIndex(className, "::"); i >= 0 {
		return className[i+2:]
	}
	return className
}
