// Package templatetest builds template libraries from the vistest block font.
package templatetest

import (
	"strings"

	"github.com/soocke/coop-overlay-go/domain/templates"
	"github.com/soocke/coop-overlay-go/domain/vision/vistest"
)

// Library returns count, time, pause and phrase pools rendered at scale,
// all color-agnostic.
func Library(scale int) *templates.Library {
	lib := templates.NewLibrary()
	add := func(key, category, text string) {
		lib.Add(lib.NewTemplate(key, category, "", vistest.TextImage(text, scale)))
	}
	for _, d := range "0123456789" {
		add(string(d), templates.CategoryCount, string(d))
		add(string(d), templates.CategoryTime, string(d))
	}
	add("slash", templates.CategoryCount, "/")
	add("colon", templates.CategoryTime, ":")
	for _, l := range "PAUSED" {
		add(strings.ToLower(string(l)), templates.CategoryPause, string(l))
	}
	for _, n := range "012345" {
		add("c"+string(n), templates.CategoryPhrase, string(n)+"/5")
	}
	return lib
}
