// Package i18n holds the user-facing messages of the console.
//
// Messages are looked up by key; a key missing from the requested language
// falls back to Indonesian, then to the key itself.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed locales/*.json
var localesFS embed.FS

var SupportedLanguages = []string{"id", "en"}

const DefaultLanguage = "id"

var (
	translations map[string]map[string]string
	loadOnce     sync.Once
	loadErr      error
)

func load() error {
	loadOnce.Do(func() {
		translations = make(map[string]map[string]string, len(SupportedLanguages))
		for _, lang := range SupportedLanguages {
			data, err := localesFS.ReadFile("locales/" + lang + ".json")
			if err != nil {
				loadErr = fmt.Errorf("read locale %s: %w", lang, err)
				return
			}
			var messages map[string]string
			if err := json.Unmarshal(data, &messages); err != nil {
				loadErr = fmt.Errorf("parse locale %s: %w", lang, err)
				return
			}
			translations[lang] = messages
		}
	})
	return loadErr
}

type Localizer struct {
	lang string
}

// New returns a localizer for lang, or for DefaultLanguage when lang is not
// supported.
func New(lang string) *Localizer {
	if err := load(); err != nil {
		panic(err)
	}
	if _, ok := translations[lang]; !ok {
		lang = DefaultLanguage
	}
	return &Localizer{lang: lang}
}

func (l *Localizer) Lang() string {
	return l.lang
}

func (l *Localizer) T(key string, args ...any) string {
	msg, ok := translations[l.lang][key]
	if !ok {
		msg, ok = translations[DefaultLanguage][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}
