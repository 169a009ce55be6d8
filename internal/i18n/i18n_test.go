package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalizer(t *testing.T) {
	id := New("id")
	assert.Equal(t, "Selamat datang, Budi!", id.T("auth.welcome", "Budi"))

	en := New("en")
	assert.Equal(t, "Welcome, Budi!", en.T("auth.welcome", "Budi"))
}

func TestFallbacks(t *testing.T) {
	l := New("fr")
	assert.Equal(t, DefaultLanguage, l.Lang())
	assert.Equal(t, "missing.key", l.T("missing.key"))
}

func TestLocalesHaveSameKeys(t *testing.T) {
	a := assert.New(t)
	a.NoError(load())
	for key := range translations["id"] {
		_, ok := translations["en"][key]
		a.True(ok, "en is missing %s", key)
	}
	a.Len(translations["en"], len(translations["id"]))
}
