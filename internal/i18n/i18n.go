// Package i18n translates user-facing messages. Portuguese (Brazil) is the
// default language; English is bundled as well.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Default is the fallback language.
var Default = language.BrazilianPortuguese

// Catalog holds every bundled translation.
type Catalog struct {
	bundle *i18n.Bundle
}

// Load parses the embedded locale files.
func Load() (*Catalog, error) {
	bundle := i18n.NewBundle(Default)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	files, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + f.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, f.Name()); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Name(), err)
		}
	}
	return &Catalog{bundle: bundle}, nil
}

// MustLoad is Load for package initialization; the locales are embedded,
// so a failure is a build defect.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Languages lists the bundled language tags.
func (c *Catalog) Languages() []language.Tag { return c.bundle.LanguageTags() }

// Translator renders messages in one preferred language list, for example
// the value of an Accept-Language header.
type Translator struct {
	loc *i18n.Localizer
}

// Translator returns a translator for the given preferences, most
// preferred first. Unknown languages fall back to Default.
func (c *Catalog) Translator(langs ...string) *Translator {
	return &Translator{loc: i18n.NewLocalizer(c.bundle, langs...)}
}

// T translates id. Template data may be passed as alternating key/value
// pairs. Unknown ids are returned unchanged.
func (t *Translator) T(id string, kv ...any) string {
	var data map[string]any
	if len(kv) > 1 {
		data = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			data[fmt.Sprint(kv[i])] = kv[i+1]
		}
	}
	msg, err := t.loc.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil {
		return id
	}
	return msg
}
