// Package lang resolves the output language requested from the model.
//
// Prompts are written in German, so the language instruction names the
// target language in German ("Deutsch", "Englisch", ...).
package lang

import (
	"fmt"
	"strings"
)

// Default is the output language used when none is configured.
const Default = "de"

// names maps ISO 639-1 base codes to their German display name.
var names = map[string]string{
	"ar": "Arabisch",
	"cs": "Tschechisch",
	"da": "Dänisch",
	"de": "Deutsch",
	"el": "Griechisch",
	"en": "Englisch",
	"es": "Spanisch",
	"fi": "Finnisch",
	"fr": "Französisch",
	"hu": "Ungarisch",
	"it": "Italienisch",
	"ja": "Japanisch",
	"ko": "Koreanisch",
	"nl": "Niederländisch",
	"no": "Norwegisch",
	"pl": "Polnisch",
	"pt": "Portugiesisch",
	"ro": "Rumänisch",
	"ru": "Russisch",
	"sv": "Schwedisch",
	"tr": "Türkisch",
	"uk": "Ukrainisch",
	"zh": "Chinesisch",
}

// regional refines a few locales whose variant matters for the model.
var regional = map[string]string{
	"de-at": "österreichisches Deutsch",
	"de-ch": "Schweizer Hochdeutsch",
	"en-gb": "britisches Englisch",
	"en-us": "amerikanisches Englisch",
	"pt-br": "brasilianisches Portugiesisch",
}

// Normalize normalizes a language code to lowercase with hyphen separator.
// Accepts: "pt-BR", "pt_BR", "PT-BR", "pt-br" -> "pt-br"
func Normalize(lang string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
}

// BaseCode extracts the ISO 639-1 base code from a locale.
// Examples: "pt-BR" -> "pt", "de" -> "de"
func BaseCode(lang string) string {
	normalized := Normalize(lang)
	if idx := strings.Index(normalized, "-"); idx != -1 {
		return normalized[:idx]
	}
	return normalized
}

// Validate checks that the base language is one the prompt can name.
// Empty means Default and is valid.
func Validate(lang string) error {
	if lang == "" {
		return nil
	}
	if _, ok := names[BaseCode(lang)]; !ok {
		return fmt.Errorf("unsupported output language %q (use ISO 639-1 codes like 'de', 'en', 'pt-BR'): %w",
			lang, ErrInvalid)
	}
	return nil
}

// OrDefault returns lang, or Default when lang is empty.
func OrDefault(lang string) string {
	if strings.TrimSpace(lang) == "" {
		return Default
	}
	return lang
}

// DisplayName returns the German name used in the prompt's language
// instruction. Unknown codes are returned unchanged.
func DisplayName(lang string) string {
	normalized := Normalize(OrDefault(lang))
	if name, ok := regional[normalized]; ok {
		return name
	}
	if name, ok := names[BaseCode(normalized)]; ok {
		return name
	}
	return lang
}
