//
// Tencent is pleased to support the open source community by making trpc-imagebot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-imagebot-go is licensed under the Apache License Version 2.0.
//
//

// Package lang classifies user scripts as Bangla or English.
package lang

import (
	"strings"
	"unicode"
)

// Language is the closed set of languages the bot renders messages in.
// Adding a language means extending this set and the classify package's
// template table, not adding control flow.
type Language string

const (
	// English is the default language.
	English Language = "english"
	// Bangla is selected when the script contains Bengali-block runes.
	Bangla Language = "bangla"
)

// Detect classifies text by Unicode range heuristic: any rune in the
// Bengali script block (U+0980..U+09FF) makes the whole script Bangla,
// otherwise it is English. Detect is pure and total.
func Detect(text string) Language {
	for _, r := range text {
		if unicode.Is(unicode.Bengali, r) {
			return Bangla
		}
	}
	return English
}

// DetectOr classifies text like Detect, but empty or whitespace-only
// input yields the fallback language. A zero fallback means English.
func DetectOr(text string, fallback Language) Language {
	if strings.TrimSpace(text) == "" {
		if fallback == "" {
			return English
		}
		return fallback
	}
	return Detect(text)
}
