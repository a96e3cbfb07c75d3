//
// Tencent is pleased to support the open source community by making trpc-imagebot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-imagebot-go is licensed under the Apache License Version 2.0.
//
//

// Package classify maps generation failures to a closed taxonomy and
// renders user-facing messages localized to the session's language.
package classify

import (
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-imagebot-go/generator"
	"trpc.group/trpc-go/trpc-imagebot-go/lang"
)

// Kind is the failure taxonomy.
type Kind string

const (
	// KindInvalidScript is empty or unsupported content.
	KindInvalidScript Kind = "invalid_script"
	// KindBackendRejected is a backend policy/content-filter decline.
	KindBackendRejected Kind = "backend_rejected"
	// KindBackendUnavailable is a transient network or service failure.
	KindBackendUnavailable Kind = "backend_unavailable"
	// KindBackendQuotaExceeded is an authentication or quota failure.
	KindBackendQuotaExceeded Kind = "backend_quota_exceeded"
	// KindUnknown is anything not mapped.
	KindUnknown Kind = "unknown"
)

// Classify maps an error to a Kind via the generator sentinel errors.
// Anything unmapped, including nil, is KindUnknown.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, generator.ErrInvalidPrompt):
		return KindInvalidScript
	case errors.Is(err, generator.ErrContentRejected):
		return KindBackendRejected
	case errors.Is(err, generator.ErrUnavailable):
		return KindBackendUnavailable
	case errors.Is(err, generator.ErrQuotaExceeded):
		return KindBackendQuotaExceeded
	default:
		return KindUnknown
	}
}

// template is one localized message. reason, when non-empty, is a format
// appended with the raw backend reason interpolated verbatim.
type template struct {
	message string
	reason  string
}

// templates is the exhaustive per-language message table. Adding a
// language is a data change here plus a lang.Language constant.
var templates = map[lang.Language]map[Kind]template{
	lang.English: {
		KindInvalidScript: {
			message: "✍️ I need a script first. Please send some text (Bangla or English) and I will draw it.",
		},
		KindBackendRejected: {
			message: "❌ The image service declined this script.",
			reason:  "\nReason: %s",
		},
		KindBackendUnavailable: {
			message: "❌ The image service is unreachable right now. Please try again.",
			reason:  "\nReason: %s",
		},
		KindBackendQuotaExceeded: {
			message: "❌ The image service quota is exhausted.",
			reason:  "\nReason: %s",
		},
		KindUnknown: {
			message: "❌ An error occurred!",
			reason:  "\nReason: %s",
		},
	},
	lang.Bangla: {
		KindInvalidScript: {
			message: "✍️ আগে একটি স্ক্রিপ্ট পাঠান — ছবি আঁকার জন্য আমার কিছু লেখা দরকার।",
		},
		KindBackendRejected: {
			message: "❌ ছবির সার্ভিস এই স্ক্রিপ্টটি গ্রহণ করেনি।",
			reason:  "\nকারণ: %s",
		},
		KindBackendUnavailable: {
			message: "❌ ছবির সার্ভিসে এখন পৌঁছানো যাচ্ছে না। একটু পরে আবার চেষ্টা করুন।",
			reason:  "\nকারণ: %s",
		},
		KindBackendQuotaExceeded: {
			message: "❌ ছবির সার্ভিসের কোটা শেষ হয়ে গেছে।",
			reason:  "\nকারণ: %s",
		},
		KindUnknown: {
			message: "❌ একটি ত্রুটি ঘটেছে!",
			reason:  "\nকারণ: %s",
		},
	},
}

// Render formats the localized message for a failure kind. The language
// is the session's current language, never re-detected from the error
// text. Unknown languages fall back to English; unknown kinds to
// KindUnknown. The raw reason is interpolated verbatim when available.
func Render(kind Kind, language lang.Language, reason string) string {
	table, ok := templates[language]
	if !ok {
		table = templates[lang.English]
	}
	tmpl, ok := table[kind]
	if !ok {
		tmpl = table[KindUnknown]
	}
	msg := tmpl.message
	if reason != "" && tmpl.reason != "" {
		msg += fmt.Sprintf(tmpl.reason, reason)
	}
	return msg
}
