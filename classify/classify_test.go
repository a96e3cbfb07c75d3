//
// Tencent is pleased to support the open source community by making trpc-imagebot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-imagebot-go is licensed under the Apache License Version 2.0.
//
//

package classify

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"trpc.group/trpc-go/trpc-imagebot-go/generator"
	"trpc.group/trpc-go/trpc-imagebot-go/lang"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"invalid prompt", generator.ErrInvalidPrompt, KindInvalidScript},
		{"rejected", generator.ErrContentRejected, KindBackendRejected},
		{"unavailable", generator.ErrUnavailable, KindBackendUnavailable},
		{"quota", generator.ErrQuotaExceeded, KindBackendQuotaExceeded},
		{"wrapped rejected", fmt.Errorf("%w: content policy violation", generator.ErrContentRejected), KindBackendRejected},
		{"wrapped twice", fmt.Errorf("generate: %w", fmt.Errorf("%w: 503", generator.ErrUnavailable)), KindBackendUnavailable},
		{"unmapped", errors.New("boom"), KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Classify(c.err))
		})
	}
}

func TestRenderLocalization(t *testing.T) {
	// Bangla session + unavailable backend: Bangla template with the raw
	// reason interpolated.
	msg := Render(KindBackendUnavailable, lang.Bangla, "connection refused")
	assert.Contains(t, msg, "কারণ: connection refused")
	assert.Contains(t, msg, "ছবির সার্ভিসে")

	// English session, same failure: English template.
	msg = Render(KindBackendUnavailable, lang.English, "connection refused")
	assert.Contains(t, msg, "Reason: connection refused")
	assert.NotContains(t, msg, "কারণ")
}

func TestRenderReasonVerbatim(t *testing.T) {
	reason := "content policy violation"
	msg := Render(KindBackendRejected, lang.English, reason)
	assert.Contains(t, msg, reason)
}

func TestRenderWithoutReason(t *testing.T) {
	msg := Render(KindBackendQuotaExceeded, lang.English, "")
	assert.False(t, strings.Contains(msg, "Reason:"))
	assert.NotEmpty(t, msg)
}

func TestRenderFallbacks(t *testing.T) {
	// Unknown language falls back to English.
	msg := Render(KindUnknown, lang.Language("klingon"), "boom")
	assert.Contains(t, msg, "An error occurred")

	// Unknown kind falls back to the Unknown template.
	msg = Render(Kind("??"), lang.Bangla, "boom")
	assert.Contains(t, msg, "একটি ত্রুটি ঘটেছে")
}

func TestRenderInvalidScriptHasNoReasonSlot(t *testing.T) {
	// InvalidScript is a local notice; backend reasons never leak into it.
	msg := Render(KindInvalidScript, lang.English, "ignored")
	assert.NotContains(t, msg, "ignored")
}

func TestTemplateTableExhaustive(t *testing.T) {
	kinds := []Kind{
		KindInvalidScript,
		KindBackendRejected,
		KindBackendUnavailable,
		KindBackendQuotaExceeded,
		KindUnknown,
	}
	for _, language := range []lang.Language{lang.English, lang.Bangla} {
		for _, kind := range kinds {
			_, ok := templates[language][kind]
			assert.True(t, ok, "missing template for %s/%s", language, kind)
		}
	}
}
