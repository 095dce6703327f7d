// SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"strings"

	"github.com/google/uuid"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

const (
	FrameworkPlaywright = "playwright"
	FrameworkCypress    = "cypress"
	FrameworkSelenium   = "selenium"
)

const (
	LangTypeScript = "typescript"
	LangJavaScript = "javascript"
	LangJava       = "java"
	LangPython     = "python"
)

// Supported lists every framework/language pair the engine can emit.
var Supported = map[string][]string{
	FrameworkPlaywright: {LangTypeScript, LangJavaScript},
	FrameworkCypress:    {LangJavaScript, LangTypeScript},
	FrameworkSelenium:   {LangJava, LangPython},
}

type Options struct {
	Framework          string `json:"framework"`
	Language           string `json:"language"`
	IncludePageObjects bool   `json:"include_page_objects"`
	ExtractGroups      bool   `json:"extract_groups"`
	TestName           string `json:"test_name,omitempty"`
}

type Warning struct {
	EventID uuid.UUID `json:"event_id,omitempty"`
	Message string    `json:"message"`
}

type Result struct {
	SourceCode         string    `json:"source_code"`
	PageObjectCode     string    `json:"page_object_code,omitempty"`
	Filename           string    `json:"filename"`
	PageObjectFilename string    `json:"page_object_filename,omitempty"`
	Warnings           []Warning `json:"warnings"`
}

var languageAliases = map[string]string{
	"ts":  LangTypeScript,
	"js":  LangJavaScript,
	"py":  LangPython,
	"jvm": LangJava,
}

// normalize lowercases the options, applies defaults for missing values and
// rejects pairs the engine has no dialect for.
func (o Options) normalize() (Options, error) {
	o.Framework = strings.ToLower(strings.TrimSpace(o.Framework))
	o.Language = strings.ToLower(strings.TrimSpace(o.Language))
	if alias, ok := languageAliases[o.Language]; ok {
		o.Language = alias
	}
	if o.Framework == "" {
		o.Framework = domain.DefaultFramework
	}
	langs, ok := Supported[o.Framework]
	if !ok {
		return o, domain.Validationf("unsupported framework %q", o.Framework)
	}
	if o.Language == "" {
		o.Language = langs[0]
	}
	for _, l := range langs {
		if l == o.Language {
			o.TestName = strings.TrimSpace(o.TestName)
			if o.TestName == "" {
				o.TestName = "recorded session"
			}
			return o, nil
		}
	}
	return o, domain.Validationf("framework %s does not support language %q", o.Framework, o.Language)
}
