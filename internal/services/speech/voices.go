package speech

import (
	"strings"

	"golang.org/x/text/language"
)

// Profile names a synthesis voice and the engine tier it runs on.
type Profile struct {
	Voice  string
	Engine string
}

// Built-in voice table keyed by language tag. Cantonese needs its own entry
// because a bare "zh" resolves to a Mandarin voice.
var defaultProfiles = map[string]Profile{
	"en":    {Voice: "Joanna", Engine: "neural"},
	"es":    {Voice: "Lupe", Engine: "neural"},
	"zh":    {Voice: "Zhiyu", Engine: "neural"},
	"zh-HK": {Voice: "Hiujin", Engine: "neural"},
}

const defaultTag = "en"

// Select resolves the voice for a target language: exact tag first, then the
// bare base language, then the default voice. Overrides shadow the built-in
// table at each step.
func Select(targetLang string, overrides map[string]Profile, defaultEngine string) Profile {
	lookup := func(tag string) (Profile, bool) {
		if profile, ok := overrides[tag]; ok {
			return withEngine(profile, defaultEngine), true
		}
		if profile, ok := defaultProfiles[tag]; ok {
			return withEngine(profile, defaultEngine), true
		}
		return Profile{}, false
	}

	targetLang = strings.TrimSpace(targetLang)
	if tag, err := language.Parse(targetLang); err == nil {
		if profile, ok := lookup(tag.String()); ok {
			return profile
		}
		if base, confidence := tag.Base(); confidence != language.No {
			if profile, ok := lookup(base.String()); ok {
				return profile
			}
		}
	} else if profile, ok := lookup(targetLang); ok {
		// Unparseable tags still honor a literal override entry.
		return profile
	}

	profile, _ := lookup(defaultTag)
	return profile
}

func withEngine(profile Profile, defaultEngine string) Profile {
	if profile.Engine == "" {
		profile.Engine = defaultEngine
	}
	return profile
}
