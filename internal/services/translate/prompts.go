package translate

import "fmt"

func translationSystemPrompt(targetLang string) string {
	return fmt.Sprintf(`You are a professional translator preparing narration scripts.
Translate the user's text into the language identified by the BCP 47 tag %q.
Preserve meaning, tone, and sentence boundaries so the result can be read
aloud over the original video. Respond with the translated text only, no
commentary and no formatting markers.`, targetLang)
}

func reviewSystemPrompt(targetLang string) string {
	return fmt.Sprintf(`You are a translation quality reviewer. The user supplies a source
text and its translation into the language identified by the BCP 47 tag %q.
Flag phrases whose meaning drifted, was dropped, or was mistranslated.
Respond with JSON only, in this shape:
{"findings":[{"source":"<source phrase>","translation":"<translated phrase>","category":"<omission|mistranslation|addition|tone>","rationale":"<one sentence>"}]}
Return an empty findings list when the translation is faithful.`, targetLang)
}

func reviewUserPrompt(source, translation string) string {
	return fmt.Sprintf("Source text:\n%s\n\nTranslation:\n%s", source, translation)
}
