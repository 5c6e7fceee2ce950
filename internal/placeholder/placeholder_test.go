package placeholder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpand_GenericMetaKeyLookup(t *testing.T) {
	d := &Data{Meta: map[string]interface{}{"language": "en", "duration": 4.5}}
	out := Expand("lang={{language}} dur={{duration}}", d, KindInsert)
	assert.Equal(t, "lang=en dur=4.5", out)
}

func TestExpand_MissingKeyResolvesToEmptyString(t *testing.T) {
	d := &Data{Meta: map[string]interface{}{}}
	out := Expand("value=[{{nope}}]", d, KindInsert)
	assert.Equal(t, "value=[]", out)
}

func TestExpand_ResultAndFrontAppAndSwResultFallback(t *testing.T) {
	d := &Data{Result: "hello there", FrontApp: "Notes"}
	out := Expand("{{result}} in {{frontApp}}, sw={{swResult}}", d, KindInsert)
	assert.Equal(t, "hello there in Notes, sw=hello there", out)
}

func TestExpand_SwResultPrefersLlmResult(t *testing.T) {
	d := &Data{Result: "raw transcript", LlmResult: "cleaned up text"}
	out := Expand("{{swResult}}", d, KindInsert)
	assert.Equal(t, "cleaned up text", out)
}

func TestExpand_VoiceOverrideReplacesResultAndLlmResult(t *testing.T) {
	override := "Buy milk today"
	d := &Data{Result: "note: buy milk today", LlmResult: "note: buy milk today", VoiceOverride: &override}
	out := Expand("{{result}}|{{llmResult}}", d, KindInsert)
	assert.Equal(t, "Buy milk today|Buy milk today", out)
}

func TestExpand_XmlTagExtractedAndStrippedFromResult(t *testing.T) {
	d := &Data{Result: "before <title>My Title</title> after"}
	out := Expand("title={{xml:title}} rest={{result}}", d, KindInsert)
	assert.Equal(t, "title=My Title rest=before  after", out)
}

func TestExpand_RegexPostProcessing(t *testing.T) {
	d := &Data{Result: "hello world"}
	out := Expand("{{result||world||there}}", d, KindInsert)
	assert.Equal(t, "hello there", out)
}

func TestExpand_InsertEscapingUnescapesLiteralNewline(t *testing.T) {
	d := &Data{Result: `line one\nline two`}
	out := Expand("{{result}}", d, KindInsert)
	assert.Equal(t, "line one\nline two", out)
}

func TestExpand_UrlEscapingPercentEncodesUnsafeChars(t *testing.T) {
	d := &Data{Result: "a b&c"}
	out := Expand("https://example.com/q?s={{result}}", d, KindURL)
	assert.Equal(t, "https://example.com/q?s=a%20b%26c", out)
}

func TestExpand_ShellEscapingEscapesSpecialChars(t *testing.T) {
	d := &Data{Result: `say "$HOME"`}
	out := Expand(`echo {{result}}`, d, KindShell)
	assert.Equal(t, `echo say \"\$HOME\"`, out)
}

func TestExpand_AppleScriptEscapingEscapesQuotes(t *testing.T) {
	d := &Data{Result: `he said "hi"`}
	out := Expand(`display dialog "{{result}}"`, d, KindAppleScript)
	assert.Equal(t, `display dialog "he said \"hi\""`, out)
}

func TestExpand_ShortcutEscapingIsNoOp(t *testing.T) {
	d := &Data{Result: `a "quoted" $value`}
	out := Expand("{{result}}", d, KindShortcut)
	assert.Equal(t, `a "quoted" $value`, out)
}

func TestExpand_BoolAndNullMetaValuesStringify(t *testing.T) {
	d := &Data{Meta: map[string]interface{}{"flag": true, "absent": nil}}
	out := Expand("{{flag}}|{{absent}}", d, KindInsert)
	assert.Equal(t, "true|", out)
}
