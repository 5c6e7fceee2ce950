package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate_NoTriggersNeverMatches(t *testing.T) {
	res := Evaluate(Input{Payload: "hello world"})
	assert.False(t, res.Matched)
}

func TestEvaluate_AppTriggerMatchesDisplayNameOrBundleID(t *testing.T) {
	res := Evaluate(Input{
		Fields:       Fields{Apps: "Notes"},
		Payload:      "hi",
		FrontAppName: "Notes",
	})
	assert.True(t, res.Matched)

	res = Evaluate(Input{
		Fields:           Fields{Apps: "com\\.apple\\.notes"},
		Payload:          "hi",
		FrontAppBundleID: "com.apple.notes",
	})
	assert.True(t, res.Matched)
}

func TestEvaluate_AndLogicRequiresAllNonEmptyFields(t *testing.T) {
	res := Evaluate(Input{
		Fields:       Fields{Apps: "Notes", Modes: "default", Logic: LogicAnd},
		Payload:      "hi",
		Mode:         "other",
		FrontAppName: "Notes",
	})
	assert.False(t, res.Matched)
}

func TestEvaluate_OrLogicMatchesOnAnySingleField(t *testing.T) {
	res := Evaluate(Input{
		Fields:       Fields{Apps: "Notes", Modes: "default", Logic: LogicOr},
		Payload:      "hi",
		Mode:         "other",
		FrontAppName: "Notes",
	})
	assert.True(t, res.Matched)
}

func TestEvaluate_NegatedFieldExcludesMatch(t *testing.T) {
	res := Evaluate(Input{
		Fields:       Fields{Apps: "!Safari"},
		Payload:      "hi",
		FrontAppName: "Safari",
	})
	assert.False(t, res.Matched)
}

func TestEvaluate_VoiceTriggerStripsPrefixAndUppercasesRemainder(t *testing.T) {
	res := Evaluate(Input{
		Fields:  Fields{Voice: "note"},
		Payload: "note: buy milk today",
	})
	assert.True(t, res.Matched)
	assert.Equal(t, "Buy milk today", res.Payload)
}

func TestEvaluate_VoiceTriggerNoMatchKeepsOriginalPayload(t *testing.T) {
	res := Evaluate(Input{
		Fields:  Fields{Voice: "task"},
		Payload: "note: buy milk today",
	})
	assert.False(t, res.Matched)
	assert.Equal(t, "note: buy milk today", res.Payload)
}

func TestEvaluate_CaseInsensitiveMatch(t *testing.T) {
	res := Evaluate(Input{
		Fields:       Fields{Apps: "notes"},
		Payload:      "hi",
		FrontAppName: "Notes",
	})
	assert.True(t, res.Matched)
}
