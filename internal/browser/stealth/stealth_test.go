package stealth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestScriptMasksWebdriver(t *testing.T) {
	require.NotEmpty(t, evasionsScript)
	assert.Contains(t, evasionsScript, "'webdriver'")
}

func TestAcceptLanguage(t *testing.T) {
	tests := []struct {
		name  string
		langs []string
		want  string
	}{
		{"Empty", nil, ""},
		{"Single", []string{"en-US"}, "en-US"},
		{"Weighted", []string{"en-US", "en", "de"}, "en-US,en;q=0.9,de;q=0.8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Persona{Languages: tt.langs}.AcceptLanguage())
		})
	}
}

func TestWithUserAgent(t *testing.T) {
	p := DefaultPersona.WithUserAgent("")
	assert.Equal(t, DefaultPersona.UserAgent, p.UserAgent)

	p = DefaultPersona.WithUserAgent("custom/1.0")
	assert.Equal(t, "custom/1.0", p.UserAgent)
	assert.NotEqual(t, "custom/1.0", DefaultPersona.UserAgent, "the default must not be mutated")
}

func TestApply(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	tasks := Apply(DefaultPersona, zap.New(core))
	// user agent override, Accept-Language header, evasion script
	assert.Len(t, tasks, 3)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Applying browser stealth persona", logs.All()[0].Message)

	tasks = Apply(Persona{UserAgent: "ua"}, zap.NewNop())
	assert.Len(t, tasks, 2)
}
