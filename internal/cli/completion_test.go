package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCompletion(t *testing.T, shell string) string {
	t.Helper()
	var buf bytes.Buffer
	completionCmd.SetOut(&buf)
	t.Cleanup(func() { completionCmd.SetOut(nil) })

	require.NoError(t, completionCmd.RunE(completionCmd, []string{shell}))
	return buf.String()
}

func TestCompletionGeneration(t *testing.T) {
	tests := []struct {
		shell string
		want  []string
	}{
		{shell: "bash", want: []string{"# bash completion", "__start_srvstats", "__completeNoDesc"}},
		{shell: "zsh", want: []string{"#compdef srvstats", "_srvstats()"}},
		{shell: "fish", want: []string{"fish completion for srvstats", "complete -c srvstats"}},
		{shell: "powershell", want: []string{"Register-ArgumentCompleter"}},
	}

	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			output := runCompletion(t, tt.shell)
			for _, want := range tt.want {
				assert.Contains(t, output, want)
			}
		})
	}
}

func TestCompletionPowershellMentionsShell(t *testing.T) {
	output := runCompletion(t, "powershell")
	assert.Contains(t, strings.ToLower(output), "powershell completion")
}

func TestCompletionRejectsUnknownShell(t *testing.T) {
	err := completionCmd.Args(completionCmd, []string{"tcsh"})
	assert.Error(t, err)

	err = completionCmd.Args(completionCmd, []string{})
	assert.Error(t, err)
}

func TestRootRegistersCommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"collect", "watch", "probe", "config", "version", "completion"} {
		assert.Contains(t, names, want)
	}

	var sub []string
	for _, c := range configCmd.Commands() {
		sub = append(sub, c.Name())
	}
	assert.ElementsMatch(t, []string{"show", "validate", "init", "add-metric"}, sub)
}
