package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()

	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"push", "add", "list", "serve", "import", "web", "health"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}

func TestPushRequiresTopic(t *testing.T) {
	t.Setenv("NTFY_TOPIC", "")
	t.Setenv("GRE_CSV_PATH", t.TempDir()+"/words.csv")

	root := NewRootCmd()
	root.SetArgs([]string{"push"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NTFY_TOPIC")
}
