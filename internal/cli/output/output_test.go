package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"TABLE", FormatTable, false},
		{" json ", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type userRow struct {
	Username string `json:"username" yaml:"username"`
	Keys     int    `json:"keys" yaml:"keys"`
}

func TestPrinter(t *testing.T) {
	users := NewTable("Username", "Keys")
	users.AddRow("alice", "2")
	users.AddRow("bob", "0")

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatTable).Print(users))
		out := buf.String()
		assert.Contains(t, out, "USERNAME")
		assert.Contains(t, out, "alice")
		assert.Contains(t, out, "bob")
	})

	t.Run("table falls back to json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatTable).Print(userRow{Username: "alice", Keys: 2}))
		assert.JSONEq(t, `{"username":"alice","keys":2}`, buf.String())
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatJSON).Print([]userRow{{"alice", 2}}))
		assert.JSONEq(t, `[{"username":"alice","keys":2}]`, buf.String())
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatYAML).Print([]userRow{{"alice", 2}}))
		assert.Equal(t, "- username: alice\n  keys: 2\n", buf.String())
	})
}

func TestStatusMessagesWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatTable)
	p.Success("User %q created", "alice")
	p.Warning("careful")
	assert.Equal(t, "User \"alice\" created\ncareful\n", buf.String())
}

func TestKeyValue(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, KeyValue(&buf, [][2]string{{"Status", "healthy"}, {"Uptime", "3m 2s"}}))
	out := buf.String()
	assert.Contains(t, out, "Status")
	assert.Contains(t, out, "healthy")
	assert.Contains(t, out, "3m 2s")
}
