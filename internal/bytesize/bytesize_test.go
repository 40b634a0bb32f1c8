package bytesize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		input   string
		want    ByteSize
		wantErr bool
	}{
		{"0", 0, false},
		{"4096", 4096, false},
		{"1024B", 1024, false},
		{"1Ki", KiB, false},
		{"32KiB", 32 * KiB, false},
		{"256kib", 256 * KiB, false},
		{"100Mi", 100 * MiB, false},
		{"1GiB", GiB, false},
		{"1TiB", TiB, false},
		{"1K", KB, false},
		{"100MB", 100 * MB, false},
		{"1 Gi", GiB, false},
		{"  64KiB  ", 64 * KiB, false},
		{"1.5Mi", ByteSize(1.5 * float64(MiB)), false},
		{"", 0, true},
		{"   ", 0, true},
		{"1Xi", 0, true},
		{"-1Gi", 0, true},
		{"KiB", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseByteSize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarshalTextRoundTrips(t *testing.T) {
	tests := []struct {
		size ByteSize
		text string
	}{
		{0, "0"},
		{1000, "1000"},
		{KiB, "1KiB"},
		{256 * KiB, "256KiB"},
		{1536 * KiB, "1536KiB"},
		{4 * MiB, "4MiB"},
		{GiB, "1GiB"},
		{2 * TiB, "2TiB"},
		{KiB + 1, "1025"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			text, err := tt.size.MarshalText()
			require.NoError(t, err)
			assert.Equal(t, tt.text, string(text))

			var back ByteSize
			require.NoError(t, back.UnmarshalText(text))
			assert.Equal(t, tt.size, back)
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "512B", ByteSize(512).String())
	assert.Equal(t, "256KiB", (256 * KiB).String())
	assert.Equal(t, "1.50MiB", (MiB + 512*KiB).String())
	assert.Equal(t, "1GiB", GiB.String())
}

func TestEncoders(t *testing.T) {
	type doc struct {
		MaxPacket ByteSize `json:"max_packet" yaml:"max_packet"`
	}

	out, err := yaml.Marshal(doc{MaxPacket: 256 * KiB})
	require.NoError(t, err)
	assert.Equal(t, "max_packet: 256KiB\n", string(out))

	var fromYAML doc
	require.NoError(t, yaml.Unmarshal([]byte("max_packet: 32KiB\n"), &fromYAML))
	assert.Equal(t, 32*KiB, fromYAML.MaxPacket)

	js, err := json.Marshal(doc{MaxPacket: 4 * MiB})
	require.NoError(t, err)
	assert.JSONEq(t, `{"max_packet":"4MiB"}`, string(js))
}
