package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func init() {
	DisableColor()
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "TABLE": FormatTable, "json": FormatJSON, " yaml ": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseFormat("csv")
	require.Error(t, err)
}

type row struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatJSON, []row{{1, "Ana"}}))
	require.JSONEq(t, `[{"id":1,"name":"Ana"}]`, buf.String())

	buf.Reset()
	require.NoError(t, Encode(&buf, FormatYAML, row{2, "Bruno"}))
	require.Equal(t, "id: 2\nname: Bruno\n", buf.String())

	require.Error(t, Encode(&buf, FormatTable, nil))
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatTable, nil, []string{"ID", "Name"}, [][]string{{"1", "Ana Silva"}}, "none"))
	out := buf.String()
	require.Contains(t, out, "ID")
	require.Contains(t, out, "Ana Silva")

	buf.Reset()
	require.NoError(t, Print(&buf, FormatTable, nil, []string{"ID"}, nil, "No patients found"))
	require.Equal(t, "No patients found", strings.TrimSpace(buf.String()))
}

func TestRenderWithoutColorIsPlain(t *testing.T) {
	require.Equal(t, "ok", RenderPass("ok"))
	require.Equal(t, "x", RenderFail("x"))
}

func TestReadText(t *testing.T) {
	got, err := ReadText(strings.NewReader("linha 1\nlinha 2\n"))
	require.NoError(t, err)
	require.Equal(t, "linha 1\nlinha 2", got)
}
