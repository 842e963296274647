package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seedsindex/internal/record"
	"github.com/roach88/seedsindex/internal/topic"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"node_id": "0xabc"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("NOT_FOUND", "no participant with that id", map[string]string{"id": "0x01"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "no participant with that id", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			require.NoError(t, formatter.Error("INVALID_TOPIC", "unknown topic", "astrology"))
			assert.Contains(t, buf.String(), "Error [INVALID_TOPIC]: unknown topic")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details: astrology")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: true}

	formatter.VerboseLog("loaded %d records", 3)

	assert.Empty(t, out.String())
	assert.Equal(t, "loaded 3 records\n", diag.String())
}

func TestOutputFormatter_VerboseLogSilent(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	formatter.VerboseLog("hidden")
	assert.Empty(t, buf.String())
}

func TestOutputFormatter_RecordsText(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	rs := []record.Record{
		{ID: "0x02", Location: "https://b.example/", Topics: []topic.Tag{topic.Health, topic.Society}},
		{ID: "0x01", Location: "https://a.example/"},
	}
	require.NoError(t, formatter.Records(rs))

	assert.Equal(t,
		"0x01  https://a.example/  []\n"+
			"0x02  https://b.example/  [Health, society]\n",
		buf.String())
	assert.Equal(t, "0x02", rs[0].ID, "input is not reordered")
}

func TestOutputFormatter_RecordsEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Records(nil))
	assert.Equal(t, "No participants found.\n", buf.String())

	buf.Reset()
	formatter.Format = "json"
	require.NoError(t, formatter.Records(nil))
	assert.JSONEq(t, `{"status":"ok","data":[]}`, buf.String())
}

func TestExitError(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := WrapExitError(ExitFailure, "failed to start node", cause)

	assert.Equal(t, "failed to start node: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}
