package personalization

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonalizeCSV_AddsColumn(t *testing.T) {
	in := "\ufeffbusiness_name,email,specific_detail,pain_point\n" +
		"Acme,a@acme.com,new clinic,growth\n" +
		"Beta,b@beta.io,,\n"
	client := &fakeLLM{reply: "Saw the new clinic."}
	w := NewWriter(client, testPolicy(), nil)

	var out bytes.Buffer
	report, err := w.PersonalizeCSV(context.Background(), strings.NewReader(in), &out, 0)
	require.NoError(t, err)
	assert.Equal(t, CSVReport{Total: 2, Personalized: 2}, report)

	rows, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"business_name", "email", "specific_detail", "pain_point", "ai_first_line"}, rows[0])
	assert.Equal(t, "Saw the new clinic.", rows[1][4])
	assert.Equal(t, "b@beta.io", rows[2][1])
	assert.Contains(t, client.prompts[0], "Prospect: Acme")
}

func TestPersonalizeCSV_ExistingColumnOverwritten(t *testing.T) {
	in := "business_name,ai_first_line\nAcme,old line\n"
	w := NewWriter(&fakeLLM{reply: "new line"}, testPolicy(), nil)

	var out bytes.Buffer
	_, err := w.PersonalizeCSV(context.Background(), strings.NewReader(in), &out, 0)
	require.NoError(t, err)
	assert.Equal(t, "business_name,ai_first_line\nAcme,new line\n", out.String())
}

func TestPersonalizeCSV_FailuresKeepRows(t *testing.T) {
	in := "business_name\nAcme\n"
	w := NewWriter(&fakeLLM{err: assert.AnError}, testPolicy(), nil)

	var out bytes.Buffer
	report, err := w.PersonalizeCSV(context.Background(), strings.NewReader(in), &out, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Personalized)
	assert.Equal(t, "business_name,ai_first_line\nAcme,\n", out.String())
}

func TestPersonalizeCSV_Empty(t *testing.T) {
	w := NewWriter(&fakeLLM{}, testPolicy(), nil)
	_, err := w.PersonalizeCSV(context.Background(), strings.NewReader(""), &bytes.Buffer{}, 0)
	assert.Error(t, err)
}
