package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-compliance/pkg/sdk"
)

func run(t *testing.T, store sdk.PortalStore, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(func(*RootOptions) (sdk.PortalStore, error) { return store, nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func localStore(t *testing.T) sdk.PortalStore {
	t.Helper()
	s, err := sdk.OpenLocal(nil)
	require.NoError(t, err)
	return s
}

func TestPingAndDatasets(t *testing.T) {
	s := localStore(t)

	out, err := run(t, s, "ping")
	require.NoError(t, err)
	assert.Equal(t, "PONG\n", out)

	out, err = run(t, s, "datasets", "--format", "json")
	require.NoError(t, err)
	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	if diff := cmp.Diff([]string{"audit", "checklist", "content"}, names); diff != "" {
		t.Errorf("datasets mismatch (-want +got):\n%s", diff)
	}
}

func TestList(t *testing.T) {
	s := localStore(t)

	out, err := run(t, s, "list", "content", "--eq", "status=published", "--sort", "title", "--dir", "asc", "--size", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "cnt-0002"))
	assert.Contains(t, lines[0], "AML/CFT Guidelines 2024")
	assert.True(t, strings.HasPrefix(lines[1], "cnt-0001"))
	assert.Equal(t, "page 1/2, 3 records", lines[2])

	out, err = run(t, s, "list", "checklist", "--flag", "completed=true", "--format", "json")
	require.NoError(t, err)
	var res sdk.Result[map[string]any]
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Total)

	out, err = run(t, s, "list", "content", "--any", "regulator=Insurance Commission;Securities Commission", "--format", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Total)

	out, err = run(t, s, "list", "content", "--any", "regulator=Insurance Commission;", "--format", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Total, "trailing separator adds no match-all value")

	_, err = run(t, s, "list", "checklist", "--flag", "completed=perhaps")
	assert.Error(t, err)
}

func TestQueryFlags_DropsEmptyAnyValues(t *testing.T) {
	qf := queryFlags{anyOf: map[string]string{"status": "published;; draft ;"}}
	q, err := qf.query()
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"published", "draft"}, q.AnyOf["status"]); diff != "" {
		t.Errorf("any values mismatch (-want +got):\n%s", diff)
	}
}

func TestGetStatsDelete(t *testing.T) {
	s := localStore(t)

	out, err := run(t, s, "get", "checklist", "chk-0004")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Board approval of AML policy"`)

	out, err = run(t, s, "stats", "checklist", "--eq", "regulator=Central Bank")
	require.NoError(t, err)
	assert.Contains(t, out, "total 2, matching 1, pending 1, overdue")
	assert.Contains(t, out, "riskLevel:")

	out, err = run(t, s, "delete", "checklist", "chk-0004")
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)

	_, err = run(t, s, "get", "checklist", "chk-0004")
	assert.ErrorIs(t, err, sdk.ErrNotFound)
}

func TestInvalidUsage(t *testing.T) {
	s := localStore(t)

	_, err := run(t, s, "datasets", "--format", "xml")
	assert.ErrorContains(t, err, "invalid format")

	_, err = run(t, s, "get", "content")
	assert.Error(t, err)

	_, err = run(t, s, "list", "users")
	assert.ErrorIs(t, err, sdk.ErrUnknownDataset)
}

func TestConnectFailure(t *testing.T) {
	boom := errors.New("connection refused")
	cmd := newRootCommand(func(*RootOptions) (sdk.PortalStore, error) { return nil, boom })
	cmd.SetArgs([]string{"ping"})
	cmd.SetOut(&bytes.Buffer{})
	assert.ErrorIs(t, cmd.Execute(), boom)
}
