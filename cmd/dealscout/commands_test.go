package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/dealscout/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DEALSCOUT_STORE_DSN", ":memory:")
	t.Setenv("DEALSCOUT_LOG_LEVEL", "error")
	t.Setenv("DEALSCOUT_LOG_FORMAT", "text")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestSearchCommand_PrintsJSON(t *testing.T) {
	setTestEnv(t)

	out, err := execute(t, "search", "wireless", "headphones", "--max-price", "400", "--limit", "3")
	require.NoError(t, err)

	var resp domain.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "wireless headphones", resp.Query)
	assert.LessOrEqual(t, len(resp.Products), 3)
	assert.Equal(t, 3, resp.Pagination.Limit)
	for _, p := range resp.Products {
		assert.LessOrEqual(t, p.Price, 400.0)
	}
}

func TestSearchCommand_InvalidSort(t *testing.T) {
	setTestEnv(t)

	_, err := execute(t, "search", "tv", "--sort", "cheapest")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestSearchCommand_RequiresQuery(t *testing.T) {
	setTestEnv(t)

	_, err := execute(t, "search")
	assert.Error(t, err)
}

func TestIndexCommand_ReportsCounts(t *testing.T) {
	setTestEnv(t)

	out, err := execute(t, "index")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 27 catalog products")
	assert.Contains(t, out, "Store: 27 products")
	assert.Contains(t, out, "Keyword index: 27 documents")
	assert.Contains(t, out, "Vector index: 27 vectors")
}
