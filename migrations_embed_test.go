package main

import (
	"io/fs"
	"regexp"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	createTableRe = regexp.MustCompile(`(?i)CREATE TABLE IF NOT EXISTS (\w+)`)
	dropTableRe   = regexp.MustCompile(`(?i)DROP TABLE IF EXISTS (\w+)`)
)

// Delivery attempts are only logged; the schema keeps no table for them.
func TestMigrations_Schema(t *testing.T) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)
	sort.Strings(names)

	tables := map[string]bool{}
	for _, name := range names {
		sql, err := migrationsFS.ReadFile(name)
		require.NoError(t, err)
		for _, m := range createTableRe.FindAllStringSubmatch(string(sql), -1) {
			tables[m[1]] = true
		}
		for _, m := range dropTableRe.FindAllStringSubmatch(string(sql), -1) {
			delete(tables, m[1])
		}
	}

	var got []string
	for name := range tables {
		got = append(got, name)
	}
	assert.ElementsMatch(t, []string{"users", "products", "orders", "order_items", "link_throttle"}, got)
}
