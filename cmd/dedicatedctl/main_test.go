package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Ngone6325/dedicated/di"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, namespace, debug, trace = "", "", false, false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dedicated.yaml")
	body = strings.ReplaceAll(body, "$DIR", dir)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNamesCommand(t *testing.T) {
	out, err := execute(t, "names", "orders", "--namespace", "app")
	require.NoError(t, err)

	var names map[string]channelNames
	require.NoError(t, yaml.Unmarshal([]byte(out), &names))
	require.Equal(t, channelNames{
		EntityManager: "app.orm.orders_entity_manager",
		Connection:    "app.dbal.orders_connection",
		Registry:      "app.dedicated_registry.orders",
	}, names["orders"])
}

func TestNamesCommand_RequiresChannel(t *testing.T) {
	_, err := execute(t, "names")
	require.Error(t, err)
}

func TestDefinitionsCommand_UsesConfiguredChannels(t *testing.T) {
	path := writeConfig(t, `
data_dir: $DIR
channels:
  billing: {}
  orders:
    max_open_conns: 2
`)
	out, err := execute(t, "definitions", "--config", path)
	require.NoError(t, err)

	var g di.Graph
	require.NoError(t, yaml.Unmarshal([]byte(out), &g))
	for _, id := range []string{
		"doctrine.orm.billing_entity_manager",
		"doctrine.orm.orders_entity_manager",
		"doctrine.dbal.orders_connection",
		"doctrine.dedicated_registry.orders",
		"doctrine_dedicated_entity_manager.factory",
	} {
		_, ok := g.Find(id)
		require.True(t, ok, id)
	}
}

func TestPingCommand(t *testing.T) {
	path := writeConfig(t, "data_dir: $DIR\n")
	out, err := execute(t, "ping", "orders", "billing", "--config", path)
	require.NoError(t, err)
	require.Contains(t, out, "orders\tok\tdoctrine.orm.orders_entity_manager")
	require.Contains(t, out, "billing\tok\tdoctrine.orm.billing_entity_manager")
}
