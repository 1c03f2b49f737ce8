// Copyright (C) 2020 Lookup Works, Inc.
// See LICENSE for copying information.

package process_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"lookupd.io/lookupd/pkg/process"
)

func TestLoadConfigFromEnv(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.PersistentFlags().String("metainfo.addr", "http://localhost:8089", "")

	require.NoError(t, os.Setenv("LOOKUPD_METAINFO_ADDR", "http://example.com:9000"))
	defer func() { _ = os.Unsetenv("LOOKUPD_METAINFO_ADDR") }()

	require.NoError(t, process.LoadConfig(cmd, ""))

	value, err := cmd.PersistentFlags().GetString("metainfo.addr")
	require.NoError(t, err)
	require.Equal(t, "http://example.com:9000", value)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.json")
	require.NoError(t, ioutil.WriteFile(path, []byte(`{"session": "from-file"}`), 0600))

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("session", "", "")

	require.NoError(t, process.LoadConfig(cmd, path))

	value, err := cmd.Flags().GetString("session")
	require.NoError(t, err)
	require.Equal(t, "from-file", value)
}

func TestLoadConfigKeepsCommandLine(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("session", "", "")
	require.NoError(t, cmd.Flags().Set("session", "from-flag"))

	require.NoError(t, os.Setenv("LOOKUPD_SESSION", "from-env"))
	defer func() { _ = os.Unsetenv("LOOKUPD_SESSION") }()

	require.NoError(t, process.LoadConfig(cmd, ""))

	value, err := cmd.Flags().GetString("session")
	require.NoError(t, err)
	require.Equal(t, "from-flag", value)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("session", "", "")

	require.NoError(t, process.LoadConfig(cmd, filepath.Join(t.TempDir(), "absent.json")))
}
