package main

import (
	"bytes"
	"log"
	"net"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})
	return &buf
}

func TestExecute_ReportsBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	port := ln.Addr().(*net.TCPAddr).Port

	t.Setenv("APP_PORT", strconv.Itoa(port))
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "app.db"))
	logs := captureLog(t)

	cmd := newRootCmd()
	cmd.SetArgs([]string{})
	err = execute(cmd)
	require.Error(t, err)
	assert.Contains(t, logs.String(), "server: ")
	assert.Contains(t, logs.String(), err.Error())
}

func TestExecute_MigrateCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "app.db")
	t.Setenv("DB_PATH", dbPath)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"migrate"})
	require.NoError(t, execute(cmd))
	assert.Equal(t, dbPath+" at schema version 4\n", out.String())
}
