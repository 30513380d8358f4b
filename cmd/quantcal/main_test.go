package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_Help(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	oldArgs := os.Args
	os.Args = []string{"quantcal", "--help"}
	defer func() { os.Args = oldArgs }()

	assert.Equal(t, 0, run())
}

func TestRun_UnknownCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	oldArgs := os.Args
	os.Args = []string{"quantcal", "frobnicate"}
	defer func() { os.Args = oldArgs }()

	assert.Equal(t, 1, run())
}
