package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshmart/freshmart-pos/jobs"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd(&bytes.Buffer{})
	for _, path := range [][]string{{"migrate"}, {"seed"}, {"jobs", "enqueue"}, {"jobs", "inspect"}, {"jobs", "receipt"}, {"jobs", "scheduled"}} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestTaskFor(t *testing.T) {
	task, err := taskFor("reorder-scan")
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskReorderScan, task.Type())

	task, err = taskFor(jobs.TaskReportsWarmup)
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskReportsWarmup, task.Type())

	_, err = taskFor("price-sync")
	require.Error(t, err)
}

func TestManualTaskIDsAreUnique(t *testing.T) {
	a := manualTaskID("warmup")
	b := manualTaskID("warmup")
	assert.True(t, strings.HasPrefix(a, "manual:warmup:"))
	assert.NotEqual(t, a, b)
}

func TestReceiptRejectsBadID(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"jobs", "receipt", "abc", "sam@example.com"})
	require.Error(t, root.Execute())
}
