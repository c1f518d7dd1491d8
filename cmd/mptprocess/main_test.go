package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mptcli/internal/exporter"
	"mptcli/internal/infrastructure"
	"mptcli/internal/shared/testutil"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Cleanup(infrastructure.ResetLoggerForTesting)
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestParseFlags(t *testing.T) {
	var stderr bytes.Buffer
	opts, err := parseFlags([]string{"-out", "results", "-workers", "2", "-bom", "-cycles=false", "a.mpt", "data"}, &stderr)
	require.NoError(t, err)

	assert.Equal(t, "results", opts.outDir)
	assert.Equal(t, 2, opts.workers)
	assert.True(t, opts.bom)
	assert.False(t, opts.cycles)
	assert.Equal(t, []string{"a.mpt", "data"}, opts.inputs)
}

func TestParseFlags_NoInputs(t *testing.T) {
	var stderr bytes.Buffer
	_, err := parseFlags(nil, &stderr)
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "Usage: mptprocess")
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "-version")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "mptprocess v")
}

func TestRun_UsageErrors(t *testing.T) {
	dir := t.TempDir()

	code, _, _ := runCLI(t)
	assert.Equal(t, exitUsage, code)

	code, _, stderr := runCLI(t, "-config", filepath.Join(dir, "absent.yaml"), dir)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "CONFIG")

	code, _, stderr = runCLI(t, dir)
	assert.Equal(t, exitUsage, code, "an empty directory has nothing to process")
	assert.Contains(t, stderr, "no .mpt files found")
}

func TestRun_ProcessesDirectory(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	testutil.NewChargeDischargeBuilder().WriteFile(t, in, "cell_C01.mpt")
	testutil.NewChargeDischargeBuilder().WriteFile(t, in, "cell_C02.mpt")

	code, stdout, _ := runCLI(t, "-out", out, in)

	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Processed 2 files")
	for _, name := range []string{
		"cell_C01_cropped.csv",
		"cell_C01_cycle_001.csv",
		"cell_C01_cycle_002.csv",
		"cell_C01_capacitance.csv",
		"cell_C01_half_cycles.csv",
		"cell_C02_capacitance.csv",
		exporter.CombinedCapacitanceFile,
		exporter.CombinedCroppedFile,
	} {
		assert.FileExists(t, filepath.Join(out, name))
	}
}

func TestRun_ReportsFailedFiles(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	good := testutil.NewChargeDischargeBuilder().WriteFile(t, in, "good.mpt")
	bad := filepath.Join(in, "bad.mpt")
	require.NoError(t, os.WriteFile(bad, []byte("not an export\r\n"), 0o644))

	code, stdout, _ := runCLI(t, "-out", out, "-cycles=false", good, bad)

	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stdout, "1 succeeded, 1 failed")
	assert.Contains(t, stdout, "FAILED stage parse failed for "+bad)
	assert.FileExists(t, filepath.Join(out, "good_capacitance.csv"))
	assert.NoFileExists(t, filepath.Join(out, "good_cycle_001.csv"))
	assert.NoFileExists(t, filepath.Join(out, "bad_cropped.csv"))
}

func TestRun_SameNameInDifferentDirectories(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	testutil.NewChargeDischargeBuilder().WriteFile(t, a, "sample_C01.mpt")
	testutil.NewChargeDischargeBuilder().WriteFile(t, b, "sample_C01.mpt")

	code, stdout, _ := runCLI(t, "-out", out, a, b)
	require.Equal(t, exitOK, code)

	for _, name := range []string{
		"a_sample_C01_cropped.csv",
		"a_sample_C01_capacitance.csv",
		"b_sample_C01_cropped.csv",
		"b_sample_C01_cycle_002.csv",
		"b_sample_C01_half_cycles.csv",
	} {
		assert.FileExists(t, filepath.Join(out, name))
	}
	assert.NoFileExists(t, filepath.Join(out, "sample_C01_cropped.csv"))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Contains(t, stdout, fmt.Sprintf("%d CSV files written", len(entries)))

	f, err := os.Open(filepath.Join(out, exporter.CombinedCapacitanceFile))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	labels := map[string]bool{}
	for _, rec := range records[1:] {
		labels[rec[0]] = true
	}
	assert.Equal(t, map[string]bool{"a_sample_C01": true, "b_sample_C01": true}, labels)
}
