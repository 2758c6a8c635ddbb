package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionAndUsage(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, 0, run(context.Background(), []string{"version"}, &out, &errOut))
	assert.Contains(t, out.String(), version)

	out.Reset()
	assert.Equal(t, 2, run(context.Background(), []string{"serve"}, &out, &errOut))
	assert.Contains(t, errOut.String(), "Commands:")
}

func TestDescribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
layers:
  - name: embed
    type: embedding
    num_embeddings: 10
    embedding_dim: 4
  - name: loss
    type: cross_entropy
    use_labels: true
`), 0o600))

	var out, errOut bytes.Buffer
	require.Equal(t, 0, run(context.Background(), []string{"describe", path}, &out, &errOut), errOut.String())
	assert.Contains(t, out.String(), "datatype: float32")
	assert.Contains(t, out.String(), "layout: data_parallel")
	assert.Contains(t, out.String(), "use_labels: true")
}

func TestDescribeRejectsBadModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte("layers:\n  - name: e\n    type: embedding\n    num_embeddings: -1\n"), 0o600))
	var out, errOut bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), []string{"describe", path}, &out, &errOut))
	assert.Contains(t, errOut.String(), "must be positive")
}

func TestTrainReducesLoss(t *testing.T) {
	ckpt := filepath.Join(t.TempDir(), "bigram.safetensors")
	cfg := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("checkpoint: "+ckpt+"\nbatch_size: 8\nlog_level: error\n"), 0o600))

	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"train", "-config", cfg, "-ranks", "4", "-steps", "40", "-tokenizer", "bytes"}, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())
	assert.Contains(t, out.String(), "grid 2x2")
	assert.Contains(t, out.String(), "final loss")
	assert.FileExists(t, ckpt)
}

func TestTrainFlagsOverrideConfigBeforeValidation(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("ranks: 0\nbatch_size: 4\nlog_level: error\n"), 0o600))

	var out, errOut bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), []string{"train", "-config", cfg, "-steps", "1", "-tokenizer", "bytes"}, &out, &errOut))
	assert.Contains(t, errOut.String(), "ranks must be positive")

	out.Reset()
	errOut.Reset()
	code := run(context.Background(), []string{"train", "-config", cfg, "-ranks", "2", "-steps", "2", "-tokenizer", "bytes"}, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())
	assert.Contains(t, out.String(), "grid 1x2")
}
