package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequiresInput(t *testing.T) {
	_, err := Parse([]string{"--idxmap", "x.map", "-c", "10", "-k", "17"})
	assert.Error(t, err)
}

func TestParseRequiresIndexMap(t *testing.T) {
	_, err := Parse([]string{"-i", "reads.fasta", "-c", "10", "-k", "17"})
	assert.Error(t, err)
}

func TestParseRequiresSeqCount(t *testing.T) {
	_, err := Parse([]string{"-i", "reads.fasta", "--idxmap", "x.map", "-k", "17"})
	assert.Error(t, err)
}

func TestParseRejectsUnsupportedAlphabet(t *testing.T) {
	_, err := Parse([]string{"-i", "reads.fasta", "--idxmap", "x.map", "-c", "10", "-k", "17", "--alph", "protein"})
	assert.Error(t, err)
}

func TestParseDefaultsToFullAlignment(t *testing.T) {
	cfg, err := Parse([]string{"-i", "reads.fasta", "--idxmap", "x.map", "-c", "10", "-k", "17"})
	require.NoError(t, err)
	assert.Equal(t, AlignFull, cfg.Align)
	assert.Equal(t, 2, cfg.SeedCount)
	assert.EqualValues(t, 10, cfg.Fuzz)
}

func TestParseSelectsXDropAlignment(t *testing.T) {
	cfg, err := Parse([]string{"-i", "reads.fasta", "--idxmap", "x.map", "-c", "10", "-k", "17", "--xa", "7"})
	require.NoError(t, err)
	assert.Equal(t, AlignXDrop, cfg.Align)
	assert.Equal(t, 7, cfg.XDrop)
}

func TestParseNoAlignOverridesOthers(t *testing.T) {
	cfg, err := Parse([]string{"-i", "reads.fasta", "--idxmap", "x.map", "-c", "10", "-k", "17", "--na", "--xa", "7"})
	require.NoError(t, err)
	assert.Equal(t, AlignNone, cfg.Align)
}

func TestParseAllFieldsWired(t *testing.T) {
	cfg, err := Parse([]string{
		"-i", "reads.fasta", "--idxmap", "x.map", "-c", "100", "-k", "19",
		"--sc", "3", "--ma", "2", "--mi", "-2", "-g", "-5", "-e", "-2", "--fuzz", "25",
	})
	require.NoError(t, err)
	assert.Equal(t, "reads.fasta", cfg.InputPath)
	assert.Equal(t, "x.map", cfg.IndexMapPath)
	assert.Equal(t, 100, cfg.SeqCount)
	assert.Equal(t, 19, cfg.KmerLength)
	assert.Equal(t, 3, cfg.SeedCount)
	assert.Equal(t, 2, cfg.MatchScore)
	assert.Equal(t, -2, cfg.MismatchScore)
	assert.Equal(t, -5, cfg.GapOpen)
	assert.Equal(t, -2, cfg.GapExt)
	assert.EqualValues(t, 25, cfg.Fuzz)
}
