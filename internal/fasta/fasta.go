// Package fasta loads reads from a FASTA file and distributes them across
// the process grid, producing the read identifiers matrix A's rows are
// indexed by.
package fasta

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/elba/internal/procgrid"
)

// Read is a single FASTA record: its header-derived ID and its sequence,
// in original case.
type Read struct {
	ID  string
	Seq string
}

// Load parses every record out of the FASTA file at path, in file order.
// A path ending in ".gz" is transparently gunzipped while streaming.
func Load(ctx context.Context, path string) ([]Read, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "fasta: opening", path)
	}
	defer f.Close(ctx) // nolint:errcheck

	var r io.Reader = f.Reader(ctx)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.E(err, "fasta: opening gzip stream", path)
		}
		defer gz.Close() // nolint:errcheck
		r = gz
	}

	var (
		reads []Read
		cur   *Read
		body  strings.Builder
	)
	flush := func() {
		if cur != nil {
			cur.Seq = body.String()
			reads = append(reads, *cur)
		}
		body.Reset()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if line[0] == '>' {
			flush()
			id := strings.Fields(line[1:])
			name := ""
			if len(id) > 0 {
				name = id[0]
			}
			cur = &Read{ID: name}
			continue
		}
		body.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.E(err, "fasta: scanning", path)
	}
	flush()
	return reads, nil
}

// OwnerRank returns the grid rank that enumerates readID's k-mers,
// determined by hashing the read identifier with FarmHash so that ownership
// is stable across a run without requiring a shared index. It does not
// decide where the read's row of A is stored.
func OwnerRank(grid *procgrid.Grid, readID string) procgrid.Rank {
	h := farm.Hash64([]byte(readID))
	n := int64(grid.Dim())
	row := int64(h % uint64(n))
	col := int64((h / uint64(n)) % uint64(n))
	return procgrid.Rank{Row: int(row), Col: int(col)}
}
