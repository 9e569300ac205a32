package matrix

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/traverse"
)

// MMHandler formats one non-zero's payload for the data section of a
// Matrix Market file. It receives only the value; the writer itself emits
// the 1-based coordinates Matrix Market requires.
type MMHandler[V any] func(v V) string

// ParallelWriteMM collectively writes m in symmetric coordinate Matrix
// Market format. Each grid cell formats its own lines independently and
// snappy-compresses them before handing them back across the fan-in
// boundary (the parallel part, standing in for the block exchange a real
// collective write would do over the network); the rank-ordered
// decompression, concatenation and file write are the single collective
// synchronization point, mirroring MPI_DCCols::ParallelWriteMM in the
// original pipeline. A path ending in ".gz" gets the final file gzipped.
func ParallelWriteMM[V any](ctx context.Context, path string, m *DistMatrix[V], kind string, handler MMHandler[V]) error {
	dim := m.grid.Dim()
	blocks := make([][]byte, dim*dim)
	err := traverse.Each(dim*dim, func(i int) error {
		pr, pc := i/dim, i%dim
		b := m.blocks[pr][pc]
		var buf strings.Builder
		b.forEach(func(r, c int64, v V) {
			fmt.Fprintf(&buf, "%d %d %s\n", r+1, c+1, handler(v))
		})
		blocks[i] = snappy.Encode(nil, []byte(buf.String()))
		return nil
	})
	if err != nil {
		return errors.E(err, "matrix: formatting Matrix Market output", path)
	}

	f, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "matrix: creating Matrix Market output", path)
	}
	var out io.Writer = f.Writer(ctx)
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(out)
		out = gz
	}
	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "%%%%MatrixMarket matrix coordinate %s symmetric\n", kind)
	fmt.Fprintf(w, "%d %d %d\n", m.rows, m.cols, m.NNZ())
	for _, encoded := range blocks {
		decoded, err := snappy.Decode(nil, encoded)
		if err != nil {
			return errors.E(err, "matrix: decoding Matrix Market block", path)
		}
		if _, err := w.Write(decoded); err != nil {
			return errors.E(err, "matrix: writing Matrix Market output", path)
		}
	}
	if err := w.Flush(); err != nil {
		return errors.E(err, "matrix: flushing Matrix Market output", path)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return errors.E(err, "matrix: closing gzip stream", path)
		}
	}
	return f.Close(ctx)
}
