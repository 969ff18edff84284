package sync

import (
	"bytes"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"
)

const compareChunkSize = 32 * 1024

// Identical reports whether the files at a and b have byte-identical content.
// A missing b is not an error: it is simply not identical. Any other failure
// to read either file is returned as a *ComparisonError.
func Identical(fs billy.Filesystem, a, b string) (bool, error) {
	bInfo, err := fs.Stat(b)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &ComparisonError{Path: b, Err: err}
	}

	aFile, err := fs.Open(a)
	if err != nil {
		return false, &ComparisonError{Path: a, Err: err}
	}
	defer func() {
		_ = aFile.Close()
	}()

	bFile, err := fs.Open(b)
	if err != nil {
		return false, &ComparisonError{Path: b, Err: err}
	}
	defer func() {
		_ = bFile.Close()
	}()

	// Both sides are readable; only now may a size mismatch decide.
	aInfo, err := fs.Stat(a)
	if err != nil {
		return false, &ComparisonError{Path: a, Err: err}
	}
	if aInfo.Size() != bInfo.Size() {
		return false, nil
	}

	aBuf := make([]byte, compareChunkSize)
	bBuf := make([]byte, compareChunkSize)
	for {
		an, aErr := io.ReadFull(aFile, aBuf)
		if aErr != nil && aErr != io.EOF && aErr != io.ErrUnexpectedEOF {
			return false, &ComparisonError{Path: a, Err: aErr}
		}
		bn, bErr := io.ReadFull(bFile, bBuf)
		if bErr != nil && bErr != io.EOF && bErr != io.ErrUnexpectedEOF {
			return false, &ComparisonError{Path: b, Err: bErr}
		}

		if an != bn || !bytes.Equal(aBuf[:an], bBuf[:bn]) {
			return false, nil
		}
		if aErr != nil || bErr != nil {
			// short read on both sides at the same offset: end of file
			return aErr != nil && bErr != nil, nil
		}
	}
}
