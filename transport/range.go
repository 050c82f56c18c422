package transport

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// parseRangeOffset parses an HTTP Range header of the open-ended form
// "bytes=N-", the only form DownloadFrom ever sends.
func parseRangeOffset(header string) (int64, error) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return 0, xerrors.Errorf("transport: unsupported range header %q", header)
	}
	spec := strings.TrimPrefix(header, prefix)
	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return 0, xerrors.Errorf("transport: malformed range header %q", header)
	}
	offset, err := strconv.ParseInt(spec[:dash], 10, 64)
	if err != nil {
		return 0, xerrors.Errorf("transport: malformed range offset %q: %w", spec[:dash], err)
	}
	return offset, nil
}

// rangeHeader formats an open-ended byte range for an outgoing request.
func rangeHeader(offset int64) string {
	return fmt.Sprintf("bytes=%d-", offset)
}

func copyBody(w io.Writer, r io.Reader) (int64, error) {
	return io.Copy(w, r)
}
