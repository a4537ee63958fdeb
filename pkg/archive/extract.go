package archive

import (
	"fmt"
	"io"

	"github.com/ssargent/fbtfile/pkg/chunk"
	"github.com/ssargent/fbtfile/pkg/schema"
)

// ExtractSchema returns the schema embedded in a stream and the stream
// header, skipping every data chunk.
func ExtractSchema(r io.Reader) (*schema.Table, chunk.StreamHeader, error) {
	var blob []byte
	header, err := Scan(r, func(h chunk.Header, payload []byte) error {
		if h.Code == chunk.CodeSchema {
			blob = payload
		}
		return nil
	})
	if err != nil {
		return nil, header, err
	}
	if blob == nil {
		return nil, header, ErrMissingSchema
	}
	table, err := schema.Parse(blob, header.Layout.Order)
	if err != nil {
		return nil, header, fmt.Errorf("file schema: %w", err)
	}
	return table, header, nil
}
