package ast

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/meigma/astedit/core/internal/asttype"
)

// copyConverted copies src to dst, replacing the leading tag when c
// selects a conversion.
func copyConverted(dst io.Writer, src io.Reader, c Conversion) error {
	from, to, ok := c.Tags()
	if !ok {
		_, err := io.Copy(dst, src)
		return err
	}

	var head [4]byte
	if _, err := io.ReadFull(src, head[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %s payload is shorter than its tag", asttype.ErrConversion, c)
		}
		return err
	}
	if !bytes.Equal(head[:len(from)], from) {
		return fmt.Errorf("%w: %s payload starts with % x", asttype.ErrConversion, c, head[:len(from)])
	}
	if _, err := dst.Write(to[:]); err != nil {
		return err
	}
	_, err := io.Copy(dst, src)
	return err
}

// convertBytes returns data with its leading tag replaced when c selects a
// conversion. data itself is never modified.
func convertBytes(data []byte, c Conversion) ([]byte, error) {
	from, to, ok := c.Tags()
	if !ok {
		return data, nil
	}
	if len(data) < len(to) {
		return nil, fmt.Errorf("%w: %s payload is shorter than its tag", asttype.ErrConversion, c)
	}
	if !bytes.HasPrefix(data, from) {
		return nil, fmt.Errorf("%w: %s payload starts with % x", asttype.ErrConversion, c, data[:len(from)])
	}
	out := bytes.Clone(data)
	copy(out, to[:])
	return out, nil
}
