// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package render expands ${name} placeholders in a template source against the
// current values held by the variable store.
package render

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ManuGH/templatesvc/internal/status"
)

// Lookup provides the current textual value of store variables.
type Lookup interface {
	Values(ctx context.Context, names []string) (map[string]string, error)
}

var (
	openDelim  = []byte("${")
	closeDelim = []byte("}")
)

// segment is either literal text or a placeholder reference.
type segment struct {
	text []byte
	name string
	ref  bool
}

// parse splits src into literal and placeholder segments. An unterminated
// "${" is kept as literal text.
func parse(src []byte) []segment {
	var segs []segment
	for len(src) > 0 {
		i := bytes.Index(src, openDelim)
		if i < 0 {
			segs = append(segs, segment{text: src})
			break
		}
		j := bytes.Index(src[i+len(openDelim):], closeDelim)
		if j < 0 {
			segs = append(segs, segment{text: src})
			break
		}
		if i > 0 {
			segs = append(segs, segment{text: src[:i]})
		}
		end := i + len(openDelim) + j + len(closeDelim)
		name := string(src[i+len(openDelim) : i+len(openDelim)+j])
		segs = append(segs, segment{text: src[i:end], name: name, ref: name != ""})
		src = src[end:]
	}
	return segs
}

// Names returns the distinct placeholder names referenced by src in order of first use.
func Names(src []byte) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, s := range parse(src) {
		if !s.ref {
			continue
		}
		if _, ok := seen[s.name]; ok {
			continue
		}
		seen[s.name] = struct{}{}
		names = append(names, s.name)
	}
	return names
}

// ToSink reads the whole template from src, substitutes every ${name} with
// the variable's current value and writes the result to dst. Placeholders
// naming unknown variables are written unchanged. It returns the number of
// bytes written.
func ToSink(ctx context.Context, lookup Lookup, src io.Reader, dst io.Writer) (int64, error) {
	if lookup == nil || src == nil || dst == nil {
		return 0, status.ErrInvalidArgument
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return 0, fmt.Errorf("read template: %w", err)
	}

	segs := parse(data)
	values, err := lookup.Values(ctx, Names(data))
	if err != nil {
		return 0, fmt.Errorf("lookup variables: %w", err)
	}

	cw := &countingWriter{w: dst}
	bw := bufio.NewWriter(cw)
	for _, s := range segs {
		if s.ref {
			if v, ok := values[s.name]; ok {
				_, err = bw.WriteString(v)
			} else {
				_, err = bw.Write(s.text)
			}
		} else {
			_, err = bw.Write(s.text)
		}
		if err != nil {
			return cw.n, wrapWrite(err)
		}
	}
	if err := bw.Flush(); err != nil {
		return cw.n, wrapWrite(err)
	}
	return cw.n, nil
}

// wrapWrite classifies sink failures as transport failures unless the sink
// already classified them.
func wrapWrite(err error) error {
	if status.Label(err) != "transport" {
		return fmt.Errorf("write output: %w", err)
	}
	return fmt.Errorf("write output: %w: %w", status.ErrTransport, err)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
