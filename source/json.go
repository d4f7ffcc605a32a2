package source

import (
	"bytes"
	"errors"
	"io"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/reoring/materia"
)

func decodeJSON(data []byte, o options) (any, error) {
	if o.dup == DuplicatesReject {
		c := &collector{max: o.maxIssues}
		if err := scanDuplicates(data, c); err != nil {
			return nil, parseError(err)
		}
		if err := c.err(); err != nil {
			return nil, err
		}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if o.useNumber {
		dec.UseNumber()
	}
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, parseError(err)
	}
	if dec.More() {
		return nil, parseError(errors.New("unexpected data after the top-level value"))
	}
	return v, nil
}

// frame tracks one open container during the token scan.
type frame struct {
	object    bool
	path      string
	keys      map[string]struct{}
	key       string
	expectKey bool
	index     int
}

// child returns the pointer of the value about to start inside f.
func (f *frame) child() string {
	switch {
	case f == nil:
		return ""
	case f.object:
		return f.path + materia.Pointer(f.key)
	default:
		return f.path + "/" + strconv.Itoa(f.index)
	}
}

func (f *frame) valueDone() {
	switch {
	case f == nil:
	case f.object:
		f.expectKey = true
	default:
		f.index++
	}
}

// scanDuplicates walks the token stream and reports keys repeated within the
// same object, addressed by their JSON Pointer.
func scanDuplicates(data []byte, c *collector) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var stack []*frame
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		var top *frame
		if n := len(stack); n > 0 {
			top = stack[n-1]
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				f := &frame{object: d == '{', path: top.child()}
				if f.object {
					f.keys = map[string]struct{}{}
					f.expectKey = true
				}
				stack = append(stack, f)
			case '}', ']':
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
				if n := len(stack); n > 0 {
					stack[n-1].valueDone()
				}
			}
			continue
		}
		if top != nil && top.object && top.expectKey {
			k, _ := tok.(string)
			if _, dup := top.keys[k]; dup {
				c.duplicate(top.path+materia.Pointer(k), k)
			}
			top.keys[k] = struct{}{}
			top.key = k
			top.expectKey = false
			continue
		}
		top.valueDone()
	}
}
