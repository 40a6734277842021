package landmark

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format is a landmark file encoding
type Format int

const (
	FormatJSON Format = iota
	FormatJSONLines
	FormatMsgpack
)

// FormatFor picks the encoding from a file extension
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONLines, nil
	case ".msgpack", ".mpk":
		return FormatMsgpack, nil
	}
	return 0, fmt.Errorf("unsupported landmark file extension %q", filepath.Ext(path))
}

// Load reads all frames from a landmark file
func Load(path string) ([]Frame, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open landmark file: %w", err)
	}
	defer f.Close()

	frames, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return frames, nil
}

// Decode reads frames in the given format. A JSON document may hold a single
// frame object or an array of frames. Frames without an explicit index are
// numbered by position.
func Decode(r io.Reader, format Format) ([]Frame, error) {
	var frames []Frame
	switch format {
	case FormatJSON:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		data = bytes.TrimSpace(data)
		if len(data) > 0 && data[0] == '{' {
			var fr Frame
			if err := json.Unmarshal(data, &fr); err != nil {
				return nil, err
			}
			frames = []Frame{fr}
		} else if err := json.Unmarshal(data, &frames); err != nil {
			return nil, err
		}
	case FormatJSONLines:
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var fr Frame
			if err := json.Unmarshal(line, &fr); err != nil {
				return nil, fmt.Errorf("line %d: %w", len(frames)+1, err)
			}
			frames = append(frames, fr)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	case FormatMsgpack:
		dec := msgpack.NewDecoder(r)
		for {
			var fr Frame
			if err := dec.Decode(&fr); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, fmt.Errorf("record %d: %w", len(frames)+1, err)
			}
			frames = append(frames, fr)
		}
	default:
		return nil, fmt.Errorf("unknown landmark format %d", format)
	}

	numberFrames(frames)
	return frames, nil
}

// Encode writes frames in the given format
func Encode(w io.Writer, format Format, frames []Frame) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(frames)
	case FormatJSONLines:
		enc := json.NewEncoder(w)
		for _, fr := range frames {
			if err := enc.Encode(fr); err != nil {
				return err
			}
		}
		return nil
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		for _, fr := range frames {
			if err := enc.Encode(fr); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown landmark format %d", format)
}

// Save writes frames to path, choosing the encoding from the extension
func Save(path string, frames []Frame) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create landmark file: %w", err)
	}
	if err := Encode(f, format, frames); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Index maps frame numbers to frames
func Index(frames []Frame) map[int]Frame {
	idx := make(map[int]Frame, len(frames))
	for _, fr := range frames {
		idx[fr.Frame] = fr
	}
	return idx
}

func numberFrames(frames []Frame) {
	if len(frames) < 2 {
		return
	}
	for _, fr := range frames {
		if fr.Frame != 0 {
			return
		}
	}
	for i := range frames {
		frames[i].Frame = i
	}
}
