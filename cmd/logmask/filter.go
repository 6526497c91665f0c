package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/codeready-toolchain/logmask/pkg/logger"
	"github.com/codeready-toolchain/logmask/pkg/record"
	"github.com/codeready-toolchain/logmask/pkg/value"
)

const defaultMaxLine = 1 << 20

// runFilter re-emits every line of r through l. Lines holding a JSON record
// keep their level, fields and timestamp; any other line becomes the message
// of an info record, so nothing reaches the output unmasked.
func runFilter(ctx context.Context, l *logger.Logger, r io.Reader, maxLine int) error {
	if maxLine <= 0 {
		maxLine = defaultMaxLine
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	var records, plain int
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			break
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, ok := parseLine(line)
		if !ok {
			plain++
		}
		l.Write(ctx, rec)
		records++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	slog.Info("Input drained", "records", records, "plain_lines", plain)
	return nil
}

func parseLine(line []byte) (record.Record, bool) {
	if line[0] == '{' {
		if v, err := value.ParseJSON(line); err == nil {
			if rec, err := record.FromValue(v); err == nil {
				return rec, true
			}
		}
	}
	return record.Record{Level: record.LevelInfo, Message: string(line)}, false
}
