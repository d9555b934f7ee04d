package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// promptString asks for a value on w and reads the answer from r,
// returning def when the answer is empty.
func promptString(r *bufio.Reader, w io.Writer, prompt, def string) string {
	fmt.Fprintf(w, "%s [%s]: ", prompt, def)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return def
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

// promptInt asks for an integer with a default.
func promptInt(r *bufio.Reader, w io.Writer, prompt string, def int) (int, error) {
	answer := promptString(r, w, prompt, strconv.Itoa(def))
	n, err := strconv.Atoi(answer)
	if err != nil {
		return 0, fmt.Errorf("expected a number, got %q", answer)
	}
	return n, nil
}
