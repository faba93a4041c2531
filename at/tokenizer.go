package at

import (
	"bufio"
	"bytes"
	"strings"
)

// Splitter is used for tokenizing ESP8266 output. It uses the signature of
// bufio.SplitFunc so it can be directly used with bufio.Scanner.
//
// It splits the input by CRLF line endings and also recognizes the
// AT+CIPSEND input prompt ("> "). The ESP8266 echoes commands by default, so
// echoed command lines come out as ordinary tokens.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// 1. Match CIPSEND Prompt
	if bytes.HasPrefix(data, []byte(Prompt)) {
		return len(Prompt), data[0:len(Prompt)], nil
	}

	// 2. Match standard line ending with CRLF
	if i := bytes.Index(data, []byte(CRLF)); i >= 0 {
		return i + len(CRLF), data[0:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

// Classify identifies the nature of the module output
func Classify(line string) ResponseType {
	if line == Prompt {
		return TypePrompt
	}

	// Direct matches for final results
	switch line {
	case OK, ERROR, FAIL, SendOK, SendFail:
		return TypeFinal
	}

	switch {
	case strings.HasPrefix(line, Busy):
		return TypeFinal
	case strings.HasPrefix(line, UrcReceive),
		line == UrcReady,
		line == UrcWifiConnected,
		line == UrcWifiGotIP,
		line == UrcWifiDisconn,
		line == UrcClosed:
		return TypeURC
	default:
		return TypeData
	}
}

// Lines tokenizes raw module output into non-empty lines. A trailing
// fragment without CRLF is returned as the last line.
func Lines(data []byte) []string {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Split(Splitter)

	var lines []string
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
