package gemini

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/calrock27/genflow/pkg/models"
)

// consumeSSE reads server-sent events from r, decoding each data line as
// one response fragment. Lines without a data prefix (comments, event
// names, blank separators) are skipped. The "[DONE]" sentinel, when
// present, terminates the stream.
func consumeSSE(r io.Reader, fn func(*GenerateContentResponse) error) error {
	scanner := bufio.NewScanner(r)
	// Fragments carrying inline media can be large.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}

		data = strings.TrimSpace(data)
		if data == "" || data == "[DONE]" {
			continue
		}

		var fragment GenerateContentResponse
		if err := json.Unmarshal([]byte(data), &fragment); err != nil {
			return models.WrapFlowError(models.ErrKindTransport, "decode_stream", err,
				"failed to decode stream fragment")
		}

		if err := fn(&fragment); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return models.WrapFlowError(models.ErrKindTransport, "stream_read", err,
			"stream aborted")
	}

	return nil
}
