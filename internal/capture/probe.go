package capture

import (
	"fmt"
	"strconv"
	"strings"
)

// parseProbeCSV parses ffprobe's "csv=p=0" output for stream=width,height,
// e.g. "1920,1080\n".
func parseProbeCSV(out []byte) (width, height int, err error) {
	line := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	parts := strings.Split(line, ",")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("unexpected ffprobe output: %q", line)
	}
	width, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("parse width: %w", err)
	}
	height, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("parse height: %w", err)
	}
	return width, height, nil
}
