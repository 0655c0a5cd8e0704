// Command tracecat renders a run's JSONL trace as a readable step-by-step
// timeline: one line per step_start/verification/step_end/error event,
// in emission order, with snapshot/action events folded in as context.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
)

func main() {
	path := flag.String("file", "", "path to a JSONL trace file (required)")
	filterType := flag.String("type", "", "only print events of this type (e.g. verification)")
	runID := flag.String("run", "", "only print events for this run_id")
	raw := flag.Bool("raw", false, "print each matching line verbatim instead of formatting it")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tracecat - render a run's JSONL trace as a readable timeline\n\n")
		fmt.Fprintf(os.Stderr, "Usage: tracecat -file trace.jsonl\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *path == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*path, *filterType, *runID, *raw); err != nil {
		log.Fatalf("tracecat: %v", err)
	}
}

func run(path, filterType, runID string, raw bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		var evt map[string]interface{}
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			fmt.Fprintf(os.Stderr, "tracecat: skipping malformed line %d: %v\n", lineNo, err)
			continue
		}

		if runID != "" && fmt.Sprint(evt["run_id"]) != runID {
			continue
		}
		if filterType != "" && fmt.Sprint(evt["type"]) != filterType {
			continue
		}

		if raw {
			fmt.Println(line)
			continue
		}
		fmt.Println(formatEvent(evt))
	}
	return scanner.Err()
}

func formatEvent(evt map[string]interface{}) string {
	evtType := fmt.Sprint(evt["type"])
	stepID := shortID(fmt.Sprint(evt["step_id"]))
	prefix := fmt.Sprintf("[%s] %-12s", stepID, evtType)

	switch evtType {
	case "step_start":
		return fmt.Sprintf("%s goal=%q", prefix, evt["goal"])
	case "step_end":
		return fmt.Sprintf("%s goal=%q duration_ms=%v failed=%v verifications=%v",
			prefix, evt["goal"], evt["duration_ms"], evt["failed"], evt["verification_count"])
	case "snapshot":
		return fmt.Sprintf("%s url=%q elements=%v captcha=%v",
			prefix, evt["url"], evt["element_count"], evt["captcha_detected"])
	case "verification":
		return fmt.Sprintf("%s label=%q kind=%v required=%v passed=%v reason=%q attempts=%v",
			prefix, evt["label"], evt["kind"], evt["required"], evt["passed"], evt["reason"], evt["attempts"])
	case "error":
		return fmt.Sprintf("%s artifact=%q", prefix, evt["artifact_path"])
	default:
		return fmt.Sprintf("%s %v", prefix, evt)
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
