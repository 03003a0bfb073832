package record

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxLineBytes bounds a single transcript line. Tool results can carry
// whole file contents, so the default bufio limit is far too small.
const maxLineBytes = 16 * 1024 * 1024

// SessionRecord is a Record backed by one session transcript file.
type SessionRecord struct {
	SessionID    string
	Created      time.Time
	LastEntry    time.Time
	Cwd          string
	Instruction  string
	ChildPrompts []string
	ParentID     string
	FilePath     string
}

func (r *SessionRecord) ID() string                          { return r.SessionID }
func (r *SessionRecord) CreatedAt() time.Time                { return r.Created }
func (r *SessionRecord) LastActivity() time.Time             { return r.LastEntry }
func (r *SessionRecord) Workspace() string                   { return r.Cwd }
func (r *SessionRecord) OwnInstruction() string              { return r.Instruction }
func (r *SessionRecord) DeclaredChildInstructions() []string { return r.ChildPrompts }
func (r *SessionRecord) DeclaredParentID() string            { return r.ParentID }

// transcriptLine is the subset of a transcript entry we care about.
type transcriptLine struct {
	Type            string          `json:"type"`
	SessionID       string          `json:"sessionId"`
	ParentSessionID string          `json:"parentSessionId"`
	Timestamp       string          `json:"timestamp"`
	Cwd             string          `json:"cwd"`
	Message         json.RawMessage `json:"message"`
}

// message covers both user messages (content as plain string or block
// list) and assistant messages (block list with tool_use entries).
type message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

type taskInput struct {
	Prompt      string `json:"prompt"`
	Description string `json:"description"`
}

// ParseSessionFile reads one transcript and builds a SessionRecord.
// Lines that fail to parse are skipped; the file as a whole only fails
// when it cannot be opened or contains no parseable entry at all.
func ParseSessionFile(path string) (*SessionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec := &SessionRecord{FilePath: path}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	sawEntry := false
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var line transcriptLine
		if err := json.Unmarshal(raw, &line); err != nil {
			continue
		}
		sawEntry = true

		if rec.SessionID == "" && line.SessionID != "" {
			rec.SessionID = line.SessionID
		}
		if rec.ParentID == "" && line.ParentSessionID != "" {
			rec.ParentID = line.ParentSessionID
		}
		if rec.Cwd == "" && line.Cwd != "" {
			rec.Cwd = line.Cwd
		}

		if ts, err := time.Parse(time.RFC3339, line.Timestamp); err == nil {
			if rec.Created.IsZero() || ts.Before(rec.Created) {
				rec.Created = ts
			}
			if ts.After(rec.LastEntry) {
				rec.LastEntry = ts
			}
		}

		switch line.Type {
		case "user":
			if rec.Instruction == "" {
				rec.Instruction = userText(line.Message)
			}
		case "assistant":
			rec.ChildPrompts = append(rec.ChildPrompts, taskPrompts(line.Message)...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	if !sawEntry {
		return nil, fmt.Errorf("no transcript entries in %s", path)
	}

	// Fall back to the filename for sessions that never wrote an id.
	if rec.SessionID == "" {
		rec.SessionID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return rec, nil
}

// userText extracts the text of a user message. Content is either a
// plain string or a list of blocks.
func userText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var msg message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ""
	}

	var s string
	if err := json.Unmarshal(msg.Content, &s); err == nil {
		return s
	}

	var blocks []contentBlock
	if err := json.Unmarshal(msg.Content, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// taskPrompts extracts the prompts of Task tool invocations from an
// assistant message. Each one is a sub-task this session declared.
func taskPrompts(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var msg message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil
	}

	var blocks []contentBlock
	if err := json.Unmarshal(msg.Content, &blocks); err != nil {
		return nil
	}

	var prompts []string
	for _, b := range blocks {
		if b.Type != "tool_use" || b.Name != "Task" {
			continue
		}
		var in taskInput
		if err := json.Unmarshal(b.Input, &in); err != nil {
			continue
		}
		if in.Prompt != "" {
			prompts = append(prompts, in.Prompt)
		}
	}
	return prompts
}

// ReadDir parses every *.jsonl transcript under dir (recursively) and
// returns the resulting records. Unreadable or empty files are skipped
// and counted, not fatal.
func ReadDir(dir string) ([]Record, int, error) {
	var records []Record
	skipped := 0

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			skipped++
			return nil // unreadable entry
		}
		if info.IsDir() || !strings.HasSuffix(path, ".jsonl") {
			return nil
		}
		rec, err := ParseSessionFile(path)
		if err != nil {
			skipped++
			return nil
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return records, skipped, nil
}
