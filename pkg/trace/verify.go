package trace

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// VerifyResult is the outcome of verifying a trace file.
type VerifyResult struct {
	EventCount int    `json:"event_count"`
	Valid      bool   `json:"valid"`
	BrokenAt   int    `json:"broken_at"` // 1-based event index, -1 if no break
	RunID      string `json:"run_id,omitempty"`
	Outcome    string `json:"outcome,omitempty"`
	Error      string `json:"error,omitempty"`
}

// VerifyFile verifies the hash chain of a trace file.
func VerifyFile(path string) (*VerifyResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	defer f.Close()
	return Verify(f)
}

// Verify checks hash chain integrity and that all events share one run ID.
func Verify(r io.Reader) (*VerifyResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB max line

	expectedPrevHash := genesisHash
	res := &VerifyResult{Valid: true, BrokenAt: -1}
	broken := func(msg string, args ...any) (*VerifyResult, error) {
		res.Valid = false
		res.BrokenAt = res.EventCount
		res.Error = fmt.Sprintf("event %d: ", res.EventCount) + fmt.Sprintf(msg, args...)
		return res, nil
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		res.EventCount++

		var evt Event
		if err := json.Unmarshal(line, &evt); err != nil {
			return broken("invalid JSON: %v", err)
		}
		if evt.PrevHash != expectedPrevHash {
			return broken("prev_hash mismatch (expected %s, got %s)", short(expectedPrevHash), short(evt.PrevHash))
		}
		if res.RunID == "" {
			res.RunID = evt.RunID
		} else if evt.RunID != res.RunID {
			return broken("run_id %q differs from %q", evt.RunID, res.RunID)
		}
		if evt.Type == EventRunComplete {
			res.Outcome, _ = evt.Data["outcome"].(string)
		}

		h := sha256.Sum256(line)
		expectedPrevHash = hex.EncodeToString(h[:])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return res, nil
}

func short(hash string) string {
	if len(hash) > 16 {
		return hash[:16] + "..."
	}
	return hash
}
