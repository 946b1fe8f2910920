package tree

import "diffwrite/internal/writer"

// Entry is the outcome of one source entry, in walk order.
type Entry struct {
	Path    string         `json:"path"` // slash-separated, relative to the source root
	Outcome writer.Outcome `json:"outcome"`
	Size    int64          `json:"size"`
	Reason  string         `json:"reason,omitempty"` // why a Skipped entry was skipped
}

// Summary records what a Sync call did
type Summary struct {
	RunID       string  `json:"run_id"`
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	DryRun      bool    `json:"dry_run"`
	Entries     []Entry `json:"entries"`

	Written      int   `json:"written"`
	Unchanged    int   `json:"unchanged"`
	Skipped      int   `json:"skipped"`
	DirsCreated  int   `json:"dirs_created"`
	BytesWritten int64 `json:"bytes_written"`
}

func (s *Summary) record(e Entry) {
	s.Entries = append(s.Entries, e)
	switch e.Outcome {
	case writer.Written:
		s.Written++
		s.BytesWritten += e.Size
	case writer.Unchanged:
		s.Unchanged++
	case writer.Skipped:
		s.Skipped++
	}
}

// Changed reports whether the sync wrote anything or created any directory.
func (s *Summary) Changed() bool {
	return s.Written > 0 || s.DirsCreated > 0
}

// WrittenPaths lists the relative paths of written files in walk order.
func (s *Summary) WrittenPaths() []string {
	var paths []string
	for _, e := range s.Entries {
		if e.Outcome == writer.Written {
			paths = append(paths, e.Path)
		}
	}
	return paths
}
