// Package auditlog appends staff actions to a plain text file, one line
// per action: "<RFC3339 timestamp> - <actor> <action>".
package auditlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fortytworoma/monitor/core"
)

const fileName = "actions.log"

type FileLog struct {
	mu     sync.Mutex
	path   string
	logger core.Logger
}

var _ core.ActionLog = (*FileLog)(nil) // interface compliance check

func NewFileLog(dataDir string, logger core.Logger) *FileLog {
	return &FileLog{path: filepath.Join(dataDir, fileName), logger: logger}
}

func (l *FileLog) Record(actor, action string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		l.logger.Error(fmt.Sprintf("audit log: %v", err), err)
		return
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		l.logger.Error(fmt.Sprintf("audit log: %v", err), err)
		return
	}
	defer f.Close()

	line := fmt.Sprintf("%s - %s %s\n", time.Now().UTC().Format(time.RFC3339), actor, action)
	if _, err = f.WriteString(line); err != nil {
		l.logger.Error(fmt.Sprintf("audit log: %v", err), err)
	}
}
