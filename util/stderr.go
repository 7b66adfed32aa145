package util

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/astaxie/beego/logs"
)

// AdapterStderr is the beego adapter name for debug output on stderr.
const AdapterStderr = "stderr"

// stderrWriter is the console adapter pointed at stderr instead of stdout.
type stderrWriter struct {
	sync.Mutex
	out   io.Writer
	Level int `json:"level"`
}

func newStderr() logs.Logger {
	return &stderrWriter{out: os.Stderr, Level: logs.LevelDebug}
}

func (w *stderrWriter) Init(config string) error {
	if len(config) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(config), w)
}

func (w *stderrWriter) WriteMsg(when time.Time, msg string, level int) error {
	if level > w.Level {
		return nil
	}
	line := when.Format("2006/01/02 15:04:05.000 ") + msg + "\n"
	w.Lock()
	defer w.Unlock()
	_, err := io.WriteString(w.out, line)
	return err
}

func (w *stderrWriter) Destroy() {}

func (w *stderrWriter) Flush() {}

func init() {
	logs.Register(AdapterStderr, newStderr)
}
