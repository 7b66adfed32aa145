package util

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/astaxie/beego/logs"
)

type logconfig struct {
	Filename string `json:"filename"`
	Level    int    `json:"level"`
	MaxLines int    `json:"maxlines"`
	MaxSize  int    `json:"maxsize"`
	Daily    bool   `json:"daily"`
	MaxDays  int    `json:"maxdays"`
	Color    bool   `json:"color"`
}

var logCfg = logconfig{
	Filename: os.Args[0],
	Level:    logs.LevelInformational,
	Daily:    true,
	MaxSize:  10 * 1024 * 1024,
	MaxLines: 100 * 1024,
	MaxDays:  7,
	Color:    false,
}

// LogInit routes logs to stderr at debug level when debug is set, and to
// a daily rotated file under dir otherwise.
func LogInit(dir string, debug bool, filename string) error {
	var err error
	if debug {
		err = logs.SetLogger(AdapterStderr, `{"level":7}`)
		logs.SetLevel(logs.LevelDebug)
	} else {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create log dir %s: %w", dir, err)
		}
		logCfg.Filename = fmt.Sprintf("%s%c%s", dir, os.PathSeparator, filename)
		value, merr := json.Marshal(&logCfg)
		if merr != nil {
			return merr
		}
		err = logs.SetLogger(logs.AdapterFile, string(value))
		logs.SetLevel(logs.LevelInformational)
	}
	if err != nil {
		return err
	}
	logs.Async(100)
	logs.EnableFuncCallDepth(true)
	logs.SetLogFuncCallDepth(3)
	return nil
}

// LogFlush drains the async log channel. Call it before os.Exit.
func LogFlush() {
	logs.GetBeeLogger().Flush()
}
