package debug

import (
	"fmt"
	"io"
	"log"

	"github.com/b2nix/nx/internal/envir"
)

var enabled bool

func init() {
	enabled = envir.IsDebugEnabled()
}

func IsEnabled() bool { return enabled }

func Enable() {
	enabled = true
	log.SetPrefix("[DEBUG] ")
	log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)
}

func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func Log(format string, v ...any) {
	if !enabled {
		return
	}
	_ = log.Output(2, fmt.Sprintf(format, v...))
}

// Recover prints panics as plain errors unless debug mode is on, in which
// case the panic is re-raised with its stack.
func Recover() {
	r := recover()
	if r == nil {
		return
	}
	if enabled {
		panic(r)
	}
	fmt.Println("Error:", r)
}
