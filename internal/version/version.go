package version

import "fmt"

// Заполняются при сборке через -ldflags -X.
var (
	version = "dev"
	commit  = "none"
	built   = "unknown"
)

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, built }

// String возвращает человекочитаемую строку версии для логов.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", version, commit, built)
}
