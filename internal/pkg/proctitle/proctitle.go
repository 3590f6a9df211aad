package proctitle

// DefaultTitle is the process name shown in ps/top for this binary.
const DefaultTitle = "gp-core"

// SetDefault applies the project's default process title.
func SetDefault() error { return Set(DefaultTitle) }
