package tui

// Key bindings handled in handleKey.
const (
	KeyQuit      = "q"
	KeyQuitUpper = "Q"
	KeyCtrlC     = "ctrl+c"
	KeySpace     = " "
	KeyReset     = "r"
	KeyNewChat   = "n"
)
