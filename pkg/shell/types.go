package shell

// ShellType identifies a front-end shell family, used to tag the Info
// surface (spec §6) and to select per-shell defaults where needed.
type ShellType string

const (
	Bash ShellType = "bash"
	Zsh  ShellType = "zsh"
	Fish ShellType = "fish"
	Ksh  ShellType = "ksh"
)

func (s ShellType) String() string {
	if s == "" {
		return string(Bash)
	}
	return string(s)
}
