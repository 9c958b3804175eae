package build

var (
	Name    = "changefmt"
	Version = "v0.0.0+dev"
)
