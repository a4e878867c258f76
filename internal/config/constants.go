package config

// FileName is the configuration file looked up by FindConfig.
const FileName = "expreval.yaml"

// FileNames are all recognized configuration file names, in lookup order.
var FileNames = []string{FileName, "expreval.yml"}

// Defaults applied to omitted fields.
const (
	DefaultBackend    = "step"
	DefaultServerAddr = "localhost:7070"
	DefaultTable      = "variables"
)
