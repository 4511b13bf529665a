package main

// Default limits for CLI commands.
const (
	DefaultRecommendLimit = 5
)

// Output formats.
const (
	formatTree = "tree"
	formatList = "list"
	formatJSON = "json"
)

var (
	relationsFormats = []string{formatTree, formatList, formatJSON}
	hierarchyFormats = []string{formatTree, formatJSON}
	pathFormats      = []string{formatList, formatJSON}
)
