// Command ragctl inspects and operates the document retrieval pipeline.
//
//	ragctl chunk lesson.md --size 500 --overlap 100
//	ragctl ping
//	ragctl search "what is a vowel" --threshold 0.6
//	ragctl reprocess 42
//
// Configuration is read the same way as the server: CONFIG_FILE, .env and
// environment overrides.
package main

import (
	"os"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
