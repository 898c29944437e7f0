// Command journal runs the mood journal web service.
package main

import (
	"fmt"

	"github.com/patric-chuzhbe/moodjournal/internal/app"
	"github.com/patric-chuzhbe/moodjournal/internal/config"
)

var (
	buildVersion = "N/A"
	buildDate    = "N/A"
	buildCommit  = "N/A"
)

func printBuildInfo() {
	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}

func main() {
	printBuildInfo()

	cfg, err := config.New()
	if err != nil {
		panic(err)
	}

	journal, err := app.New(cfg)
	if err != nil {
		panic(err)
	}
	defer journal.Close()

	if err := journal.Run(); err != nil {
		panic(err)
	}
}
