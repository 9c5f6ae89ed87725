package main

import (
	"log"

	"cdc-generator/internal/util"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		util.SyncLogger()
		log.Fatalf("Generator failed: %v", err)
	}
}
