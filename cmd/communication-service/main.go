// Package main — точка входа communication-service (HTTP + WebSocket).
package main

import (
	"log"

	"github.com/Turbi-kon/online-school-backend/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
