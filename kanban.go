package main

import (
	"github.com/caesium-cloud/kanban/cmd"
	"github.com/caesium-cloud/kanban/pkg/env"
	"github.com/caesium-cloud/kanban/pkg/log"
)

func main() {
	if err := env.Process(); err != nil {
		log.Fatal("environment failure", "error", err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal("kanban failure", "error", err)
	}
}
