package main

import (
	"golestan-backend/cmd/golestan-cli/cmd"
)

func main() {
	cmd.Execute()
}
