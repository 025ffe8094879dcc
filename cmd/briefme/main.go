package main

import (
	"briefme/cmd/handlers"
)

func main() {
	handlers.Execute()
}
