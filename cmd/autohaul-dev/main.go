package main

import (
	"autohaul-app/internal/api"
)

func main() {
	api.StartServer()
}
