package main

import "github.com/MeKo-Tech/phonix/internal/cmd"

func main() {
	cmd.Execute()
}
