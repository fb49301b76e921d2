package main

import "github.com/MeKo-Tech/imagetools/internal/cmd"

func main() {
	cmd.Execute()
}
