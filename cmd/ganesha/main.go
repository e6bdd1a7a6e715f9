package main

import "github.com/G-TechSD/ganesha-ai/cmd/ganesha/cmd"

func main() {
	cmd.Execute()
}
