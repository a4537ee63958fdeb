/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/ssargent/fbtfile/cmd/fbt/cmd"
)

func main() {
	cmd.Execute()
}
