/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "trident/cmd"

func main() {
	cmd.Execute()
}
