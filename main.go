package main

import "github.com/KaramelBytes/profiloom/cmd"

func main() {
	cmd.Execute()
}
